package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/finledger/bankfeed/pkg/services"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankfeed_sync_runs_total",
		Help: "Total sync runs, labeled by outcome",
	}, []string{"outcome"})

	syncChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankfeed_sync_changes_total",
		Help: "Ledger rows touched by sync, labeled by change type",
	}, []string{"change"})

	syncConnectionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankfeed_sync_connection_failures_total",
		Help: "Per-connection sync failures, labeled by error kind",
	}, []string{"kind"})

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bankfeed_sync_duration_seconds",
		Help:    "Duration of full sync runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

func observeSyncResult(result *services.SyncResult, elapsed time.Duration) {
	outcome := "ok"
	if len(result.Failures) > 0 {
		outcome = "partial"
	}
	syncRunsTotal.WithLabelValues(outcome).Inc()
	syncChangesTotal.WithLabelValues("added").Add(float64(result.Added))
	syncChangesTotal.WithLabelValues("modified").Add(float64(result.Modified))
	syncChangesTotal.WithLabelValues("removed").Add(float64(result.Removed))
	for _, failure := range result.Failures {
		syncConnectionFailures.WithLabelValues(string(failure.Kind)).Inc()
	}
	syncDuration.Observe(elapsed.Seconds())
}
