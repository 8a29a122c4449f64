package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/finledger/bankfeed/pkg/provider"
	"github.com/finledger/bankfeed/pkg/services"
)

// SyncRunner is the one operation the trigger surface needs from the
// orchestrator.
type SyncRunner interface {
	RunSync(ctx context.Context) (*services.SyncResult, error)
}

// Server exposes the sync engine over HTTP: a sync trigger, the linking
// callback, health, and Prometheus metrics.
type Server struct {
	syncer SyncRunner
	linker *services.Linker
	router *mux.Router

	// Concurrent sync triggers collapse into one run; overlapping runs
	// on the same connection would violate the single-writer rule.
	syncGroup singleflight.Group
}

// New builds the HTTP server around the orchestrator and linker.
func New(syncer SyncRunner, linker *services.Linker) *Server {
	s := &Server{
		syncer: syncer,
		linker: linker,
	}

	r := mux.NewRouter()
	r.Use(requestLogging)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	r.HandleFunc("/link", s.handleLink).Methods(http.MethodPost)
	s.router = r

	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("Server starting")
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	value, err, shared := s.syncGroup.Do("sync", func() (any, error) {
		return s.syncer.RunSync(r.Context())
	})
	if err != nil {
		syncRunsTotal.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result := value.(*services.SyncResult)
	if !shared {
		observeSyncResult(result, time.Since(started))
	}

	respondJSON(w, http.StatusOK, result)
}

type linkRequest struct {
	PublicToken     string `json:"publicToken"`
	InstitutionID   string `json:"institutionId"`
	InstitutionName string `json:"institutionName"`
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if req.PublicToken == "" {
		respondError(w, http.StatusBadRequest, "publicToken is required")
		return
	}

	conn, accounts, err := s.linker.LinkInstitution(r.Context(), req.PublicToken, req.InstitutionID, req.InstitutionName)
	if err != nil {
		if provider.IsTerminal(err) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"connection": conn,
		"accounts":   accounts,
	})
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := uuid.NewString()

		next.ServeHTTP(w, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(started)).
			Msg("Request handled")
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
