package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/finledger/bankfeed/db"
	"github.com/finledger/bankfeed/pkg/config"
	"github.com/finledger/bankfeed/pkg/models"
	"github.com/finledger/bankfeed/pkg/provider"
)

// SyncState is the per-connection state machine position.
type SyncState int

const (
	StateIdle SyncState = iota
	StatePaginating
	StateRefreshing
	StateDone
	StateFailed
)

func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaginating:
		return "paginating"
	case StateRefreshing:
		return "refreshing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectionFailure reports why one connection's sync failed, so a caller
// can retry that institution alone.
type ConnectionFailure struct {
	ConnectionID    int64              `json:"connectionId"`
	InstitutionName string             `json:"institutionName"`
	Kind            provider.ErrorKind `json:"errorKind"`
	Reason          string             `json:"reason"`
}

// SyncResult aggregates one orchestrator run across all connections.
// Counts are exact affected-row counts reported by the ledger store.
type SyncResult struct {
	Added    int64               `json:"added"`
	Modified int64               `json:"modified"`
	Removed  int64               `json:"removed"`
	Skipped  int                 `json:"skipped"`
	Failures []ConnectionFailure `json:"failures,omitempty"`
}

// Syncer drives the bank-feed sync: for every active connection it pages
// the provider's change stream to exhaustion, applies each page
// atomically, advances the cursor, then refreshes balances. Connections
// fail independently.
type Syncer struct {
	store      db.Store
	client     provider.Client
	classifier *Classifier

	maxPages    int
	parallelism int
}

// NewSyncer wires the orchestrator from its injected dependencies.
func NewSyncer(store db.Store, client provider.Client, opts config.SyncOptions) *Syncer {
	maxPages := opts.MaxPagesPerSync
	if maxPages <= 0 {
		maxPages = 50
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Syncer{
		store:       store,
		client:      client,
		classifier:  NewClassifier(store),
		maxPages:    maxPages,
		parallelism: parallelism,
	}
}

// RunSync syncs every active connection and returns aggregate counts plus
// the per-connection failure list. One broken institution link never
// aborts the batch nor rolls back work applied for other connections.
// Overlapping invocations must be serialized by the caller: two runs
// paging the same connection would break the single-writer assumption.
func (s *Syncer) RunSync(ctx context.Context) (*SyncResult, error) {
	connections, err := s.store.GetActiveConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active connections: %w", err)
	}

	result := &SyncResult{}
	if len(connections) == 0 {
		log.Info().Msg("No active connections to sync")
		return result, nil
	}

	var mu sync.Mutex
	group := errgroup.Group{}
	// One worker per connection: the limit bounds provider load while the
	// per-goroutine ownership keeps a single writer per connection.
	group.SetLimit(s.parallelism)

	for _, conn := range connections {
		group.Go(func() error {
			outcome := s.syncConnection(ctx, conn)

			mu.Lock()
			defer mu.Unlock()
			result.Added += outcome.applied.Added
			result.Modified += outcome.applied.Modified
			result.Removed += outcome.applied.Removed
			result.Skipped += outcome.skipped
			if outcome.failure != nil {
				result.Failures = append(result.Failures, *outcome.failure)
			}
			return nil
		})
	}

	// Workers report failures through the result, never as errors.
	_ = group.Wait()

	log.Info().
		Int64("added", result.Added).
		Int64("modified", result.Modified).
		Int64("removed", result.Removed).
		Int("skipped", result.Skipped).
		Int("failed_connections", len(result.Failures)).
		Msg("Sync run complete")

	return result, nil
}

type connOutcome struct {
	applied db.ApplyResult
	skipped int
	failure *ConnectionFailure
}

// syncConnection walks one connection through the state machine:
// Paginating -> Refreshing -> Done, with Failed reachable from any state.
func (s *Syncer) syncConnection(ctx context.Context, conn *models.Connection) connOutcome {
	outcome := connOutcome{}
	state := StatePaginating
	logger := log.With().
		Int64("connection_id", conn.ID).
		Str("institution", conn.InstitutionName).
		Logger()

	fail := func(err error) connOutcome {
		kind := provider.KindOf(err)
		logger.Error().Err(err).
			Stringer("state", state).
			Str("kind", string(kind)).
			Msg("Connection sync failed")
		if provider.IsTerminal(err) {
			// The credential is dead; keep the connection out of future
			// runs until it is relinked.
			if statusErr := s.store.SetConnectionStatus(ctx, conn.ID, models.ConnectionError); statusErr != nil {
				logger.Error().Err(statusErr).Msg("Failed to mark connection errored")
			}
		}
		state = StateFailed
		outcome.failure = &ConnectionFailure{
			ConnectionID:    conn.ID,
			InstitutionName: conn.InstitutionName,
			Kind:            kind,
			Reason:          err.Error(),
		}
		return outcome
	}

	// Pagination works on an in-memory cursor; the store's cursor only
	// moves once the whole sequence has been applied.
	cursor := conn.NextCursor
	pages := 0
	for {
		if pages >= s.maxPages {
			return fail(fmt.Errorf("pagination did not terminate after %d pages", s.maxPages))
		}

		// Fetch first, then apply: no store transaction stays open across
		// a network call.
		page, err := s.client.FetchDeltaPage(ctx, conn.AccessToken, cursor)
		if err != nil {
			return fail(fmt.Errorf("failed to fetch delta page: %w", err))
		}

		ops, skipped, err := s.classifier.ClassifyPage(ctx, page)
		if err != nil {
			return fail(fmt.Errorf("failed to classify delta page: %w", err))
		}
		outcome.skipped += skipped

		applied, err := s.store.ApplyPage(ctx, conn.ID, ops)
		if err != nil {
			// The page transaction rolled back; the cursor stays put so
			// the next run re-fetches this page.
			return fail(fmt.Errorf("failed to apply delta page: %w", err))
		}
		outcome.applied.Added += applied.Added
		outcome.applied.Modified += applied.Modified
		outcome.applied.Removed += applied.Removed

		cursor = page.NextCursor
		pages++
		if !page.HasMore {
			break
		}
	}

	// The full page sequence is durably applied; persisting the cursor
	// now means a crash earlier re-processes at most one page, and the
	// operations are idempotent.
	if err := s.store.AdvanceCursor(ctx, conn.ID, cursor, time.Now().UTC()); err != nil {
		return fail(fmt.Errorf("failed to advance cursor: %w", err))
	}
	state = StateRefreshing

	snapshot, err := s.client.FetchAccountSnapshot(ctx, conn.AccessToken)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch account snapshot: %w", err))
	}

	for _, providerAccount := range snapshot {
		local, err := s.store.FindAccountByProviderID(ctx, providerAccount.ID)
		if err != nil {
			return fail(fmt.Errorf("failed to resolve account %s: %w", providerAccount.ID, err))
		}
		if local == nil {
			logger.Warn().Str("provider_account_id", providerAccount.ID).
				Msg("Provider account not onboarded, skipping balance refresh")
			continue
		}
		if err := s.store.RefreshAccountBalance(ctx, providerAccount.ID, providerAccount.BalanceMinor(), providerAccount.Mask); err != nil {
			return fail(fmt.Errorf("failed to refresh balance for account %s: %w", providerAccount.ID, err))
		}
	}

	state = StateDone
	logger.Info().
		Stringer("state", state).
		Int("pages", pages).
		Int64("added", outcome.applied.Added).
		Int64("modified", outcome.applied.Modified).
		Int64("removed", outcome.applied.Removed).
		Msg("Connection synced")

	return outcome
}
