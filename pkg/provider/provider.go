package provider

import (
	"context"

	"github.com/finledger/bankfeed/pkg/models"
)

// Client wraps the remote aggregation API. Implementations must treat it
// as a fallible, rate-limited dependency: every call honors the context,
// is bounded by a timeout, and surfaces failures as *Error so callers can
// tell retryable conditions from ones terminal for the credential.
type Client interface {
	// FetchDeltaPage retrieves one page of transaction deltas. An empty
	// cursor means initial full sync.
	FetchDeltaPage(ctx context.Context, accessToken, cursor string) (*models.DeltaPage, error)

	// FetchAccountSnapshot returns current balances and metadata for every
	// account under the credential.
	FetchAccountSnapshot(ctx context.Context, accessToken string) ([]models.ProviderAccount, error)

	// ExchangePublicToken completes the external linking flow, trading a
	// public token for the item id and its access credential.
	ExchangePublicToken(ctx context.Context, publicToken string) (itemID, accessToken string, err error)
}
