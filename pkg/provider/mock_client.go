package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/finledger/bankfeed/pkg/models"
)

// MockClient is a scriptable Client for testing. Pages are keyed by
// access token and then by cursor, so a test can replay the same cursor
// (crash-resume) or walk a multi-page sequence.
type MockClient struct {
	mu sync.Mutex

	// Pages maps accessToken -> cursor -> page. The initial full sync
	// requests cursor "".
	Pages map[string]map[string]*models.DeltaPage
	// Snapshots maps accessToken -> provider accounts.
	Snapshots map[string][]models.ProviderAccount

	// Error values to return, keyed by access token
	FetchErr    map[string]error
	SnapshotErr map[string]error

	// ExchangeItemID/ExchangeAccessToken are returned by
	// ExchangePublicToken; ExchangeErr wins when set.
	ExchangeItemID      string
	ExchangeAccessToken string
	ExchangeErr         error

	FetchCalls    int
	SnapshotCalls int
}

// NewMockClient creates an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{
		Pages:       make(map[string]map[string]*models.DeltaPage),
		Snapshots:   make(map[string][]models.ProviderAccount),
		FetchErr:    make(map[string]error),
		SnapshotErr: make(map[string]error),
	}
}

// AddPage scripts the page returned for a token at a given cursor.
func (m *MockClient) AddPage(accessToken, cursor string, page *models.DeltaPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Pages[accessToken] == nil {
		m.Pages[accessToken] = make(map[string]*models.DeltaPage)
	}
	m.Pages[accessToken][cursor] = page
}

func (m *MockClient) FetchDeltaPage(ctx context.Context, accessToken, cursor string) (*models.DeltaPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCalls++

	if err := m.FetchErr[accessToken]; err != nil {
		return nil, err
	}

	page, ok := m.Pages[accessToken][cursor]
	if !ok {
		return nil, &Error{Kind: KindRetryable, Err: fmt.Errorf("no page scripted for cursor %q", cursor)}
	}
	return page, nil
}

func (m *MockClient) FetchAccountSnapshot(ctx context.Context, accessToken string) ([]models.ProviderAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SnapshotCalls++

	if err := m.SnapshotErr[accessToken]; err != nil {
		return nil, err
	}
	return m.Snapshots[accessToken], nil
}

func (m *MockClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ExchangeErr != nil {
		return "", "", m.ExchangeErr
	}
	return m.ExchangeItemID, m.ExchangeAccessToken, nil
}

// Ensure both implementations satisfy Client
var (
	_ Client = (*PlaidClient)(nil)
	_ Client = (*MockClient)(nil)
)
