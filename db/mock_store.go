package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finledger/bankfeed/pkg/models"
)

// BalanceRefresh records one RefreshAccountBalance call on the mock.
type BalanceRefresh struct {
	ProviderAccountID string
	BalanceMinor      int64
	Mask              string
}

// MockStore is an in-memory Store for testing. It mirrors the real
// store's idempotency semantics (inserts keyed on provider transaction
// id, updates and deletes no-ops when the id is absent) and is safe for
// concurrent use since the orchestrator applies pages from several
// goroutines.
type MockStore struct {
	mu sync.Mutex

	Connections  map[int64]*models.Connection
	Accounts     map[string]*models.Account      // keyed by provider account id
	Transactions map[string]*models.Transaction  // keyed by provider transaction id
	Manual       map[int64]*models.Transaction   // manually-entered rows by id
	Refreshes    []BalanceRefresh
	PageApplies  map[int64]int // pages applied per connection

	nextID int64

	// Error values to return
	GetActiveConnectionsErr  error
	CreateConnectionErr      error
	SetConnectionStatusErr   error
	AdvanceCursorErr         error
	FindAccountErr           error
	CreateProviderAccountErr map[string]error // keyed by provider account id
	RefreshBalanceErr        error
	ApplyPageErr             map[int64]error // keyed by connection id
}

// NewMockStore creates a new mock store
func NewMockStore() *MockStore {
	return &MockStore{
		Connections:  make(map[int64]*models.Connection),
		Accounts:     make(map[string]*models.Account),
		Transactions: make(map[string]*models.Transaction),
		Manual:       make(map[int64]*models.Transaction),
		PageApplies:  make(map[int64]int),
	}
}

// AddConnection seeds a connection and returns it.
func (m *MockStore) AddConnection(conn *models.Connection) *models.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn.ID == 0 {
		m.nextID++
		conn.ID = m.nextID
	}
	m.Connections[conn.ID] = conn
	return conn
}

// AddAccount seeds a provider-linked account and returns it.
func (m *MockStore) AddAccount(account *models.Account) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == 0 {
		m.nextID++
		account.ID = m.nextID
	}
	m.Accounts[account.ProviderAccountID] = account
	return account
}

func (m *MockStore) Initialize() error { return nil }
func (m *MockStore) Close() error      { return nil }

func (m *MockStore) CreateConnection(ctx context.Context, conn *models.Connection) error {
	if m.CreateConnectionErr != nil {
		return m.CreateConnectionErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Connections {
		if existing.ItemID == conn.ItemID {
			return fmt.Errorf("failed to create connection: item %s already linked", conn.ItemID)
		}
	}

	m.nextID++
	conn.ID = m.nextID
	m.Connections[conn.ID] = conn
	return nil
}

func (m *MockStore) GetActiveConnections(ctx context.Context) ([]*models.Connection, error) {
	if m.GetActiveConnectionsErr != nil {
		return nil, m.GetActiveConnectionsErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var connections []*models.Connection
	for id := int64(1); id <= m.nextID; id++ {
		if conn, ok := m.Connections[id]; ok && conn.Status == models.ConnectionActive {
			connections = append(connections, conn)
		}
	}
	return connections, nil
}

func (m *MockStore) GetConnectionByItemID(ctx context.Context, itemID string) (*models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conn := range m.Connections {
		if conn.ItemID == itemID {
			return conn, nil
		}
	}
	return nil, nil
}

func (m *MockStore) SetConnectionStatus(ctx context.Context, connectionID int64, status models.ConnectionStatus) error {
	if m.SetConnectionStatusErr != nil {
		return m.SetConnectionStatusErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.Connections[connectionID]
	if !ok {
		return fmt.Errorf("no connection found with id: %d", connectionID)
	}
	conn.Status = status
	return nil
}

func (m *MockStore) AdvanceCursor(ctx context.Context, connectionID int64, cursor string, syncedAt time.Time) error {
	if m.AdvanceCursorErr != nil {
		return m.AdvanceCursorErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.Connections[connectionID]
	if !ok {
		return fmt.Errorf("no connection found with id: %d", connectionID)
	}
	conn.NextCursor = cursor
	conn.LastSyncedAt = &syncedAt
	return nil
}

func (m *MockStore) FindAccountByProviderID(ctx context.Context, providerAccountID string) (*models.Account, error) {
	if m.FindAccountErr != nil {
		return nil, m.FindAccountErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.Accounts[providerAccountID]
	if !ok {
		return nil, nil
	}
	return account, nil
}

func (m *MockStore) CreateProviderAccount(ctx context.Context, account *models.Account) error {
	if err := m.CreateProviderAccountErr[account.ProviderAccountID]; err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	account.ID = m.nextID
	account.IsActive = true
	m.Accounts[account.ProviderAccountID] = account
	return nil
}

func (m *MockStore) RefreshAccountBalance(ctx context.Context, providerAccountID string, balanceMinor int64, mask string) error {
	if m.RefreshBalanceErr != nil {
		return m.RefreshBalanceErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Refreshes = append(m.Refreshes, BalanceRefresh{
		ProviderAccountID: providerAccountID,
		BalanceMinor:      balanceMinor,
		Mask:              mask,
	})

	if account, ok := m.Accounts[providerAccountID]; ok {
		account.BalanceMinor = balanceMinor
		account.Mask = mask
	}
	return nil
}

func (m *MockStore) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]*models.Account, 0, len(m.Accounts))
	for _, account := range m.Accounts {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (m *MockStore) ApplyPage(ctx context.Context, connectionID int64, ops PageOps) (ApplyResult, error) {
	if err := m.ApplyPageErr[connectionID]; err != nil {
		return ApplyResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.PageApplies[connectionID]++

	var result ApplyResult
	for _, op := range ops.Added {
		if _, ok := m.Transactions[op.ProviderTransactionID]; ok {
			continue
		}
		m.nextID++
		m.Transactions[op.ProviderTransactionID] = &models.Transaction{
			ID:                    m.nextID,
			AccountID:             op.AccountID,
			AmountMinor:           op.AmountMinor,
			Date:                  op.Date,
			Description:           op.Description,
			MerchantName:          op.MerchantName,
			IsExpense:             op.IsExpense,
			ProviderTransactionID: op.ProviderTransactionID,
			Source:                models.SourceBankImport,
		}
		result.Added++
	}

	for _, op := range ops.Modified {
		tx, ok := m.Transactions[op.ProviderTransactionID]
		if !ok {
			continue
		}
		if op.AmountMinor != nil {
			tx.AmountMinor = *op.AmountMinor
		}
		if op.Date != nil {
			tx.Date = *op.Date
		}
		if op.Description != nil {
			tx.Description = *op.Description
		}
		if op.MerchantName != nil {
			tx.MerchantName = *op.MerchantName
		}
		if op.IsExpense != nil {
			tx.IsExpense = *op.IsExpense
		}
		result.Modified++
	}

	for _, providerTransactionID := range ops.Removed {
		if _, ok := m.Transactions[providerTransactionID]; !ok {
			continue
		}
		delete(m.Transactions, providerTransactionID)
		result.Removed++
	}

	return result, nil
}

func (m *MockStore) SaveManualTransaction(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	tx.ID = m.nextID
	tx.Source = models.SourceManual
	m.Manual[tx.ID] = tx
	return nil
}

func (m *MockStore) GetTransactionByProviderID(ctx context.Context, providerTransactionID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.Transactions[providerTransactionID]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

func (m *MockStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	transactions := make([]*models.Transaction, 0, len(m.Transactions)+len(m.Manual))
	for _, tx := range m.Transactions {
		transactions = append(transactions, tx)
	}
	for _, tx := range m.Manual {
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (m *MockStore) RemoveTransaction(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, tx := range m.Transactions {
		if tx.ID == id {
			delete(m.Transactions, key)
			return nil
		}
	}
	if _, ok := m.Manual[id]; ok {
		delete(m.Manual, id)
		return nil
	}
	return fmt.Errorf("no transaction found with id: %d", id)
}
