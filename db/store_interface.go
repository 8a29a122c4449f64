package db

import (
	"context"
	"time"

	"github.com/finledger/bankfeed/pkg/models"
)

// Store defines the ledger storage operations the sync engine consumes.
// It is the single source of truth: all mutation goes through it, and
// ApplyPage is atomic per page.
type Store interface {
	Initialize() error
	Close() error

	CreateConnection(ctx context.Context, conn *models.Connection) error
	GetActiveConnections(ctx context.Context) ([]*models.Connection, error)
	GetConnectionByItemID(ctx context.Context, itemID string) (*models.Connection, error)
	SetConnectionStatus(ctx context.Context, connectionID int64, status models.ConnectionStatus) error
	AdvanceCursor(ctx context.Context, connectionID int64, cursor string, syncedAt time.Time) error

	FindAccountByProviderID(ctx context.Context, providerAccountID string) (*models.Account, error)
	CreateProviderAccount(ctx context.Context, account *models.Account) error
	RefreshAccountBalance(ctx context.Context, providerAccountID string, balanceMinor int64, mask string) error
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	ApplyPage(ctx context.Context, connectionID int64, ops PageOps) (ApplyResult, error)

	SaveManualTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByProviderID(ctx context.Context, providerTransactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	RemoveTransaction(ctx context.Context, id int64) error
}

// Ensure DB implements Store
var _ Store = (*DB)(nil)

// Ensure MockStore implements Store
var _ Store = (*MockStore)(nil)
