package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/finledger/bankfeed/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	return db
}

func seedConnection(t *testing.T, db *DB) *models.Connection {
	t.Helper()

	conn := &models.Connection{
		ItemID:          "item-1",
		AccessToken:     "access-token",
		InstitutionID:   "ins_1",
		InstitutionName: "Test Bank",
		Status:          models.ConnectionActive,
	}
	if err := db.CreateConnection(context.Background(), conn); err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	return conn
}

func seedAccount(t *testing.T, db *DB, name, providerID string, connectionID int64) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:              name,
		Type:              models.AccountTypeBank,
		Currency:          "USD",
		ProviderAccountID: providerID,
		ConnectionID:      connectionID,
	}
	if err := db.CreateProviderAccount(context.Background(), account); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return account
}

func TestInitialize(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"connections", "accounts", "transactions", "categories"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("Expected table %q to exist: %v", table, err)
		}
	}
}

func TestApplyPageIdempotence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)
	account := seedAccount(t, db, "Checking", "acct-1", conn.ID)

	ops := PageOps{
		Added: []TransactionInsert{{
			AccountID:             account.ID,
			AmountMinor:           999,
			Date:                  "2024-01-05",
			Description:           "Coffee",
			MerchantName:          "Coffee",
			IsExpense:             true,
			ProviderTransactionID: "t1",
		}},
	}

	result, err := db.ApplyPage(ctx, conn.ID, ops)
	if err != nil {
		t.Fatalf("Failed to apply page: %v", err)
	}
	if result.Added != 1 {
		t.Fatalf("Expected 1 added, got %d", result.Added)
	}

	// Re-delivery of the same provider transaction id is a no-op.
	result, err = db.ApplyPage(ctx, conn.ID, ops)
	if err != nil {
		t.Fatalf("Failed to re-apply page: %v", err)
	}
	if result.Added != 0 {
		t.Fatalf("Expected 0 added on re-apply, got %d", result.Added)
	}

	transactions, err := db.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("Failed to list transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected exactly 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Source != models.SourceBankImport {
		t.Fatalf("Expected bank_import source, got %s", transactions[0].Source)
	}
}

func TestApplyPageModifyWithoutAdd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)

	amount := int64(1500)
	ops := PageOps{
		Modified: []TransactionUpdate{{
			ProviderTransactionID: "never-added",
			AmountMinor:           &amount,
		}},
	}

	// A modify whose id has no local match must be a safe no-op.
	result, err := db.ApplyPage(ctx, conn.ID, ops)
	if err != nil {
		t.Fatalf("Failed to apply page: %v", err)
	}
	if result.Modified != 0 {
		t.Fatalf("Expected 0 modified, got %d", result.Modified)
	}
}

func TestApplyPageOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)
	account := seedAccount(t, db, "Checking", "acct-1", conn.ID)

	pageOne := PageOps{
		Added: []TransactionInsert{{
			AccountID:             account.ID,
			AmountMinor:           1000,
			Date:                  "2024-01-05",
			Description:           "Original",
			MerchantName:          "Original",
			IsExpense:             true,
			ProviderTransactionID: "tx-x",
		}},
	}
	if _, err := db.ApplyPage(ctx, conn.ID, pageOne); err != nil {
		t.Fatalf("Failed to apply page one: %v", err)
	}

	amount := int64(2500)
	description := "Corrected"
	expense := false
	pageTwo := PageOps{
		Modified: []TransactionUpdate{{
			ProviderTransactionID: "tx-x",
			AmountMinor:           &amount,
			Description:           &description,
			IsExpense:             &expense,
		}},
	}
	result, err := db.ApplyPage(ctx, conn.ID, pageTwo)
	if err != nil {
		t.Fatalf("Failed to apply page two: %v", err)
	}
	if result.Modified != 1 {
		t.Fatalf("Expected 1 modified, got %d", result.Modified)
	}

	tx, err := db.GetTransactionByProviderID(ctx, "tx-x")
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if tx == nil {
		t.Fatal("Expected transaction to exist")
	}
	if tx.AmountMinor != 2500 || tx.Description != "Corrected" || tx.IsExpense {
		t.Fatalf("Unexpected transaction state after modify: %+v", tx)
	}
	// Untouched fields keep their values.
	if tx.MerchantName != "Original" {
		t.Fatalf("Expected merchant to be untouched, got %q", tx.MerchantName)
	}
}

func TestApplyPageRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)
	account := seedAccount(t, db, "Checking", "acct-1", conn.ID)

	add := PageOps{
		Added: []TransactionInsert{{
			AccountID:             account.ID,
			AmountMinor:           500,
			Date:                  "2024-01-05",
			ProviderTransactionID: "tx-gone",
		}},
	}
	if _, err := db.ApplyPage(ctx, conn.ID, add); err != nil {
		t.Fatalf("Failed to apply add: %v", err)
	}

	remove := PageOps{Removed: []string{"tx-gone"}}
	result, err := db.ApplyPage(ctx, conn.ID, remove)
	if err != nil {
		t.Fatalf("Failed to apply remove: %v", err)
	}
	if result.Removed != 1 {
		t.Fatalf("Expected 1 removed, got %d", result.Removed)
	}

	// Removing an absent id is a no-op, not an error.
	result, err = db.ApplyPage(ctx, conn.ID, remove)
	if err != nil {
		t.Fatalf("Failed to re-apply remove: %v", err)
	}
	if result.Removed != 0 {
		t.Fatalf("Expected 0 removed on re-apply, got %d", result.Removed)
	}
}

func TestApplyPageAtomicity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)
	account := seedAccount(t, db, "Checking", "acct-1", conn.ID)

	ops := PageOps{
		Added: []TransactionInsert{
			{
				AccountID:             account.ID,
				AmountMinor:           100,
				Date:                  "2024-01-05",
				ProviderTransactionID: "tx-ok",
			},
			{
				// References a nonexistent account, violating the foreign
				// key and failing the page mid-way.
				AccountID:             99999,
				AmountMinor:           200,
				Date:                  "2024-01-05",
				ProviderTransactionID: "tx-bad",
			},
		},
	}

	if _, err := db.ApplyPage(ctx, conn.ID, ops); err == nil {
		t.Fatal("Expected page apply to fail")
	}

	// The first insert must have rolled back with the page.
	tx, err := db.GetTransactionByProviderID(ctx, "tx-ok")
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if tx != nil {
		t.Fatal("Expected no partial apply after failed page")
	}
}

func TestCreateProviderAccountDisambiguation(t *testing.T) {
	db := newTestDB(t)
	conn := seedConnection(t, db)

	first := seedAccount(t, db, "Checking", "acct-1a2b", conn.ID)
	if first.Name != "Checking" {
		t.Fatalf("Expected first account to keep its name, got %q", first.Name)
	}

	second := seedAccount(t, db, "Checking", "acct-3c4d", conn.ID)
	if second.Name != "Checking (3c4d)" {
		t.Fatalf("Expected disambiguated name, got %q", second.Name)
	}
}

func TestRefreshAccountBalance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)
	seedAccount(t, db, "Checking", "acct-1", conn.ID)

	if err := db.RefreshAccountBalance(ctx, "acct-1", 12345, "0000"); err != nil {
		t.Fatalf("Failed to refresh balance: %v", err)
	}

	account, err := db.FindAccountByProviderID(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Failed to find account: %v", err)
	}
	if account.BalanceMinor != 12345 || account.Mask != "0000" {
		t.Fatalf("Unexpected account state: %+v", account)
	}

	// Unknown provider account ids are a no-op.
	if err := db.RefreshAccountBalance(ctx, "acct-unknown", 1, ""); err != nil {
		t.Fatalf("Expected no-op for unknown account, got: %v", err)
	}
}

func TestAdvanceCursor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)

	if conn.NextCursor != "" {
		t.Fatalf("Expected empty initial cursor, got %q", conn.NextCursor)
	}

	syncedAt := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	if err := db.AdvanceCursor(ctx, conn.ID, "cursor-1", syncedAt); err != nil {
		t.Fatalf("Failed to advance cursor: %v", err)
	}

	reloaded, err := db.GetConnectionByItemID(ctx, conn.ItemID)
	if err != nil {
		t.Fatalf("Failed to reload connection: %v", err)
	}
	if reloaded.NextCursor != "cursor-1" {
		t.Fatalf("Expected cursor-1, got %q", reloaded.NextCursor)
	}
	if reloaded.LastSyncedAt == nil {
		t.Fatal("Expected last_synced_at to be set")
	}
}

func TestGetActiveConnections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)

	errored := &models.Connection{
		ItemID:          "item-2",
		AccessToken:     "access-token-2",
		InstitutionID:   "ins_2",
		InstitutionName: "Broken Bank",
		Status:          models.ConnectionActive,
	}
	if err := db.CreateConnection(ctx, errored); err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	if err := db.SetConnectionStatus(ctx, errored.ID, models.ConnectionError); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	active, err := db.GetActiveConnections(ctx)
	if err != nil {
		t.Fatalf("Failed to get active connections: %v", err)
	}
	if len(active) != 1 || active[0].ID != conn.ID {
		t.Fatalf("Expected only the active connection, got %d", len(active))
	}
}

func TestDuplicateItemIDRejected(t *testing.T) {
	db := newTestDB(t)
	seedConnection(t, db)

	dup := &models.Connection{
		ItemID:      "item-1",
		AccessToken: "other-token",
		Status:      models.ConnectionActive,
	}
	if err := db.CreateConnection(context.Background(), dup); err == nil {
		t.Fatal("Expected duplicate item id to be rejected")
	}
}

func TestManualTransactions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	conn := seedConnection(t, db)
	account := seedAccount(t, db, "Checking", "acct-1", conn.ID)

	tx := &models.Transaction{
		AccountID:    account.ID,
		AmountMinor:  2599,
		Date:         "2024-02-01",
		Description:  "Groceries",
		MerchantName: "Corner Store",
		IsExpense:    true,
	}
	if err := db.SaveManualTransaction(ctx, tx); err != nil {
		t.Fatalf("Failed to save transaction: %v", err)
	}
	if tx.ID == 0 {
		t.Fatal("Expected transaction id to be set")
	}

	if err := db.RemoveTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("Failed to remove transaction: %v", err)
	}
	if err := db.RemoveTransaction(ctx, tx.ID); err == nil {
		t.Fatal("Expected error removing missing transaction")
	}
}
