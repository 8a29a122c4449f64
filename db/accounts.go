package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/finledger/bankfeed/pkg/models"
)

// FindAccountByProviderID resolves a provider account identifier to the
// local account, or nil when the account has not been onboarded.
func (db *DB) FindAccountByProviderID(ctx context.Context, providerAccountID string) (*models.Account, error) {
	query := `
	SELECT id, name, type, currency, balance, is_active, mask, connection_id, provider_account_id
	FROM accounts
	WHERE provider_account_id = ?
	LIMIT 1
	`

	account, err := scanAccount(db.QueryRowContext(ctx, query, providerAccountID))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return account, nil
}

// CreateProviderAccount inserts an account discovered during linking.
// Display names are unique per ledger; on a collision the name is
// deterministically disambiguated by appending the last four characters
// of the provider account id, e.g. "Checking (4f2a)".
func (db *DB) CreateProviderAccount(ctx context.Context, account *models.Account) error {
	name := account.Name
	taken, err := db.accountNameTaken(ctx, name)
	if err != nil {
		return err
	}
	if taken {
		name = disambiguateName(account.Name, account.ProviderAccountID)
	}

	query := `
	INSERT INTO accounts (name, type, currency, balance, is_active, mask, connection_id, provider_account_id)
	VALUES (?, ?, ?, ?, 1, ?, ?, ?)
	`

	result, err := db.ExecContext(ctx, query,
		name,
		string(account.Type),
		account.Currency,
		account.BalanceMinor,
		nullIfEmpty(account.Mask),
		nullIfZero(account.ConnectionID),
		nullIfEmpty(account.ProviderAccountID),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account id: %w", err)
	}
	account.ID = id
	account.Name = name
	account.IsActive = true

	return nil
}

// RefreshAccountBalance overwrites the stored balance and mask for the
// account matching a provider account id. Unknown ids are a no-op: the
// account must be onboarded before balances can be tracked.
func (db *DB) RefreshAccountBalance(ctx context.Context, providerAccountID string, balanceMinor int64, mask string) error {
	query := `
	UPDATE accounts
	SET balance = ?, mask = ?, updated_at = CURRENT_TIMESTAMP
	WHERE provider_account_id = ?
	`

	_, err := db.ExecContext(ctx, query, balanceMinor, nullIfEmpty(mask), providerAccountID)
	if err != nil {
		return fmt.Errorf("failed to refresh account balance: %w", err)
	}

	return nil
}

// ListAccounts returns all accounts ordered by name.
func (db *DB) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	query := `
	SELECT id, name, type, currency, balance, is_active, mask, connection_id, provider_account_id
	FROM accounts
	ORDER BY name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

func (db *DB) accountNameTaken(ctx context.Context, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account name: %w", err)
	}
	return count > 0, nil
}

func disambiguateName(name, providerAccountID string) string {
	suffix := providerAccountID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("%s (%s)", name, suffix)
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var accountType string
	var mask, providerID sql.NullString
	var connectionID sql.NullInt64

	err := row.Scan(
		&account.ID,
		&account.Name,
		&accountType,
		&account.Currency,
		&account.BalanceMinor,
		&account.IsActive,
		&mask,
		&connectionID,
		&providerID,
	)
	if err == sql.ErrNoRows {
		return nil, err
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.Type = models.AccountType(accountType)
	account.Mask = mask.String
	account.ProviderAccountID = providerID.String
	account.ConnectionID = connectionID.Int64

	return &account, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
