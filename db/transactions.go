package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/finledger/bankfeed/pkg/models"
)

// SaveManualTransaction inserts a manually-entered ledger row.
func (db *DB) SaveManualTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
	INSERT INTO transactions (account_id, amount, transaction_date, description, merchant_name, is_expense, category_id, source)
	VALUES (?, ?, ?, ?, ?, ?, ?, 'manual')
	`

	result, err := db.ExecContext(ctx, query,
		tx.AccountID,
		tx.AmountMinor,
		tx.Date,
		tx.Description,
		tx.MerchantName,
		tx.IsExpense,
		tx.CategoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}
	tx.ID = id
	tx.Source = models.SourceManual

	return nil
}

// GetTransactionByProviderID returns the row keyed by a provider
// transaction id, or nil when absent.
func (db *DB) GetTransactionByProviderID(ctx context.Context, providerTransactionID string) (*models.Transaction, error) {
	query := `
	SELECT id, account_id, amount, transaction_date, description, merchant_name, is_expense, category_id, provider_transaction_id, source
	FROM transactions
	WHERE provider_transaction_id = ?
	LIMIT 1
	`

	tx, err := scanTransaction(db.QueryRowContext(ctx, query, providerTransactionID))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return tx, nil
}

// ListTransactions returns all transactions, newest first.
func (db *DB) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	query := `
	SELECT id, account_id, amount, transaction_date, description, merchant_name, is_expense, category_id, provider_transaction_id, source
	FROM transactions
	ORDER BY transaction_date DESC, id DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// RemoveTransaction deletes a ledger row by id.
func (db *DB) RemoveTransaction(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no transaction found with id: %d", id)
	}

	return nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var providerID sql.NullString
	var categoryID sql.NullInt64
	var source string

	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.AmountMinor,
		&tx.Date,
		&tx.Description,
		&tx.MerchantName,
		&tx.IsExpense,
		&categoryID,
		&providerID,
		&source,
	)
	if err == sql.ErrNoRows {
		return nil, err
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.ProviderTransactionID = providerID.String
	tx.Source = models.TransactionSource(source)
	if categoryID.Valid {
		id := categoryID.Int64
		tx.CategoryID = &id
	}

	return &tx, nil
}
