package db

import (
	"context"
	"fmt"
	"strings"
)

// TransactionInsert is an idempotent-insert operation keyed on the
// provider transaction id. A delivery colliding with an existing id is a
// no-op, not an error.
type TransactionInsert struct {
	AccountID             int64
	AmountMinor           int64
	Date                  string
	Description           string
	MerchantName          string
	IsExpense             bool
	ProviderTransactionID string
}

// TransactionUpdate is an update-by-provider-id operation. Only fields
// with a non-nil pointer are written, so the "update only provided
// fields" contract is carried by the type instead of string-built SQL.
// An update whose id has no local match is a no-op.
type TransactionUpdate struct {
	ProviderTransactionID string
	AmountMinor           *int64
	Date                  *string
	Description           *string
	MerchantName          *string
	IsExpense             *bool
}

// PageOps is one delta page translated into ledger-ready operations.
type PageOps struct {
	Added    []TransactionInsert
	Modified []TransactionUpdate
	Removed  []string // provider transaction ids
}

// Empty reports whether the page carries no operations.
func (p PageOps) Empty() bool {
	return len(p.Added) == 0 && len(p.Modified) == 0 && len(p.Removed) == 0
}

// ApplyResult carries exact affected-row counts from one page apply.
type ApplyResult struct {
	Added    int64
	Modified int64
	Removed  int64
}

// ApplyPage applies one page of classified operations atomically: every
// operation commits together or none do. Counts reflect rows actually
// touched, so re-applying an already-applied page reports zeros.
func (db *DB) ApplyPage(ctx context.Context, connectionID int64, ops PageOps) (ApplyResult, error) {
	var result ApplyResult
	if ops.Empty() {
		return result, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin page transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
	INSERT OR IGNORE INTO transactions (account_id, amount, transaction_date, description, merchant_name, is_expense, provider_transaction_id, source)
	VALUES (?, ?, ?, ?, ?, ?, ?, 'bank_import')
	`
	for _, op := range ops.Added {
		res, err := tx.ExecContext(ctx, insertQuery,
			op.AccountID,
			op.AmountMinor,
			op.Date,
			op.Description,
			op.MerchantName,
			op.IsExpense,
			op.ProviderTransactionID,
		)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to insert transaction %s: %w", op.ProviderTransactionID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to get rows affected: %w", err)
		}
		result.Added += rows
	}

	for _, op := range ops.Modified {
		set, args := op.setClause()
		if len(set) == 0 {
			continue
		}
		query := fmt.Sprintf(
			`UPDATE transactions SET %s, updated_at = CURRENT_TIMESTAMP WHERE provider_transaction_id = ?`,
			strings.Join(set, ", "),
		)
		args = append(args, op.ProviderTransactionID)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to update transaction %s: %w", op.ProviderTransactionID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to get rows affected: %w", err)
		}
		result.Modified += rows
	}

	for _, providerTransactionID := range ops.Removed {
		res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE provider_transaction_id = ?`, providerTransactionID)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to delete transaction %s: %w", providerTransactionID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to get rows affected: %w", err)
		}
		result.Removed += rows
	}

	if err := tx.Commit(); err != nil {
		return ApplyResult{}, fmt.Errorf("failed to commit page transaction: %w", err)
	}

	return result, nil
}

func (u *TransactionUpdate) setClause() ([]string, []any) {
	var set []string
	var args []any

	if u.AmountMinor != nil {
		set = append(set, "amount = ?")
		args = append(args, *u.AmountMinor)
	}
	if u.Date != nil {
		set = append(set, "transaction_date = ?")
		args = append(args, *u.Date)
	}
	if u.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *u.Description)
	}
	if u.MerchantName != nil {
		set = append(set, "merchant_name = ?")
		args = append(args, *u.MerchantName)
	}
	if u.IsExpense != nil {
		set = append(set, "is_expense = ?")
		args = append(args, *u.IsExpense)
	}

	return set, args
}
