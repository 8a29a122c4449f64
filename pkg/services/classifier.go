package services

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/finledger/bankfeed/db"
	"github.com/finledger/bankfeed/pkg/models"
)

// Classifier translates one page of provider deltas into ledger-ready
// operations. It owns two policies: account resolution (a delta whose
// provider account has not been onboarded is dropped and counted, never
// fatal) and sign/unit translation (positive provider amounts are
// outflows; magnitudes are rounded into minor units at this boundary).
type Classifier struct {
	store db.Store
}

// NewClassifier creates a classifier reading account mappings from store.
func NewClassifier(store db.Store) *Classifier {
	return &Classifier{store: store}
}

// ClassifyPage converts a delta page into PageOps. The second return
// value counts deltas skipped because their provider account id had no
// local match.
func (c *Classifier) ClassifyPage(ctx context.Context, page *models.DeltaPage) (db.PageOps, int, error) {
	var ops db.PageOps
	skipped := 0

	// Per-page account cache; pages routinely repeat the same handful of
	// accounts.
	accounts := make(map[string]*models.Account)
	resolve := func(providerAccountID string) (*models.Account, error) {
		if account, ok := accounts[providerAccountID]; ok {
			return account, nil
		}
		account, err := c.store.FindAccountByProviderID(ctx, providerAccountID)
		if err != nil {
			return nil, err
		}
		accounts[providerAccountID] = account
		return account, nil
	}

	for _, tx := range page.Added {
		account, err := resolve(tx.AccountID)
		if err != nil {
			return db.PageOps{}, 0, err
		}
		if account == nil {
			skipped++
			log.Warn().Str("provider_account_id", tx.AccountID).
				Str("provider_transaction_id", tx.ID).
				Msg("Skipping added delta for unknown account")
			continue
		}

		amountMinor, isExpense := translateAmount(tx)
		ops.Added = append(ops.Added, db.TransactionInsert{
			AccountID:             account.ID,
			AmountMinor:           amountMinor,
			Date:                  tx.Date,
			Description:           tx.Name,
			MerchantName:          merchantOrName(tx),
			IsExpense:             isExpense,
			ProviderTransactionID: tx.ID,
		})
	}

	for _, tx := range page.Modified {
		account, err := resolve(tx.AccountID)
		if err != nil {
			return db.PageOps{}, 0, err
		}
		if account == nil {
			skipped++
			log.Warn().Str("provider_account_id", tx.AccountID).
				Str("provider_transaction_id", tx.ID).
				Msg("Skipping modified delta for unknown account")
			continue
		}

		amountMinor, isExpense := translateAmount(tx)
		ops.Modified = append(ops.Modified, db.TransactionUpdate{
			ProviderTransactionID: tx.ID,
			AmountMinor:           lo.ToPtr(amountMinor),
			Date:                  lo.ToPtr(tx.Date),
			Description:           lo.ToPtr(tx.Name),
			MerchantName:          lo.ToPtr(merchantOrName(tx)),
			IsExpense:             lo.ToPtr(isExpense),
		})
	}

	ops.Removed = lo.Map(page.Removed, func(removed models.ProviderRemoval, _ int) string {
		return removed.ID
	})

	return ops, skipped, nil
}

// translateAmount applies the sign/unit policy: the provider reports
// signed major units where positive means outflow; the ledger stores a
// non-negative minor-unit magnitude plus an expense flag.
func translateAmount(tx models.ProviderTransaction) (int64, bool) {
	isExpense := tx.Amount > 0
	amountMinor := models.MajorToMinor(math.Abs(tx.Amount), tx.CurrencyCode)
	return amountMinor, isExpense
}

func merchantOrName(tx models.ProviderTransaction) string {
	if tx.MerchantName != "" {
		return tx.MerchantName
	}
	return tx.Name
}
