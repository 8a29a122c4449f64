package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/bankfeed/db"
	"github.com/finledger/bankfeed/pkg/models"
)

func TestClassifySignAndUnitTranslation(t *testing.T) {
	store := db.NewMockStore()
	store.AddAccount(&models.Account{Name: "Checking", ProviderAccountID: "a1"})
	classifier := NewClassifier(store)

	page := &models.DeltaPage{
		Added: []models.ProviderTransaction{
			// Positive provider amounts are outflows.
			{ID: "t1", AccountID: "a1", Amount: 12.34, CurrencyCode: "USD", Date: "2024-01-05", Name: "Coffee"},
			// Negative amounts are inflows; the magnitude is stored.
			{ID: "t2", AccountID: "a1", Amount: -5.00, CurrencyCode: "USD", Date: "2024-01-06", Name: "Refund"},
		},
	}

	ops, skipped, err := classifier.ClassifyPage(context.Background(), page)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, ops.Added, 2)

	assert.Equal(t, int64(1234), ops.Added[0].AmountMinor)
	assert.True(t, ops.Added[0].IsExpense)

	assert.Equal(t, int64(500), ops.Added[1].AmountMinor)
	assert.False(t, ops.Added[1].IsExpense)
}

func TestClassifyUnknownAccountSkip(t *testing.T) {
	store := db.NewMockStore()
	account := store.AddAccount(&models.Account{Name: "Checking", ProviderAccountID: "a1"})
	classifier := NewClassifier(store)

	page := &models.DeltaPage{
		Added: []models.ProviderTransaction{
			{ID: "t1", AccountID: "a1", Amount: 1.00, Date: "2024-01-05", Name: "Known"},
			{ID: "t2", AccountID: "not-onboarded", Amount: 2.00, Date: "2024-01-05", Name: "Unknown"},
		},
		Modified: []models.ProviderTransaction{
			{ID: "t3", AccountID: "not-onboarded", Amount: 3.00, Date: "2024-01-05", Name: "Unknown"},
		},
	}

	ops, skipped, err := classifier.ClassifyPage(context.Background(), page)
	require.NoError(t, err)

	// Unknown accounts drop their deltas without failing the page.
	assert.Equal(t, 2, skipped)
	require.Len(t, ops.Added, 1)
	assert.Equal(t, account.ID, ops.Added[0].AccountID)
	assert.Empty(t, ops.Modified)
}

func TestClassifyModifiedOverwritesAllFields(t *testing.T) {
	store := db.NewMockStore()
	store.AddAccount(&models.Account{Name: "Checking", ProviderAccountID: "a1"})
	classifier := NewClassifier(store)

	page := &models.DeltaPage{
		Modified: []models.ProviderTransaction{
			{ID: "t1", AccountID: "a1", Amount: 20.00, CurrencyCode: "USD", Date: "2024-01-07", Name: "Updated", MerchantName: "Shop"},
		},
	}

	ops, _, err := classifier.ClassifyPage(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, ops.Modified, 1)

	update := ops.Modified[0]
	assert.Equal(t, "t1", update.ProviderTransactionID)
	require.NotNil(t, update.AmountMinor)
	assert.Equal(t, int64(2000), *update.AmountMinor)
	require.NotNil(t, update.Date)
	assert.Equal(t, "2024-01-07", *update.Date)
	require.NotNil(t, update.Description)
	assert.Equal(t, "Updated", *update.Description)
	require.NotNil(t, update.MerchantName)
	assert.Equal(t, "Shop", *update.MerchantName)
	require.NotNil(t, update.IsExpense)
	assert.True(t, *update.IsExpense)
}

func TestClassifyMerchantFallsBackToDescription(t *testing.T) {
	store := db.NewMockStore()
	store.AddAccount(&models.Account{Name: "Checking", ProviderAccountID: "a1"})
	classifier := NewClassifier(store)

	page := &models.DeltaPage{
		Added: []models.ProviderTransaction{
			{ID: "t1", AccountID: "a1", Amount: 1.00, Date: "2024-01-05", Name: "TRANSFER 123"},
		},
	}

	ops, _, err := classifier.ClassifyPage(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, ops.Added, 1)
	assert.Equal(t, "TRANSFER 123", ops.Added[0].MerchantName)
}

func TestClassifyRemoved(t *testing.T) {
	store := db.NewMockStore()
	classifier := NewClassifier(store)

	page := &models.DeltaPage{
		Removed: []models.ProviderRemoval{
			{ID: "t1", AccountID: "a1"},
			{ID: "t2", AccountID: "a2"},
		},
	}

	ops, skipped, err := classifier.ClassifyPage(context.Background(), page)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []string{"t1", "t2"}, ops.Removed)
}
