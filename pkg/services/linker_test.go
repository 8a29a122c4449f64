package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/bankfeed/db"
	"github.com/finledger/bankfeed/pkg/models"
	"github.com/finledger/bankfeed/pkg/provider"
)

func TestLinkInstitution(t *testing.T) {
	store := db.NewMockStore()
	client := provider.NewMockClient()
	client.ExchangeItemID = "item-1"
	client.ExchangeAccessToken = "token-1"

	checking := 110.25
	creditOwed := -42.00
	client.Snapshots["token-1"] = []models.ProviderAccount{
		{ID: "a1", Name: "PLAID CHECKING", Type: "depository", Mask: "0000", CurrencyCode: "USD", BalanceCurrent: &checking},
		{ID: "a2", Name: "PLAID CREDIT CARD", Type: "credit", Mask: "3333", BalanceCurrent: &creditOwed},
	}

	linker := NewLinker(store, client)
	conn, accounts, err := linker.LinkInstitution(context.Background(), "public-1", "ins_1", "Test Bank")
	require.NoError(t, err)

	require.NotNil(t, conn)
	assert.Equal(t, "item-1", conn.ItemID)
	assert.Equal(t, "token-1", conn.AccessToken)
	assert.Equal(t, models.ConnectionActive, conn.Status)
	assert.Equal(t, "", conn.NextCursor)

	require.Len(t, accounts, 2)

	assert.Equal(t, "Plaid Checking", accounts[0].Name)
	assert.Equal(t, models.AccountTypeBank, accounts[0].Type)
	assert.Equal(t, "USD", accounts[0].Currency)
	assert.Equal(t, int64(11025), accounts[0].BalanceMinor)
	assert.Equal(t, "0000", accounts[0].Mask)
	assert.Equal(t, conn.ID, accounts[0].ConnectionID)

	assert.Equal(t, "Plaid Credit Card", accounts[1].Name)
	assert.Equal(t, models.AccountTypeCreditCard, accounts[1].Type)
	// No currency reported: default applies.
	assert.Equal(t, models.DefaultCurrency, accounts[1].Currency)
	assert.Equal(t, int64(-4200), accounts[1].BalanceMinor)
}

func TestLinkInstitutionDuplicateItem(t *testing.T) {
	store := db.NewMockStore()
	client := provider.NewMockClient()
	client.ExchangeItemID = "item-1"
	client.ExchangeAccessToken = "token-1"

	store.AddConnection(&models.Connection{
		ItemID: "item-1",
		Status: models.ConnectionActive,
	})

	linker := NewLinker(store, client)
	_, _, err := linker.LinkInstitution(context.Background(), "public-1", "ins_1", "Test Bank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already linked")
}

func TestLinkInstitutionExchangeFailure(t *testing.T) {
	store := db.NewMockStore()
	client := provider.NewMockClient()
	client.ExchangeErr = &provider.Error{
		Kind: provider.KindTerminal,
		Code: "INVALID_PUBLIC_TOKEN",
		Err:  assert.AnError,
	}

	linker := NewLinker(store, client)
	_, _, err := linker.LinkInstitution(context.Background(), "public-1", "ins_1", "Test Bank")
	require.Error(t, err)
	assert.True(t, provider.IsTerminal(err))
	assert.Empty(t, store.Connections)
}

func TestLinkInstitutionPartialAccountFailure(t *testing.T) {
	store := db.NewMockStore()
	client := provider.NewMockClient()
	client.ExchangeItemID = "item-1"
	client.ExchangeAccessToken = "token-1"

	balance := 10.00
	client.Snapshots["token-1"] = []models.ProviderAccount{
		{ID: "a1", Name: "Good", Type: "depository", CurrencyCode: "USD", BalanceCurrent: &balance},
		{ID: "a2", Name: "Bad", Type: "depository", CurrencyCode: "USD", BalanceCurrent: &balance},
	}
	store.CreateProviderAccountErr = map[string]error{"a2": assert.AnError}

	linker := NewLinker(store, client)
	conn, accounts, err := linker.LinkInstitution(context.Background(), "public-1", "", "")
	require.NoError(t, err)

	// One account failing to persist does not abort the link.
	require.Len(t, accounts, 1)
	assert.Equal(t, "a1", accounts[0].ProviderAccountID)

	// Missing institution metadata gets placeholder values.
	assert.Equal(t, "unknown", conn.InstitutionID)
	assert.Equal(t, "Unknown Bank", conn.InstitutionName)
}
