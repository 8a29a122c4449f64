package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/finledger/bankfeed/db"
	"github.com/finledger/bankfeed/pkg/models"
	"github.com/finledger/bankfeed/pkg/provider"
	"github.com/finledger/bankfeed/pkg/utils"
)

// Linker completes the institution linking flow: it exchanges the public
// token produced by the external link UI for a credential, records the
// connection, and onboards every account the provider reports under it.
type Linker struct {
	store  db.Store
	client provider.Client
}

// NewLinker creates a linker over the given store and provider client.
func NewLinker(store db.Store, client provider.Client) *Linker {
	return &Linker{store: store, client: client}
}

// LinkInstitution exchanges publicToken and onboards the institution's
// accounts. Account onboarding is partial-success: one account failing to
// persist is logged and skipped, the rest still come through.
func (l *Linker) LinkInstitution(ctx context.Context, publicToken, institutionID, institutionName string) (*models.Connection, []*models.Account, error) {
	itemID, accessToken, err := l.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange public token: %w", err)
	}

	existing, err := l.store.GetConnectionByItemID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("institution item %s is already linked", itemID)
	}

	if institutionID == "" {
		institutionID = "unknown"
	}
	if institutionName == "" {
		institutionName = "Unknown Bank"
	}

	conn := &models.Connection{
		ItemID:          itemID,
		AccessToken:     accessToken,
		InstitutionID:   institutionID,
		InstitutionName: institutionName,
		Status:          models.ConnectionActive,
	}
	if err := l.store.CreateConnection(ctx, conn); err != nil {
		return nil, nil, err
	}

	snapshot, err := l.client.FetchAccountSnapshot(ctx, accessToken)
	if err != nil {
		return conn, nil, fmt.Errorf("connection created but account discovery failed: %w", err)
	}

	var created []*models.Account
	for _, providerAccount := range snapshot {
		account := &models.Account{
			Name:              utils.Capitalize(providerAccount.Name),
			Type:              models.AccountTypeFromProvider(providerAccount.Type),
			Currency:          currencyOrDefault(providerAccount.CurrencyCode),
			BalanceMinor:      providerAccount.BalanceMinor(),
			Mask:              providerAccount.Mask,
			ProviderAccountID: providerAccount.ID,
			ConnectionID:      conn.ID,
		}
		if err := l.store.CreateProviderAccount(ctx, account); err != nil {
			log.Error().Err(err).
				Str("provider_account_id", providerAccount.ID).
				Str("account", providerAccount.Name).
				Msg("Failed to onboard account, continuing")
			continue
		}
		created = append(created, account)
	}

	log.Info().
		Int64("connection_id", conn.ID).
		Str("institution", conn.InstitutionName).
		Int("accounts", len(created)).
		Msg("Institution linked")

	return conn, created, nil
}

func currencyOrDefault(code string) string {
	if code == "" {
		return models.DefaultCurrency
	}
	return code
}
