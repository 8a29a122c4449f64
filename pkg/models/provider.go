package models

// ProviderTransaction is one transaction delta as delivered by the
// aggregation provider. Amount is in signed major units using the
// provider's convention: positive means an outflow (debit).
type ProviderTransaction struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"accountId"`
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currencyCode"`
	Date         string  `json:"date"`
	Name         string  `json:"name"`
	MerchantName string  `json:"merchantName,omitempty"`
}

// ProviderRemoval references a transaction the provider has retracted.
type ProviderRemoval struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
}

// DeltaPage is one batch of changes from the provider's change stream.
type DeltaPage struct {
	Added      []ProviderTransaction `json:"added"`
	Modified   []ProviderTransaction `json:"modified"`
	Removed    []ProviderRemoval     `json:"removed"`
	NextCursor string                `json:"nextCursor"`
	HasMore    bool                  `json:"hasMore"`
}

// ProviderAccount is the provider's current view of one account under a
// credential: metadata plus balances in major units.
type ProviderAccount struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Mask             string   `json:"mask,omitempty"`
	CurrencyCode     string   `json:"currencyCode,omitempty"`
	BalanceCurrent   *float64 `json:"balanceCurrent,omitempty"`
	BalanceAvailable *float64 `json:"balanceAvailable,omitempty"`
}

// BalanceMinor resolves the balance to store: current when reported,
// otherwise available, otherwise zero, rounded to minor units.
func (a *ProviderAccount) BalanceMinor() int64 {
	value := 0.0
	switch {
	case a.BalanceCurrent != nil:
		value = *a.BalanceCurrent
	case a.BalanceAvailable != nil:
		value = *a.BalanceAvailable
	}
	return MajorToMinor(value, a.CurrencyCode)
}
