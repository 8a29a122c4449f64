package models

// AccountType classifies a ledger account.
type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
	AccountTypeOther      AccountType = "other"
)

// AccountTypeFromProvider maps the provider's account type vocabulary to
// ours. Unknown types fall through to "other".
func AccountTypeFromProvider(providerType string) AccountType {
	switch providerType {
	case "depository":
		return AccountTypeBank
	case "credit":
		return AccountTypeCreditCard
	default:
		return AccountTypeOther
	}
}

// Account is a financial account, optionally linked to a Connection.
// Balances are integer minor units, never floating point.
type Account struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Type         AccountType `json:"type"`
	Currency     string      `json:"currency"`
	BalanceMinor int64       `json:"balance"`
	IsActive     bool        `json:"isActive"`
	Mask         string      `json:"mask,omitempty"`
	// ProviderAccountID is the provider's stable account identifier.
	// Empty for manually-created accounts, unique when present.
	ProviderAccountID string `json:"providerAccountId,omitempty"`
	ConnectionID      int64  `json:"connectionId,omitempty"`
}
