package models

// TransactionSource tags how a ledger entry came to exist.
type TransactionSource string

const (
	SourceManual     TransactionSource = "manual"
	SourceBankImport TransactionSource = "bank_import"
)

// Transaction is a ledger entry. AmountMinor is always non-negative;
// direction is carried by IsExpense.
type Transaction struct {
	ID           int64  `json:"id"`
	AccountID    int64  `json:"accountId"`
	AmountMinor  int64  `json:"amount"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	MerchantName string `json:"merchantName"`
	IsExpense    bool   `json:"isExpense"`
	CategoryID   *int64 `json:"categoryId,omitempty"`
	// ProviderTransactionID is the idempotency key for provider-sourced
	// rows: re-delivery of the same id must never create a duplicate.
	ProviderTransactionID string            `json:"providerTransactionId,omitempty"`
	Source                TransactionSource `json:"source"`
}
