package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/plaid/plaid-go/v31/plaid"

	"github.com/finledger/bankfeed/pkg/config"
	"github.com/finledger/bankfeed/pkg/models"
)

// PlaidClient implements Client against the Plaid API.
type PlaidClient struct {
	api        *plaid.APIClient
	pageSize   int
	timeout    time.Duration
	maxRetries uint64
}

// NewPlaidClient builds a Plaid-backed provider client from configuration.
func NewPlaidClient(opts config.ProviderOptions) (*PlaidClient, error) {
	if opts.ClientID == "" || opts.Secret == "" {
		return nil, fmt.Errorf("provider clientId and secret must be configured")
	}

	cfg := plaid.NewConfiguration()
	cfg.AddDefaultHeader("PLAID-CLIENT-ID", opts.ClientID)
	cfg.AddDefaultHeader("PLAID-SECRET", opts.Secret)

	switch opts.Environment {
	case "", "sandbox":
		cfg.UseEnvironment(plaid.Sandbox)
	case "production":
		cfg.UseEnvironment(plaid.Production)
	default:
		return nil, fmt.Errorf("unknown provider environment: %q", opts.Environment)
	}

	if opts.Debug {
		cfg.HTTPClient = &http.Client{Transport: debugRoundTripper()}
	}

	return &PlaidClient{
		api:        plaid.NewAPIClient(cfg),
		pageSize:   opts.PageSizeHint,
		timeout:    opts.RequestTimeout(),
		maxRetries: uint64(opts.MaxRetries),
	}, nil
}

// FetchDeltaPage retrieves one page of transaction deltas, retrying
// retryable failures with bounded exponential backoff.
func (c *PlaidClient) FetchDeltaPage(ctx context.Context, accessToken, cursor string) (*models.DeltaPage, error) {
	return retry(ctx, c.maxRetries, func() (*models.DeltaPage, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req := plaid.NewTransactionsSyncRequest(accessToken)
		if cursor != "" {
			req.SetCursor(cursor)
		}
		if c.pageSize > 0 {
			req.SetCount(int32(c.pageSize))
		}

		resp, _, err := c.api.PlaidApi.TransactionsSync(callCtx).TransactionsSyncRequest(*req).Execute()
		if err != nil {
			return nil, c.classify(err)
		}

		page := &models.DeltaPage{
			Added:      make([]models.ProviderTransaction, 0, len(resp.GetAdded())),
			Modified:   make([]models.ProviderTransaction, 0, len(resp.GetModified())),
			Removed:    make([]models.ProviderRemoval, 0, len(resp.GetRemoved())),
			NextCursor: resp.GetNextCursor(),
			HasMore:    resp.GetHasMore(),
		}
		for _, tx := range resp.GetAdded() {
			page.Added = append(page.Added, translateTransaction(tx))
		}
		for _, tx := range resp.GetModified() {
			page.Modified = append(page.Modified, translateTransaction(tx))
		}
		for _, removed := range resp.GetRemoved() {
			page.Removed = append(page.Removed, models.ProviderRemoval{
				ID:        removed.GetTransactionId(),
				AccountID: removed.GetAccountId(),
			})
		}
		return page, nil
	})
}

// FetchAccountSnapshot returns current balances and metadata for every
// account under the credential.
func (c *PlaidClient) FetchAccountSnapshot(ctx context.Context, accessToken string) ([]models.ProviderAccount, error) {
	return retry(ctx, c.maxRetries, func() ([]models.ProviderAccount, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req := plaid.NewAccountsGetRequest(accessToken)
		resp, _, err := c.api.PlaidApi.AccountsGet(callCtx).AccountsGetRequest(*req).Execute()
		if err != nil {
			return nil, c.classify(err)
		}

		accounts := make([]models.ProviderAccount, 0, len(resp.GetAccounts()))
		for _, acct := range resp.GetAccounts() {
			balances := acct.GetBalances()
			account := models.ProviderAccount{
				ID:   acct.GetAccountId(),
				Name: acct.GetName(),
				Type: string(acct.GetType()),
				Mask: acct.GetMask(),
			}
			if code, ok := balances.GetIsoCurrencyCodeOk(); ok && code != nil {
				account.CurrencyCode = *code
			}
			if current, ok := balances.GetCurrentOk(); ok && current != nil {
				value := *current
				account.BalanceCurrent = &value
			}
			if available, ok := balances.GetAvailableOk(); ok && available != nil {
				value := *available
				account.BalanceAvailable = &value
			}
			accounts = append(accounts, account)
		}
		return accounts, nil
	})
}

// ExchangePublicToken trades a public token from the linking flow for
// the item id and access credential.
func (c *PlaidClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.api.PlaidApi.ItemPublicTokenExchange(callCtx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", "", c.classify(err)
	}

	return resp.GetItemId(), resp.GetAccessToken(), nil
}

func translateTransaction(tx plaid.Transaction) models.ProviderTransaction {
	out := models.ProviderTransaction{
		ID:        tx.GetTransactionId(),
		AccountID: tx.GetAccountId(),
		Amount:    tx.GetAmount(),
		Date:      tx.GetDate(),
		Name:      tx.GetName(),
	}
	if code, ok := tx.GetIsoCurrencyCodeOk(); ok && code != nil {
		out.CurrencyCode = *code
	}
	if merchant, ok := tx.GetMerchantNameOk(); ok && merchant != nil {
		out.MerchantName = *merchant
	}
	return out
}

// classify converts a transport error into a typed *Error per the
// retryable/terminal taxonomy.
func (c *PlaidClient) classify(err error) *Error {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		// Not a structured provider error: timeouts, connection resets
		// and malformed responses are all worth retrying.
		return &Error{Kind: KindRetryable, Err: err}
	}

	code := string(plaidErr.GetErrorCode())
	return &Error{Kind: classifyCode(string(plaidErr.GetErrorType()), code), Code: code, Err: err}
}

// classifyCode maps a provider error type/code pair onto the taxonomy.
// Credential problems are terminal for the connection; everything else
// (rate limits, provider 5xx, planned maintenance) may clear on retry.
func classifyCode(errorType, code string) ErrorKind {
	switch errorType {
	case "ITEM_ERROR":
		return KindTerminal
	case "INVALID_INPUT":
		switch code {
		case "INVALID_ACCESS_TOKEN", "INVALID_PUBLIC_TOKEN", "INVALID_API_KEYS", "UNAUTHORIZED_ENVIRONMENT":
			return KindTerminal
		}
		return KindRetryable
	case "RATE_LIMIT_EXCEEDED", "API_ERROR":
		return KindRetryable
	default:
		return KindRetryable
	}
}

// retry runs op with bounded exponential backoff. Terminal errors
// short-circuit immediately.
func retry[T any](ctx context.Context, maxRetries uint64, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(func() (T, error) {
		result, err := op()
		if err != nil && IsTerminal(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
}
