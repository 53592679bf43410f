package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/metrics"
	"github.com/okuznetsov/balance-service/internal/models"
	"github.com/okuznetsov/balance-service/internal/rates"
	"github.com/okuznetsov/balance-service/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// QueryService serves the read-only surface: balance lookups with
// optional currency enrichment, and transaction history.
type QueryService struct {
	store repository.Store
	rates rates.Provider
	base  string
	log   *slog.Logger
}

func NewQueryService(store repository.Store, provider rates.Provider, baseCurrency string, log *slog.Logger) *QueryService {
	return &QueryService{store: store, rates: provider, base: baseCurrency, log: log}
}

// BalanceView is a balance read annotated with the currency the amount
// is denominated in after optional conversion.
type BalanceView struct {
	models.Balance
	Currency string `json:"currency"`
}

// GetBalance returns the account's balance, converted to the requested
// currency when the rate provider can serve it. Provider failures and
// unknown codes silently fall back to the base currency: the request
// must not fail because an optional enrichment did.
func (s *QueryService) GetBalance(ctx context.Context, accountID int64, currency string) (BalanceView, error) {
	b, err := s.store.Balances().Get(ctx, accountID)
	if err != nil {
		return BalanceView{}, notFoundOn(err, "user_id")
	}

	view := BalanceView{Balance: b, Currency: s.base}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" || code == s.base {
		return view, nil
	}

	rate, err := s.rates.Rate(ctx, code)
	if err != nil || !rate.IsPositive() {
		s.log.Warn("conversion unavailable, returning base currency",
			"account_id", accountID, "currency", code, "err", err)
		metrics.ConversionFallbacks.Inc()
		return view, nil
	}

	view.Amount = b.Amount.DivRound(rate, 2)
	view.Currency = code
	return view, nil
}

// GetTransactions lists the account's movement history. sort_by accepts
// exactly "amount" and "date" (both descending); anything else fails
// before any query executes. The account itself must exist.
func (s *QueryService) GetTransactions(ctx context.Context, accountID int64, sortBy string, role repository.Role, limit, offset int) ([]models.Transaction, error) {
	var order repository.Order
	switch sortBy {
	case "", "date":
		order = repository.OrderByDate
	case "amount":
		order = repository.OrderByAmount
	default:
		return nil, apperr.ErrInvalidSortField.OnField("sort_by")
	}

	if _, err := s.store.Balances().Get(ctx, accountID); err != nil {
		return nil, notFoundOn(err, "user_id")
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Transactions().ListByAccount(ctx, accountID, role, order, limit, offset)
}
