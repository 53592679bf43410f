package handlers

import (
	"errors"
	"time"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/models"
	"github.com/okuznetsov/balance-service/internal/services"
)

// Wire representations. Amounts are rendered with exactly 2 fractional
// digits as strings, never as floats.

type balanceResponse struct {
	UserID     int64     `json:"user_id"`
	Balance    string    `json:"balance"`
	Currency   string    `json:"currency,omitempty"`
	LastUpdate time.Time `json:"last_update"`
}

type transactionResponse struct {
	Amount    string    `json:"amount"`
	SourceID  int64     `json:"source_id"`
	TargetID  int64     `json:"target_id"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

func toBalanceResponse(b models.Balance) balanceResponse {
	return balanceResponse{
		UserID:     b.AccountID,
		Balance:    b.Amount.StringFixed(2),
		LastUpdate: b.LastUpdate,
	}
}

func toBalanceViewResponse(v services.BalanceView) balanceResponse {
	out := toBalanceResponse(v.Balance)
	out.Currency = v.Currency
	return out
}

func toTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		Amount:    t.Amount.StringFixed(2),
		SourceID:  t.SourceID,
		TargetID:  t.TargetID,
		Comment:   t.Comment,
		Timestamp: t.Timestamp,
	}
}

func toTransactionResponses(ts []models.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

// fieldErrors folds per-field validation errors into the response map,
// so a request with several bad fields reports all of them at once.
func fieldErrors(errs ...error) map[string][]string {
	out := map[string][]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var e *apperr.Error
		if errors.As(err, &e) && e.Field != "" {
			out[e.Field] = append(out[e.Field], e.Message)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
