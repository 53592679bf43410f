package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the single per-account record of available funds.
// Amount is a fixed-point decimal with 2 fractional digits, never
// negative; only the ledger engine mutates it.
type Balance struct {
	AccountID  int64           `json:"user_id"`
	Amount     decimal.Decimal `json:"balance"`
	LastUpdate time.Time       `json:"last_update"`
}
