package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Comments recorded on transactions, one per movement kind.
const (
	CommentDeposit    = "Deposit"
	CommentWithdrawal = "Withdrawal"
	CommentTransfer   = "Transfer"
)

// MaxCommentLen bounds the free-text comment column.
const MaxCommentLen = 4096

// Transaction is an immutable record of a completed movement.
// Amount is always stored as an absolute value; a deposit or
// withdrawal references the same account on both sides.
type Transaction struct {
	ID        int64           `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	SourceID  int64           `json:"source_id"`
	TargetID  int64           `json:"target_id"`
	Comment   string          `json:"comment"`
	Timestamp time.Time       `json:"timestamp"`
}
