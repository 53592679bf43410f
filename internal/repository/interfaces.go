package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/okuznetsov/balance-service/internal/models"
)

// Order of a transaction history listing. Both orders are descending;
// a fresh query always restarts from the top of the ordering.
type Order string

const (
	OrderByDate   Order = "date"
	OrderByAmount Order = "amount"
)

// Role restricts a history listing to one side of the movement.
type Role string

const (
	RoleAny    Role = ""
	RoleSource Role = "source"
	RoleTarget Role = "target"
)

type Balances interface {
	Get(ctx context.Context, accountID int64) (models.Balance, error)
	// GetForUpdate locks the balance row for the duration of the
	// surrounding transaction. Outside of WithTx it degrades to Get.
	GetForUpdate(ctx context.Context, accountID int64) (models.Balance, error)
	Create(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Balance, error)
	// SetAmount writes the new amount and refreshes last_update.
	// A negative amount fails with a constraint violation regardless of
	// what the caller checked.
	SetAmount(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Balance, error)
}

type Transactions interface {
	// Append adds a completed movement to the log and returns it with
	// the assigned id and timestamp. Records are never updated or deleted.
	Append(ctx context.Context, t models.Transaction) (models.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64, role Role, order Order, limit, offset int) ([]models.Transaction, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Store bundles the repositories with the transactional facility.
// WithTx runs fn against tx-backed repositories; everything fn writes
// commits or rolls back as one unit.
type Store interface {
	Balances() Balances
	Transactions() Transactions
	AuditLogs() AuditLogs
	WithTx(ctx context.Context, fn func(Store) error) error
}
