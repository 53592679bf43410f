package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/metrics"
	"github.com/okuznetsov/balance-service/internal/models"
	"github.com/okuznetsov/balance-service/internal/repository"
	"github.com/okuznetsov/balance-service/internal/worker"
)

// LedgerService executes the money-movement operations. Each operation
// is one storage transaction: every balance row it touches is locked
// before invariants are evaluated, and the balance writes commit
// together with the transaction-log append or not at all.
type LedgerService struct {
	store      repository.Store
	wp         *worker.Pool
	lazyCreate bool
	log        *slog.Logger
}

func NewLedgerService(store repository.Store, wp *worker.Pool, lazyCreate bool, log *slog.Logger) *LedgerService {
	return &LedgerService{store: store, wp: wp, lazyCreate: lazyCreate, log: log}
}

// ChangeBalance applies a signed amount to one account: positive is a
// deposit, negative a withdrawal. The returned flag is true when the
// balance was lazily created by a first deposit.
func (s *LedgerService) ChangeBalance(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Balance, bool, error) {
	op := models.CommentDeposit
	if amount.Sign() < 0 {
		op = models.CommentWithdrawal
	}
	if amount.IsZero() {
		return models.Balance{}, false, apperr.New(apperr.InvalidAmount, "amount must be non-zero").OnField("amount")
	}

	var (
		out     models.Balance
		created bool
		rec     models.Transaction
	)
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		b, err := st.Balances().GetForUpdate(ctx, accountID)
		switch {
		case err == nil:
			newAmount := b.Amount.Add(amount)
			if newAmount.IsNegative() {
				return apperr.ErrInsufficientFunds.OnField("balance")
			}
			out, err = st.Balances().SetAmount(ctx, accountID, newAmount)
			if err != nil {
				return err
			}
		case apperr.IsCode(err, apperr.AccountNotFound):
			if amount.Sign() <= 0 || !s.lazyCreate {
				return apperr.ErrAccountNotFound.OnField("user_id")
			}
			out, err = st.Balances().Create(ctx, accountID, amount)
			if err != nil {
				return err
			}
			created = true
		default:
			return err
		}

		rec, err = st.Transactions().Append(ctx, models.Transaction{
			Amount:   amount.Abs(),
			SourceID: accountID,
			TargetID: accountID,
			Comment:  op,
		})
		return err
	})
	if err != nil {
		metrics.OperationsFailed.WithLabelValues(opLabel(op)).Inc()
		return models.Balance{}, false, err
	}

	metrics.OperationsTotal.WithLabelValues(opLabel(op)).Inc()
	s.audit(rec, "created", created)
	return out, created, nil
}

// Transfer moves amount from source to target. A transfer onto the same
// account is a permitted net-zero movement that still lands in the log.
func (s *LedgerService) Transfer(ctx context.Context, sourceID, targetID int64, amount decimal.Decimal) (models.Transaction, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, apperr.ErrInvalidAmount.OnField("amount")
	}

	var out models.Transaction
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		source, target, err := s.lockPair(ctx, st, sourceID, targetID)
		if err != nil {
			return err
		}

		if sourceID != targetID {
			newSource := source.Amount.Sub(amount)
			if newSource.IsNegative() {
				return apperr.ErrInsufficientFunds.OnField("source_id")
			}
			if _, err := st.Balances().SetAmount(ctx, sourceID, newSource); err != nil {
				return err
			}
			if _, err := st.Balances().SetAmount(ctx, targetID, target.Amount.Add(amount)); err != nil {
				return err
			}
		}

		out, err = st.Transactions().Append(ctx, models.Transaction{
			Amount:   amount,
			SourceID: sourceID,
			TargetID: targetID,
			Comment:  models.CommentTransfer,
		})
		return err
	})
	if err != nil {
		metrics.OperationsFailed.WithLabelValues("transfer").Inc()
		return models.Transaction{}, err
	}

	metrics.OperationsTotal.WithLabelValues("transfer").Inc()
	s.audit(out, "created", false)
	return out, nil
}

// lockPair locks both balance rows in ascending account-id order so
// that two concurrent transfers over the same pair cannot deadlock.
// A missing row is reported against the request field of that leg.
func (s *LedgerService) lockPair(ctx context.Context, st repository.Store, sourceID, targetID int64) (source, target models.Balance, err error) {
	if sourceID == targetID {
		b, err := st.Balances().GetForUpdate(ctx, sourceID)
		if err != nil {
			return models.Balance{}, models.Balance{}, notFoundOn(err, "source_id")
		}
		return b, b, nil
	}

	first, second := sourceID, targetID
	if first > second {
		first, second = second, first
	}
	locked := map[int64]models.Balance{}
	for _, id := range []int64{first, second} {
		b, err := st.Balances().GetForUpdate(ctx, id)
		if err != nil {
			field := "source_id"
			if id == targetID {
				field = "target_id"
			}
			return models.Balance{}, models.Balance{}, notFoundOn(err, field)
		}
		locked[id] = b
	}
	return locked[sourceID], locked[targetID], nil
}

func notFoundOn(err error, field string) error {
	if apperr.IsCode(err, apperr.AccountNotFound) {
		return apperr.ErrAccountNotFound.OnField(field)
	}
	return err
}

func opLabel(comment string) string {
	switch comment {
	case models.CommentDeposit:
		return "deposit"
	case models.CommentWithdrawal:
		return "withdrawal"
	default:
		return "transfer"
	}
}

// audit records the committed movement off the request path. A lost
// audit row is logged, never surfaced.
func (s *LedgerService) audit(t models.Transaction, action string, created bool) {
	if s.wp == nil {
		return
	}
	entityID := strconv.FormatInt(t.ID, 10)
	s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.store.AuditLogs().Create(ctx, models.AuditLog{
			EntityType: "transaction",
			EntityID:   &entityID,
			Action:     action,
			Details: map[string]any{
				"comment":         t.Comment,
				"amount":          t.Amount.StringFixed(2),
				"source_id":       t.SourceID,
				"target_id":       t.TargetID,
				"balance_created": created,
			},
		})
		if err != nil {
			s.log.Warn("audit write failed", "transaction_id", t.ID, "err", err)
		}
	})
}
