// Package memory is an in-process Store used for development mode and
// tests. It enforces the same storage-level constraints as the
// Postgres implementation: one balance per account, non-negative
// amounts, positive transaction amounts, and referential integrity
// from transactions to balances.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/models"
	"github.com/okuznetsov/balance-service/internal/repository"
)

type state struct {
	balances     map[int64]models.Balance
	transactions []models.Transaction
	audits       []models.AuditLog
	nextTxID     int64
}

func (s *state) clone() *state {
	balances := make(map[int64]models.Balance, len(s.balances))
	for k, v := range s.balances {
		balances[k] = v
	}
	return &state{
		balances:     balances,
		transactions: append([]models.Transaction(nil), s.transactions...),
		audits:       append([]models.AuditLog(nil), s.audits...),
		nextTxID:     s.nextTxID,
	}
}

// Store serializes every transactional unit behind one mutex, which
// gives the same observable behavior as row locks taken in a fixed
// order: operations on the same accounts cannot interleave.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: &state{balances: map[int64]models.Balance{}}}
}

func (s *Store) Balances() repository.Balances         { return lockedBalances{s} }
func (s *Store) Transactions() repository.Transactions { return lockedTransactions{s} }
func (s *Store) AuditLogs() repository.AuditLogs       { return lockedAudits{s} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&txStore{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// txStore operates on the state while the owning Store's mutex is held.
type txStore struct{ st *state }

func (t *txStore) Balances() repository.Balances         { return balancesRepo{t.st} }
func (t *txStore) Transactions() repository.Transactions { return transactionsRepo{t.st} }
func (t *txStore) AuditLogs() repository.AuditLogs       { return auditsRepo{t.st} }

func (t *txStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(t)
}

type balancesRepo struct{ st *state }

func (r balancesRepo) Get(ctx context.Context, accountID int64) (models.Balance, error) {
	b, ok := r.st.balances[accountID]
	if !ok {
		return models.Balance{}, apperr.ErrAccountNotFound
	}
	return b, nil
}

func (r balancesRepo) GetForUpdate(ctx context.Context, accountID int64) (models.Balance, error) {
	return r.Get(ctx, accountID)
}

func (r balancesRepo) Create(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Balance, error) {
	if _, ok := r.st.balances[accountID]; ok {
		return models.Balance{}, apperr.Newf(apperr.ConstraintViolation, "balance for account %d already exists", accountID)
	}
	if amount.IsNegative() {
		return models.Balance{}, apperr.New(apperr.ConstraintViolation, "amount must be non-negative")
	}
	b := models.Balance{AccountID: accountID, Amount: amount, LastUpdate: time.Now()}
	r.st.balances[accountID] = b
	return b, nil
}

func (r balancesRepo) SetAmount(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Balance, error) {
	b, ok := r.st.balances[accountID]
	if !ok {
		return models.Balance{}, apperr.ErrAccountNotFound
	}
	if amount.IsNegative() {
		return models.Balance{}, apperr.New(apperr.ConstraintViolation, "amount must be non-negative")
	}
	b.Amount = amount
	b.LastUpdate = time.Now()
	r.st.balances[accountID] = b
	return b, nil
}

type transactionsRepo struct{ st *state }

func (r transactionsRepo) Append(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if !t.Amount.IsPositive() {
		return models.Transaction{}, apperr.New(apperr.ConstraintViolation, "transaction amount must be positive")
	}
	if _, ok := r.st.balances[t.SourceID]; !ok {
		return models.Transaction{}, apperr.Newf(apperr.ConstraintViolation, "account %d does not exist", t.SourceID)
	}
	if _, ok := r.st.balances[t.TargetID]; !ok {
		return models.Transaction{}, apperr.Newf(apperr.ConstraintViolation, "account %d does not exist", t.TargetID)
	}
	r.st.nextTxID++
	t.ID = r.st.nextTxID
	t.Timestamp = time.Now()
	r.st.transactions = append(r.st.transactions, t)
	return t, nil
}

func (r transactionsRepo) ListByAccount(ctx context.Context, accountID int64, role repository.Role, order repository.Order, limit, offset int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range r.st.transactions {
		switch role {
		case repository.RoleSource:
			if t.SourceID != accountID {
				continue
			}
		case repository.RoleTarget:
			if t.TargetID != accountID {
				continue
			}
		default:
			if t.SourceID != accountID && t.TargetID != accountID {
				continue
			}
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == repository.OrderByAmount {
			if !out[i].Amount.Equal(out[j].Amount) {
				return out[i].Amount.GreaterThan(out[j].Amount)
			}
		} else if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type auditsRepo struct{ st *state }

func (r auditsRepo) Create(ctx context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now()
	r.st.audits = append(r.st.audits, l)
	return nil
}

// AuditLogs snapshot, exposed for tests.
func (s *Store) Audits() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.st.audits...)
}

// locking wrappers for non-transactional access

type lockedBalances struct{ s *Store }

func (w lockedBalances) Get(ctx context.Context, id int64) (models.Balance, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return balancesRepo{w.s.st}.Get(ctx, id)
}

func (w lockedBalances) GetForUpdate(ctx context.Context, id int64) (models.Balance, error) {
	return w.Get(ctx, id)
}

func (w lockedBalances) Create(ctx context.Context, id int64, amount decimal.Decimal) (models.Balance, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return balancesRepo{w.s.st}.Create(ctx, id, amount)
}

func (w lockedBalances) SetAmount(ctx context.Context, id int64, amount decimal.Decimal) (models.Balance, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return balancesRepo{w.s.st}.SetAmount(ctx, id, amount)
}

type lockedTransactions struct{ s *Store }

func (w lockedTransactions) Append(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return transactionsRepo{w.s.st}.Append(ctx, t)
}

func (w lockedTransactions) ListByAccount(ctx context.Context, id int64, role repository.Role, order repository.Order, limit, offset int) ([]models.Transaction, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return transactionsRepo{w.s.st}.ListByAccount(ctx, id, role, order, limit, offset)
}

type lockedAudits struct{ s *Store }

func (w lockedAudits) Create(ctx context.Context, l models.AuditLog) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return auditsRepo{w.s.st}.Create(ctx, l)
}
