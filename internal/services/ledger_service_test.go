package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/models"
	"github.com/okuznetsov/balance-service/internal/repository"
	"github.com/okuznetsov/balance-service/internal/repository/memory"
	"github.com/okuznetsov/balance-service/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedger(t *testing.T, lazyCreate bool) (*LedgerService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewLedgerService(store, nil, lazyCreate, discardLogger()), store
}

func seedBalance(t *testing.T, store *memory.Store, accountID int64, amount string) {
	t.Helper()
	_, err := store.Balances().Create(context.Background(), accountID, decimal.RequireFromString(amount))
	require.NoError(t, err)
}

func listAll(t *testing.T, store *memory.Store, accountID int64) []models.Transaction {
	t.Helper()
	ts, err := store.Transactions().ListByAccount(context.Background(), accountID, repository.RoleAny, repository.OrderByDate, 0, 0)
	require.NoError(t, err)
	return ts
}

func TestChangeBalanceDeposit(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "2000.00")

	b, created, err := svc.ChangeBalance(context.Background(), 1, decimal.RequireFromString("500.50"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "2500.50", b.Amount.StringFixed(2))

	ts := listAll(t, store, 1)
	require.Len(t, ts, 1)
	assert.Equal(t, models.CommentDeposit, ts[0].Comment)
	assert.Equal(t, "500.50", ts[0].Amount.StringFixed(2))
	assert.Equal(t, int64(1), ts[0].SourceID)
	assert.Equal(t, int64(1), ts[0].TargetID)
}

func TestChangeBalanceWithdrawal(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "2000.00")

	b, created, err := svc.ChangeBalance(context.Background(), 1, decimal.NewFromInt(-1000))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "1000.00", b.Amount.StringFixed(2))

	ts := listAll(t, store, 1)
	require.Len(t, ts, 1)
	assert.Equal(t, models.CommentWithdrawal, ts[0].Comment)
	assert.Equal(t, "1000.00", ts[0].Amount.StringFixed(2))
}

func TestChangeBalanceOverdraftRejected(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "100.00")

	_, _, err := svc.ChangeBalance(context.Background(), 1, decimal.NewFromInt(-999999))
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.InsufficientFunds))

	b, err := store.Balances().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "100.00", b.Amount.StringFixed(2))
	assert.Empty(t, listAll(t, store, 1))
}

func TestChangeBalanceZeroAmount(t *testing.T) {
	svc, _ := newLedger(t, true)

	_, _, err := svc.ChangeBalance(context.Background(), 1, decimal.Zero)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.InvalidAmount))
}

func TestChangeBalanceLazyCreate(t *testing.T) {
	svc, store := newLedger(t, true)

	b, created, err := svc.ChangeBalance(context.Background(), 999, decimal.NewFromInt(3000))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(999), b.AccountID)
	assert.Equal(t, "3000.00", b.Amount.StringFixed(2))

	ts := listAll(t, store, 999)
	require.Len(t, ts, 1)
	assert.Equal(t, models.CommentDeposit, ts[0].Comment)
	assert.Equal(t, "3000.00", ts[0].Amount.StringFixed(2))
	assert.Equal(t, int64(999), ts[0].SourceID)
	assert.Equal(t, int64(999), ts[0].TargetID)
}

func TestChangeBalanceLazyCreateDisabled(t *testing.T) {
	svc, store := newLedger(t, false)

	_, _, err := svc.ChangeBalance(context.Background(), 999, decimal.NewFromInt(3000))
	require.Error(t, err)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.AccountNotFound, e.Code)
	assert.Equal(t, "user_id", e.Field)

	_, err = store.Balances().Get(context.Background(), 999)
	assert.Error(t, err)
}

func TestChangeBalanceWithdrawalFromUnknownAccount(t *testing.T) {
	// lazy creation never applies to withdrawals
	svc, _ := newLedger(t, true)

	_, _, err := svc.ChangeBalance(context.Background(), 999, decimal.NewFromInt(-3000))
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.AccountNotFound))
}

func TestTransferConservation(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "100.00")
	seedBalance(t, store, 2, "2000.00")

	rec, err := svc.Transfer(context.Background(), 2, 1, decimal.RequireFromString("1000.00"))
	require.NoError(t, err)
	assert.Equal(t, models.CommentTransfer, rec.Comment)
	assert.Equal(t, int64(2), rec.SourceID)
	assert.Equal(t, int64(1), rec.TargetID)

	a, err := store.Balances().Get(context.Background(), 1)
	require.NoError(t, err)
	b, err := store.Balances().Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "1100.00", a.Amount.StringFixed(2))
	assert.Equal(t, "1000.00", b.Amount.StringFixed(2))
	assert.Equal(t, "2100.00", a.Amount.Add(b.Amount).StringFixed(2))
}

func TestTransferOverdraftNoMutation(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "100.00")
	seedBalance(t, store, 2, "2000.00")

	_, err := svc.Transfer(context.Background(), 1, 2, decimal.NewFromInt(9999999))
	require.Error(t, err)

	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.InsufficientFunds, e.Code)
	assert.Equal(t, "source_id", e.Field)

	a, _ := store.Balances().Get(context.Background(), 1)
	b, _ := store.Balances().Get(context.Background(), 2)
	assert.Equal(t, "100.00", a.Amount.StringFixed(2))
	assert.Equal(t, "2000.00", b.Amount.StringFixed(2))
	assert.Empty(t, listAll(t, store, 1))
	assert.Empty(t, listAll(t, store, 2))
}

func TestTransferNonPositiveAmount(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "100.00")
	seedBalance(t, store, 2, "100.00")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-500)} {
		_, err := svc.Transfer(context.Background(), 1, 2, amount)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.InvalidAmount))
	}
	assert.Empty(t, listAll(t, store, 1))
}

func TestTransferNamesMissingLeg(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "100.00")

	_, err := svc.Transfer(context.Background(), 777, 1, decimal.NewFromInt(10))
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.AccountNotFound, e.Code)
	assert.Equal(t, "source_id", e.Field)

	_, err = svc.Transfer(context.Background(), 1, 777, decimal.NewFromInt(10))
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.AccountNotFound, e.Code)
	assert.Equal(t, "target_id", e.Field)

	assert.Empty(t, listAll(t, store, 1))
}

func TestTransferToSelf(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "500.00")

	rec, err := svc.Transfer(context.Background(), 1, 1, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, rec.SourceID, rec.TargetID)

	b, err := store.Balances().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "500.00", b.Amount.StringFixed(2))
	assert.Len(t, listAll(t, store, 1), 1)
}

func TestTransferToSelfUnknownAccount(t *testing.T) {
	svc, _ := newLedger(t, true)

	_, err := svc.Transfer(context.Background(), 777, 777, decimal.NewFromInt(100))
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.AccountNotFound, e.Code)
	assert.Equal(t, "source_id", e.Field)
}

func TestConcurrentOpposingTransfers(t *testing.T) {
	svc, store := newLedger(t, true)
	seedBalance(t, store, 1, "100000.00")
	seedBalance(t, store, 2, "100000.00")

	const n = 50
	amount := decimal.NewFromInt(10)

	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), 1, 2, amount)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), 2, 1, amount)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := store.Balances().Get(context.Background(), 1)
	require.NoError(t, err)
	b, err := store.Balances().Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "100000.00", a.Amount.StringFixed(2))
	assert.Equal(t, "100000.00", b.Amount.StringFixed(2))
	assert.Len(t, listAll(t, store, 1), 2*n)
}

func TestAuditWrittenAfterCommit(t *testing.T) {
	store := memory.NewStore()
	wp := worker.NewPool(2)
	svc := NewLedgerService(store, wp, true, discardLogger())

	_, _, err := svc.ChangeBalance(context.Background(), 5, decimal.NewFromInt(100))
	require.NoError(t, err)
	wp.Stop()

	audits := store.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, "transaction", audits[0].EntityType)
	assert.Equal(t, "created", audits[0].Action)
}
