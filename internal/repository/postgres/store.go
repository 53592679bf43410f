package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repositories serve pool-backed and transaction-backed stores.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Balances() repository.Balances {
	return &balancesRepo{q: s.q, inTx: s.inTx}
}

func (s *Store) Transactions() repository.Transactions {
	return &transactionsRepo{q: s.q}
}

func (s *Store) AuditLogs() repository.AuditLogs {
	return &auditLogsRepo{q: s.q}
}

// WithTx runs fn against a transaction-backed store. Row locks taken by
// GetForUpdate hold until commit or rollback. A nested call reuses the
// surrounding transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()
	if err := fn(&Store{q: tx, inTx: true}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// mapPgError converts storage-level constraint breaches into the domain
// error the API reports. Anything else passes through untouched.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514": // check_violation, amount >= 0
			return apperr.Newf(apperr.ConstraintViolation, "check constraint %q violated", pgErr.ConstraintName)
		case "23503": // foreign_key_violation, transactions -> balances
			return apperr.Newf(apperr.ConstraintViolation, "foreign key %q violated", pgErr.ConstraintName)
		case "23505": // unique_violation, one balance per account
			return apperr.Newf(apperr.ConstraintViolation, "unique constraint %q violated", pgErr.ConstraintName)
		}
	}
	return err
}
