package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/models"
)

type balancesRepo struct {
	q    querier
	inTx bool
}

func (r *balancesRepo) Get(ctx context.Context, accountID int64) (models.Balance, error) {
	const q = `SELECT account_id, amount::text, last_update
	             FROM balances
	            WHERE account_id = $1`
	return r.scanBalance(r.q.QueryRow(ctx, q, accountID))
}

func (r *balancesRepo) GetForUpdate(ctx context.Context, accountID int64) (models.Balance, error) {
	if !r.inTx {
		return r.Get(ctx, accountID)
	}
	const q = `SELECT account_id, amount::text, last_update
	             FROM balances
	            WHERE account_id = $1
	              FOR UPDATE`
	return r.scanBalance(r.q.QueryRow(ctx, q, accountID))
}

func (r *balancesRepo) Create(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Balance, error) {
	const q = `INSERT INTO balances(account_id, amount, last_update)
	           VALUES($1, $2, now())
	           RETURNING account_id, amount::text, last_update`
	b, err := r.scanBalance(r.q.QueryRow(ctx, q, accountID, amount.String()))
	if err != nil {
		return models.Balance{}, mapPgError(err)
	}
	return b, nil
}

func (r *balancesRepo) SetAmount(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Balance, error) {
	const q = `UPDATE balances
	              SET amount = $2, last_update = now()
	            WHERE account_id = $1
	           RETURNING account_id, amount::text, last_update`
	b, err := r.scanBalance(r.q.QueryRow(ctx, q, accountID, amount.String()))
	if err != nil {
		return models.Balance{}, mapPgError(err)
	}
	return b, nil
}

func (r *balancesRepo) scanBalance(row pgx.Row) (models.Balance, error) {
	var (
		b         models.Balance
		amountStr string
	)
	err := row.Scan(&b.AccountID, &amountStr, &b.LastUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Balance{}, apperr.ErrAccountNotFound
		}
		return models.Balance{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return models.Balance{}, apperr.Newf(apperr.InternalError, "parse stored amount: %v", err)
	}
	b.Amount = amount
	return b, nil
}
