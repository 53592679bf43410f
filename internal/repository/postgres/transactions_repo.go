package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/okuznetsov/balance-service/internal/apperr"
	"github.com/okuznetsov/balance-service/internal/models"
	"github.com/okuznetsov/balance-service/internal/repository"
)

type transactionsRepo struct{ q querier }

func (r *transactionsRepo) Append(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	const q = `INSERT INTO transactions(amount, source_account_id, target_account_id, comment)
	           VALUES($1, $2, $3, $4)
	           RETURNING id, created_at`
	err := r.q.QueryRow(ctx, q, t.Amount.String(), t.SourceID, t.TargetID, t.Comment).
		Scan(&t.ID, &t.Timestamp)
	if err != nil {
		return models.Transaction{}, mapPgError(err)
	}
	return t, nil
}

func (r *transactionsRepo) ListByAccount(ctx context.Context, accountID int64, role repository.Role, order repository.Order, limit, offset int) ([]models.Transaction, error) {
	q := `SELECT id, amount::text, source_account_id, target_account_id, comment, created_at
	        FROM transactions `
	switch role {
	case repository.RoleSource:
		q += `WHERE source_account_id = $1 `
	case repository.RoleTarget:
		q += `WHERE target_account_id = $1 `
	default:
		q += `WHERE source_account_id = $1 OR target_account_id = $1 `
	}
	switch order {
	case repository.OrderByAmount:
		q += `ORDER BY amount DESC, id DESC `
	default:
		q += `ORDER BY created_at DESC, id DESC `
	}
	q += `LIMIT $2 OFFSET $3`

	rows, err := r.q.Query(ctx, q, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			t         models.Transaction
			amountStr string
		)
		if err := rows.Scan(&t.ID, &amountStr, &t.SourceID, &t.TargetID, &t.Comment, &t.Timestamp); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, apperr.Newf(apperr.InternalError, "parse stored amount: %v", err)
		}
		t.Amount = amount
		out = append(out, t)
	}
	return out, rows.Err()
}
