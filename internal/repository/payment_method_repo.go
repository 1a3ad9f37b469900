package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

type PaymentMethodRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentMethodRepo(pool *pgxpool.Pool) *PaymentMethodRepo {
	return &PaymentMethodRepo{pool: pool}
}

func (r *PaymentMethodRepo) Create(ctx context.Context, m *models.PaymentMethod) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_methods (id, user_id, kind, label, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, m.UserID, m.Kind, m.Label, m.Details).Scan(&m.CreatedAt)
}

func (r *PaymentMethodRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, kind, label, details, created_at
		FROM payment_methods WHERE id = $1
	`, id).Scan(&m.ID, &m.UserID, &m.Kind, &m.Label, &m.Details, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PaymentMethodRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, label, details, created_at
		FROM payment_methods WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PaymentMethod
	for rows.Next() {
		var m models.PaymentMethod
		if err := rows.Scan(&m.ID, &m.UserID, &m.Kind, &m.Label, &m.Details, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (r *PaymentMethodRepo) Delete(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM payment_methods WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
