package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

func (r *WithdrawalRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO withdrawals (id, freelancer_id, payment_method_id, amount_cents, tax_cents, net_cents, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, w.ID, w.FreelancerID, w.PaymentMethodID, w.AmountCents, w.TaxCents, w.NetCents, w.Status, w.RequestedAt)
	return err
}

func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := r.pool.QueryRow(ctx, `
		SELECT id, freelancer_id, payment_method_id, amount_cents, tax_cents, net_cents, status, requested_at, completed_at
		FROM withdrawals WHERE id = $1
	`, id).Scan(&w.ID, &w.FreelancerID, &w.PaymentMethodID, &w.AmountCents, &w.TaxCents, &w.NetCents, &w.Status, &w.RequestedAt, &w.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// TransitionStatus is a document-level compare-and-set: the row moves from
// fromStatus to toStatus only if nothing transitioned it in between. The row
// count is the caller's signal that it won the race, so refunds and
// corrections are applied exactly once.
func (r *WithdrawalRepo) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, fromStatus, toStatus string, completedAt *time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE withdrawals SET status = $3, completed_at = COALESCE($4, completed_at)
		WHERE id = $1 AND status = $2
	`, id, fromStatus, toStatus, completedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *WithdrawalRepo) ListByFreelancerID(ctx context.Context, freelancerID uuid.UUID) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, freelancer_id, payment_method_id, amount_cents, tax_cents, net_cents, status, requested_at, completed_at
		FROM withdrawals WHERE freelancer_id = $1 ORDER BY requested_at DESC
	`, freelancerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

func (r *WithdrawalRepo) ListByStatus(ctx context.Context, status string) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, freelancer_id, payment_method_id, amount_cents, tax_cents, net_cents, status, requested_at, completed_at
		FROM withdrawals WHERE status = $1 ORDER BY requested_at ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

// ExpireStale moves pending withdrawals on time-boxed payment methods to
// expired when they were requested before the cutoff. Funds stay debited;
// there is no ledger effect.
func (r *WithdrawalRepo) ExpireStale(ctx context.Context, methodKind string, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE withdrawals w SET status = $1
		FROM payment_methods m
		WHERE w.payment_method_id = m.id
		  AND m.kind = $2
		  AND w.status = $3
		  AND w.requested_at < $4
	`, models.WithdrawalStatusExpired, methodKind, models.WithdrawalStatusPending, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanWithdrawals(rows pgx.Rows) ([]*models.Withdrawal, error) {
	var list []*models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.FreelancerID, &w.PaymentMethodID, &w.AmountCents, &w.TaxCents, &w.NetCents, &w.Status, &w.RequestedAt, &w.CompletedAt); err != nil {
			return nil, err
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}
