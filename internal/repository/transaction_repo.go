package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx inserts a ledger entry inside the given transaction. Entries are
// write-once; there is no update or delete path.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, wallet, amount_cents, balance_after_cents, category, tax_cents, project_id, withdrawal_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, t.ID, t.AccountID, t.Wallet, t.AmountCents, t.BalanceAfter, t.Category, t.TaxCents, t.ProjectID, t.WithdrawalID, t.Note).Scan(&t.CreatedAt)
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, wallet, amount_cents, balance_after_cents, category, tax_cents, project_id, withdrawal_id, note, created_at
		FROM transactions WHERE id = $1
	`, id).Scan(&t.ID, &t.AccountID, &t.Wallet, &t.AmountCents, &t.BalanceAfter, &t.Category, &t.TaxCents, &t.ProjectID, &t.WithdrawalID, &t.Note, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, wallet, amount_cents, balance_after_cents, category, tax_cents, project_id, withdrawal_id, note, created_at
		FROM transactions WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *TransactionRepo) ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, wallet, amount_cents, balance_after_cents, category, tax_cents, project_id, withdrawal_id, note, created_at
		FROM transactions WHERE project_id = $1 ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// DailyDebitTotal sums today's (UTC) debits in the given category for the
// account. Used by the spend-limit middleware.
func (r *TransactionRepo) DailyDebitTotal(ctx context.Context, accountID uuid.UUID, category string) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(-amount_cents), 0)
		FROM transactions
		WHERE account_id = $1 AND category = $2 AND amount_cents < 0
		  AND created_at >= CURRENT_DATE
	`, accountID, category).Scan(&total)
	return total, err
}

func scanTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Wallet, &t.AmountCents, &t.BalanceAfter, &t.Category, &t.TaxCents, &t.ProjectID, &t.WithdrawalID, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
