package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, name, role, password_hash, balance_cents, earnings_cents, rating, completed_projects, max_per_project, max_per_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.Name, a.Role, a.PasswordHash, a.BalanceCents, a.EarningsCents, a.Rating, a.CompletedProjects, a.MaxPerProject, a.MaxPerDay).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, balance_cents, earnings_cents, rating, completed_projects, max_per_project, max_per_day, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.BalanceCents, &a.EarningsCents, &a.Rating, &a.CompletedProjects, &a.MaxPerProject, &a.MaxPerDay, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, balance_cents, earnings_cents, rating, completed_projects, max_per_project, max_per_day, created_at, updated_at
		FROM accounts WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.BalanceCents, &a.EarningsCents, &a.Rating, &a.CompletedProjects, &a.MaxPerProject, &a.MaxPerDay, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) UpdateLimits(ctx context.Context, id uuid.UUID, maxPerProject, maxPerDay *int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET max_per_project = $2, max_per_day = $3, updated_at = now() WHERE id = $1
	`, id, maxPerProject, maxPerDay)
	return err
}

// GetByIDForUpdate locks the account row for update. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := tx.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, balance_cents, earnings_cents, rating, completed_projects, max_per_project, max_per_day, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`, id).Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.BalanceCents, &a.EarningsCents, &a.Rating, &a.CompletedProjects, &a.MaxPerProject, &a.MaxPerDay, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DebitWallet atomically deducts amount from the given wallet if it holds at
// least that much. Returns pgx.ErrNoRows when funds are insufficient.
func (r *AccountRepo) DebitWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet string, amount int64) (newBalance int64, err error) {
	col := walletColumn(wallet)
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET `+col+` = `+col+` - $1, updated_at = now()
		WHERE id = $2 AND `+col+` >= $1
		RETURNING `+col+`
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// ForceDebitWallet deducts without the non-negative guard. Used only for the
// withdrawal un-reject correction, which may drive earnings negative.
func (r *AccountRepo) ForceDebitWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet string, amount int64) (newBalance int64, err error) {
	col := walletColumn(wallet)
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET `+col+` = `+col+` - $1, updated_at = now()
		WHERE id = $2
		RETURNING `+col+`
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// CreditWallet adds amount to the given wallet and returns the new balance.
func (r *AccountRepo) CreditWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, wallet string, amount int64) (newBalance int64, err error) {
	col := walletColumn(wallet)
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET `+col+` = `+col+` + $1, updated_at = now()
		WHERE id = $2
		RETURNING `+col+`
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// UpdateReputation sets the freelancer's running average rating and completed
// project count. Call within the settlement transaction.
func (r *AccountRepo) UpdateReputation(ctx context.Context, tx pgx.Tx, id uuid.UUID, rating float64, completedProjects int) error {
	_, err := tx.Exec(ctx, `
		UPDATE accounts SET rating = $2, completed_projects = $3, updated_at = now() WHERE id = $1
	`, id, rating, completedProjects)
	return err
}

// walletColumn maps a wallet name to its column. Only the two known wallet
// constants are ever passed, so unknown values fall back to balance_cents.
func walletColumn(wallet string) string {
	if wallet == models.WalletEarnings {
		return "earnings_cents"
	}
	return "balance_cents"
}
