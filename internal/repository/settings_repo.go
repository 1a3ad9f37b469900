package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/tax"
)

// SettingsRepo reads the single-row platform_settings table. Missing row
// falls back to the built-in defaults so a fresh database still works.
type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) Get(ctx context.Context) (tax.Settings, error) {
	var s tax.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT post_project_tax_percent, cashout_tax_percent, minimum_cashout_cents
		FROM platform_settings LIMIT 1
	`).Scan(&s.PostProjectTaxPercent, &s.CashoutTaxPercent, &s.MinimumCashoutCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return tax.DefaultSettings(), nil
	}
	if err != nil {
		return tax.Settings{}, err
	}
	return s, nil
}

func (r *SettingsRepo) Update(ctx context.Context, s tax.Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO platform_settings (singleton, post_project_tax_percent, cashout_tax_percent, minimum_cashout_cents)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE
		SET post_project_tax_percent = $1, cashout_tax_percent = $2, minimum_cashout_cents = $3
	`, s.PostProjectTaxPercent, s.CashoutTaxPercent, s.MinimumCashoutCents)
	return err
}
