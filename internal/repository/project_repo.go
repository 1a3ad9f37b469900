package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func (r *ProjectRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *ProjectRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.Project) error {
	return tx.QueryRow(ctx, `
		INSERT INTO projects (id, client_id, title, description, budget_cents, status, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.ClientID, p.Title, p.Description, p.BudgetCents, p.Status, p.Deadline).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return r.get(ctx, r.pool, id, "")
}

// GetByIDForUpdate locks the project row. Call within a transaction.
func (r *ProjectRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Project, error) {
	return r.get(ctx, tx, id, " FOR UPDATE")
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ProjectRepo) get(ctx context.Context, q queryRower, id uuid.UUID, suffix string) (*models.Project, error) {
	var p models.Project
	err := q.QueryRow(ctx, `
		SELECT id, client_id, title, description, budget_cents, status, deadline, cancellation_reason, hired_freelancer_id, created_at, updated_at
		FROM projects WHERE id = $1`+suffix, id).
		Scan(&p.ID, &p.ClientID, &p.Title, &p.Description, &p.BudgetCents, &p.Status, &p.Deadline, &p.CancellationReason, &p.HiredFreelancerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepo) UpdateTx(ctx context.Context, tx pgx.Tx, p *models.Project) error {
	_, err := tx.Exec(ctx, `
		UPDATE projects SET title = $2, description = $3, budget_cents = $4, status = $5, deadline = $6, cancellation_reason = $7, hired_freelancer_id = $8, updated_at = now()
		WHERE id = $1
	`, p.ID, p.Title, p.Description, p.BudgetCents, p.Status, p.Deadline, p.CancellationReason, p.HiredFreelancerID)
	return err
}

// MarkCompleted transitions a project to completed only while it is still
// in_progress. Returns the number of rows changed so callers can detect a
// lost race without re-reading.
func (r *ProjectRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE projects SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, models.ProjectStatusCompleted, models.ProjectStatusInProgress)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ProjectRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	return err
}

func (r *ProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, title, description, budget_cents, status, deadline, cancellation_reason, hired_freelancer_id, created_at, updated_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *ProjectRepo) ListByClientID(ctx context.Context, clientID uuid.UUID) ([]*models.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, title, description, budget_cents, status, deadline, cancellation_reason, hired_freelancer_id, created_at, updated_at
		FROM projects WHERE client_id = $1 ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func scanProjects(rows pgx.Rows) ([]*models.Project, error) {
	var list []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Title, &p.Description, &p.BudgetCents, &p.Status, &p.Deadline, &p.CancellationReason, &p.HiredFreelancerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
