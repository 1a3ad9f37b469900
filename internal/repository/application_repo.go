package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

func (r *ApplicationRepo) Create(ctx context.Context, a *models.Application) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO applications (id, project_id, freelancer_id, cover_letter, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, a.ID, a.ProjectID, a.FreelancerID, a.CoverLetter, a.Status).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var a models.Application
	err := r.pool.QueryRow(ctx, `
		SELECT id, project_id, freelancer_id, cover_letter, status, created_at, updated_at
		FROM applications WHERE id = $1
	`, id).Scan(&a.ID, &a.ProjectID, &a.FreelancerID, &a.CoverLetter, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepo) ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Application, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, freelancer_id, cover_letter, status, created_at, updated_at
		FROM applications WHERE project_id = $1 ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Application
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.FreelancerID, &a.CoverLetter, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

func (r *ApplicationRepo) SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE applications SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// CancelHiredTx marks the project's hired application cancelled. Used when a
// project with a committed freelancer is cancelled or deleted.
func (r *ApplicationRepo) CancelHiredTx(ctx context.Context, tx pgx.Tx, projectID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE applications SET status = $2, updated_at = now()
		WHERE project_id = $1 AND status = $3
	`, projectID, models.ApplicationStatusCancelled, models.ApplicationStatusHired)
	return err
}
