package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

type SubmissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *SubmissionRepo) Create(ctx context.Context, s *models.Submission) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO submissions (id, project_id, freelancer_id, status, note, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING updated_at
	`, s.ID, s.ProjectID, s.FreelancerID, s.Status, s.Note, s.SubmittedAt).Scan(&s.UpdatedAt)
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var s models.Submission
	err := r.pool.QueryRow(ctx, `
		SELECT id, project_id, freelancer_id, status, note, submitted_at, reminder1_sent, reminder2_sent, review_rating, review_comment, updated_at
		FROM submissions WHERE id = $1
	`, id).Scan(&s.ID, &s.ProjectID, &s.FreelancerID, &s.Status, &s.Note, &s.SubmittedAt, &s.Reminder1Sent, &s.Reminder2Sent, &s.ReviewRating, &s.ReviewComment, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListPending returns every submission still awaiting review, across all
// projects. The settlement tick walks this list.
func (r *SubmissionRepo) ListPending(ctx context.Context) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, freelancer_id, status, note, submitted_at, reminder1_sent, reminder2_sent, review_rating, review_comment, updated_at
		FROM submissions WHERE status = $1 ORDER BY submitted_at ASC
	`, models.SubmissionStatusSubmitted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *SubmissionRepo) ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Submission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, freelancer_id, status, note, submitted_at, reminder1_sent, reminder2_sent, review_rating, review_comment, updated_at
		FROM submissions WHERE project_id = $1 ORDER BY submitted_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// CountByProjectID returns how many submissions exist for the project,
// optionally restricted to one status (empty string means any).
func (r *SubmissionRepo) CountByProjectID(ctx context.Context, projectID uuid.UUID, status string) (int, error) {
	var n int
	var err error
	if status == "" {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions WHERE project_id = $1`, projectID).Scan(&n)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions WHERE project_id = $1 AND status = $2`, projectID, status).Scan(&n)
	}
	return n, err
}

// MarkReminderSent flips one of the two reminder flags, but only if it was
// still false and the submission is still awaiting review. The row count
// tells the caller whether this tick owns the send.
func (r *SubmissionRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, which int) (int64, error) {
	col := "reminder1_sent"
	if which == 2 {
		col = "reminder2_sent"
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE submissions SET `+col+` = TRUE, updated_at = now()
		WHERE id = $1 AND `+col+` = FALSE AND status = $2
	`, id, models.SubmissionStatusSubmitted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Settle marks a submitted submission approved or rejected and records the
// review. The status guard makes settlement idempotent: once the submission
// leaves submitted it can never be settled again.
func (r *SubmissionRepo) Settle(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string, rating *int, comment *string) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE submissions SET status = $2, review_rating = $3, review_comment = $4, updated_at = now()
		WHERE id = $1 AND status = $5
	`, id, status, rating, comment, models.SubmissionStatusSubmitted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSubmissions(rows pgx.Rows) ([]*models.Submission, error) {
	var list []*models.Submission
	for rows.Next() {
		var s models.Submission
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.FreelancerID, &s.Status, &s.Note, &s.SubmittedAt, &s.Reminder1Sent, &s.Reminder2Sent, &s.ReviewRating, &s.ReviewComment, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
