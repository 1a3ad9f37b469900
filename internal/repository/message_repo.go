package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/models"
)

// MessageRepo stores the project chat log. Besides the thread itself, the
// send timestamps back the "freelancer unresponsive" cancellation gate.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, project_id, sender_id, recipient_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, m.ID, m.ProjectID, m.SenderID, m.RecipientID, m.Body).Scan(&m.CreatedAt)
}

// LastSentAt returns the time of the sender's most recent message on the
// project, or (nil, nil) when they never wrote. Backs the "freelancer
// unresponsive" cancellation gate.
func (r *MessageRepo) LastSentAt(ctx context.Context, projectID, senderID uuid.UUID) (*time.Time, error) {
	var at time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT created_at FROM messages
		WHERE project_id = $1 AND sender_id = $2
		ORDER BY created_at DESC LIMIT 1
	`, projectID, senderID).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

func (r *MessageRepo) ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, sender_id, recipient_id, body, created_at
		FROM messages WHERE project_id = $1 ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
