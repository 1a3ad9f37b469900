package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification kinds dispatched by the engine.
const (
	NotifyReviewReminder      = "review_reminder"
	NotifyFinalReviewReminder = "final_review_reminder"
	NotifyAutoApproved        = "submission_auto_approved"
	NotifySubmissionReviewed  = "submission_reviewed"
	NotifyProjectCancelled    = "project_cancelled"
	NotifyHired               = "hired"
	NotifyWithdrawalRejected  = "withdrawal_rejected"
	NotifyWithdrawalPaid      = "withdrawal_paid"
)

type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
