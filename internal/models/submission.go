package models

import (
	"time"

	"github.com/google/uuid"
)

// Submission status enum. Approved and rejected are terminal; submissions are
// never deleted so they double as an audit record.
const (
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusApproved  = "approved"
	SubmissionStatusRejected  = "rejected"
)

// SystemReviewRating is the rating written when an unreviewed submission is
// auto-approved by the settlement sweep.
const SystemReviewRating = 5

type Submission struct {
	ID            uuid.UUID `json:"id"`
	ProjectID     uuid.UUID `json:"project_id"`
	FreelancerID  uuid.UUID `json:"freelancer_id"`
	Status        string    `json:"status"`
	Note          string    `json:"note,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Reminder1Sent bool      `json:"reminder1_sent"`
	Reminder2Sent bool      `json:"reminder2_sent"`
	ReviewRating  *int      `json:"review_rating,omitempty"`
	ReviewComment *string   `json:"review_comment,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
