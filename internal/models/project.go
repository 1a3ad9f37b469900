package models

import (
	"time"

	"github.com/google/uuid"
)

// Project status enum. Hold is the moderation state; completed and cancelled
// are terminal.
const (
	ProjectStatusOpen       = "open"
	ProjectStatusHold       = "hold"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

type Project struct {
	ID                 uuid.UUID  `json:"id"`
	ClientID           uuid.UUID  `json:"client_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	BudgetCents        int64      `json:"budget_cents"` // net amount held in escrow
	Status             string     `json:"status"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	HiredFreelancerID  *uuid.UUID `json:"hired_freelancer_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Terminal reports whether no further lifecycle transition is allowed.
func (p *Project) Terminal() bool {
	return p.Status == ProjectStatusCompleted || p.Status == ProjectStatusCancelled
}
