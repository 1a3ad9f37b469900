package models

import (
	"time"

	"github.com/google/uuid"
)

// Application status enum.
const (
	ApplicationStatusPending   = "pending"
	ApplicationStatusHired     = "hired"
	ApplicationStatusDeclined  = "declined"
	ApplicationStatusCancelled = "cancelled"
)

// Application is a freelancer's bid on an open project. Hiring one moves the
// project to in_progress; cancelling the project marks the hired application
// cancelled.
type Application struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
	CoverLetter  string    `json:"cover_letter,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
