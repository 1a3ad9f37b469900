package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat message between the client and a freelancer on a project.
// Real-time chat is served elsewhere; the engine only reads send timestamps
// to decide the "freelancer unresponsive" cancellation gate.
type Message struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}
