package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gigvault/backend/internal/middleware"
	"github.com/gigvault/backend/internal/models"
)

// MessageRepoForHandler covers the project chat thread.
type MessageRepoForHandler interface {
	Create(ctx context.Context, m *models.Message) error
	ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Message, error)
}

// MessageHandler serves the project chat. The send timestamps feed the
// unresponsive-freelancer cancellation check, so messages go through the
// engine rather than a separate chat service.
type MessageHandler struct {
	Messages MessageRepoForHandler
	Projects ProjectReader
	Logger   *slog.Logger
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// SendMessage handles POST /v1/projects/{id}/messages. Only the client and
// the hired freelancer may write; the recipient is the other party.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	p, err := h.Projects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if p.HiredFreelancerID == nil {
		writeError(w, http.StatusConflict, "project has no hired freelancer")
		return
	}

	var recipient uuid.UUID
	switch acc.ID {
	case p.ClientID:
		recipient = *p.HiredFreelancerID
	case *p.HiredFreelancerID:
		recipient = p.ClientID
	default:
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}

	m := &models.Message{
		ID:          uuid.New(),
		ProjectID:   id,
		SenderID:    acc.ID,
		RecipientID: recipient,
		Body:        req.Body,
	}
	if err := h.Messages.Create(r.Context(), m); err != nil {
		h.Logger.Error("create message", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListMessages handles GET /v1/projects/{id}/messages.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	p, err := h.Projects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	participant := acc.ID == p.ClientID ||
		(p.HiredFreelancerID != nil && acc.ID == *p.HiredFreelancerID)
	if !participant && acc.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}

	msgs, err := h.Messages.ListByProjectID(r.Context(), id)
	if err != nil {
		h.Logger.Error("list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
