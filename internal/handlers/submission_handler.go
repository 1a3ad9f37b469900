package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/middleware"
	"github.com/gigvault/backend/internal/models"
	"github.com/gigvault/backend/internal/settlement"
)

// Settler is the subset of the settlement service the handler calls.
type Settler interface {
	Submit(ctx context.Context, freelancerID, projectID uuid.UUID, note string) (*models.Submission, error)
	Review(ctx context.Context, clientID, submissionID uuid.UUID, approve bool, rating int, comment string) error
}

// SubmissionReader serves the read endpoints.
type SubmissionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Submission, error)
}

// SubmissionHandler serves work delivery and review endpoints.
type SubmissionHandler struct {
	Settlement  Settler
	Submissions SubmissionReader
	Projects    ProjectReader
	Logger      *slog.Logger
}

// --- POST /v1/projects/{id}/submissions ---

type submitWorkRequest struct {
	Note string `json:"note"`
}

// SubmitWork handles the hired freelancer delivering work. The submission
// starts the client review clock.
func (h *SubmissionHandler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req submitWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sub, err := h.Settlement.Submit(r.Context(), acc.ID, projectID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "project not found")
		case errors.Is(err, settlement.ErrProjectNotActive):
			writeError(w, http.StatusConflict, "project is not in progress")
		case errors.Is(err, settlement.ErrNotHired):
			writeError(w, http.StatusForbidden, "not hired on this project")
		default:
			h.Logger.Error("submit work", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// --- GET /v1/projects/{id}/submissions ---

func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	p, err := h.Projects.GetByID(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	hired := p.HiredFreelancerID != nil && *p.HiredFreelancerID == acc.ID
	if p.ClientID != acc.ID && !hired && acc.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "not a participant on this project")
		return
	}
	subs, err := h.Submissions.ListByProjectID(r.Context(), projectID)
	if err != nil {
		h.Logger.Error("list submissions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// --- POST /v1/submissions/{id}/review ---

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewSubmission is the client decision. Approval settles the escrow in the
// same request; rejection only marks the submission.
func (h *SubmissionHandler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	submissionID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Approve && (req.Rating < 1 || req.Rating > 5) {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	err := h.Settlement.Review(r.Context(), acc.ID, submissionID, req.Approve, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "submission not found")
		case errors.Is(err, settlement.ErrNotReviewer):
			writeError(w, http.StatusForbidden, "not the project's client")
		case errors.Is(err, settlement.ErrAlreadySettled):
			writeError(w, http.StatusConflict, "submission already reviewed")
		case errors.Is(err, settlement.ErrProjectNotActive):
			writeError(w, http.StatusConflict, "project is not in progress")
		default:
			h.Logger.Error("review submission", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	sub, err := h.Submissions.GetByID(r.Context(), submissionID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
