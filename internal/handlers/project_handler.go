package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/cache"
	"github.com/gigvault/backend/internal/ledger"
	"github.com/gigvault/backend/internal/middleware"
	"github.com/gigvault/backend/internal/models"
	"github.com/gigvault/backend/internal/project"
)

// ProjectLifecycle is the subset of the project service the handler calls.
type ProjectLifecycle interface {
	Create(ctx context.Context, clientID uuid.UUID, in project.CreateInput) (*models.Project, error)
	Update(ctx context.Context, clientID, projectID uuid.UUID, in project.UpdateInput) (*models.Project, error)
	Cancel(ctx context.Context, clientID, projectID uuid.UUID, reason string) (*models.Project, error)
	Delete(ctx context.Context, clientID, projectID uuid.UUID) error
	Hire(ctx context.Context, clientID, projectID, applicationID uuid.UUID) (*models.Project, error)
}

// ProjectReader serves the read endpoints directly from the repository.
type ProjectReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	ListByClientID(ctx context.Context, clientID uuid.UUID) ([]*models.Project, error)
}

// ApplicationRepoForHandler covers the freelancer bidding endpoints.
type ApplicationRepoForHandler interface {
	Create(ctx context.Context, a *models.Application) error
	ListByProjectID(ctx context.Context, projectID uuid.UUID) ([]*models.Application, error)
}

// ReadCache is the read-through cache for project views.
type ReadCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// ProjectHandler serves /v1/projects endpoints.
type ProjectHandler struct {
	Lifecycle    ProjectLifecycle
	Projects     ProjectReader
	Applications ApplicationRepoForHandler
	Cache        ReadCache
	Validate     *validator.Validate
	Logger       *slog.Logger
}

// --- POST /v1/projects ---

type createProjectRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=200"`
	Description string     `json:"description" validate:"required,min=10"`
	BudgetCents int64      `json:"budget_cents" validate:"required,gt=0"`
	Deadline    *time.Time `json:"deadline"`
}

// CreateProject handles POST /v1/projects.
// Auth -> SpendLimit (via middleware) -> tax snapshot -> escrow debit -> 201.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if acc.Role != models.RoleClient {
		writeError(w, http.StatusForbidden, "only clients can post projects")
		return
	}

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Lifecycle.Create(r.Context(), acc.ID, project.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		BudgetCents: req.BudgetCents,
		Deadline:    req.Deadline,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			writeError(w, http.StatusPaymentRequired, "insufficient funds")
			return
		}
		h.Logger.Error("create project", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// --- GET /v1/projects ---

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	key := cache.AllProjectsKey
	if v, ok := h.Cache.Get(key); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}
	projects, err := h.Projects.List(r.Context())
	if err != nil {
		h.Logger.Error("list projects", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	h.Cache.Set(key, projects)
	writeJSON(w, http.StatusOK, projects)
}

// --- GET /v1/projects/mine ---

func (h *ProjectHandler) ListMyProjects(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	key := cache.ClientProjectsKey(acc.ID.String())
	if v, ok := h.Cache.Get(key); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}
	projects, err := h.Projects.ListByClientID(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list client projects", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	h.Cache.Set(key, projects)
	writeJSON(w, http.StatusOK, projects)
}

// --- GET /v1/projects/{id} ---

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	key := cache.ProjectKey(id.String())
	if v, ok := h.Cache.Get(key); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}
	p, err := h.Projects.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	h.Cache.Set(key, p)
	writeJSON(w, http.StatusOK, p)
}

// --- PATCH /v1/projects/{id} ---

type updateProjectRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	BudgetCents *int64     `json:"budget_cents"`
	Status      *string    `json:"status"`
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
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

	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	p, err := h.Lifecycle.Update(r.Context(), acc.ID, id, project.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		BudgetCents: req.BudgetCents,
		Status:      req.Status,
	})
	if err != nil {
		h.writeLifecycleError(w, "update project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- POST /v1/projects/{id}/cancel ---

type cancelProjectRequest struct {
	Reason string `json:"reason"`
}

func (h *ProjectHandler) CancelProject(w http.ResponseWriter, r *http.Request) {
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

	var req cancelProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	p, err := h.Lifecycle.Cancel(r.Context(), acc.ID, id, req.Reason)
	if err != nil {
		h.writeLifecycleError(w, "cancel project", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- DELETE /v1/projects/{id} ---

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Lifecycle.Delete(r.Context(), acc.ID, id); err != nil {
		h.writeLifecycleError(w, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- POST /v1/projects/{id}/applications ---

type applyRequest struct {
	CoverLetter string `json:"cover_letter"`
}

// Apply handles a freelancer bidding on an open project.
func (h *ProjectHandler) Apply(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if acc.Role != models.RoleFreelancer {
		writeError(w, http.StatusForbidden, "only freelancers can apply")
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
	if p.Status != models.ProjectStatusOpen {
		writeError(w, http.StatusConflict, "project is not open for applications")
		return
	}

	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	app := &models.Application{
		ID:           uuid.New(),
		ProjectID:    id,
		FreelancerID: acc.ID,
		CoverLetter:  req.CoverLetter,
		Status:       models.ApplicationStatusPending,
	}
	if err := h.Applications.Create(r.Context(), app); err != nil {
		h.Logger.Error("create application", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply")
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// --- GET /v1/projects/{id}/applications ---

func (h *ProjectHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
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
	if p.ClientID != acc.ID && acc.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "not the project owner")
		return
	}
	apps, err := h.Applications.ListByProjectID(r.Context(), id)
	if err != nil {
		h.Logger.Error("list applications", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

// --- POST /v1/projects/{id}/hire ---

type hireRequest struct {
	ApplicationID string `json:"application_id"`
}

func (h *ProjectHandler) Hire(w http.ResponseWriter, r *http.Request) {
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

	var req hireRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	appID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application_id")
		return
	}

	p, err := h.Lifecycle.Hire(r.Context(), acc.ID, id, appID)
	if err != nil {
		h.writeLifecycleError(w, "hire", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// writeLifecycleError maps project service errors onto HTTP statuses.
func (h *ProjectHandler) writeLifecycleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, project.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not the project owner")
	case errors.Is(err, project.ErrPolicyRefused):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient funds")
	default:
		h.Logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
