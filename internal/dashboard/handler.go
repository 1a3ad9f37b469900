package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/ledger"
	"github.com/gigvault/backend/internal/middleware"
	"github.com/gigvault/backend/internal/models"
	"github.com/gigvault/backend/internal/project"
	"github.com/gigvault/backend/internal/repository"
)

// ProjectModerator is the admin hold/release toggle on the project service.
type ProjectModerator interface {
	SetHold(ctx context.Context, projectID uuid.UUID, hold bool) (*models.Project, error)
}

// Ledger is used for the admin balance top-up.
type Ledger interface {
	Credit(ctx context.Context, tx pgx.Tx, e ledger.Entry) (*models.Transaction, error)
}

// Handler serves the account dashboard and admin panel endpoints. All routes
// are mounted behind JWTAuth; admin routes additionally behind RequireRole.
type Handler struct {
	accountR      *repository.AccountRepo
	transactionR  *repository.TransactionRepo
	notificationR *repository.NotificationRepo
	settingsR     *repository.SettingsRepo
	projects      ProjectModerator
	ledger        Ledger
	pool          interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	}
	log *slog.Logger
}

func NewHandler(
	accountR *repository.AccountRepo,
	transactionR *repository.TransactionRepo,
	notificationR *repository.NotificationRepo,
	settingsR *repository.SettingsRepo,
	projects ProjectModerator,
	ledgerSvc Ledger,
	pool interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	},
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		accountR:      accountR,
		transactionR:  transactionR,
		notificationR: notificationR,
		settingsR:     settingsR,
		projects:      projects,
		ledger:        ledgerSvc,
		pool:          pool,
		log:           log,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /v1/account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 acc.ID,
		"email":              acc.Email,
		"name":               acc.Name,
		"role":               acc.Role,
		"balance_cents":      acc.BalanceCents,
		"earnings_cents":     acc.EarningsCents,
		"rating":             acc.Rating,
		"completed_projects": acc.CompletedProjects,
		"max_per_project":    acc.MaxPerProject,
		"max_per_day":        acc.MaxPerDay,
		"created_at":         acc.CreatedAt,
	})
}

// PATCH /v1/account/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		MaxPerProject *int64 `json:"max_per_project"`
		MaxPerDay     *int64 `json:"max_per_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	maxPerProject := acc.MaxPerProject
	if body.MaxPerProject != nil {
		maxPerProject = body.MaxPerProject
	}
	maxPerDay := acc.MaxPerDay
	if body.MaxPerDay != nil {
		maxPerDay = body.MaxPerDay
	}
	if err := h.accountR.UpdateLimits(r.Context(), acc.ID, maxPerProject, maxPerDay); err != nil {
		h.log.Error("update limits failed", "error", err)
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/account/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entries, err := h.transactionR.ListByAccountID(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GET /v1/account/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	notifications, err := h.notificationR.ListByUserID(r.Context(), acc.ID, 0)
	if err != nil {
		h.log.Error("list notifications failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// POST /v1/account/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid notification ID", http.StatusBadRequest)
		return
	}
	if err := h.notificationR.MarkRead(r.Context(), id, acc.ID); err != nil {
		h.log.Error("mark notification read failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/admin/settings
func (h *Handler) GetPlatformSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsR.Get(r.Context())
	if err != nil {
		h.log.Error("load settings failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PATCH /v1/admin/settings
func (h *Handler) UpdatePlatformSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.settingsR.Get(r.Context())
	if err != nil {
		h.log.Error("load settings failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var body struct {
		PostProjectTaxPercent *float64 `json:"post_project_tax_percent"`
		CashoutTaxPercent     *float64 `json:"cashout_tax_percent"`
		MinimumCashoutCents   *int64   `json:"minimum_cashout_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if body.PostProjectTaxPercent != nil {
		if *body.PostProjectTaxPercent < 0 || *body.PostProjectTaxPercent > 100 {
			http.Error(w, "post_project_tax_percent must be within 0..100", http.StatusBadRequest)
			return
		}
		current.PostProjectTaxPercent = *body.PostProjectTaxPercent
	}
	if body.CashoutTaxPercent != nil {
		if *body.CashoutTaxPercent < 0 || *body.CashoutTaxPercent > 100 {
			http.Error(w, "cashout_tax_percent must be within 0..100", http.StatusBadRequest)
			return
		}
		current.CashoutTaxPercent = *body.CashoutTaxPercent
	}
	if body.MinimumCashoutCents != nil {
		if *body.MinimumCashoutCents < 0 {
			http.Error(w, "minimum_cashout_cents must be >= 0", http.StatusBadRequest)
			return
		}
		current.MinimumCashoutCents = *body.MinimumCashoutCents
	}
	if err := h.settingsR.Update(r.Context(), current); err != nil {
		h.log.Error("update settings failed", "error", err)
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// POST /v1/admin/projects/{id}/hold and /release
func (h *Handler) SetProjectHold(hold bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid project ID", http.StatusBadRequest)
			return
		}
		p, err := h.projects.SetHold(r.Context(), id, hold)
		if err != nil {
			if errors.Is(err, project.ErrPolicyRefused) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "project not found", http.StatusNotFound)
				return
			}
			h.log.Error("set project hold failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// POST /v1/admin/accounts/{id}/deposit
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid account ID", http.StatusBadRequest)
		return
	}
	var body struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if body.AmountCents <= 0 {
		http.Error(w, "amount_cents must be > 0", http.StatusBadRequest)
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		h.log.Error("begin deposit tx failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	entry, err := h.ledger.Credit(r.Context(), tx, ledger.Entry{
		AccountID: accountID,
		Wallet:    models.WalletBalance,
		Amount:    body.AmountCents,
		Category:  models.TxDeposit,
		Note:      "manual deposit",
	})
	if err != nil {
		h.log.Error("deposit failed", "error", err)
		http.Error(w, "deposit failed", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.log.Error("commit deposit failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
