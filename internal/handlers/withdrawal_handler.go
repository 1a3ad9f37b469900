package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigvault/backend/internal/ledger"
	"github.com/gigvault/backend/internal/middleware"
	"github.com/gigvault/backend/internal/models"
	"github.com/gigvault/backend/internal/payout"
)

// PayoutService is the subset of the payout service the handler calls.
type PayoutService interface {
	Request(ctx context.Context, freelancerID, methodID uuid.UUID, amountCents int64) (*models.Withdrawal, error)
	SetStatus(ctx context.Context, withdrawalID uuid.UUID, newStatus string) (*models.Withdrawal, error)
}

// WithdrawalReader serves the read endpoints.
type WithdrawalReader interface {
	ListByFreelancerID(ctx context.Context, freelancerID uuid.UUID) ([]*models.Withdrawal, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Withdrawal, error)
}

// MethodRepoForHandler covers payment method management.
type MethodRepoForHandler interface {
	Create(ctx context.Context, m *models.PaymentMethod) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.PaymentMethod, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (int64, error)
}

// WithdrawalHandler serves /v1/withdrawals and /v1/payment-methods.
type WithdrawalHandler struct {
	Payouts     PayoutService
	Withdrawals WithdrawalReader
	Methods     MethodRepoForHandler
	Validate    *validator.Validate
	Logger      *slog.Logger
}

// --- POST /v1/withdrawals ---

type requestWithdrawalRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required,uuid4"`
	AmountCents     int64  `json:"amount_cents" validate:"required,gt=0"`
}

func (h *WithdrawalHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if acc.Role != models.RoleFreelancer {
		writeError(w, http.StatusForbidden, "only freelancers can withdraw earnings")
		return
	}

	var req requestWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	methodID, err := uuid.Parse(req.PaymentMethodID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment_method_id")
		return
	}

	wd, err := h.Payouts.Request(r.Context(), acc.ID, methodID, req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrInvalidAmount), errors.Is(err, payout.ErrBelowMinimum):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, payout.ErrNotMethodOwner):
			writeError(w, http.StatusForbidden, "payment method does not belong to you")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "insufficient earnings")
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "payment method not found")
		default:
			h.Logger.Error("request withdrawal", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

// --- GET /v1/withdrawals ---

func (h *WithdrawalHandler) ListMyWithdrawals(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wds, err := h.Withdrawals.ListByFreelancerID(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list withdrawals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if wds == nil {
		wds = []*models.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, wds)
}

// --- GET /v1/admin/withdrawals?status= ---

func (h *WithdrawalHandler) AdminListWithdrawals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.WithdrawalStatusPending
	}
	wds, err := h.Withdrawals.ListByStatus(r.Context(), status)
	if err != nil {
		h.Logger.Error("admin list withdrawals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if wds == nil {
		wds = []*models.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, wds)
}

// --- PATCH /v1/admin/withdrawals/{id} ---

type setWithdrawalStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *WithdrawalHandler) AdminSetWithdrawalStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid withdrawal id")
		return
	}

	var req setWithdrawalStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wd, err := h.Payouts.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, payout.ErrConflict):
			writeError(w, http.StatusConflict, "status changed concurrently, re-read and retry")
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "withdrawal not found")
		default:
			h.Logger.Error("set withdrawal status", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

// --- POST /v1/payment-methods ---

type createMethodRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=bank crypto"`
	Label   string `json:"label" validate:"required,max=100"`
	Details string `json:"details" validate:"required"`
}

func (h *WithdrawalHandler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := &models.PaymentMethod{
		ID:      uuid.New(),
		UserID:  acc.ID,
		Kind:    req.Kind,
		Label:   req.Label,
		Details: req.Details,
	}
	if err := h.Methods.Create(r.Context(), m); err != nil {
		h.Logger.Error("create payment method", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save payment method")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// --- GET /v1/payment-methods ---

func (h *WithdrawalHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	methods, err := h.Methods.ListByUserID(r.Context(), acc.ID)
	if err != nil {
		h.Logger.Error("list payment methods", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if methods == nil {
		methods = []*models.PaymentMethod{}
	}
	writeJSON(w, http.StatusOK, methods)
}

// --- DELETE /v1/payment-methods/{id} ---

func (h *WithdrawalHandler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid payment method id")
		return
	}
	rows, err := h.Methods.Delete(r.Context(), id, acc.ID)
	if err != nil {
		h.Logger.Error("delete payment method", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rows == 0 {
		writeError(w, http.StatusNotFound, "payment method not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
