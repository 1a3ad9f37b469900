package main

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigvault/backend/internal/cache"
	"github.com/gigvault/backend/internal/handlers"
	"github.com/gigvault/backend/internal/middleware"
	"github.com/gigvault/backend/internal/payout"
	"github.com/gigvault/backend/internal/project"
	"github.com/gigvault/backend/internal/repository"
	"github.com/gigvault/backend/internal/settlement"
)

// RegisterV1Routes adds the /v1/ marketplace endpoints to the given mux.
// Middleware chain: JWTAuth -> (SpendLimit on POST /v1/projects only) -> handler.
func RegisterV1Routes(
	mux *http.ServeMux,
	pool *pgxpool.Pool,
	projectSvc *project.Service,
	settlementSvc *settlement.Service,
	payoutSvc *payout.Service,
	projectRepo *repository.ProjectRepo,
	applicationRepo *repository.ApplicationRepo,
	submissionRepo *repository.SubmissionRepo,
	messageRepo *repository.MessageRepo,
	withdrawalRepo *repository.WithdrawalRepo,
	methodRepo *repository.PaymentMethodRepo,
	readCache *cache.Cache,
	authn, admin func(http.Handler) http.Handler,
	validate *validator.Validate,
	logger *slog.Logger,
) {
	ph := &handlers.ProjectHandler{
		Lifecycle:    projectSvc,
		Projects:     projectRepo,
		Applications: applicationRepo,
		Cache:        readCache,
		Validate:     validate,
		Logger:       logger,
	}
	sh := &handlers.SubmissionHandler{
		Settlement:  settlementSvc,
		Submissions: submissionRepo,
		Projects:    projectRepo,
		Logger:      logger,
	}
	mh := &handlers.MessageHandler{
		Messages: messageRepo,
		Projects: projectRepo,
		Logger:   logger,
	}
	wh := &handlers.WithdrawalHandler{
		Payouts:     payoutSvc,
		Withdrawals: withdrawalRepo,
		Methods:     methodRepo,
		Validate:    validate,
		Logger:      logger,
	}

	spend := middleware.SpendLimit(pool)

	// Projects
	mux.Handle("POST /v1/projects", authn(spend(http.HandlerFunc(ph.CreateProject))))
	mux.Handle("GET /v1/projects", authn(http.HandlerFunc(ph.ListProjects)))
	mux.Handle("GET /v1/projects/mine", authn(http.HandlerFunc(ph.ListMyProjects)))
	mux.Handle("GET /v1/projects/{id}", authn(http.HandlerFunc(ph.GetProject)))
	mux.Handle("PATCH /v1/projects/{id}", authn(http.HandlerFunc(ph.UpdateProject)))
	mux.Handle("POST /v1/projects/{id}/cancel", authn(http.HandlerFunc(ph.CancelProject)))
	mux.Handle("DELETE /v1/projects/{id}", authn(http.HandlerFunc(ph.DeleteProject)))

	// Applications and hiring
	mux.Handle("POST /v1/projects/{id}/applications", authn(http.HandlerFunc(ph.Apply)))
	mux.Handle("GET /v1/projects/{id}/applications", authn(http.HandlerFunc(ph.ListApplications)))
	mux.Handle("POST /v1/projects/{id}/hire", authn(http.HandlerFunc(ph.Hire)))

	// Work delivery and review
	mux.Handle("POST /v1/projects/{id}/submissions", authn(http.HandlerFunc(sh.SubmitWork)))
	mux.Handle("GET /v1/projects/{id}/submissions", authn(http.HandlerFunc(sh.ListSubmissions)))
	mux.Handle("POST /v1/submissions/{id}/review", authn(http.HandlerFunc(sh.ReviewSubmission)))

	// Project chat
	mux.Handle("POST /v1/projects/{id}/messages", authn(http.HandlerFunc(mh.SendMessage)))
	mux.Handle("GET /v1/projects/{id}/messages", authn(http.HandlerFunc(mh.ListMessages)))

	// Withdrawals and payment methods
	mux.Handle("POST /v1/withdrawals", authn(http.HandlerFunc(wh.RequestWithdrawal)))
	mux.Handle("GET /v1/withdrawals", authn(http.HandlerFunc(wh.ListMyWithdrawals)))
	mux.Handle("POST /v1/payment-methods", authn(http.HandlerFunc(wh.CreatePaymentMethod)))
	mux.Handle("GET /v1/payment-methods", authn(http.HandlerFunc(wh.ListPaymentMethods)))
	mux.Handle("DELETE /v1/payment-methods/{id}", authn(http.HandlerFunc(wh.DeletePaymentMethod)))

	// Admin payout review
	mux.Handle("GET /v1/admin/withdrawals", authn(admin(http.HandlerFunc(wh.AdminListWithdrawals))))
	mux.Handle("PATCH /v1/admin/withdrawals/{id}", authn(admin(http.HandlerFunc(wh.AdminSetWithdrawalStatus))))
}
