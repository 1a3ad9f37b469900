package router

import (
	"net/http"

	"github.com/gigvault/backend/internal/auth"
	"github.com/gigvault/backend/internal/dashboard"
)

// Middleware is the standard wrapping shape used across the API.
type Middleware func(http.Handler) http.Handler

// New returns an http.Handler serving the auth, account and admin surface
// under /api/v1. Domain routes (/v1/projects etc.) are registered separately.
func New(authHandler *auth.Handler, dashHandler *dashboard.Handler, authn, admin Middleware) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.Handle("GET "+base+"/account/me", authn(http.HandlerFunc(dashHandler.GetMe)))
	mux.Handle("PATCH "+base+"/account/settings", authn(http.HandlerFunc(dashHandler.UpdateSettings)))
	mux.Handle("GET "+base+"/account/transactions", authn(http.HandlerFunc(dashHandler.ListTransactions)))
	mux.Handle("GET "+base+"/account/notifications", authn(http.HandlerFunc(dashHandler.ListNotifications)))
	mux.Handle("POST "+base+"/account/notifications/{id}/read", authn(http.HandlerFunc(dashHandler.MarkNotificationRead)))

	mux.Handle("GET "+base+"/admin/settings", authn(admin(http.HandlerFunc(dashHandler.GetPlatformSettings))))
	mux.Handle("PATCH "+base+"/admin/settings", authn(admin(http.HandlerFunc(dashHandler.UpdatePlatformSettings))))
	mux.Handle("POST "+base+"/admin/projects/{id}/hold", authn(admin(dashHandler.SetProjectHold(true))))
	mux.Handle("POST "+base+"/admin/projects/{id}/release", authn(admin(dashHandler.SetProjectHold(false))))
	mux.Handle("POST "+base+"/admin/accounts/{id}/deposit", authn(admin(http.HandlerFunc(dashHandler.Deposit))))

	return mux
}
