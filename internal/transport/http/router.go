// Package httptransport assembles the HTTP surface: middleware chain, public
// routes, and the authenticated API. Handlers stay thin; all business rules
// live in the domain services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	caregiverhandler "carelink/internal/caregiver/handler"
	clienthandler "carelink/internal/client/handler"
	messaginghandler "carelink/internal/messaging/handler"
	notificationhandler "carelink/internal/notification/handler"
	"carelink/internal/platform/metrics"
	"carelink/internal/platform/middleware"
	referralhandler "carelink/internal/referral/handler"
	userhandler "carelink/internal/user/handler"
)

// Handlers bundles the domain handlers the router mounts.
type Handlers struct {
	Users         *userhandler.Handler
	Clients       *clienthandler.Handler
	Caregivers    *caregiverhandler.Handler
	Referrals     *referralhandler.Handler
	Notifications *notificationhandler.Handler
	Messages      *messaginghandler.Handler
}

// NewRouter builds the full route tree. Everything under /api/v1 except login
// requires a valid bearer token.
func NewRouter(h Handlers, validator middleware.JWTValidator, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		h.Users.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(validator, logger))
			h.Users.Register(r)
			h.Clients.Register(r)
			h.Caregivers.Register(r)
			h.Referrals.Register(r)
			h.Notifications.Register(r)
			h.Messages.Register(r)
		})
	})

	return r
}
