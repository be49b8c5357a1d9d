// Package server assembles the HTTP router and the gRPC health server.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	audithandler "identity-gateway/backend/internal/audit/handler"
	devotphandler "identity-gateway/backend/internal/devotp/handler"
	healthhandler "identity-gateway/backend/internal/health/handler"
	identityhandler "identity-gateway/backend/internal/identity/handler"
	otphandler "identity-gateway/backend/internal/otp/handler"
	"identity-gateway/backend/internal/server/interceptors"
	"identity-gateway/backend/internal/server/response"
	sessionhandler "identity-gateway/backend/internal/session/handler"
)

// HTTPDeps holds the handlers mounted by NewRouter.
type HTTPDeps struct {
	OTP      *otphandler.Handler
	Identity *identityhandler.Handler
	Sessions *sessionhandler.Handler
	Health   *healthhandler.Checker
	Audit    *audithandler.Handler
	// DevOTP serves GET /dev/otp. Set only when dev OTP mode is on and not production.
	DevOTP *devotphandler.Handler

	// AllowedOrigins are the browser origins allowed to call the API with credentials.
	AllowedOrigins []string
	Logger         *slog.Logger
}

var unloggedPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// NewRouter returns the HTTP API:
//
//	POST /auth/otp/request
//	POST /auth/otp/verify
//	GET  /auth/{provider}/redirect
//	GET  /auth/{provider}/callback
//	GET  /me
//	GET  /me/activity
//	POST /auth/logout
//	GET  /dev/otp            (dev mode only)
//	GET  /healthz, /readyz
func NewRouter(deps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(interceptors.RequestLogger(deps.Logger, unloggedPaths))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", response.CodeInvalidInput)
	})

	health := deps.Health
	if health == nil {
		health = healthhandler.NewChecker()
	}
	r.Get("/healthz", health.Live)
	r.Get("/readyz", health.Readiness)

	r.Route("/auth", func(r chi.Router) {
		if deps.OTP != nil {
			r.Post("/otp/request", deps.OTP.RequestOTP)
			r.Post("/otp/verify", deps.OTP.VerifyOTP)
		}
		if deps.Sessions != nil {
			r.Post("/logout", deps.Sessions.Logout)
		}
		if deps.Identity != nil {
			r.Get("/{provider}/redirect", deps.Identity.Redirect)
			r.Get("/{provider}/callback", deps.Identity.Callback)
		}
	})
	if deps.Sessions != nil {
		r.Group(func(r chi.Router) {
			r.Use(deps.Sessions.RequireSession)
			r.Get("/me", deps.Sessions.Me)
			if deps.Audit != nil {
				r.Get("/me/activity", deps.Audit.Activity)
			}
		})
	}
	if deps.DevOTP != nil {
		r.Get("/dev/otp", deps.DevOTP.GetOTP)
	}

	return otelhttp.NewHandler(r, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !unloggedPaths[r.URL.Path]
		}),
	)
}
