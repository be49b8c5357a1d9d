// Package handler exposes the session HTTP surface: authentication middleware,
// GET /me and POST /auth/logout.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	accountdomain "identity-gateway/backend/internal/account/domain"
	"identity-gateway/backend/internal/server/response"
	"identity-gateway/backend/internal/session/domain"
	"identity-gateway/backend/internal/session/service"
)

type ctxKey struct{}

// AccountGetter loads the account behind a session.
type AccountGetter interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
}

// Handler serves session endpoints.
type Handler struct {
	sessions *service.Service
	accounts AccountGetter
	cookies  Cookies
	logger   *slog.Logger
}

// NewHandler returns a session handler.
func NewHandler(sessions *service.Service, accounts AccountGetter, cookies Cookies, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, accounts: accounts, cookies: cookies, logger: logger}
}

// FromContext returns the session attached by RequireSession.
func FromContext(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*domain.Session)
	return sess, ok
}

// tokenFromRequest prefers a bearer Authorization header over the session cookie.
func (h *Handler) tokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(h.cookies.name()); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession rejects requests without a valid, unrevoked session.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.tokenFromRequest(r)
		if token == "" {
			response.Unauthorized(w, "authentication required")
			return
		}
		sess, err := h.sessions.Authenticate(r.Context(), token)
		if errors.Is(err, service.ErrInvalidSession) {
			response.Unauthorized(w, "invalid or expired session")
			return
		}
		if err != nil {
			response.InternalError(w, r, h.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := FromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required")
		return
	}
	acc, err := h.accounts.GetByID(r.Context(), sess.AccountID)
	if err != nil {
		response.InternalError(w, r, h.logger, err)
		return
	}
	if acc == nil {
		response.Unauthorized(w, "account no longer exists")
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": acc.Profile()})
}

// Logout handles POST /auth/logout. It is idempotent: a missing or already
// invalid session still clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.tokenFromRequest(r); token != "" {
		err := h.sessions.Revoke(r.Context(), token)
		if err != nil && !errors.Is(err, service.ErrInvalidSession) {
			response.InternalError(w, r, h.logger, err)
			return
		}
	}
	h.cookies.Clear(w)
	response.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
