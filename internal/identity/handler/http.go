// Package handler serves the browser OAuth endpoints GET /auth/{provider}/redirect
// and GET /auth/{provider}/callback.
package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	accountdomain "identity-gateway/backend/internal/account/domain"
	"identity-gateway/backend/internal/identity/domain"
	"identity-gateway/backend/internal/identity/oauth"
	"identity-gateway/backend/internal/security"
	"identity-gateway/backend/internal/server/response"
	sessiondomain "identity-gateway/backend/internal/session/domain"
	sessionhandler "identity-gateway/backend/internal/session/handler"
)

const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_verifier"
	flowMaxAge     = 600
	stateLength    = 32

	successPath = "/auth/success"
)

// Resolver maps a provider assertion to a local account.
type Resolver interface {
	Resolve(ctx context.Context, a domain.Assertion) (*accountdomain.Account, error)
}

// SessionIssuer establishes a session for a resolved account.
type SessionIssuer interface {
	Issue(ctx context.Context, accountID, method string) (*sessiondomain.Session, error)
}

// Handler runs the browser side of the OAuth flow.
type Handler struct {
	providers   oauth.Registry
	resolver    Resolver
	sessions    SessionIssuer
	cookies     sessionhandler.Cookies
	frontendURL string
	logger      *slog.Logger
}

// NewHandler returns an OAuth handler. After login the browser is sent to frontendURL + "/auth/success".
func NewHandler(providers oauth.Registry, resolver Resolver, sessions SessionIssuer,
	cookies sessionhandler.Cookies, frontendURL string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		providers:   providers,
		resolver:    resolver,
		sessions:    sessions,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

func (h *Handler) provider(w http.ResponseWriter, r *http.Request) (*oauth.Provider, bool) {
	p, ok := h.providers.Get(chi.URLParam(r, "provider"))
	if !ok {
		response.NotFound(w, "unknown identity provider")
	}
	return p, ok
}

func (h *Handler) flowCookie(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Redirect handles GET /auth/{provider}/redirect.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	state, err := security.RandomSecret(stateLength)
	if err != nil {
		response.InternalError(w, r, h.logger, err)
		return
	}
	verifier := oauth2.GenerateVerifier()
	path := "/auth/" + string(p.Name())
	http.SetCookie(w, h.flowCookie(stateCookie, state, path, flowMaxAge))
	http.SetCookie(w, h.flowCookie(verifierCookie, verifier, path, flowMaxAge))
	http.Redirect(w, r, p.AuthCodeURL(state, verifier), http.StatusFound)
}

// Callback handles GET /auth/{provider}/callback.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(w, r)
	if !ok {
		return
	}
	path := "/auth/" + string(p.Name())
	http.SetCookie(w, h.flowCookie(stateCookie, "", path, -1))
	http.SetCookie(w, h.flowCookie(verifierCookie, "", path, -1))

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.InfoContext(r.Context(), "oauth login declined",
			slog.String("provider", string(p.Name())), slog.String("reason", e))
		response.Unauthorized(w, "login was cancelled or denied")
		return
	}
	stateC, err1 := r.Cookie(stateCookie)
	verifierC, err2 := r.Cookie(verifierCookie)
	state := q.Get("state")
	if err1 != nil || err2 != nil || state == "" ||
		subtle.ConstantTimeCompare([]byte(stateC.Value), []byte(state)) != 1 {
		response.BadRequest(w, "invalid oauth state")
		return
	}
	code := q.Get("code")
	if code == "" {
		response.BadRequest(w, "missing authorization code")
		return
	}

	assertion, err := p.Exchange(r.Context(), code, verifierC.Value)
	if err != nil {
		h.logger.WarnContext(r.Context(), "oauth exchange failed",
			slog.String("provider", string(p.Name())), slog.Any("error", err))
		response.WriteError(w, http.StatusBadGateway, "identity provider exchange failed", response.CodeOAuthFailed)
		return
	}
	acc, err := h.resolver.Resolve(r.Context(), assertion)
	if err != nil {
		response.InternalError(w, r, h.logger, err)
		return
	}
	sess, err := h.sessions.Issue(r.Context(), acc.ID, string(p.Name()))
	if err != nil {
		response.InternalError(w, r, h.logger, err)
		return
	}
	h.cookies.Set(w, sess)
	http.Redirect(w, r, h.frontendURL+successPath, http.StatusFound)
}
