// Package handler serves GET /me/activity, the signed-in account's own auth history.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	auditdomain "identity-gateway/backend/internal/audit/domain"
	auditrepo "identity-gateway/backend/internal/audit/repository"
	"identity-gateway/backend/internal/server/response"
	sessionhandler "identity-gateway/backend/internal/session/handler"
)

const maxLimit = 200

// Handler lists audit entries for the session's account.
type Handler struct {
	repo   auditrepo.Repository
	logger *slog.Logger
}

// NewHandler returns an audit handler. Mount it behind RequireSession.
func NewHandler(repo auditrepo.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

type activityResponse struct {
	Events []*auditdomain.AuditLog `json:"events"`
}

// Activity handles GET /me/activity?limit=N.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionhandler.FromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required")
		return
	}
	limit := auditrepo.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxLimit {
			response.BadRequest(w, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	entries, err := h.repo.ListByAccount(r.Context(), sess.AccountID, limit)
	if err != nil {
		response.InternalError(w, r, h.logger, err)
		return
	}
	if entries == nil {
		entries = []*auditdomain.AuditLog{}
	}
	response.JSON(w, http.StatusOK, activityResponse{Events: entries})
}
