// Package audit persists the authentication event trail and serves it back to account owners.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"identity-gateway/backend/internal/audit/domain"
	auditrepo "identity-gateway/backend/internal/audit/repository"
	telemetrydomain "identity-gateway/backend/internal/telemetry/domain"
)

// Logger writes auth events to the audit repository. It is a telemetry.EventEmitter,
// so it joins the event fan-out next to the broker producers.
type Logger struct {
	repo  auditrepo.Repository
	newID func() string
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo, newID: uuid.NewString}
}

// Emit stores one entry per event. Events without an account are still kept
// (e.g. otp_issued for an unknown phone).
func (l *Logger) Emit(ctx context.Context, event *telemetrydomain.Event) error {
	if l == nil || l.repo == nil || event == nil {
		return nil
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return l.repo.Create(ctx, &domain.AuditLog{
		ID:          l.newID(),
		AccountID:   event.AccountID,
		Action:      event.Type,
		Method:      event.Method,
		Outcome:     event.Outcome,
		Provider:    event.Provider,
		PhoneMasked: event.Phone,
		CreatedAt:   createdAt,
	})
}
