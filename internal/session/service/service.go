// Package service issues, authenticates and revokes session tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"identity-gateway/backend/internal/security"
	"identity-gateway/backend/internal/session/domain"
	"identity-gateway/backend/internal/session/repository"
	"identity-gateway/backend/internal/telemetry"
	telemetrydomain "identity-gateway/backend/internal/telemetry/domain"
)

// ErrInvalidSession is returned for malformed, expired or revoked tokens.
var ErrInvalidSession = errors.New("invalid or expired session")

// Service issues signed session tokens and checks them against the revocation store.
type Service struct {
	tokens  *security.TokenProvider
	revoked repository.RevocationStore
	events  telemetry.EventEmitter
	logger  *slog.Logger
}

// NewService returns a session Service. events and logger may be nil.
func NewService(tokens *security.TokenProvider, revoked repository.RevocationStore, events telemetry.EventEmitter, logger *slog.Logger) *Service {
	if events == nil {
		events = telemetry.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tokens: tokens, revoked: revoked, events: events, logger: logger}
}

// Issue signs a new session for accountID established via method.
func (s *Service) Issue(_ context.Context, accountID, method string) (*domain.Session, error) {
	token, jti, expiresAt, err := s.tokens.Issue(accountID, method)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &domain.Session{
		ID:        jti,
		AccountID: accountID,
		Method:    method,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Authenticate validates token and rejects revoked sessions.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidSession
	}
	sess := &domain.Session{
		ID:        claims.ID,
		AccountID: claims.Subject,
		Method:    claims.Method,
		Token:     token,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Revoke invalidates the session carried by token until its natural expiry.
func (s *Service) Revoke(ctx context.Context, token string) error {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := s.revoked.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
		return err
	}
	if err := s.events.Emit(ctx, &telemetrydomain.Event{
		Type:      telemetrydomain.EventSessionRevoked,
		AccountID: sess.AccountID,
		Method:    sess.Method,
		Outcome:   "success",
	}); err != nil {
		s.logger.WarnContext(ctx, "auth event emit failed", slog.Any("error", err))
	}
	s.logger.InfoContext(ctx, "session revoked", slog.String("account_id", sess.AccountID))
	return nil
}
