// Package service resolves federated login assertions to local accounts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	accountdomain "identity-gateway/backend/internal/account/domain"
	accountrepo "identity-gateway/backend/internal/account/repository"
	"identity-gateway/backend/internal/identity/domain"
	"identity-gateway/backend/internal/security"
	"identity-gateway/backend/internal/telemetry"
	telemetrydomain "identity-gateway/backend/internal/telemetry/domain"
)

const (
	instrumentationName = "identity-gateway/identity"

	// maxResolveAttempts bounds re-resolution after a uniqueness conflict.
	maxResolveAttempts = 3
)

// Resolution paths, reported on spans, metrics and events.
const (
	PathProviderMatch = "provider_match"
	PathEmailLink     = "email_link"
	PathCreated       = "created"
)

var tracer = otel.Tracer(instrumentationName)

// ErrInvalidAssertion is returned when provider or provider ID is missing.
var ErrInvalidAssertion = errors.New("provider and provider id are required")

// AccountRepo is the minimal account repository needed by the linking service.
type AccountRepo interface {
	GetByProvider(ctx context.Context, provider, providerID string) (*accountdomain.Account, error)
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	LinkProvider(ctx context.Context, id, provider, providerID string, at time.Time) error
}

// LinkingService maps a provider assertion to exactly one local account.
//
// Precedence: an account already holding the (provider, provider ID) pair wins;
// otherwise an account with the same email takes over the provider link, replacing
// any earlier one; otherwise a new account is created.
type LinkingService struct {
	accounts AccountRepo
	hasher   security.SecretHasher
	events   telemetry.EventEmitter
	logger   *slog.Logger
	resolved metric.Int64Counter
	nowF     func() time.Time
}

// NewLinkingService returns a LinkingService. events and logger may be nil.
func NewLinkingService(accounts AccountRepo, hasher security.SecretHasher, events telemetry.EventEmitter, logger *slog.Logger) *LinkingService {
	if events == nil {
		events = telemetry.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	resolved, err := otel.Meter(instrumentationName).Int64Counter("identity.resolved",
		metric.WithDescription("Federated logins resolved, by path"))
	if err != nil {
		logger.Warn("identity.resolved counter unavailable", slog.Any("error", err))
	}
	return &LinkingService{
		accounts: accounts,
		hasher:   hasher,
		events:   events,
		logger:   logger,
		resolved: resolved,
		nowF:     time.Now,
	}
}

// Resolve returns the account for the assertion, linking or creating as needed.
// Uniqueness conflicts from concurrent resolutions are retried from the top.
func (s *LinkingService) Resolve(ctx context.Context, in domain.Assertion) (*accountdomain.Account, error) {
	a := in.Normalize()
	if a.Provider == "" || a.ProviderID == "" {
		return nil, ErrInvalidAssertion
	}

	ctx, span := tracer.Start(ctx, "identity.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("identity.provider", string(a.Provider)))

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		acc, path, err := s.resolveOnce(ctx, a)
		if errors.Is(err, accountrepo.ErrConflict) {
			s.logger.DebugContext(ctx, "identity resolution conflicted; retrying",
				slog.String("provider", string(a.Provider)), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetAttributes(attribute.String("identity.path", path))
		if s.resolved != nil {
			s.resolved.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", string(a.Provider)),
				attribute.String("path", path)))
		}
		s.emit(ctx, acc, a.Provider, path)
		s.logger.InfoContext(ctx, "identity resolved",
			slog.String("provider", string(a.Provider)),
			slog.String("path", path),
			slog.String("account_id", acc.ID))
		return acc, nil
	}
	err := fmt.Errorf("resolve identity after %d attempts: %w", maxResolveAttempts, accountrepo.ErrConflict)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

func (s *LinkingService) resolveOnce(ctx context.Context, a domain.Assertion) (*accountdomain.Account, string, error) {
	provider := string(a.Provider)

	acc, err := s.accounts.GetByProvider(ctx, provider, a.ProviderID)
	if err != nil {
		return nil, "", fmt.Errorf("get account by provider: %w", err)
	}
	if acc != nil {
		return acc, PathProviderMatch, nil
	}

	now := s.nowF().UTC()
	if a.Email != "" {
		acc, err := s.accounts.GetByEmail(ctx, a.Email)
		if err != nil {
			return nil, "", fmt.Errorf("get account by email: %w", err)
		}
		if acc != nil {
			if err := s.accounts.LinkProvider(ctx, acc.ID, provider, a.ProviderID, now); err != nil {
				if errors.Is(err, accountrepo.ErrConflict) {
					return nil, "", err
				}
				return nil, "", fmt.Errorf("link provider: %w", err)
			}
			acc.Provider, acc.ProviderID, acc.UpdatedAt = provider, a.ProviderID, now
			return acc, PathEmailLink, nil
		}
	}

	passwordHash, err := security.PlaceholderPasswordHash(s.hasher)
	if err != nil {
		return nil, "", fmt.Errorf("placeholder password: %w", err)
	}
	name := a.Name
	if name == "" {
		name = a.Provider.DisplayName() + " User"
	}
	acc = &accountdomain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        a.Email,
		Provider:     provider,
		ProviderID:   a.ProviderID,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, accountrepo.ErrConflict) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("create account: %w", err)
	}
	return acc, PathCreated, nil
}

func (s *LinkingService) emit(ctx context.Context, acc *accountdomain.Account, provider domain.Provider, path string) {
	err := s.events.Emit(ctx, &telemetrydomain.Event{
		Type:      telemetrydomain.EventIdentityResolved,
		AccountID: acc.ID,
		Method:    "oauth",
		Outcome:   path,
		Provider:  string(provider),
		CreatedAt: s.nowF().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "auth event emit failed", slog.Any("error", err))
	}
}
