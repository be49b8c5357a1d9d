package repository

import (
	"context"
	"errors"
	"time"

	"identity-gateway/backend/internal/account/domain"
)

var (
	// ErrConflict is returned when a write would violate a uniqueness rule
	// (phone, email or provider pair). Callers resolve it by looking the account up again.
	ErrConflict = errors.New("account conflict")
	// ErrNotFound is returned by updates addressed to an account that does not exist.
	ErrNotFound = errors.New("account not found")
)

// Repository defines persistence for accounts. Lookups return (nil, nil) when nothing matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*domain.Account, error)
	// Create inserts a new account with ID set by the caller. Returns ErrConflict on a uniqueness violation.
	Create(ctx context.Context, a *domain.Account) error
	// SetPhoneVerified sets phone_verified_at to at only when it is unset and returns the stored value.
	SetPhoneVerified(ctx context.Context, id string, at time.Time) (time.Time, error)
	// LinkProvider overwrites the provider pair on account id. Returns ErrConflict if another account holds the pair.
	LinkProvider(ctx context.Context, id, provider, providerID string, at time.Time) error
}
