package repository

import (
	"context"
	"errors"

	"identity-gateway/backend/internal/otp/domain"
)

// ErrNotFound is returned by conditional operations when no challenge with the
// given ID exists for the phone (consumed, expired-and-deleted or superseded).
var ErrNotFound = errors.New("otp challenge not found")

// Store persists at most one challenge per phone. Every operation on a phone is
// linearizable with respect to the others on the same phone.
type Store interface {
	// Put replaces any existing challenge for c.Phone.
	Put(ctx context.Context, c *domain.Challenge) error
	// Get returns the challenge for phone, or nil if none.
	Get(ctx context.Context, phone string) (*domain.Challenge, error)
	// IncrementAttempts adds one to the attempt count of challenge id and returns the new count.
	IncrementAttempts(ctx context.Context, phone, id string) (int, error)
	// Delete removes whatever challenge phone has. Deleting an absent key is not an error.
	Delete(ctx context.Context, phone string) error
	// DeleteIfMatch removes the challenge only if it is still challenge id and reports whether it did.
	DeleteIfMatch(ctx context.Context, phone, id string) (bool, error)
}
