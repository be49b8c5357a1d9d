// Package repository stores revoked session IDs until their tokens would have expired anyway.
package repository

import (
	"context"
	"time"
)

// RevocationStore records revoked session IDs.
type RevocationStore interface {
	// Revoke marks id revoked until expiresAt. Revoking twice is not an error.
	Revoke(ctx context.Context, id string, expiresAt time.Time) error
	// IsRevoked reports whether id has been revoked and has not yet expired.
	IsRevoked(ctx context.Context, id string) (bool, error)
}
