package repository

import (
	"context"

	"identity-gateway/backend/internal/audit/domain"
)

// DefaultListLimit caps ListByAccount when limit is not positive.
const DefaultListLimit = 50

// Repository defines persistence for the auth audit trail.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByAccount returns the newest entries for accountID first.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.AuditLog, error)
}
