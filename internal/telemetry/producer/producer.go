// Package producer publishes auth events to a message broker (Kafka or NATS).
package producer

import (
	"context"

	"identity-gateway/backend/internal/telemetry/domain"
)

// Producer publishes auth events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit publishes a single event. Implementations may block briefly; wrap in telemetry.Async for request paths.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases the broker connection. Safe to call if already closed.
	Close() error
}
