package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"identity-gateway/backend/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// Async wraps an emitter so Emit returns immediately and the event is sent from a
// goroutine with its own timeout, detached from request cancellation. Drain waits
// for in-flight emits during shutdown.
type Async struct {
	next   EventEmitter
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewAsync returns an Async emitter around next.
func NewAsync(next EventEmitter, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{next: next, logger: logger}
}

// Emit schedules event for delivery and always returns nil.
func (a *Async) Emit(ctx context.Context, event *domain.Event) error {
	if a == nil || a.next == nil || event == nil {
		return nil
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := a.next.Emit(emitCtx, event); err != nil {
			a.logger.Warn("telemetry: async emit failed", slog.String("event_type", event.Type), slog.Any("error", err))
		}
	}()
	return nil
}

// Drain blocks until in-flight emits finish or ctx is done.
func (a *Async) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
