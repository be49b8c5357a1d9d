package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"identity-gateway/backend/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.Event
	emitErr error
	delay   time.Duration
	ctxErr  error
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Event(nil), m.events...)
}

func drain(t *testing.T, a *Async) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func TestAsync_NilCases(t *testing.T) {
	var nilAsync *Async
	if err := nilAsync.Emit(context.Background(), &domain.Event{Type: "x"}); err != nil {
		t.Errorf("nil Async Emit: %v", err)
	}

	emitter := &mockEventEmitter{}
	a := NewAsync(emitter, nil)
	_ = a.Emit(context.Background(), nil)
	drain(t, a)
	if len(emitter.getEvents()) != 0 {
		t.Error("nil event should not be emitted")
	}
}

func TestAsync_EmitsAndStampsTime(t *testing.T) {
	emitter := &mockEventEmitter{}
	a := NewAsync(emitter, nil)

	_ = a.Emit(context.Background(), &domain.Event{Type: domain.EventOTPIssued, Phone: "****0001"})
	drain(t, a)

	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != domain.EventOTPIssued {
		t.Errorf("event type = %q", events[0].Type)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestAsync_DetachedFromRequestCancellation(t *testing.T) {
	emitter := &mockEventEmitter{}
	a := NewAsync(emitter, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = a.Emit(ctx, &domain.Event{Type: "test"})
	drain(t, a)

	if len(emitter.getEvents()) != 1 {
		t.Fatal("event should be emitted after request cancellation")
	}
	if emitter.ctxErr != nil {
		t.Errorf("emit context error = %v, want nil", emitter.ctxErr)
	}
}

func TestAsync_ErrorsAreSwallowed(t *testing.T) {
	a := NewAsync(&mockEventEmitter{emitErr: errors.New("broker down")}, nil)
	if err := a.Emit(context.Background(), &domain.Event{Type: "test"}); err != nil {
		t.Errorf("Emit returned %v, want nil", err)
	}
	drain(t, a)
}

func TestAsync_DrainTimesOut(t *testing.T) {
	a := NewAsync(&mockEventEmitter{delay: time.Second}, nil)
	_ = a.Emit(context.Background(), &domain.Event{Type: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := a.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain = %v, want DeadlineExceeded", err)
	}
	drain(t, &Async{})
	_ = a.Drain(context.Background())
}

func TestAsync_ConcurrentEmits(t *testing.T) {
	emitter := &mockEventEmitter{}
	a := NewAsync(emitter, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Emit(context.Background(), &domain.Event{Type: "test"})
		}()
	}
	wg.Wait()
	drain(t, a)

	if got := len(emitter.getEvents()); got != 10 {
		t.Errorf("expected 10 events, got %d", got)
	}
}

func TestFanout(t *testing.T) {
	a, b := &mockEventEmitter{}, &mockEventEmitter{emitErr: errors.New("b failed")}
	err := Fanout{a, nil, b}.Emit(context.Background(), &domain.Event{Type: "test"})
	if err == nil {
		t.Error("Fanout should return the failing emitter's error")
	}
	if len(a.getEvents()) != 1 || len(b.getEvents()) != 1 {
		t.Error("every emitter should receive the event")
	}
	if err := (Nop{}).Emit(context.Background(), nil); err != nil {
		t.Errorf("Nop: %v", err)
	}
}
