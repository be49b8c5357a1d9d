package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"identity-gateway/backend/internal/audit/domain"
	auditrepo "identity-gateway/backend/internal/audit/repository"
	telemetrydomain "identity-gateway/backend/internal/telemetry/domain"
)

type failingRepo struct{ err error }

func (r failingRepo) Create(context.Context, *domain.AuditLog) error { return r.err }
func (r failingRepo) ListByAccount(context.Context, string, int) ([]*domain.AuditLog, error) {
	return nil, r.err
}

func TestLogger_Emit_PersistsEvent(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	l := NewLogger(repo)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := l.Emit(context.Background(), &telemetrydomain.Event{
		Type:      telemetrydomain.EventOTPVerified,
		AccountID: "acc-1",
		Method:    "otp",
		Outcome:   "success",
		Phone:     "********4567",
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	got, err := repo.ListByAccount(context.Background(), "acc-1", 0)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	e := got[0]
	if e.ID == "" {
		t.Error("ID not assigned")
	}
	if e.Action != telemetrydomain.EventOTPVerified || e.Method != "otp" || e.Outcome != "success" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.PhoneMasked != "********4567" || !e.CreatedAt.Equal(at) {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestLogger_Emit_StampsMissingTime(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	l := NewLogger(repo)
	if err := l.Emit(context.Background(), &telemetrydomain.Event{Type: telemetrydomain.EventSessionRevoked, AccountID: "acc-2"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	got, _ := repo.ListByAccount(context.Background(), "acc-2", 0)
	if len(got) != 1 || got[0].CreatedAt.IsZero() {
		t.Fatalf("entry missing timestamp: %+v", got)
	}
}

func TestLogger_Emit_ReturnsRepoError(t *testing.T) {
	wantErr := errors.New("db down")
	l := NewLogger(failingRepo{err: wantErr})
	if err := l.Emit(context.Background(), &telemetrydomain.Event{Type: "x"}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	if err := l.Emit(context.Background(), &telemetrydomain.Event{Type: "x"}); err != nil {
		t.Fatalf("nil logger: %v", err)
	}
	if err := NewLogger(auditrepo.NewMemoryRepository()).Emit(context.Background(), nil); err != nil {
		t.Fatalf("nil event: %v", err)
	}
}
