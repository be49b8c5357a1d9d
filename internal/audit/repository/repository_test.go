package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"identity-gateway/backend/internal/audit/domain"
	"identity-gateway/backend/internal/db"
)

func repositories(t *testing.T) map[string]func(t *testing.T) Repository {
	t.Helper()
	factories := map[string]func(t *testing.T) Repository{
		"memory": func(t *testing.T) Repository { return NewMemoryRepository() },
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		factories["postgres"] = func(t *testing.T) Repository {
			conn, err := db.Open(context.Background(), dsn)
			if err != nil {
				t.Skipf("postgres unavailable: %v", err)
			}
			t.Cleanup(func() {
				_, _ = conn.Exec("DELETE FROM auth_audit_log WHERE action LIKE 'repo_test%'")
				_ = conn.Close()
			})
			return NewPostgresRepository(conn)
		}
	}
	return factories
}

func TestRepository_ListByAccount_NewestFirstAndLimited(t *testing.T) {
	for name, factory := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			repo := factory(t)
			ctx := context.Background()
			account, other := uuid.NewString(), uuid.NewString()
			base := time.Now().UTC().Truncate(time.Microsecond)

			for i, acc := range []string{account, account, other, account} {
				err := repo.Create(ctx, &domain.AuditLog{
					ID:        uuid.NewString(),
					AccountID: acc,
					Action:    "repo_test_event",
					Outcome:   "success",
					CreatedAt: base.Add(time.Duration(i) * time.Second),
				})
				if err != nil {
					t.Fatalf("Create: %v", err)
				}
			}

			got, err := repo.ListByAccount(ctx, account, 2)
			if err != nil {
				t.Fatalf("ListByAccount: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d entries, want 2", len(got))
			}
			if !got[0].CreatedAt.Equal(base.Add(3*time.Second)) || !got[1].CreatedAt.Equal(base.Add(time.Second)) {
				t.Errorf("wrong order: %v, %v", got[0].CreatedAt, got[1].CreatedAt)
			}
			for _, e := range got {
				if e.AccountID != account {
					t.Errorf("entry for %q leaked into %q", e.AccountID, account)
				}
			}

			none, err := repo.ListByAccount(ctx, uuid.NewString(), 0)
			if err != nil {
				t.Fatalf("ListByAccount: %v", err)
			}
			if len(none) != 0 {
				t.Errorf("got %d entries for unknown account", len(none))
			}
		})
	}
}

func TestMemoryRepository_Bounded(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < maxMemoryEntries+5; i++ {
		_ = repo.Create(ctx, &domain.AuditLog{ID: uuid.NewString(), AccountID: "a", Action: "x"})
	}
	if len(repo.entries) != maxMemoryEntries {
		t.Fatalf("len = %d, want %d", len(repo.entries), maxMemoryEntries)
	}
}
