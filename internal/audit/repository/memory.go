package repository

import (
	"context"
	"sort"
	"sync"

	"identity-gateway/backend/internal/audit/domain"
)

// maxMemoryEntries bounds the in-memory trail; the oldest entries are dropped first.
const maxMemoryEntries = 10000

// MemoryRepository keeps the audit trail in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *a)
	if over := len(r.entries) - maxMemoryEntries; over > 0 {
		r.entries = append([]domain.AuditLog(nil), r.entries[over:]...)
	}
	return nil
}

func (r *MemoryRepository) ListByAccount(_ context.Context, accountID string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	r.mu.RLock()
	var out []*domain.AuditLog
	for i := range r.entries {
		if r.entries[i].AccountID == accountID {
			e := r.entries[i]
			out = append(out, &e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
