package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocations keeps revoked IDs in process memory. Entries past their expiry
// are swept on each Revoke.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	nowF    func() time.Time
}

// NewMemoryRevocations returns an empty in-memory revocation store.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time), nowF: time.Now}
}

func (s *MemoryRevocations) Revoke(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	for k, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, k)
		}
	}
	if expiresAt.After(now) {
		s.revoked[id] = expiresAt
	}
	return nil
}

func (s *MemoryRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[id]
	return ok && exp.After(s.nowF()), nil
}

var _ RevocationStore = (*MemoryRevocations)(nil)
