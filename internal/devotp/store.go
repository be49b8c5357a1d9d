// Package devotp keeps the last plaintext code issued per phone so it can be read back
// through GET /dev/otp. It is only constructed when dev mode is enabled.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds the latest plaintext code per normalized phone.
type Store interface {
	// Put records code for phone until expiresAt, replacing any earlier code.
	Put(ctx context.Context, phone, code string, expiresAt time.Time)
	// Get returns the code for phone if present and not expired.
	Get(ctx context.Context, phone string) (code string, ok bool)
	// Delete forgets the code for phone, after it has been consumed.
	Delete(ctx context.Context, phone string)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store. Expired entries are dropped on read.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// Option customizes a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides time.Now for expiry checks. It should match the clock
// that stamps expiresAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.nowF = now
		}
	}
}

// NewMemoryStore returns an empty dev code store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Put(_ context.Context, phone, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[phone] = entry{code: code, expiresAt: expiresAt}
}

func (s *MemoryStore) Get(_ context.Context, phone string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[phone]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		// Re-check: a Put may have replaced the entry since the read lock was released.
		if cur, ok := s.m[phone]; ok && cur == e {
			delete(s.m, phone)
		}
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}

func (s *MemoryStore) Delete(_ context.Context, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, phone)
}

var _ Store = (*MemoryStore)(nil)
