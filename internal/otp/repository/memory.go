package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"identity-gateway/backend/internal/otp/domain"
)

const memoryShards = 32

type memoryShard struct {
	mu         sync.Mutex
	challenges map[string]domain.Challenge
}

// MemoryStore keeps challenges in process memory. Phones hash to one of a fixed
// set of shards, each guarded by its own mutex, so operations on one phone are
// serialized while different phones rarely contend. For single-instance and dev use.
type MemoryStore struct {
	shards [memoryShards]*memoryShard
	nowF   func() time.Time
}

// NewMemoryStore returns an empty in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{nowF: time.Now}
	for i := range s.shards {
		s.shards[i] = &memoryShard{challenges: make(map[string]domain.Challenge)}
	}
	return s
}

func (s *MemoryStore) shard(phone string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return s.shards[h.Sum32()%memoryShards]
}

func (s *MemoryStore) Put(_ context.Context, c *domain.Challenge) error {
	sh := s.shard(c.Phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.challenges[c.Phone] = *c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, phone string) (*domain.Challenge, error) {
	sh := s.shard(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c, ok := sh.challenges[phone]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) IncrementAttempts(_ context.Context, phone, id string) (int, error) {
	sh := s.shard(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c, ok := sh.challenges[phone]
	if !ok || c.ID != id {
		return 0, ErrNotFound
	}
	c.Attempts++
	c.UpdatedAt = s.nowF().UTC()
	sh.challenges[phone] = c
	return c.Attempts, nil
}

func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	sh := s.shard(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.challenges, phone)
	return nil
}

func (s *MemoryStore) DeleteIfMatch(_ context.Context, phone, id string) (bool, error) {
	sh := s.shard(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c, ok := sh.challenges[phone]
	if !ok || c.ID != id {
		return false, nil
	}
	delete(sh.challenges, phone)
	return true, nil
}

var _ Store = (*MemoryStore)(nil)
