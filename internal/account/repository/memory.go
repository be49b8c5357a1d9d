package repository

import (
	"context"
	"sync"
	"time"

	"identity-gateway/backend/internal/account/domain"
)

// MemoryRepository keeps accounts in process memory and enforces the same
// uniqueness rules as the accounts table.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewMemoryRepository returns an empty in-memory account repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*domain.Account)}
}

func clone(a *domain.Account) *domain.Account {
	c := *a
	if a.PhoneVerifiedAt != nil {
		t := *a.PhoneVerifiedAt
		c.PhoneVerifiedAt = &t
	}
	return &c
}

func (r *MemoryRepository) find(match func(*domain.Account) bool) *domain.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if match(a) {
			return clone(a)
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.accounts[id]; ok {
		return clone(a), nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByPhone(_ context.Context, phone string) (*domain.Account, error) {
	if phone == "" {
		return nil, nil
	}
	return r.find(func(a *domain.Account) bool { return a.Phone == phone }), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	if email == "" {
		return nil, nil
	}
	return r.find(func(a *domain.Account) bool { return a.Email == email }), nil
}

func (r *MemoryRepository) GetByProvider(_ context.Context, provider, providerID string) (*domain.Account, error) {
	if provider == "" || providerID == "" {
		return nil, nil
	}
	return r.find(func(a *domain.Account) bool {
		return a.Provider == provider && a.ProviderID == providerID
	}), nil
}

// conflicts reports whether a clashes with any stored account other than itself. Caller holds mu.
func (r *MemoryRepository) conflicts(a *domain.Account) bool {
	for id, other := range r.accounts {
		if id == a.ID {
			continue
		}
		if a.Phone != "" && other.Phone == a.Phone {
			return true
		}
		if a.Email != "" && other.Email == a.Email {
			return true
		}
		if a.HasProvider() && other.Provider == a.Provider && other.ProviderID == a.ProviderID {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[a.ID]; exists || r.conflicts(a) {
		return ErrConflict
	}
	r.accounts[a.ID] = clone(a)
	return nil
}

func (r *MemoryRepository) SetPhoneVerified(_ context.Context, id string, at time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	if a.PhoneVerifiedAt == nil {
		t := at
		a.PhoneVerifiedAt = &t
		a.UpdatedAt = at
	}
	return *a.PhoneVerifiedAt, nil
}

func (r *MemoryRepository) LinkProvider(_ context.Context, id, provider, providerID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	candidate := clone(a)
	candidate.Provider, candidate.ProviderID = provider, providerID
	if r.conflicts(candidate) {
		return ErrConflict
	}
	a.Provider, a.ProviderID, a.UpdatedAt = provider, providerID, at
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
