package verify

import (
	"context"
	"sync"

	"github.com/and161185/grader-market/internal/errs"
	"github.com/and161185/grader-market/internal/model"
)

// MemoryStore is a process-local SessionStore.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]model.VerificationSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string]model.VerificationSession{}}
}

func (s *MemoryStore) Get(_ context.Context, email string) (model.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[email]
	if !ok {
		return model.VerificationSession{}, errs.ErrNoSession
	}
	return v, nil
}

func (s *MemoryStore) Put(_ context.Context, v model.VerificationSession) error {
	s.mu.Lock()
	s.m[v.Email] = v
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	delete(s.m, email)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) TakeAttempt(_ context.Context, email string) (model.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[email]
	if !ok {
		return model.VerificationSession{}, errs.ErrNoSession
	}
	if v.Attempts >= MaxAttempts {
		delete(s.m, email)
		return model.VerificationSession{}, errs.ErrNoSession
	}
	v.Attempts++
	s.m[email] = v
	return v, nil
}
