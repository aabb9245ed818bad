package session

import (
	"context"
	"fmt"
	"sync"

	"identikit/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when no complete quadruple is stored
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
// InMemoryTokenStore keeps the quadruple in process memory for tests/dev.
type InMemoryTokenStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewInMemoryTokenStore constructs an empty in-memory token store.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{}
}

func (s *InMemoryTokenStore) Load(_ context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.session.Complete() {
		return nil, fmt.Errorf("session quadruple: %w", sentinel.ErrNotFound)
	}
	copied := *s.session
	return &copied, nil
}

func (s *InMemoryTokenStore) Save(_ context.Context, sess *Session) error {
	if !sess.Complete() {
		return fmt.Errorf("refusing to save partial quadruple: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	s.session = &copied
	return nil
}

func (s *InMemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
