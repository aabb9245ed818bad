package registration

import (
	"context"
	"fmt"
	"sync"

	"identikit/pkg/platform/sentinel"
)

// InMemoryDraftStore keeps drafts in process memory. Suitable for tests
// and single-process embedding; drafts do not survive a restart.
type InMemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

func NewInMemoryDraftStore() *InMemoryDraftStore {
	return &InMemoryDraftStore{drafts: make(map[string]Draft)}
}

func (s *InMemoryDraftStore) Load(_ context.Context, flowKey string) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[flowKey]
	if !ok {
		return nil, fmt.Errorf("draft %q: %w", flowKey, sentinel.ErrNotFound)
	}
	cp := d
	cp.Fields.TopSkills = append([]string(nil), d.Fields.TopSkills...)
	return &cp, nil
}

func (s *InMemoryDraftStore) Save(_ context.Context, flowKey string, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	cp.Fields.TopSkills = append([]string(nil), d.Fields.TopSkills...)
	s.drafts[flowKey] = cp
	return nil
}

func (s *InMemoryDraftStore) Clear(_ context.Context, flowKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, flowKey)
	return nil
}
