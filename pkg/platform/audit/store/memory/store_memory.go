package memory

import (
	"context"
	"sync"

	id "visado/pkg/domain"
	audit "visado/pkg/platform/audit"
)

// InMemoryStore keeps audit events per case. Suitable for tests and
// single-node deployments without Kafka.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.CaseID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.CaseID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.CaseID] = append(s.events[event.CaseID], event)
	return nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID id.CaseID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[caseID]...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.CaseID][]audit.Event)
}
