// Package store provides fact persistence. The in-memory implementation is
// authoritative for tests and single-node runs; PostgresStore is the
// production implementation.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"visado/internal/facts/models"
	"visado/internal/logic"
	id "visado/pkg/domain"
	"visado/pkg/platform/sentinel"
)

// InMemoryStore keeps cases and their facts in memory. Facts are
// append-only; seq breaks CreatedAt ties so later appends win.
type InMemoryStore struct {
	mu    sync.RWMutex
	cases map[id.CaseID]models.Case
	facts map[id.CaseID][]sequencedFact
	seq   uint64
}

type sequencedFact struct {
	fact models.Fact
	seq  uint64
}

// NewInMemoryStore constructs an empty fact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		cases: make(map[id.CaseID]models.Case),
		facts: make(map[id.CaseID][]sequencedFact),
	}
}

// OpenCase registers a new case. Returns sentinel.ErrConflict if the case
// already exists.
func (s *InMemoryStore) OpenCase(ctx context.Context, c models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = c
	return nil
}

// GetCase returns a case by ID, or sentinel.ErrNotFound.
func (s *InMemoryStore) GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

// Append adds facts to an existing case. Returns sentinel.ErrNotFound when
// the case is unknown.
func (s *InMemoryStore) Append(ctx context.Context, facts []models.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range facts {
		if _, ok := s.cases[f.CaseID]; !ok {
			return sentinel.ErrNotFound
		}
	}
	for _, f := range facts {
		s.seq++
		s.facts[f.CaseID] = append(s.facts[f.CaseID], sequencedFact{fact: f, seq: s.seq})
	}
	return nil
}

// ListByCase returns the full append-only history of a case, oldest first.
func (s *InMemoryStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]models.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.cases[caseID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	history := s.facts[caseID]
	out := make([]models.Fact, 0, len(history))
	for _, sf := range history {
		out = append(out, sf.fact)
	}
	return out, nil
}

// LatestByCase collapses a case's history into the current fact set: for
// each key, the fact with the latest CreatedAt (append order breaks ties).
// A case with no facts yields an empty map; an unknown case yields
// sentinel.ErrNotFound so callers can tell the two apart.
func (s *InMemoryStore) LatestByCase(ctx context.Context, caseID id.CaseID) (map[string]logic.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.cases[caseID]; !ok {
		return nil, sentinel.ErrNotFound
	}

	type winner struct {
		value     logic.Value
		createdAt time.Time
		seq       uint64
	}
	winners := make(map[string]winner)
	for _, sf := range s.facts[caseID] {
		current, ok := winners[sf.fact.Key]
		if !ok || sf.fact.CreatedAt.After(current.createdAt) ||
			(sf.fact.CreatedAt.Equal(current.createdAt) && sf.seq > current.seq) {
			winners[sf.fact.Key] = winner{value: sf.fact.Value, createdAt: sf.fact.CreatedAt, seq: sf.seq}
		}
	}

	latest := make(map[string]logic.Value, len(winners))
	for key, w := range winners {
		latest[key] = w.value
	}
	return latest, nil
}

// CaseIDs returns all known case IDs in stable order. Test helper.
func (s *InMemoryStore) CaseIDs() []id.CaseID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]id.CaseID, 0, len(s.cases))
	for caseID := range s.cases {
		ids = append(ids, caseID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
