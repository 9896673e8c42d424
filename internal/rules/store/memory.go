// Package store persists visa types, rule versions, and requirements.
// The in-memory implementation backs tests and single-node deployments;
// PostgreSQL backs production.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"visado/internal/rules/models"
	id "visado/pkg/domain"
	"visado/pkg/platform/sentinel"
)

// InMemoryStore keeps the full rule catalog in process memory.
type InMemoryStore struct {
	mu           sync.RWMutex
	publishMu    sync.Mutex
	visaTypes    map[id.VisaTypeID]models.VisaType
	versions     map[id.RuleVersionID]models.RuleVersion
	requirements map[id.RuleVersionID][]models.Requirement
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		visaTypes:    make(map[id.VisaTypeID]models.VisaType),
		versions:     make(map[id.RuleVersionID]models.RuleVersion),
		requirements: make(map[id.RuleVersionID][]models.Requirement),
	}
}

// CreateVisaType stores a new visa type. (jurisdiction, code) is unique;
// a duplicate returns sentinel.ErrConflict.
func (s *InMemoryStore) CreateVisaType(_ context.Context, vt models.VisaType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.visaTypes {
		if strings.EqualFold(existing.Jurisdiction, vt.Jurisdiction) && strings.EqualFold(existing.Code, vt.Code) {
			return sentinel.ErrConflict
		}
	}
	s.visaTypes[vt.ID] = vt
	return nil
}

func (s *InMemoryStore) GetVisaType(_ context.Context, visaTypeID id.VisaTypeID) (*models.VisaType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vt, ok := s.visaTypes[visaTypeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &vt, nil
}

// ListVisaTypes returns visa types, optionally restricted to active ones.
func (s *InMemoryStore) ListVisaTypes(_ context.Context, activeOnly bool) ([]models.VisaType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.VisaType, 0, len(s.visaTypes))
	for _, vt := range s.visaTypes {
		if activeOnly && !vt.IsActive {
			continue
		}
		out = append(out, vt)
	}
	return out, nil
}

// GetPublishedVersions returns every published version for the visa type.
func (s *InMemoryStore) GetPublishedVersions(_ context.Context, visaTypeID id.VisaTypeID) ([]models.RuleVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RuleVersion
	for _, v := range s.versions {
		if v.VisaTypeID == visaTypeID && v.IsPublished {
			out = append(out, v)
		}
	}
	return out, nil
}

// FindOpenVersion returns the published version with no effective_to, or nil.
func (s *InMemoryStore) FindOpenVersion(_ context.Context, visaTypeID id.VisaTypeID) (*models.RuleVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions {
		if v.VisaTypeID == visaTypeID && v.IsPublished && v.EffectiveTo == nil {
			out := v
			return &out, nil
		}
	}
	return nil, nil
}

// CloseVersion sets a version's effective_to, ending its validity range.
func (s *InMemoryStore) CloseVersion(_ context.Context, versionID id.RuleVersionID, effectiveTo time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[versionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if v.EffectiveTo != nil {
		return sentinel.ErrInvalidState
	}
	v.EffectiveTo = &effectiveTo
	s.versions[versionID] = v
	return nil
}

func (s *InMemoryStore) InsertVersion(_ context.Context, v models.RuleVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.versions[v.ID]; exists {
		return sentinel.ErrConflict
	}
	s.versions[v.ID] = v
	return nil
}

func (s *InMemoryStore) InsertRequirements(_ context.Context, reqs []models.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range reqs {
		s.requirements[r.RuleVersionID] = append(s.requirements[r.RuleVersionID], r)
	}
	return nil
}

// GetRequirements returns the requirements of a rule version in insertion
// order.
func (s *InMemoryStore) GetRequirements(_ context.Context, versionID id.RuleVersionID) ([]models.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs := s.requirements[versionID]
	return append([]models.Requirement{}, reqs...), nil
}

// WithinTx serializes publish operations. Individual writes already hold the
// store mutex; this only prevents two concurrent publishes from both closing
// the same open version.
func (s *InMemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	return fn(ctx)
}
