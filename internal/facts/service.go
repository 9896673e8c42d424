// Package facts manages case fact submission. Facts arrive from the
// applicant, from document extraction, and from human reviewers; all three
// land in the same append-only trail.
package facts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"visado/internal/facts/models"
	"visado/internal/logic"
	"visado/internal/platform/metrics"
	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
	audit "visado/pkg/platform/audit"
	"visado/pkg/platform/sentinel"
	"visado/pkg/requestcontext"
)

// Store is the persistence surface the fact service needs.
type Store interface {
	OpenCase(ctx context.Context, c models.Case) error
	GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Append(ctx context.Context, facts []models.Fact) error
	ListByCase(ctx context.Context, caseID id.CaseID) ([]models.Fact, error)
	LatestByCase(ctx context.Context, caseID id.CaseID) (map[string]logic.Value, error)
}

// AuditPublisher receives fact audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service handles case lifecycle and fact submission.
type Service struct {
	store   Store
	logger  *slog.Logger
	audit   AuditPublisher
	metrics *metrics.Metrics
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the fact service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("fact store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// FactInput is one submitted fact.
type FactInput struct {
	Key    string
	Value  logic.Value
	Source models.Source
}

// OpenCase registers a new case with the given ID.
func (s *Service) OpenCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c := models.Case{ID: caseID, OpenedAt: requestcontext.Now(ctx)}
	if err := s.store.OpenCase(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "case already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open case")
	}

	s.metrics.IncrementCasesOpened()
	s.emit(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Action:    string(audit.EventCaseOpened),
		CaseID:    caseID,
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
	return &c, nil
}

// AppendFacts appends facts to a case, opening the case first if it does
// not exist yet. Submitting facts for a brand-new case should not require a
// separate call.
func (s *Service) AppendFacts(ctx context.Context, caseID id.CaseID, inputs []FactInput) error {
	if len(inputs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one fact is required")
	}

	now := requestcontext.Now(ctx)
	facts := make([]models.Fact, 0, len(inputs))
	for _, in := range inputs {
		key := strings.TrimSpace(in.Key)
		if key == "" {
			return dErrors.New(dErrors.CodeValidation, "fact key is required")
		}
		facts = append(facts, models.Fact{
			CaseID:    caseID,
			Key:       key,
			Value:     in.Value,
			Source:    in.Source,
			CreatedAt: now,
		})
	}

	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
		}
		if _, err := s.OpenCase(ctx, caseID); err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
			return err
		}
	}

	if err := s.store.Append(ctx, facts); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append facts")
	}

	s.metrics.AddFactsAppended(len(facts))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "facts appended",
			"case_id", caseID,
			"count", len(facts),
		)
	}
	s.emit(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		Action:    string(audit.EventFactAppended),
		CaseID:    caseID,
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// ListFacts returns the full append-only history of a case.
func (s *Service) ListFacts(ctx context.Context, caseID id.CaseID) ([]models.Fact, error) {
	history, err := s.store.ListByCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list facts")
	}
	return history, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
