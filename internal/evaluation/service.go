package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"visado/internal/evaluation/metrics"
	"visado/internal/evaluation/ports"
	"visado/internal/logic"
	rmodels "visado/internal/rules/models"
	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
	audit "visado/pkg/platform/audit"
	"visado/pkg/platform/sentinel"
	"visado/pkg/requestcontext"
)

// ErrNoActiveRuleVersion signals that no published rule version was in
// force at the evaluation date. Callers must not present this as an
// "unlikely" outcome: no rules published yet is not ineligibility.
var ErrNoActiveRuleVersion = dErrors.New(dErrors.CodeConflict,
	"no published rule version is in force for this visa type at the evaluation date")

// AuditPublisher receives evaluation audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates one evaluation run: load the case's facts, resolve
// the rule version in force, evaluate every requirement, aggregate. It
// performs no writes; given its loaded inputs the run is deterministic.
type Service struct {
	facts        ports.FactLoader
	visaTypes    ports.VisaTypeLoader
	resolver     ports.VersionResolver
	requirements ports.RequirementLoader
	logger       *slog.Logger
	metrics      *metrics.Metrics
	audit        AuditPublisher
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

// New constructs the evaluation service.
func New(
	facts ports.FactLoader,
	visaTypes ports.VisaTypeLoader,
	resolver ports.VersionResolver,
	requirements ports.RequirementLoader,
	opts ...Option,
) (*Service, error) {
	if facts == nil {
		return nil, fmt.Errorf("fact loader is required")
	}
	if visaTypes == nil {
		return nil, fmt.Errorf("visa type loader is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("version resolver is required")
	}
	if requirements == nil {
		return nil, fmt.Errorf("requirement loader is required")
	}
	svc := &Service{
		facts:        facts,
		visaTypes:    visaTypes,
		resolver:     resolver,
		requirements: requirements,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Run evaluates a case against the visa type's rules in force at the given
// instant. A zero instant means the request-scoped now.
func (s *Service) Run(ctx context.Context, caseID id.CaseID, visaTypeID id.VisaTypeID, at time.Time) (*Result, error) {
	start := time.Now()
	if at.IsZero() {
		at = requestcontext.Now(ctx)
	}

	var (
		factSet  map[string]logic.Value
		visaType *rmodels.VisaType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		facts, err := s.facts.LatestByCase(gctx, caseID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "case not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case facts")
		}
		factSet = facts
		return nil
	})
	g.Go(func() error {
		vt, err := s.visaTypes.GetVisaType(gctx, visaTypeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "visa type not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visa type")
		}
		visaType = vt
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var warnings []string
	if !visaType.IsActive {
		warnings = append(warnings, "visa type is no longer active")
	}

	if len(factSet) == 0 {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "evaluation short-circuited: case has no facts",
				"case_id", caseID,
				"visa_type_id", visaTypeID,
			)
		}
		result := &Result{
			Outcome:        OutcomeUnlikely,
			EvaluationDate: at,
			Warnings:       append(warnings, "case has no facts recorded"),
		}
		s.finish(ctx, caseID, visaTypeID, result, start)
		return result, nil
	}

	version, err := s.resolver.ResolveActiveVersion(ctx, visaTypeID, at)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve rule version")
	}
	if version == nil {
		s.metrics.IncrementNoActiveVersion()
		if s.logger != nil {
			s.logger.InfoContext(ctx, "no active rule version",
				"visa_type_id", visaTypeID,
				"at", at,
			)
		}
		return nil, ErrNoActiveRuleVersion
	}

	reqs, err := s.requirements.GetRequirements(ctx, version.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirements")
	}

	results := make([]RequirementResult, 0, len(reqs))
	for _, req := range reqs {
		r := EvaluateRequirement(req, factSet)
		s.metrics.IncrementRequirementStatus(string(r.Status))
		results = append(results, r)
	}

	result := Aggregate(results)
	result.RuleVersionID = version.ID
	result.RuleEffectiveFrom = version.EffectiveFrom
	result.EvaluationDate = at
	result.Warnings = append(warnings, result.Warnings...)

	s.finish(ctx, caseID, visaTypeID, &result, start)
	return &result, nil
}

func (s *Service) finish(ctx context.Context, caseID id.CaseID, visaTypeID id.VisaTypeID, result *Result, start time.Time) {
	s.metrics.IncrementOutcome(string(result.Outcome))
	s.metrics.ObserveRunLatency(time.Since(start))

	if s.logger != nil {
		s.logger.InfoContext(ctx, "evaluation completed",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID,
			"visa_type_id", visaTypeID,
			"outcome", result.Outcome,
			"confidence", result.Confidence,
			"requirements_total", result.RequirementsTotal,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if s.audit != nil {
		event := audit.Event{
			Category:      audit.CategoryCompliance,
			Action:        string(audit.EventEvaluationCompleted),
			CaseID:        caseID,
			ActorID:       requestcontext.Actor(ctx),
			RequestID:     requestcontext.RequestID(ctx),
			VisaTypeID:    visaTypeID.String(),
			RuleVersionID: result.RuleVersionID.String(),
			Outcome:       string(result.Outcome),
			Confidence:    result.Confidence,
		}
		if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to emit audit event",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
