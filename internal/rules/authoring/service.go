// Package authoring publishes new rule versions. Publishing is the only
// place rule data is written, and it is the only mutation with a temporal
// side effect: the prior open-ended version must close exactly where the new
// one begins so published versions keep partitioning time.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"visado/internal/logic"
	"visado/internal/rules/models"
	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
	audit "visado/pkg/platform/audit"
	"visado/pkg/platform/sentinel"
	"visado/pkg/requestcontext"
)

// closeGap separates a closed version's effective_to from its successor's
// effective_from. Both boundaries are inclusive, so the prior version must
// end strictly before the new one starts.
const closeGap = time.Second

// Store is the write surface the authoring service needs. WithinTx must make
// the enclosed close-then-open atomic.
type Store interface {
	GetVisaType(ctx context.Context, visaTypeID id.VisaTypeID) (*models.VisaType, error)
	CreateVisaType(ctx context.Context, vt models.VisaType) error
	ListVisaTypes(ctx context.Context, activeOnly bool) ([]models.VisaType, error)
	FindOpenVersion(ctx context.Context, visaTypeID id.VisaTypeID) (*models.RuleVersion, error)
	CloseVersion(ctx context.Context, versionID id.RuleVersionID, effectiveTo time.Time) error
	InsertVersion(ctx context.Context, v models.RuleVersion) error
	InsertRequirements(ctx context.Context, reqs []models.Requirement) error
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher receives authoring audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service handles visa type creation and rule version publishing.
type Service struct {
	store  Store
	logger *slog.Logger
	audit  AuditPublisher
}

// Option configures the service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

// New constructs the authoring service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("rules store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateVisaType registers a new visa type.
func (s *Service) CreateVisaType(ctx context.Context, jurisdiction, code, name string) (*models.VisaType, error) {
	if jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "jurisdiction is required")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "code is required")
	}

	vt := models.VisaType{
		ID:           id.NewVisaTypeID(),
		Jurisdiction: jurisdiction,
		Code:         code,
		Name:         name,
		IsActive:     true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.CreateVisaType(ctx, vt); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "visa type already exists for this jurisdiction and code")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create visa type")
	}

	s.emit(ctx, audit.Event{
		Category:   audit.CategoryCompliance,
		Action:     string(audit.EventVisaTypeCreated),
		ActorID:    requestcontext.Actor(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		VisaTypeID: vt.ID.String(),
	})
	return &vt, nil
}

// ListVisaTypes returns registered visa types, optionally only active ones.
func (s *Service) ListVisaTypes(ctx context.Context, activeOnly bool) ([]models.VisaType, error) {
	types, err := s.store.ListVisaTypes(ctx, activeOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visa types")
	}
	return types, nil
}

// RequirementInput is one requirement of a version being published.
type RequirementInput struct {
	Code        string
	RuleType    string
	Description string
	Condition   logic.Value
	IsMandatory bool
}

// PublishRequest describes a new rule version.
type PublishRequest struct {
	VisaTypeID    id.VisaTypeID
	EffectiveFrom time.Time
	Requirements  []RequirementInput
}

// PublishVersion creates a published rule version and its requirements,
// closing the prior open-ended version at EffectiveFrom minus one second.
// The close and the open commit in one transaction; a half-published state
// would break the at-most-one-active invariant every evaluation relies on.
func (s *Service) PublishVersion(ctx context.Context, req PublishRequest) (*models.RuleVersion, error) {
	if err := s.validatePublish(ctx, req); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	version := models.RuleVersion{
		ID:            id.NewRuleVersionID(),
		VisaTypeID:    req.VisaTypeID,
		EffectiveFrom: req.EffectiveFrom,
		IsPublished:   true,
		CreatedAt:     now,
	}

	requirements := make([]models.Requirement, 0, len(req.Requirements))
	for _, in := range req.Requirements {
		requirements = append(requirements, models.Requirement{
			ID:            id.NewRequirementID(),
			RuleVersionID: version.ID,
			Code:          in.Code,
			RuleType:      in.RuleType,
			Description:   in.Description,
			Condition:     in.Condition,
			IsMandatory:   in.IsMandatory,
		})
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		open, err := s.store.FindOpenVersion(ctx, req.VisaTypeID)
		if err != nil {
			return fmt.Errorf("find open version: %w", err)
		}
		if open != nil {
			if !open.EffectiveFrom.Before(req.EffectiveFrom) {
				return dErrors.New(dErrors.CodeInvariantViolation,
					"effective_from must be after the current version's effective_from")
			}
			if err := s.store.CloseVersion(ctx, open.ID, req.EffectiveFrom.Add(-closeGap)); err != nil {
				return fmt.Errorf("close version %s: %w", open.ID, err)
			}
		}
		if err := s.store.InsertVersion(ctx, version); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		if err := s.store.InsertRequirements(ctx, requirements); err != nil {
			return fmt.Errorf("insert requirements: %w", err)
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish rule version")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "rule version published",
			"visa_type_id", req.VisaTypeID,
			"rule_version_id", version.ID,
			"effective_from", version.EffectiveFrom,
			"requirements", len(requirements),
		)
	}
	s.emit(ctx, audit.Event{
		Category:      audit.CategoryCompliance,
		Action:        string(audit.EventRuleVersionPublished),
		ActorID:       requestcontext.Actor(ctx),
		RequestID:     requestcontext.RequestID(ctx),
		VisaTypeID:    req.VisaTypeID.String(),
		RuleVersionID: version.ID.String(),
	})
	return &version, nil
}

func (s *Service) validatePublish(ctx context.Context, req PublishRequest) error {
	if req.EffectiveFrom.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "effective_from is required")
	}
	if len(req.Requirements) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one requirement is required")
	}

	if _, err := s.store.GetVisaType(ctx, req.VisaTypeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "visa type not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visa type")
	}

	seen := make(map[string]struct{}, len(req.Requirements))
	for _, in := range req.Requirements {
		if in.Code == "" {
			return dErrors.New(dErrors.CodeValidation, "requirement code is required")
		}
		if _, dup := seen[in.Code]; dup {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate requirement code %q", in.Code))
		}
		seen[in.Code] = struct{}{}

		// Conditions are immutable once published; reject malformed ones
		// here rather than at first evaluation.
		if _, err := logic.Parse(in.Condition); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation,
				fmt.Sprintf("requirement %q has an invalid condition", in.Code))
		}
	}
	return nil
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
