// Package ports defines the read boundaries the evaluation core depends on.
// The core never writes through these interfaces.
package ports

import (
	"context"
	"time"

	"visado/internal/logic"
	rmodels "visado/internal/rules/models"
	id "visado/pkg/domain"
)

// FactLoader returns the latest-wins fact set for a case. An unknown case
// yields sentinel.ErrNotFound; a known case with no facts yields an empty map.
type FactLoader interface {
	LatestByCase(ctx context.Context, caseID id.CaseID) (map[string]logic.Value, error)
}

// VisaTypeLoader resolves visa type existence. Unknown types yield
// sentinel.ErrNotFound.
type VisaTypeLoader interface {
	GetVisaType(ctx context.Context, visaTypeID id.VisaTypeID) (*rmodels.VisaType, error)
}

// VersionResolver finds the rule version in force at an instant, or nil
// when none is active.
type VersionResolver interface {
	ResolveActiveVersion(ctx context.Context, visaTypeID id.VisaTypeID, at time.Time) (*rmodels.RuleVersion, error)
}

// RequirementLoader returns the requirements of a published version in
// their authored order.
type RequirementLoader interface {
	GetRequirements(ctx context.Context, versionID id.RuleVersionID) ([]rmodels.Requirement, error)
}
