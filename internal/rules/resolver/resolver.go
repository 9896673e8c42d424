// Package resolver selects the rule version legally in force at an instant.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"time"

	"visado/internal/rules/models"
	id "visado/pkg/domain"
)

// VersionStore is the read surface the resolver needs.
type VersionStore interface {
	GetPublishedVersions(ctx context.Context, visaTypeID id.VisaTypeID) ([]models.RuleVersion, error)
}

// Resolver answers "which published rule set was in force at instant t".
type Resolver struct {
	store  VersionStore
	logger *slog.Logger
}

// New constructs a resolver.
func New(store VersionStore, logger *slog.Logger) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("version store is required")
	}
	return &Resolver{store: store, logger: logger}, nil
}

// ResolveActiveVersion returns the single published version active at the
// given instant, or nil when none is — a nil result is an expected state
// (new visa type with no published rules), never an error.
//
// Published versions partition time, so at most one should match. If
// upstream inconsistency produces an overlap, the version with the latest
// effective_from wins and a warning is logged; resolution never fails on
// overlap because refusing to answer would block every evaluation for the
// visa type.
func (r *Resolver) ResolveActiveVersion(ctx context.Context, visaTypeID id.VisaTypeID, at time.Time) (*models.RuleVersion, error) {
	versions, err := r.store.GetPublishedVersions(ctx, visaTypeID)
	if err != nil {
		return nil, fmt.Errorf("load published versions: %w", err)
	}

	var active []models.RuleVersion
	for _, v := range versions {
		if v.ActiveAt(at) {
			active = append(active, v)
		}
	}

	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return &active[0], nil
	default:
		selected := active[0]
		for _, v := range active[1:] {
			if v.EffectiveFrom.After(selected.EffectiveFrom) {
				selected = v
			}
		}
		if r.logger != nil {
			r.logger.WarnContext(ctx, "overlapping published rule versions, selecting latest effective_from",
				"visa_type_id", visaTypeID,
				"at", at,
				"candidates", len(active),
				"selected_version_id", selected.ID,
			)
		}
		return &selected, nil
	}
}
