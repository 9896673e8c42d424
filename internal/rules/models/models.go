// Package models defines the versioned rule entities: visa types, rule
// versions, and requirements. Rule versions and requirements are immutable
// once published; corrections happen by publishing a new version, never by
// editing in place.
package models

import (
	"time"

	"visado/internal/logic"
	id "visado/pkg/domain"
)

// VisaType identifies an immigration route within a jurisdiction. Identity is
// immutable; IsActive gates listing but never affects evaluation of already
// published rule versions.
type VisaType struct {
	ID           id.VisaTypeID
	Jurisdiction string
	Code         string
	Name         string
	IsActive     bool
	CreatedAt    time.Time
}

// RuleVersion is one temporally-scoped rule set for a visa type.
//
// Invariant: for a visa type, published versions partition time — at any
// instant at most one published version has EffectiveFrom <= t and
// (EffectiveTo nil or EffectiveTo >= t). A nil EffectiveTo means "current,
// until superseded". Publishing a new version closes the prior open-ended one
// at the authoring boundary.
type RuleVersion struct {
	ID            id.RuleVersionID
	VisaTypeID    id.VisaTypeID
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	IsPublished   bool
	CreatedAt     time.Time
}

// ActiveAt reports whether the version is in force at the given instant.
// Both boundaries are inclusive.
func (v RuleVersion) ActiveAt(at time.Time) bool {
	if !v.IsPublished {
		return false
	}
	if v.EffectiveFrom.After(at) {
		return false
	}
	return v.EffectiveTo == nil || !v.EffectiveTo.Before(at)
}

// Requirement is one atomic, independently-evaluable eligibility condition.
// Condition holds the serialized logic tree; it is parsed at evaluation time
// so stored rules survive operator-set evolution.
type Requirement struct {
	ID            id.RequirementID
	RuleVersionID id.RuleVersionID
	Code          string
	RuleType      string
	Description   string
	Condition     logic.Value
	IsMandatory   bool
}
