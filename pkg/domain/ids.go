// Package domain defines typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so the compiler rejects
// cross-entity assignment (passing a CaseID where a VisaTypeID is expected
// fails to compile). Parse functions enforce the invariant that IDs are
// valid, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "visado/pkg/domain-errors"
)

type (
	// CaseID identifies an applicant case.
	CaseID uuid.UUID
	// VisaTypeID identifies a visa type within a jurisdiction.
	VisaTypeID uuid.UUID
	// RuleVersionID identifies one temporally-scoped published rule set.
	RuleVersionID uuid.UUID
	// RequirementID identifies a single requirement within a rule version.
	RequirementID uuid.UUID
)

func (id CaseID) String() string        { return uuid.UUID(id).String() }
func (id VisaTypeID) String() string    { return uuid.UUID(id).String() }
func (id RuleVersionID) String() string { return uuid.UUID(id).String() }
func (id RequirementID) String() string { return uuid.UUID(id).String() }

// NewCaseID generates a fresh case identifier.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// NewVisaTypeID generates a fresh visa type identifier.
func NewVisaTypeID() VisaTypeID { return VisaTypeID(uuid.New()) }

// NewRuleVersionID generates a fresh rule version identifier.
func NewRuleVersionID() RuleVersionID { return RuleVersionID(uuid.New()) }

// NewRequirementID generates a fresh requirement identifier.
func NewRequirementID() RequirementID { return RequirementID(uuid.New()) }

// ParseCaseID validates and parses a case ID from its string form.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case_id")
	return CaseID(u), err
}

// ParseVisaTypeID validates and parses a visa type ID from its string form.
func ParseVisaTypeID(s string) (VisaTypeID, error) {
	u, err := parseUUID(s, "visa_type_id")
	return VisaTypeID(u), err
}

// ParseRuleVersionID validates and parses a rule version ID from its string form.
func ParseRuleVersionID(s string) (RuleVersionID, error) {
	u, err := parseUUID(s, "rule_version_id")
	return RuleVersionID(u), err
}

// ParseRequirementID validates and parses a requirement ID from its string form.
func ParseRequirementID(s string) (RequirementID, error) {
	u, err := parseUUID(s, "requirement_id")
	return RequirementID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}
