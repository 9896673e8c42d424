// Package evaluation runs eligibility checks: it resolves the rule version
// in force at an instant, evaluates every requirement against the case's
// facts, and folds the per-requirement outcomes into a confidence-scored
// result. The core is read-only; it never writes through its collaborators.
package evaluation

import (
	"time"

	id "visado/pkg/domain"
)

// Outcome is the coarse three-level eligibility classification.
type Outcome string

const (
	OutcomeLikely   Outcome = "likely"
	OutcomePossible Outcome = "possible"
	OutcomeUnlikely Outcome = "unlikely"
)

// downgrade lowers an outcome one tier. It can never raise.
func downgrade(o Outcome) Outcome {
	switch o {
	case OutcomeLikely:
		return OutcomePossible
	case OutcomePossible:
		return OutcomeUnlikely
	default:
		return OutcomeUnlikely
	}
}

// Status classifies a single requirement's evaluation.
type Status string

const (
	StatusPassed       Status = "passed"
	StatusFailed       Status = "failed"
	StatusMissingFacts Status = "missing_facts"
	StatusError        Status = "error"
)

// RequirementResult is the three-way outcome of evaluating one requirement:
// passed/failed, indeterminate because facts are missing, or errored. A
// requirement with missing facts is neither passed nor failed.
type RequirementResult struct {
	RequirementCode string
	RuleType        string
	Description     string
	IsMandatory     bool

	Status       Status
	Passed       bool
	MissingFacts []string
	// Error holds the evaluation error kind when Status is StatusError.
	Error string
	// RawResult is the value the condition evaluated to, in plain Go form,
	// when evaluation completed.
	RawResult any
}

// Evaluable reports whether the requirement produced a definite pass/fail.
func (r RequirementResult) Evaluable() bool {
	return r.Status == StatusPassed || r.Status == StatusFailed
}

// Result is the aggregated outcome of one evaluation run. It is the sole
// contract consumed by review escalation and the HTTP layer, so its shape
// must stay stable.
type Result struct {
	Outcome    Outcome
	Confidence float64

	RequirementsTotal            int
	RequirementsPassed           int
	RequirementsFailed           int
	RequirementsWithMissingFacts int
	RequirementsWithErrors       int

	RequirementDetails []RequirementResult
	// MissingRequirements lists the requirements that did not produce a
	// definite pass, for callers that only need the gaps.
	MissingRequirements []MissingRequirement
	// MissingFacts is the deduplicated union of every requirement's
	// missing variable names.
	MissingFacts []string

	RuleVersionID     id.RuleVersionID
	RuleEffectiveFrom time.Time
	EvaluationDate    time.Time
	Warnings          []string
}

// MissingRequirement summarizes a requirement that is not cleanly passed.
type MissingRequirement struct {
	RequirementCode string
	Status          Status
	MissingFacts    []string
	Error           string
}
