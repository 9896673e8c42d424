package handler

import (
	"time"

	"visado/internal/evaluation"
)

// RequirementDetailResponse is the wire form of one requirement's result.
type RequirementDetailResponse struct {
	RequirementCode string   `json:"requirement_code"`
	RuleType        string   `json:"rule_type,omitempty"`
	Description     string   `json:"description,omitempty"`
	IsMandatory     bool     `json:"is_mandatory"`
	Status          string   `json:"status"`
	Passed          bool     `json:"passed"`
	MissingFacts    []string `json:"missing_facts"`
	Error           string   `json:"error,omitempty"`
	RawResult       any      `json:"raw_result,omitempty"`
}

// MissingRequirementResponse summarizes a requirement that did not pass.
type MissingRequirementResponse struct {
	RequirementCode string   `json:"requirement_code"`
	Status          string   `json:"status"`
	MissingFacts    []string `json:"missing_facts"`
	Error           string   `json:"error,omitempty"`
}

// EvaluateResponse is the HTTP response for POST /evaluations. Review
// escalation tooling parses this shape; field names are load-bearing.
type EvaluateResponse struct {
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`

	RequirementsTotal            int `json:"requirements_total"`
	RequirementsPassed           int `json:"requirements_passed"`
	RequirementsFailed           int `json:"requirements_failed"`
	RequirementsWithMissingFacts int `json:"requirements_with_missing_facts"`
	RequirementsWithErrors       int `json:"requirements_with_errors"`

	RequirementDetails  []RequirementDetailResponse  `json:"requirement_details"`
	MissingRequirements []MissingRequirementResponse `json:"missing_requirements"`
	MissingFacts        []string                     `json:"missing_facts"`

	RuleVersionID     string     `json:"rule_version_id,omitempty"`
	RuleEffectiveFrom *time.Time `json:"rule_effective_from,omitempty"`
	EvaluationDate    time.Time  `json:"evaluation_date"`
	Warnings          []string   `json:"warnings"`
}

// FromResult converts a domain Result to an HTTP response.
func FromResult(result *evaluation.Result) *EvaluateResponse {
	resp := &EvaluateResponse{
		Outcome:                      string(result.Outcome),
		Confidence:                   result.Confidence,
		RequirementsTotal:            result.RequirementsTotal,
		RequirementsPassed:           result.RequirementsPassed,
		RequirementsFailed:           result.RequirementsFailed,
		RequirementsWithMissingFacts: result.RequirementsWithMissingFacts,
		RequirementsWithErrors:       result.RequirementsWithErrors,
		RequirementDetails:           make([]RequirementDetailResponse, 0, len(result.RequirementDetails)),
		MissingRequirements:          make([]MissingRequirementResponse, 0, len(result.MissingRequirements)),
		MissingFacts:                 emptyIfNil(result.MissingFacts),
		EvaluationDate:               result.EvaluationDate,
		Warnings:                     emptyIfNil(result.Warnings),
	}

	for _, d := range result.RequirementDetails {
		resp.RequirementDetails = append(resp.RequirementDetails, RequirementDetailResponse{
			RequirementCode: d.RequirementCode,
			RuleType:        d.RuleType,
			Description:     d.Description,
			IsMandatory:     d.IsMandatory,
			Status:          string(d.Status),
			Passed:          d.Passed,
			MissingFacts:    emptyIfNil(d.MissingFacts),
			Error:           d.Error,
			RawResult:       d.RawResult,
		})
	}
	for _, m := range result.MissingRequirements {
		resp.MissingRequirements = append(resp.MissingRequirements, MissingRequirementResponse{
			RequirementCode: m.RequirementCode,
			Status:          string(m.Status),
			MissingFacts:    emptyIfNil(m.MissingFacts),
			Error:           m.Error,
		})
	}

	if !result.RuleEffectiveFrom.IsZero() {
		resp.RuleVersionID = result.RuleVersionID.String()
		from := result.RuleEffectiveFrom
		resp.RuleEffectiveFrom = &from
	}
	return resp
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
