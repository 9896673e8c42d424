package evaluation

import (
	platformstrings "visado/pkg/platform/strings"
)

// Confidence thresholds for the base outcome tiers.
const (
	likelyThreshold   = 0.8
	possibleThreshold = 0.5
)

// Aggregate folds per-requirement results into a scored outcome.
//
// Confidence is the fraction of evaluable requirements that passed:
// requirements with missing facts or errors are excluded from the
// denominator rather than counted as failures, because absence of
// information is not evidence of ineligibility. A failed mandatory
// requirement caps the achievable tier by downgrading one level; the
// override can only ever lower the outcome.
func Aggregate(results []RequirementResult) Result {
	agg := Result{
		RequirementsTotal:  len(results),
		RequirementDetails: results,
	}

	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			agg.RequirementsPassed++
		case StatusFailed:
			agg.RequirementsFailed++
		case StatusMissingFacts:
			agg.RequirementsWithMissingFacts++
		case StatusError:
			agg.RequirementsWithErrors++
		}
		if r.Status != StatusPassed {
			agg.MissingRequirements = append(agg.MissingRequirements, MissingRequirement{
				RequirementCode: r.RequirementCode,
				Status:          r.Status,
				MissingFacts:    r.MissingFacts,
				Error:           r.Error,
			})
		}
	}

	missingSets := make([][]string, 0, len(results))
	for _, r := range results {
		if len(r.MissingFacts) > 0 {
			missingSets = append(missingSets, r.MissingFacts)
		}
	}
	agg.MissingFacts = platformstrings.Union(missingSets...)

	total := agg.RequirementsTotal
	switch {
	case total == 0:
		agg.Outcome = OutcomeUnlikely
		agg.Warnings = append(agg.Warnings, "no requirements defined for this rule version")
		return agg
	case agg.RequirementsWithErrors == total:
		agg.Outcome = OutcomeUnlikely
		agg.Warnings = append(agg.Warnings, "all requirements failed to evaluate")
		return agg
	case agg.RequirementsWithMissingFacts == total:
		agg.Outcome = OutcomeUnlikely
		agg.Warnings = append(agg.Warnings, "no facts available for any requirement")
		return agg
	}

	evaluable := total - agg.RequirementsWithMissingFacts - agg.RequirementsWithErrors
	if evaluable > 0 {
		agg.Confidence = float64(agg.RequirementsPassed) / float64(evaluable)
	}

	switch {
	case agg.Confidence >= likelyThreshold &&
		agg.RequirementsWithMissingFacts == 0 &&
		agg.RequirementsWithErrors == 0:
		agg.Outcome = OutcomeLikely
	case agg.Confidence >= possibleThreshold:
		agg.Outcome = OutcomePossible
	default:
		agg.Outcome = OutcomeUnlikely
	}

	for _, r := range results {
		if r.IsMandatory && r.Status == StatusFailed {
			agg.Outcome = downgrade(agg.Outcome)
			agg.Warnings = append(agg.Warnings,
				"mandatory requirement "+r.RequirementCode+" failed")
			break
		}
	}

	return agg
}
