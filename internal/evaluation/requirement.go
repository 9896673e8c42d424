package evaluation

import (
	"sort"

	"visado/internal/logic"
	"visado/internal/rules/models"
)

// EvaluateRequirement runs one requirement against the case's fact set.
//
// Missing facts are detected over the whole expression's variable set before
// any evaluation happens: when any referenced fact is absent the requirement
// is indeterminate and the condition is never executed. Evaluating only the
// branch that short-circuit logic would take could silently pass a
// requirement whose untaken branch references unknown data.
func EvaluateRequirement(req models.Requirement, facts map[string]logic.Value) RequirementResult {
	result := RequirementResult{
		RequirementCode: req.Code,
		RuleType:        req.RuleType,
		Description:     req.Description,
		IsMandatory:     req.IsMandatory,
	}

	expr, err := logic.Parse(req.Condition)
	if err != nil {
		result.Status = StatusError
		result.Error = string(errorKind(err))
		return result
	}

	names := logic.Variables(expr)
	if len(names) > 0 {
		missing := make([]string, 0)
		for _, name := range names {
			if _, ok := facts[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			result.Status = StatusMissingFacts
			result.MissingFacts = missing
			return result
		}
	} else {
		// Constant expressions evaluate against an empty environment.
		facts = map[string]logic.Value{}
	}

	raw, err := logic.Evaluate(expr, facts)
	if err != nil {
		result.Status = StatusError
		result.Error = string(errorKind(err))
		return result
	}
	result.RawResult = raw.Interface()

	passed, err := logic.Truthy(raw)
	if err != nil {
		result.Status = StatusError
		result.Error = string(errorKind(err))
		return result
	}

	result.Passed = passed
	if passed {
		result.Status = StatusPassed
	} else {
		result.Status = StatusFailed
	}
	return result
}

func errorKind(err error) logic.ErrorKind {
	if kind := logic.KindOf(err); kind != "" {
		return kind
	}
	return logic.ErrInvalidStructure
}
