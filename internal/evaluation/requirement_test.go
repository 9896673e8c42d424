package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visado/internal/logic"
	"visado/internal/rules/models"
)

func reqWith(t *testing.T, condition any) models.Requirement {
	t.Helper()
	value, err := logic.FromAny(condition)
	require.NoError(t, err)
	return models.Requirement{Code: "req", Condition: value}
}

func factsOf(t *testing.T, raw map[string]any) map[string]logic.Value {
	t.Helper()
	facts := make(map[string]logic.Value, len(raw))
	for key, value := range raw {
		v, err := logic.FromAny(value)
		require.NoError(t, err)
		facts[key] = v
	}
	return facts
}

func TestEvaluateRequirementPasses(t *testing.T) {
	req := reqWith(t, map[string]any{">=": []any{map[string]any{"var": "salary"}, 38700}})
	result := EvaluateRequirement(req, factsOf(t, map[string]any{"salary": 42000, "age": 29}))

	assert.Equal(t, StatusPassed, result.Status)
	assert.True(t, result.Passed)
	assert.Empty(t, result.MissingFacts)
	assert.Empty(t, result.Error)
	assert.Equal(t, true, result.RawResult)
}

func TestEvaluateRequirementMissingFact(t *testing.T) {
	req := reqWith(t, map[string]any{">=": []any{map[string]any{"var": "salary"}, 38700}})
	result := EvaluateRequirement(req, factsOf(t, map[string]any{"age": 29}))

	assert.Equal(t, StatusMissingFacts, result.Status)
	assert.False(t, result.Passed)
	assert.Equal(t, []string{"salary"}, result.MissingFacts)
	assert.Empty(t, result.Error, "missing facts are not an error")
	assert.Nil(t, result.RawResult, "no evaluation is attempted")
}

func TestEvaluateRequirementMissingPrecheckCoversAllBranches(t *testing.T) {
	// "or" would short-circuit on the first operand, but the missing-fact
	// check must still cover the untaken branch.
	req := reqWith(t, map[string]any{"or": []any{
		map[string]any{"var": "has_sponsor"},
		map[string]any{"var": "is_exempt"},
	}})
	result := EvaluateRequirement(req, factsOf(t, map[string]any{"has_sponsor": true}))

	assert.Equal(t, StatusMissingFacts, result.Status)
	assert.Equal(t, []string{"is_exempt"}, result.MissingFacts)
}

func TestEvaluateRequirementDivisionByZero(t *testing.T) {
	req := reqWith(t, map[string]any{"/": []any{map[string]any{"var": "income"}, 0}})
	result := EvaluateRequirement(req, factsOf(t, map[string]any{"income": 100}))

	assert.Equal(t, StatusError, result.Status)
	assert.False(t, result.Passed)
	assert.Equal(t, string(logic.ErrDivisionByZero), result.Error)
}

func TestEvaluateRequirementConstantExpressions(t *testing.T) {
	tests := []struct {
		name      string
		condition any
		status    Status
	}{
		{name: "true literal", condition: true, status: StatusPassed},
		{name: "zero literal", condition: 0, status: StatusFailed},
		{name: "constant comparison", condition: map[string]any{">": []any{2, 1}}, status: StatusPassed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := EvaluateRequirement(reqWith(t, tc.condition), nil)
			assert.Equal(t, tc.status, result.Status)
			assert.Empty(t, result.MissingFacts, "constant expressions never report missing facts")
		})
	}
}

func TestEvaluateRequirementInvalidStructure(t *testing.T) {
	req := reqWith(t, map[string]any{})
	result := EvaluateRequirement(req, nil)

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, string(logic.ErrInvalidStructure), result.Error)
}

func TestEvaluateRequirementExplicitNullIsNotMissing(t *testing.T) {
	req := reqWith(t, map[string]any{"==": []any{map[string]any{"var": "middle_name"}, nil}})
	result := EvaluateRequirement(req, factsOf(t, map[string]any{"middle_name": nil}))

	assert.Equal(t, StatusPassed, result.Status)
	assert.Empty(t, result.MissingFacts)
}

func TestEvaluateRequirementCarriesMetadata(t *testing.T) {
	value, err := logic.FromAny(true)
	require.NoError(t, err)
	req := models.Requirement{
		Code:        "min-salary",
		RuleType:    "threshold",
		Description: "Minimum salary",
		Condition:   value,
		IsMandatory: true,
	}
	result := EvaluateRequirement(req, nil)

	assert.Equal(t, "min-salary", result.RequirementCode)
	assert.Equal(t, "threshold", result.RuleType)
	assert.Equal(t, "Minimum salary", result.Description)
	assert.True(t, result.IsMandatory)
}
