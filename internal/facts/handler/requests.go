package handler

import (
	"fmt"
	"strings"

	"visado/internal/facts"
	"visado/internal/facts/models"
	"visado/internal/logic"
	dErrors "visado/pkg/domain-errors"
)

// FactPayload is one fact in a submission.
type FactPayload struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// AppendFactsRequest is the HTTP request body for POST /cases/{caseID}/facts.
type AppendFactsRequest struct {
	Facts []FactPayload `json:"facts"`

	// Parsed values (populated by Validate)
	parsed []facts.FactInput
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AppendFactsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Facts) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one fact is required")
	}
	if len(r.Facts) > 100 {
		return dErrors.New(dErrors.CodeValidation, "at most 100 facts per submission")
	}

	inputs := make([]facts.FactInput, 0, len(r.Facts))
	for i, payload := range r.Facts {
		key := strings.TrimSpace(payload.Key)
		if key == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("facts[%d].key is required", i))
		}
		if len(key) > 128 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("facts[%d].key must be at most 128 characters", i))
		}
		source, err := models.ParseSource(payload.Source)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("facts[%d].source is invalid", i))
		}
		value, err := logic.FromAny(payload.Value)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("facts[%d].value is invalid", i))
		}
		inputs = append(inputs, facts.FactInput{Key: key, Value: value, Source: source})
	}

	r.parsed = inputs
	return nil
}

// ParsedFacts returns the validated fact inputs.
func (r *AppendFactsRequest) ParsedFacts() []facts.FactInput {
	return r.parsed
}
