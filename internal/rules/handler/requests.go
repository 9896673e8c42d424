package handler

import (
	"fmt"
	"strings"
	"time"

	"visado/internal/logic"
	"visado/internal/rules/authoring"
	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
)

// CreateVisaTypeRequest is the HTTP request body for POST /admin/visa-types.
type CreateVisaTypeRequest struct {
	Jurisdiction string `json:"jurisdiction"`
	Code         string `json:"code"`
	Name         string `json:"name"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateVisaTypeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Jurisdiction = strings.TrimSpace(r.Jurisdiction)
	r.Code = strings.TrimSpace(r.Code)
	r.Name = strings.TrimSpace(r.Name)

	if r.Jurisdiction == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction is required")
	}
	if len(r.Jurisdiction) > 8 {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction must be at most 8 characters")
	}
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if len(r.Code) > 64 {
		return dErrors.New(dErrors.CodeValidation, "code must be at most 64 characters")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

// RequirementPayload is one requirement in a publish request. The condition
// is accepted as arbitrary JSON and validated structurally by the service.
type RequirementPayload struct {
	Code        string `json:"code"`
	RuleType    string `json:"rule_type"`
	Description string `json:"description"`
	Condition   any    `json:"condition"`
	IsMandatory bool   `json:"is_mandatory"`
}

// PublishVersionRequest is the HTTP request body for POST /admin/rule-versions.
type PublishVersionRequest struct {
	VisaTypeID    string               `json:"visa_type_id"`
	EffectiveFrom string               `json:"effective_from"`
	Requirements  []RequirementPayload `json:"requirements"`

	// Parsed values (populated by Validate)
	parsed authoring.PublishRequest
}

// Validate validates and parses the request.
func (r *PublishVersionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	visaTypeID, err := id.ParseVisaTypeID(strings.TrimSpace(r.VisaTypeID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid visa_type_id")
	}

	effectiveFrom, err := time.Parse(time.RFC3339, strings.TrimSpace(r.EffectiveFrom))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "effective_from must be an RFC 3339 timestamp")
	}

	if len(r.Requirements) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one requirement is required")
	}

	inputs := make([]authoring.RequirementInput, 0, len(r.Requirements))
	for i, payload := range r.Requirements {
		code := strings.TrimSpace(payload.Code)
		if code == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("requirements[%d].code is required", i))
		}
		if payload.Condition == nil {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("requirements[%d].condition is required", i))
		}
		condition, err := logic.FromAny(payload.Condition)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("requirements[%d].condition is invalid", i))
		}
		inputs = append(inputs, authoring.RequirementInput{
			Code:        code,
			RuleType:    strings.TrimSpace(payload.RuleType),
			Description: strings.TrimSpace(payload.Description),
			Condition:   condition,
			IsMandatory: payload.IsMandatory,
		})
	}

	r.parsed = authoring.PublishRequest{
		VisaTypeID:    visaTypeID,
		EffectiveFrom: effectiveFrom.UTC(),
		Requirements:  inputs,
	}
	return nil
}

// ParsedRequest returns the validated publish request.
func (r *PublishVersionRequest) ParsedRequest() authoring.PublishRequest {
	return r.parsed
}
