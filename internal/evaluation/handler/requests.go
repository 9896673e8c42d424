package handler

import (
	"strings"
	"time"

	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
)

// EvaluateRequest is the HTTP request body for POST /evaluations.
type EvaluateRequest struct {
	CaseID     string `json:"case_id"`
	VisaTypeID string `json:"visa_type_id"`
	// At optionally pins the evaluation to an instant; empty means now.
	At string `json:"at"`

	// Parsed values (populated by Validate)
	parsedCaseID     id.CaseID
	parsedVisaTypeID id.VisaTypeID
	parsedAt         time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	caseID, err := id.ParseCaseID(strings.TrimSpace(r.CaseID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid case_id")
	}
	r.parsedCaseID = caseID

	visaTypeID, err := id.ParseVisaTypeID(strings.TrimSpace(r.VisaTypeID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid visa_type_id")
	}
	r.parsedVisaTypeID = visaTypeID

	if at := strings.TrimSpace(r.At); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "at must be an RFC 3339 timestamp")
		}
		r.parsedAt = parsed.UTC()
	}
	return nil
}

// ParsedCaseID returns the validated case ID.
func (r *EvaluateRequest) ParsedCaseID() id.CaseID {
	return r.parsedCaseID
}

// ParsedVisaTypeID returns the validated visa type ID.
func (r *EvaluateRequest) ParsedVisaTypeID() id.VisaTypeID {
	return r.parsedVisaTypeID
}

// ParsedAt returns the evaluation instant, zero when not supplied.
func (r *EvaluateRequest) ParsedAt() time.Time {
	return r.parsedAt
}
