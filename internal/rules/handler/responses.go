package handler

import (
	"time"

	"visado/internal/rules/models"
)

// VisaTypeResponse is the HTTP representation of a visa type.
type VisaTypeResponse struct {
	ID           string    `json:"id"`
	Jurisdiction string    `json:"jurisdiction"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromVisaType converts a domain visa type to an HTTP response.
func FromVisaType(vt *models.VisaType) *VisaTypeResponse {
	return &VisaTypeResponse{
		ID:           vt.ID.String(),
		Jurisdiction: vt.Jurisdiction,
		Code:         vt.Code,
		Name:         vt.Name,
		IsActive:     vt.IsActive,
		CreatedAt:    vt.CreatedAt,
	}
}

// VisaTypeListResponse is the HTTP response for GET /admin/visa-types.
type VisaTypeListResponse struct {
	VisaTypes []VisaTypeResponse `json:"visa_types"`
}

// RuleVersionResponse is the HTTP representation of a published rule version.
type RuleVersionResponse struct {
	ID            string     `json:"id"`
	VisaTypeID    string     `json:"visa_type_id"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	IsPublished   bool       `json:"is_published"`
	CreatedAt     time.Time  `json:"created_at"`
}

// FromRuleVersion converts a domain rule version to an HTTP response.
func FromRuleVersion(v *models.RuleVersion) *RuleVersionResponse {
	return &RuleVersionResponse{
		ID:            v.ID.String(),
		VisaTypeID:    v.VisaTypeID.String(),
		EffectiveFrom: v.EffectiveFrom,
		EffectiveTo:   v.EffectiveTo,
		IsPublished:   v.IsPublished,
		CreatedAt:     v.CreatedAt,
	}
}
