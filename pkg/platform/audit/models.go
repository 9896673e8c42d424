// Package audit defines the audit event model emitted by domain logic.
// Eligibility decisions are legally significant, so every evaluation and
// every rules-authoring action leaves a trail.
package audit

import (
	"time"

	id "visado/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Categories
// drive retention policy and routing in downstream consumers.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// eligibility decisions, rule publications, fact submissions.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	CaseID    id.CaseID
	Action    string
	// ActorID records who triggered the action (admin token subject,
	// reviewer name, or "system" for automated runs).
	ActorID string
	// RequestID is the correlation ID from HTTP request context.
	RequestID string

	// Evaluation fields, populated for evaluation_completed events.
	VisaTypeID    string
	RuleVersionID string
	Outcome       string
	Confidence    float64
}

type AuditEvent string

const (
	EventEvaluationCompleted  AuditEvent = "evaluation_completed"
	EventRuleVersionPublished AuditEvent = "rule_version_published"
	EventVisaTypeCreated      AuditEvent = "visa_type_created"
	EventFactAppended         AuditEvent = "fact_appended"
	EventCaseOpened           AuditEvent = "case_opened"
)
