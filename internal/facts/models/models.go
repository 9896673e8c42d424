// Package models defines the applicant fact model. Facts are append-only:
// corrections are appended with a newer timestamp, never edited in place,
// so the trail behind every eligibility decision survives.
package models

import (
	"fmt"
	"strings"
	"time"

	"visado/internal/logic"
	id "visado/pkg/domain"
	dErrors "visado/pkg/domain-errors"
)

// Source records where a fact came from. Provenance matters when a decision
// is challenged.
type Source string

const (
	// SourceUser marks facts the applicant submitted directly.
	SourceUser Source = "user"
	// SourceAI marks facts extracted from documents automatically.
	SourceAI Source = "ai"
	// SourceReviewer marks facts entered or corrected by a human reviewer.
	SourceReviewer Source = "reviewer"
)

// ParseSource validates a source string.
func ParseSource(raw string) (Source, error) {
	switch s := Source(strings.ToLower(strings.TrimSpace(raw))); s {
	case SourceUser, SourceAI, SourceReviewer:
		return s, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid fact source %q", raw))
	}
}

// Case groups the facts of one application.
type Case struct {
	ID       id.CaseID
	OpenedAt time.Time
}

// Fact is one key/value observation about a case. The same key may appear
// many times; the latest CreatedAt wins at evaluation time.
type Fact struct {
	CaseID    id.CaseID
	Key       string
	Value     logic.Value
	Source    Source
	CreatedAt time.Time
}
