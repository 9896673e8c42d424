package logic

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates every way parsing or evaluation can fail. Downstream
// consumers branch on the kind, never on the message.
type ErrorKind string

const (
	// ErrInvalidStructure marks malformed expressions: empty maps or lists,
	// multi-key maps, wrong payload shapes, and unknown operators.
	ErrInvalidStructure ErrorKind = "InvalidStructure"
	// ErrMissingVariable marks a variable reference with no fact bound. This
	// is not a failure of the requirement, it is absence of information.
	ErrMissingVariable ErrorKind = "MissingVariable"
	// ErrTypeMismatch marks an operand that cannot coerce to the type the
	// operator needs.
	ErrTypeMismatch ErrorKind = "TypeMismatch"
	// ErrDivisionByZero marks division or modulo by zero.
	ErrDivisionByZero ErrorKind = "DivisionByZero"
	// ErrInvalidNumericResult marks a NaN or infinite result. It must never
	// silently become a boolean.
	ErrInvalidNumericResult ErrorKind = "InvalidNumericResult"
	// ErrExpressionTooDeep marks recursion beyond the evaluator's depth cap.
	ErrExpressionTooDeep ErrorKind = "ExpressionTooDeep"
)

// Error is the typed error returned by Parse and Evaluate.
type Error struct {
	Kind ErrorKind
	// Variable is the unresolved name for ErrMissingVariable errors.
	Variable string
	detail   string
}

func (e *Error) Error() string {
	if e.detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.detail)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, detail: fmt.Sprintf(format, args...)}
}

func missingVariable(name string) *Error {
	return &Error{Kind: ErrMissingVariable, Variable: name, detail: fmt.Sprintf("variable %q has no bound fact", name)}
}

// KindOf extracts the error kind, or empty string for non-logic errors.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsKind reports whether err is a logic error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
