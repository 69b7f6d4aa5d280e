// Package kernelerr defines the typed error taxonomy shared by every
// kernel package: authorization, lookup, validation, structural, and
// inference failures all surface as a *kernelerr.Error so callers can
// branch on Kind without parsing strings.
package kernelerr

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Authorization
	NotAuthenticated Kind = "NotAuthenticated"
	NotAuthorized    Kind = "NotAuthorized"

	// Lookup
	ModelNotFound    Kind = "ModelNotFound"
	VariableNotFound Kind = "VariableNotFound"

	// Validation (§3 invariants 1-6, 8, 9)
	Empty               Kind = "Empty"
	ProbOutOfRange      Kind = "ProbOutOfRange"
	InconsistentParents Kind = "InconsistentParents"
	RootMultiEntry      Kind = "RootMultiEntry"
	WildcardCap         Kind = "WildcardCap"
	Uncovered           Kind = "Uncovered"
	Conflict            Kind = "Conflict"
	SelfParent          Kind = "SelfParent"
	BadColumnOrder      Kind = "BadColumnOrder"

	// Structural
	WouldCreateCycle Kind = "WouldCreateCycle"
	CycleDetected    Kind = "CycleDetected"
	DanglingParent   Kind = "DanglingParent"

	// Inference
	EmptyNetwork       Kind = "EmptyNetwork"
	CPTLookupFailed    Kind = "CPTLookupFailed"
	NonPositiveSamples Kind = "NonPositiveSamples"
	OrderBroken        Kind = "OrderBroken"
)

// Error is the single error type every kernel package returns. Op names the
// operation that failed (e.g. "graph.UpdateVariable"); Detail is a
// human-readable message that may name affected ids; Err, when non-nil, is
// a wrapped cause (e.g. a Store-level error).
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// Wrap builds an *Error around an existing cause.
func Wrap(op string, kind Kind, detail string, err error) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail, Err: err}
}

// Is reports whether err is a kernel error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
