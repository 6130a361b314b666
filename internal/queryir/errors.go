package queryir

import (
	"errors"
	"fmt"
)

// ErrorKind classifies resolution failures.
type ErrorKind string

const (
	// UnknownField: a map field, trailing field or order field does not exist.
	UnknownField ErrorKind = "UnknownField"
	// UnsupportedPredicate: the predicate is outside the supported grammar,
	// e.g. KEY(x) = ?1.
	UnsupportedPredicate ErrorKind = "UnsupportedPredicate"
	// TypeMismatch: navigation applied to an operator result that cannot carry it.
	TypeMismatch ErrorKind = "TypeMismatch"
	// UnknownType: the FROM entity is not registered.
	UnknownType ErrorKind = "UnknownType"
	// UnknownAlias: a projection names an alias the FROM clause does not declare.
	UnknownAlias ErrorKind = "UnknownAlias"
)

// Sentinel errors, one per kind, for errors.Is matching.
var (
	ErrUnknownField         = errors.New("unknown field")
	ErrUnsupportedPredicate = errors.New("unsupported predicate")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrUnknownType          = errors.New("unknown entity type")
	ErrUnknownAlias         = errors.New("unknown alias")
)

var sentinels = map[ErrorKind]error{
	UnknownField:         ErrUnknownField,
	UnsupportedPredicate: ErrUnsupportedPredicate,
	TypeMismatch:         ErrTypeMismatch,
	UnknownType:          ErrUnknownType,
	UnknownAlias:         ErrUnknownAlias,
}

// ResolutionError is returned by Resolve. It is deterministic: the same query
// against the same registry always yields the same error.
type ResolutionError struct {
	Kind    ErrorKind
	Expr    string // offending expression, e.g. "KEY(p) = ?1"
	Message string
}

func (e *ResolutionError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Expr, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the sentinel for the error's kind.
func (e *ResolutionError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func resolutionErrorf(kind ErrorKind, expr string, format string, args ...any) *ResolutionError {
	return &ResolutionError{Kind: kind, Expr: expr, Message: fmt.Sprintf(format, args...)}
}
