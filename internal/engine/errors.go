package engine

import (
	"errors"
	"fmt"
)

// QueryError represents a submission error detected by the executor itself,
// after the query has resolved.
//
// Resolution errors (*queryir.ResolutionError) and syntax errors
// (*queryir.SyntaxError) are returned wrapped, not converted, so callers
// can match them with errors.As / errors.Is.
type QueryError struct {
	// Code identifies the error category.
	Code QueryErrorCode

	// Message is a human-readable description.
	Message string

	// QueryID identifies the submission.
	QueryID string

	// Details contains additional context.
	Details map[string]string
}

// QueryErrorCode categorizes executor errors.
type QueryErrorCode string

const (
	// ErrCodeMissingParameter indicates fewer parameters were bound than
	// the query references.
	ErrCodeMissingParameter QueryErrorCode = "MISSING_PARAMETER"

	// ErrCodeInvalidParameter indicates a parameter value cannot be bound.
	ErrCodeInvalidParameter QueryErrorCode = "INVALID_PARAMETER"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("%s: %s (query=%s)", e.Code, e.Message, e.QueryID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsParameterError returns true if the error is a missing or invalid
// parameter error. Uses errors.As to handle wrapped errors.
func IsParameterError(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == ErrCodeMissingParameter || qe.Code == ErrCodeInvalidParameter
	}
	return false
}

// NewMissingParameterError creates a QueryError for unbound parameters.
func NewMissingParameterError(queryID string, bound, required int) *QueryError {
	return &QueryError{
		Code:    ErrCodeMissingParameter,
		Message: fmt.Sprintf("query references ?%d but %d parameter(s) bound", required, bound),
		QueryID: queryID,
		Details: map[string]string{
			"bound":    fmt.Sprintf("%d", bound),
			"required": fmt.Sprintf("%d", required),
		},
	}
}

// NewInvalidParameterError creates a QueryError for a parameter that
// cannot be bound.
func NewInvalidParameterError(queryID string, position int, err error) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidParameter,
		Message: fmt.Sprintf("parameter ?%d: %v", position, err),
		QueryID: queryID,
		Details: map[string]string{
			"position": fmt.Sprintf("%d", position),
		},
	}
}
