package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxRows is the default maximum number of rows per query.
// This keeps a runaway fan-out (many roots x large maps) from exhausting
// memory when the result is collected.
const DefaultMaxRows = 100_000

// RowQuota counts the rows produced by one query and enforces a limit.
//
// Each submission gets its own RowQuota. A limit <= 0 disables the check.
type RowQuota struct {
	maxRows int
	current int
}

// NewRowQuota creates a quota with the given limit.
func NewRowQuota(maxRows int) *RowQuota {
	return &RowQuota{maxRows: maxRows}
}

// Check increments the row counter and validates against the limit.
//
// Returns RowsExceededError once the limit is passed.
func (q *RowQuota) Check(queryID string) error {
	q.current++
	if q.maxRows > 0 && q.current > q.maxRows {
		return &RowsExceededError{
			QueryID: queryID,
			Rows:    q.current,
			Limit:   q.maxRows,
		}
	}
	return nil
}

// Current returns the number of rows counted so far.
func (q *RowQuota) Current() int {
	return q.current
}

// MaxRows returns the limit.
func (q *RowQuota) MaxRows() int {
	return q.maxRows
}

// RowsExceededError is returned when a query produces more rows than allowed.
// No partial result is returned.
type RowsExceededError struct {
	QueryID string
	Rows    int
	Limit   int
}

// Error implements the error interface.
func (e *RowsExceededError) Error() string {
	return fmt.Sprintf("query %s exceeded max rows quota: %d rows > %d limit",
		e.QueryID, e.Rows, e.Limit)
}

// IsRowsExceededError returns true if the error is a RowsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRowsExceededError(err error) bool {
	var re *RowsExceededError
	return errors.As(err, &re)
}
