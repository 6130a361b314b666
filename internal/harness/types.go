package harness

import (
	"github.com/roach88/mapql/internal/eval"
	"github.com/roach88/mapql/internal/ir"
)

// QueryOutcome records what one query step produced.
type QueryOutcome struct {
	Name    string   `json:"name"`
	Query   string   `json:"query"`
	Columns []string `json:"columns,omitempty"`

	// Rows is the canonical rendering of the result rows.
	Rows ir.IRArray `json:"rows,omitempty"`

	// Error is the error kind when the query failed, empty on success.
	Error string `json:"error,omitempty"`

	// Message is the full error text when the query failed.
	Message string `json:"message,omitempty"`

	rows []eval.Row
}

// Failed reports whether the query returned an error.
func (o *QueryOutcome) Failed() bool {
	return o.Error != ""
}

// column returns the index of label, or -1.
func (o *QueryOutcome) column(label string) int {
	for i, c := range o.Columns {
		if c == label {
			return i
		}
	}
	return -1
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Outcomes holds one entry per query step, in order.
	Outcomes []QueryOutcome `json:"outcomes"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []QueryOutcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome returns the outcome of the named query step.
func (r *Result) Outcome(name string) (*QueryOutcome, bool) {
	for i := range r.Outcomes {
		if r.Outcomes[i].Name == name {
			return &r.Outcomes[i], true
		}
	}
	return nil, false
}
