package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/mapql/internal/engine"
	"github.com/roach88/mapql/internal/harness"
	"github.com/roach88/mapql/internal/queryir"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // query rejected or failed, schema invalid, scenario failed
	ExitCommandError = 2 // bad arguments, unreadable schema, fixture or database
)

// ExitError carries the process exit code out of a cobra RunE.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that carry no
// ExitError count as failures.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as text or as one JSON document.
// Diagnostics go to ErrWriter so JSON on Writer stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status  string    `json:"status"` // "ok" or "error"
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	QueryID string    `json:"query_id,omitempty"`
}

// CLIError is the error part of a CLIResponse. Code is a loader code such as
// "E005" or a query error kind such as "UnknownField" or "MISSING_PARAMETER".
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) json() bool {
	return f.Format == "json"
}

// Success writes data. Text output prints data with fmt.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessWithQueryID("", data)
}

// SuccessWithQueryID is Success with the submission's query id attached to
// the JSON envelope. Text output ignores the id.
func (f *OutputFormatter) SuccessWithQueryID(queryID string, data any) error {
	if !f.json() {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return writeResponse(f.Writer, CLIResponse{Status: "ok", Data: data, QueryID: queryID}, false)
}

// Error writes an error envelope, or "Error [code]: message" as text.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.json() {
		return writeResponse(f.Writer, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		}, false)
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// QueryFailure reports a failed submission of query and returns the
// ExitError for it. The code is the error kind; syntax errors are marked
// with a caret under the offending offset in text output.
func (f *OutputFormatter) QueryFailure(query string, err error) error {
	kind := harness.ErrorKind(err)
	details := queryErrorDetails(err)

	if f.json() {
		_ = f.Error(kind, err.Error(), details)
	} else {
		_ = f.Error(kind, err.Error(), nil)
		var synErr *queryir.SyntaxError
		if errors.As(err, &synErr) && synErr.Offset <= len(query) {
			fmt.Fprintf(f.Writer, "  %s\n  %s^\n", query, strings.Repeat(" ", synErr.Offset))
		}
	}

	return WrapExitError(ExitFailure, "query failed", err)
}

// queryErrorDetails extracts the structured fields of a submission error.
func queryErrorDetails(err error) map[string]any {
	var (
		resErr  *queryir.ResolutionError
		synErr  *queryir.SyntaxError
		qErr    *engine.QueryError
		rowsErr *engine.RowsExceededError
	)
	switch {
	case errors.As(err, &resErr):
		return map[string]any{"expr": resErr.Expr}
	case errors.As(err, &synErr):
		return map[string]any{"offset": synErr.Offset}
	case errors.As(err, &qErr):
		return map[string]any{"params": qErr.Details}
	case errors.As(err, &rowsErr):
		return map[string]any{"rows": rowsErr.Rows, "limit": rowsErr.Limit}
	default:
		return nil
	}
}

// VerboseLog writes a diagnostic line when verbose mode is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, falling back to Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// writeResponse encodes resp as one JSON document, indented for multi-error
// reports.
func writeResponse(w io.Writer, resp CLIResponse, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
