package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mapql/internal/schema"
)

// ValidationIssue is one problem found in a schema.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate a schema without writing IR",
		Long: `Validate CUE entity definitions without producing output.

Checks that every entity has an id field, that scalar types are allowed,
and that every ref and map field names a declared entity type.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	issues, err := ValidateSchemaDir(schemaDir)
	if err != nil {
		code, message := parseLoadError(err)
		return outputValidateError(formatter, code, message, nil)
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	formatter.VerboseLog("Validated schema in %s", schemaDir)
	return outputValidateSuccess(formatter)
}

// ValidateSchemaDir validates all entities in a directory.
// The error is non-nil only when the directory could not be loaded at all.
func ValidateSchemaDir(schemaDir string) ([]ValidationIssue, error) {
	loadResult, loadErrors := loadSchema(schemaDir)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	var issues []ValidationIssue
	for _, err := range loadErrors {
		var loadErr *schema.LoadError
		if !errors.As(err, &loadErr) {
			issues = append(issues, ValidationIssue{Field: "schema", Message: err.Error(), Code: ErrCodeGeneric})
			continue
		}
		// Validation failures are re-run below for their field details.
		if loadErr.Code == ErrCodeValidation {
			continue
		}
		issues = append(issues, ValidationIssue{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    lineOf(loadErr),
		})
	}

	for _, verr := range schema.Validate(loadResult.Types) {
		issues = append(issues, ValidationIssue{
			Field:   verr.Field,
			Message: verr.Message,
			Code:    verr.Code,
		})
	}

	return issues, nil
}

// lineOf extracts the line number of a load error, or 0 if unknown.
func lineOf(err *schema.LoadError) int {
	if err.Pos.IsValid() {
		return err.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Schema valid")
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationIssue) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		if err := writeResponse(formatter.Writer, response, true); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
