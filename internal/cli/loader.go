package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/mapql/internal/schema"
)

// Error code constants - unified across all CLI commands.
// Schema load codes are shared with the schema package.
const (
	ErrCodeGeneric     = schema.ErrCodeGeneric     // Generic/unknown error
	ErrCodeScanError   = schema.ErrCodeScanError   // Directory scan error
	ErrCodeNoFiles     = schema.ErrCodeNoFiles     // No CUE files found
	ErrCodeLoadFailed  = schema.ErrCodeLoadFailed  // CUE load failed
	ErrCodeNotFound    = schema.ErrCodeNotFound    // Path not found
	ErrCodeBuildFailed = schema.ErrCodeBuildFailed // CUE build failed
	ErrCodeWriteFailed = "E007"                    // File write error
	ErrCodeCompile     = schema.ErrCodeCompile     // Entity compilation failed
	ErrCodeValidation  = schema.ErrCodeValidation  // Schema validation failed

	// Store and fixture errors
	ErrCodeStoreOpen    = "E301" // Database open/migrate failed
	ErrCodeFixture      = "E302" // Fixture read or build failed
	ErrCodeStoreWrite   = "E303" // Saving instances failed
	ErrCodeDBNotFound   = "E304" // Database file not found
	ErrCodeInvalidParam = "E305" // --param value could not be parsed
)

// loadSchema loads a schema directory, collecting every error.
// A nil result means the directory itself could not be loaded.
func loadSchema(dir string) (*schema.LoadResult, []error) {
	return schema.LoadDir(dir)
}

// loadRegistry loads a schema directory into a registry.
// Only the first error is reported, as a code and message pair.
func loadRegistry(dir string) (*schema.Registry, string, string) {
	result, errs := loadSchema(dir)
	if len(errs) > 0 {
		code, message := parseLoadError(errs[0])
		return nil, code, message
	}
	reg, err := schema.NewRegistry(result.Types...)
	if err != nil {
		return nil, ErrCodeValidation, err.Error()
	}
	return reg, "", ""
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *schema.CompileError
	if errors.As(err, &compileErr) {
		return ErrCodeCompile, fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message)
	}
	return ErrCodeGeneric, err.Error()
}
