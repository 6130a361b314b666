package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/mapql/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrEntityNameEmpty   = "E201" // entity name is required
	ErrDuplicateEntity   = "E202" // entity declared twice
	ErrDuplicateField    = "E203" // field declared twice on one entity
	ErrInvalidIDField    = "E204" // id field missing or not a scalar
	ErrInvalidScalarType = "E205" // scalar type not in ValidScalarTypes
	ErrUnknownRefTarget  = "E206" // ref target is not a registered entity
	ErrUnknownMapKey     = "E207" // map key type is not a registered entity
	ErrUnknownMapValue   = "E208" // map value type is not a registered entity
	ErrIncompleteMap     = "E209" // map field without exactly one key and one value type
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a set of entity types for internal consistency.
// Returns all errors found (does not fail-fast).
func Validate(types []*ir.EntityType) []ValidationError {
	var errs []ValidationError

	known := make(map[string]bool, len(types))
	for i, t := range types {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("entity[%d].name", i),
				Message: "entity name is required",
				Code:    ErrEntityNameEmpty,
			})
			continue
		}
		if known[t.Name] {
			errs = append(errs, ValidationError{
				Field:   t.Name,
				Message: fmt.Sprintf("duplicate entity: %q", t.Name),
				Code:    ErrDuplicateEntity,
			})
		}
		known[t.Name] = true
	}

	for _, t := range types {
		errs = append(errs, validateEntity(t, known)...)
	}

	return errs
}

// validateEntity validates one entity against the set of known entity names.
func validateEntity(t *ir.EntityType, known map[string]bool) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool)
	for _, f := range t.Fields {
		path := t.Name + "." + f.Name
		if seen[f.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate field: %q", f.Name),
				Code:    ErrDuplicateField,
			})
		}
		seen[f.Name] = true

		switch f.Kind {
		case ir.FieldScalar:
			if !ir.ValidScalarTypes[f.ScalarType] {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("invalid scalar type %q", f.ScalarType),
					Code:    ErrInvalidScalarType,
				})
			}
		case ir.FieldRef:
			if !known[f.Target] {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("ref target %q is not a declared entity", f.Target),
					Code:    ErrUnknownRefTarget,
				})
			}
		case ir.FieldMap:
			if f.KeyType == "" || f.ValueType == "" {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: "map field requires exactly one key type and one value type",
					Code:    ErrIncompleteMap,
				})
				continue
			}
			if !known[f.KeyType] {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("map key type %q is not a declared entity", f.KeyType),
					Code:    ErrUnknownMapKey,
				})
			}
			if !known[f.ValueType] {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("map value type %q is not a declared entity", f.ValueType),
					Code:    ErrUnknownMapValue,
				})
			}
		}
	}

	idField, ok := t.Field(t.IDField)
	if !ok || idField.Kind != ir.FieldScalar {
		errs = append(errs, ValidationError{
			Field:   t.Name + ".id",
			Message: fmt.Sprintf("id field %q must be a declared scalar field", t.IDField),
			Code:    ErrInvalidIDField,
		})
	}

	return errs
}
