package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mapql/internal/ir"
)

// CompileEntity parses a CUE value into an EntityType.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the entity struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: Division: { ... }`)
//	t, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Division")))
func CompileEntity(v cue.Value) (*ir.EntityType, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	t := &ir.EntityType{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		t.Name = labels[len(labels)-1].String()
	}

	// id names the identity field (required)
	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return nil, &CompileError{
			Field:   "id",
			Message: "id is required",
			Pos:     v.Pos(),
		}
	}
	idField, err := idVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	t.IDField = idField

	scalars, err := parseScalars(v)
	if err != nil {
		return nil, err
	}
	t.Fields = append(t.Fields, scalars...)

	refs, err := parseRefs(v)
	if err != nil {
		return nil, err
	}
	t.Fields = append(t.Fields, refs...)

	maps, err := parseMaps(v)
	if err != nil {
		return nil, err
	}
	t.Fields = append(t.Fields, maps...)

	return t, nil
}

// parseScalars extracts scalar fields in declaration order.
func parseScalars(v cue.Value) ([]ir.Field, error) {
	var fields []ir.Field

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return fields, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		typeName, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, ir.Field{
			Name:       iter.Label(),
			Kind:       ir.FieldScalar,
			ScalarType: typeName,
		})
	}

	return fields, nil
}

// parseRefs extracts single-valued references: refs: { manager: "Employee" }
func parseRefs(v cue.Value) ([]ir.Field, error) {
	var fields []ir.Field

	refsVal := v.LookupPath(cue.ParsePath("refs"))
	if !refsVal.Exists() {
		return fields, nil
	}

	iter, err := refsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		target, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("refs.%s", iter.Label()),
				Message: "ref target must be an entity type name",
				Pos:     iter.Value().Pos(),
			}
		}
		fields = append(fields, ir.Field{
			Name:   iter.Label(),
			Kind:   ir.FieldRef,
			Target: target,
		})
	}

	return fields, nil
}

// parseMaps extracts map associations: maps: { emps: { key: "Division", value: "Employee" } }
func parseMaps(v cue.Value) ([]ir.Field, error) {
	var fields []ir.Field

	mapsVal := v.LookupPath(cue.ParsePath("maps"))
	if !mapsVal.Exists() {
		return fields, nil
	}

	iter, err := mapsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		mv := iter.Value()

		keyType, err := requiredString(mv, "key", fmt.Sprintf("maps.%s.key", name))
		if err != nil {
			return nil, err
		}
		valueType, err := requiredString(mv, "value", fmt.Sprintf("maps.%s.value", name))
		if err != nil {
			return nil, err
		}

		fields = append(fields, ir.Field{
			Name:      name,
			Kind:      ir.FieldMap,
			KeyType:   keyType,
			ValueType: valueType,
		})
	}

	return fields, nil
}

func requiredString(v cue.Value, path, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: "exactly one entity type is required",
			Pos:     v.Pos(),
		}
	}
	s, err := sv.String()
	if err != nil {
		return "", &CompileError{
			Field:   field,
			Message: "must be a single entity type name",
			Pos:     sv.Pos(),
		}
	}
	return s, nil
}

// extractTypeName converts a CUE kind to an IR scalar type name.
// Floats are forbidden.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.TypeString, nil
	case cue.IntKind:
		return ir.TypeInt, nil
	case cue.BoolKind:
		return ir.TypeBool, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
