package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mapql/internal/ir"
)

func division() *ir.EntityType {
	return &ir.EntityType{
		Name:    "Division",
		IDField: "id",
		Fields: []ir.Field{
			{Name: "id", Kind: ir.FieldScalar, ScalarType: ir.TypeInt},
			{Name: "name", Kind: ir.FieldScalar, ScalarType: ir.TypeString},
		},
	}
}

func employee() *ir.EntityType {
	return &ir.EntityType{
		Name:    "Employee",
		IDField: "empId",
		Fields: []ir.Field{
			{Name: "empId", Kind: ir.FieldScalar, ScalarType: ir.TypeInt},
			{Name: "phones", Kind: ir.FieldMap, KeyType: "Division", ValueType: "PhoneNumber"},
		},
	}
}

func phoneNumber() *ir.EntityType {
	return &ir.EntityType{
		Name:    "PhoneNumber",
		IDField: "number",
		Fields: []ir.Field{
			{Name: "number", Kind: ir.FieldScalar, ScalarType: ir.TypeInt},
			{Name: "emps", Kind: ir.FieldMap, KeyType: "Division", ValueType: "Employee"},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_ValidSchema(t *testing.T) {
	errs := Validate([]*ir.EntityType{division(), employee(), phoneNumber()})
	assert.Empty(t, errs)
}

func TestValidate_UnknownMapTypes(t *testing.T) {
	errs := Validate([]*ir.EntityType{employee()})
	assert.ElementsMatch(t, []string{ErrUnknownMapKey, ErrUnknownMapValue}, codes(errs))
}

func TestValidate_IncompleteMap(t *testing.T) {
	bad := division()
	bad.Fields = append(bad.Fields, ir.Field{Name: "m", Kind: ir.FieldMap, KeyType: "Division"})

	errs := Validate([]*ir.EntityType{bad})
	assert.Equal(t, []string{ErrIncompleteMap}, codes(errs))
}

func TestValidate_DuplicateEntityAndField(t *testing.T) {
	d := division()
	d.Fields = append(d.Fields, ir.Field{Name: "name", Kind: ir.FieldScalar, ScalarType: ir.TypeString})

	errs := Validate([]*ir.EntityType{d, division()})
	assert.Contains(t, codes(errs), ErrDuplicateEntity)
	assert.Contains(t, codes(errs), ErrDuplicateField)
}

func TestValidate_IDFieldMustBeScalar(t *testing.T) {
	d := division()
	d.IDField = "missing"

	errs := Validate([]*ir.EntityType{d})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidIDField, errs[0].Code)
	assert.Contains(t, errs[0].Error(), "[E204]")
}

func TestValidate_UnknownRefAndScalar(t *testing.T) {
	d := division()
	d.Fields = append(d.Fields,
		ir.Field{Name: "parent", Kind: ir.FieldRef, Target: "Company"},
		ir.Field{Name: "score", Kind: ir.FieldScalar, ScalarType: "float"},
	)

	errs := Validate([]*ir.EntityType{d})
	assert.ElementsMatch(t, []string{ErrUnknownRefTarget, ErrInvalidScalarType}, codes(errs))
}

func TestValidate_EmptyName(t *testing.T) {
	errs := Validate([]*ir.EntityType{{
		IDField: "id",
		Fields:  []ir.Field{{Name: "id", Kind: ir.FieldScalar, ScalarType: ir.TypeInt}},
	}})
	assert.Equal(t, []string{ErrEntityNameEmpty}, codes(errs))
}
