package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mapql/internal/ir"
)

func TestParse_MapProjection(t *testing.T) {
	sel, err := Parse("SELECT VALUE(x).empId FROM PhoneNumber p, IN(p.emps) x ORDER BY x.empId")
	require.NoError(t, err)

	assert.Equal(t, "PhoneNumber", sel.RootType)
	assert.Equal(t, "p", sel.RootAlias)
	assert.Equal(t, "p", sel.MapOwner)
	assert.Equal(t, "emps", sel.MapField)
	assert.Empty(t, sel.MapVia)
	assert.Equal(t, "x", sel.Var)
	require.Len(t, sel.Projections, 1)
	assert.Equal(t, Value{Var: "x", Fields: []string{"empId"}}, sel.Projections[0])
	require.NotNil(t, sel.OrderBy)
	assert.Equal(t, Path{Alias: "x", Fields: []string{"empId"}}, *sel.OrderBy)
	assert.Nil(t, sel.Filter)
}

func TestParse_KeywordsCaseInsensitive(t *testing.T) {
	sel, err := Parse("select key(e), Key(e).name from Employee e, in (e.phones) as p order by e.empId asc")
	require.NoError(t, err)

	require.Len(t, sel.Projections, 2)
	assert.Equal(t, Key{Var: "e"}, sel.Projections[0])
	assert.Equal(t, Key{Var: "e", Fields: []string{"name"}}, sel.Projections[1])
	assert.Equal(t, "p", sel.Var)
}

func TestParse_OperatorNamesAsIdentifiers(t *testing.T) {
	// KEY is an operator only when followed by '('
	sel, err := Parse("SELECT key.name FROM Division key")
	require.NoError(t, err)

	assert.Equal(t, Path{Alias: "key", Fields: []string{"name"}}, sel.Projections[0])
	assert.Equal(t, "key", sel.RootAlias)
}

func TestParse_EntryAndType(t *testing.T) {
	sel, err := Parse("SELECT ENTRY(x), TYPE(KEY(x)), TYPE(VALUE(x)) FROM PhoneNumber p, IN(p.emps) x")
	require.NoError(t, err)

	require.Len(t, sel.Projections, 3)
	assert.Equal(t, Entry{Var: "x"}, sel.Projections[0])
	assert.Equal(t, TypeOf{Inner: Key{Var: "x"}}, sel.Projections[1])
	assert.Equal(t, TypeOf{Inner: Value{Var: "x"}}, sel.Projections[2])
}

func TestParse_NestedMapPath(t *testing.T) {
	sel, err := Parse("SELECT KEY(x) FROM Division d, IN(d.head.manager.phones) x")
	require.NoError(t, err)

	assert.Equal(t, "d", sel.MapOwner)
	assert.Equal(t, []string{"head", "manager"}, sel.MapVia)
	assert.Equal(t, "phones", sel.MapField)
	assert.Equal(t, "x", sel.Var)
	assert.Equal(t, "d.head.manager.phones", sel.MapPath())
}

func TestParse_RootSelection(t *testing.T) {
	sel, err := Parse("SELECT p FROM PhoneNumber p")
	require.NoError(t, err)

	assert.Equal(t, []Projection{Path{Alias: "p"}}, sel.Projections)
	assert.Empty(t, sel.MapField)
	assert.Empty(t, sel.Var)
}

func TestParse_Predicates(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Predicate
		max   int
	}{
		{
			name:  "is null",
			query: "SELECT p FROM PhoneNumber p, IN(p.emps) x WHERE VALUE(x) IS NULL",
			want:  IsNull{Operand: Value{Var: "x"}},
		},
		{
			name:  "is not null",
			query: "SELECT p FROM PhoneNumber p, IN(p.emps) x WHERE VALUE(x) IS NOT NULL",
			want:  IsNull{Operand: Value{Var: "x"}, Negated: true},
		},
		{
			name:  "param",
			query: "SELECT p FROM PhoneNumber p, IN(p.emps) x WHERE KEY(x) = ?1",
			want:  Compare{Left: Key{Var: "x"}, Op: "=", Param: 1},
			max:   1,
		},
		{
			name:  "int literal",
			query: "SELECT p FROM PhoneNumber p WHERE p.number >= 10",
			want:  Compare{Left: Path{Alias: "p", Fields: []string{"number"}}, Op: ">=", Literal: ir.IRInt(10)},
		},
		{
			name:  "string literal with escaped quote",
			query: "SELECT p FROM Division p WHERE p.name <> 'o''brien'",
			want:  Compare{Left: Path{Alias: "p", Fields: []string{"name"}}, Op: "<>", Literal: ir.IRString("o'brien")},
		},
		{
			name:  "bool literal",
			query: "SELECT p FROM Division p WHERE p.active = true",
			want:  Compare{Left: Path{Alias: "p", Fields: []string{"active"}}, Op: "=", Literal: ir.IRBool(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Parse(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.Filter)
			assert.Equal(t, tt.max, sel.MaxParam)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"empty", "", "expected SELECT"},
		{"missing from", "SELECT p", "expected FROM"},
		{"descending", "SELECT p FROM Employee p ORDER BY p.empId DESC", "descending order is not supported"},
		{"compound", "SELECT p FROM Employee p, IN(p.phones) x WHERE VALUE(x) IS NULL AND VALUE(x) IS NOT NULL", "compound predicates"},
		{"unknown function", "SELECT COUNT(p) FROM Employee p", "unsupported function"},
		{"in path without field", "SELECT p FROM Employee p, IN(p) x", "IN path must name a map field"},
		{"float literal", "SELECT p FROM Employee p WHERE p.empId = 1.5", "float"},
		{"zero param", "SELECT p FROM Employee p WHERE p.empId = ?0", "invalid positional parameter"},
		{"trailing tokens", "SELECT p FROM Employee p p", "unexpected"},
		{"unterminated string", "SELECT p FROM Employee p WHERE p.empId = 'abc", "unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.query)
			require.Error(t, err)

			var synErr *SyntaxError
			require.True(t, errors.As(err, &synErr), "expected *SyntaxError, got %T", err)
			assert.Contains(t, synErr.Message, tt.message)
		})
	}
}

func TestParse_SyntaxErrorOffset(t *testing.T) {
	_, err := Parse("SELECT p FROM Employee p ORDER BY p.empId DESC")

	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
	assert.Equal(t, 42, synErr.Offset)
}

func TestProjection_String(t *testing.T) {
	assert.Equal(t, "KEY(x).name", Key{Var: "x", Fields: []string{"name"}}.String())
	assert.Equal(t, "VALUE(x)", Value{Var: "x"}.String())
	assert.Equal(t, "TYPE(KEY(x))", TypeOf{Inner: Key{Var: "x"}}.String())
	assert.Equal(t, "x.empId", Path{Alias: "x", Fields: []string{"empId"}}.String())
	assert.Equal(t, "KEY(p) = ?1", Compare{Left: Key{Var: "p"}, Op: "=", Param: 1}.String())
	assert.Equal(t, "VALUE(p) IS NOT NULL", IsNull{Operand: Value{Var: "p"}, Negated: true}.String())
}
