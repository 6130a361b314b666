package queryir

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/mapql/internal/ir"
)

// Projection is one item of a SELECT list, or the operand of a predicate.
//
// This is a sealed interface - only types in this package implement it.
//
// Projection types:
//   - Path: alias with optional field navigation (p, p.number, x.empId)
//   - Key: KEY(var) with optional trailing navigation
//   - Value: VALUE(var) with optional trailing navigation
//   - Entry: ENTRY(var)
//   - TypeOf: TYPE(KEY(var)) or TYPE(VALUE(var))
type Projection interface {
	projectionNode() // Marker method - seals interface to this package
	String() string
}

// Predicate represents a WHERE condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - IsNull: operand IS [NOT] NULL
//   - Compare: operand <op> (?N | literal)
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
	String() string
}

// Select is a parsed query.
//
// Semantics:
//
//	SELECT <Projections> FROM <RootType> <RootAlias>, IN(<MapOwner>.<MapVia...>.<MapField>) <Var>
//	WHERE <Filter> ORDER BY <OrderBy>
//
// MapField and Var are empty for a plain root selection (SELECT p FROM T p).
type Select struct {
	Projections []Projection
	RootType    string
	RootAlias   string
	MapOwner    string   // alias on the left of the IN path
	MapVia      []string // ref fields between MapOwner and MapField
	MapField    string
	Var         string
	Filter      Predicate // nil = no filter
	OrderBy     *Path     // nil = map iteration order
	MaxParam    int       // highest positional parameter referenced (?N)
}

// MapPath renders the IN(...) argument.
func (s *Select) MapPath() string {
	return joinPath(s.MapOwner, append(slices.Clone(s.MapVia), s.MapField))
}

// Path is an alias with optional field navigation.
//
//	Path{Alias: "x", Fields: []string{"empId"}}  // x.empId
type Path struct {
	Alias  string
	Fields []string
}

func (Path) projectionNode() {}

func (p Path) String() string {
	return joinPath(p.Alias, p.Fields)
}

// Key represents KEY(var) with optional trailing navigation.
type Key struct {
	Var    string
	Fields []string
}

func (Key) projectionNode() {}

func (k Key) String() string {
	return joinPath("KEY("+k.Var+")", k.Fields)
}

// Value represents VALUE(var) with optional trailing navigation.
type Value struct {
	Var    string
	Fields []string
}

func (Value) projectionNode() {}

func (v Value) String() string {
	return joinPath("VALUE("+v.Var+")", v.Fields)
}

// Entry represents ENTRY(var). Fields is kept so that a trailing navigation
// can be reported as a type mismatch by the resolver instead of a parse error.
type Entry struct {
	Var    string
	Fields []string
}

func (Entry) projectionNode() {}

func (e Entry) String() string {
	return joinPath("ENTRY("+e.Var+")", e.Fields)
}

// TypeOf represents TYPE(inner). Only KEY and VALUE are valid inner operands.
type TypeOf struct {
	Inner Projection
}

func (TypeOf) projectionNode() {}

func (t TypeOf) String() string {
	return "TYPE(" + t.Inner.String() + ")"
}

// IsNull represents "<operand> IS NULL" or "<operand> IS NOT NULL".
type IsNull struct {
	Operand Projection
	Negated bool
}

func (IsNull) predicateNode() {}

func (n IsNull) String() string {
	if n.Negated {
		return n.Operand.String() + " IS NOT NULL"
	}
	return n.Operand.String() + " IS NULL"
}

// Compare represents "<left> <op> <right>" where right is a positional
// parameter (Param > 0) or a literal.
type Compare struct {
	Left    Projection
	Op      string
	Param   int
	Literal ir.IRValue
}

func (Compare) predicateNode() {}

func (c Compare) String() string {
	right := "?"
	if c.Param > 0 {
		right = "?" + strconv.Itoa(c.Param)
	} else if c.Literal != nil {
		b, err := ir.MarshalCanonical(c.Literal)
		if err == nil {
			right = string(b)
		}
	}
	return c.Left.String() + " " + c.Op + " " + right
}

func joinPath(head string, fields []string) string {
	if len(fields) == 0 {
		return head
	}
	return head + "." + strings.Join(fields, ".")
}
