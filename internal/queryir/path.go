package queryir

import (
	"github.com/roach88/mapql/internal/ir"
)

// Operator selects which side of a map entry a projection reads.
//
// The set is closed; the evaluator dispatches on it with a single switch.
type Operator int

const (
	// OpRoot reads the root instance itself (SELECT p, p.number).
	OpRoot Operator = iota
	// OpNone is bare navigation through the map variable; yields the value.
	OpNone
	// OpKey yields the key instance.
	OpKey
	// OpValue yields the value instance.
	OpValue
	// OpEntry yields the (key, value) pair.
	OpEntry
)

func (o Operator) String() string {
	switch o {
	case OpRoot:
		return "ROOT"
	case OpNone:
		return "NONE"
	case OpKey:
		return "KEY"
	case OpValue:
		return "VALUE"
	case OpEntry:
		return "ENTRY"
	default:
		return "UNKNOWN"
	}
}

// ResultKind describes what a resolved projection produces per row.
type ResultKind int

const (
	ResultInstance ResultKind = iota // an *ir.Instance of ResultType
	ResultScalar                     // an ir.IRValue of ScalarType
	ResultEntry                      // a (key, value) pair
	ResultType                       // an *ir.EntityType descriptor
)

// ResolvedProjection is one schema-validated select item.
type ResolvedProjection struct {
	Label    string   // query text of the projection, used as column label
	Operator Operator // which side of the entry to start from
	TypeOf   bool     // wrap the operator result in TYPE(...)
	Fields   []string // trailing navigation after the operator

	Kind       ResultKind
	ResultType *ir.EntityType // set for ResultInstance
	ScalarType string         // set for ResultScalar
}

// NullFilter keeps entries whose value side is absent (or present when Negated).
type NullFilter struct {
	Negated bool
}

// Comparison keeps rows whose scalar operand compares true against a
// literal or a positional parameter.
//
// Value holds the literal after resolution; for a parameter it stays nil
// until the executor binds it.
type Comparison struct {
	Label    string
	Operator Operator // OpRoot or OpNone
	Fields   []string
	Op       string
	Param    int // 0 for a literal
	Value    ir.IRValue
}

// Matches applies the comparison to an operand value. A null operand, an
// unbound right side or values of different kinds never match.
func (c *Comparison) Matches(v ir.IRValue) bool {
	if !ir.SameKind(v, c.Value) {
		return false
	}
	n := ir.Compare(v, c.Value)
	switch c.Op {
	case "=":
		return n == 0
	case "<>", "!=":
		return n != 0
	case "<":
		return n < 0
	case "<=":
		return n <= 0
	case ">":
		return n > 0
	case ">=":
		return n >= 0
	default:
		return false
	}
}

// OrderKey is a resolved ORDER BY target. It always ends on a scalar field.
type OrderKey struct {
	Label    string
	Operator Operator // OpRoot or OpNone
	Fields   []string
}

// AssociationPath is the resolved, schema-validated form of a query.
//
// It captures the root type, the map field navigated by the IN clause
// (zero Field when the query selects roots directly), the projections and
// the optional filter and ordering. AssociationPath values are built per
// query and discarded after evaluation.
//
// MapVia lists the ref fields followed from the root to the instance that
// owns MapField; it is empty when the map is declared on the root type.
type AssociationPath struct {
	Root      *ir.EntityType
	RootAlias string

	MapVia    []string
	MapOwner  *ir.EntityType
	MapField  ir.Field
	KeyType   *ir.EntityType
	ValueType *ir.EntityType
	Var       string

	Projections []ResolvedProjection
	Filter      *NullFilter // VALUE(var) IS [NOT] NULL
	Where       *Comparison // <path> <op> (?N | literal)
	Order       *OrderKey

	// MaxParam is the highest positional parameter the query references.
	MaxParam int
}

// HasMap reports whether the path iterates a map association.
func (p *AssociationPath) HasMap() bool {
	return p.MapField.Kind == ir.FieldMap
}

// Labels returns the column labels in projection order.
func (p *AssociationPath) Labels() []string {
	out := make([]string, len(p.Projections))
	for i, proj := range p.Projections {
		out[i] = proj.Label
	}
	return out
}
