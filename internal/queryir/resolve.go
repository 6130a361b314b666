package queryir

import (
	"fmt"

	"github.com/roach88/mapql/internal/ir"
)

// Schema is the entity lookup the resolver needs. *schema.Registry implements it.
type Schema interface {
	Lookup(name string) (*ir.EntityType, bool)
}

// Resolve validates a parsed query against the schema and produces the
// AssociationPath that drives evaluation.
//
// Resolve is a pure function: errors depend only on the query and the
// schema. No partial path is returned on failure.
func Resolve(sel *Select, reg Schema) (*AssociationPath, error) {
	r := &resolver{sel: sel, reg: reg}
	return r.resolve()
}

// ParseAndResolve is Parse followed by Resolve.
func ParseAndResolve(query string, reg Schema) (*AssociationPath, error) {
	sel, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return Resolve(sel, reg)
}

type resolver struct {
	sel  *Select
	reg  Schema
	path *AssociationPath
}

func (r *resolver) resolve() (*AssociationPath, error) {
	root, ok := r.reg.Lookup(r.sel.RootType)
	if !ok {
		return nil, resolutionErrorf(UnknownType, r.sel.RootType, "entity type is not registered%s", r.suggest(r.sel.RootType))
	}

	r.path = &AssociationPath{
		Root:      root,
		RootAlias: r.sel.RootAlias,
		Var:       r.sel.Var,
		MaxParam:  r.sel.MaxParam,
	}

	if r.sel.MapField != "" {
		if err := r.resolveMap(root); err != nil {
			return nil, err
		}
	}

	for _, proj := range r.sel.Projections {
		rp, err := r.resolveProjection(proj)
		if err != nil {
			return nil, err
		}
		r.path.Projections = append(r.path.Projections, rp)
	}

	if r.sel.Filter != nil {
		if err := r.resolveFilter(r.sel.Filter); err != nil {
			return nil, err
		}
	}

	if r.sel.OrderBy != nil {
		order, err := r.resolveOrder(*r.sel.OrderBy)
		if err != nil {
			return nil, err
		}
		r.path.Order = order
	}

	return r.path, nil
}

// suggest returns a " (did you mean ...)" hint when the schema has a
// case-insensitive match for name.
func (r *resolver) suggest(name string) string {
	folder, ok := r.reg.(interface {
		LookupFold(name string) (*ir.EntityType, bool)
	})
	if !ok {
		return ""
	}
	if t, ok := folder.LookupFold(name); ok {
		return fmt.Sprintf(" (did you mean %q?)", t.Name)
	}
	return ""
}

// resolveMap validates the IN(...) clause. Every field of the path but the
// last is a ref navigated from the root; the last one must be a map field.
func (r *resolver) resolveMap(root *ir.EntityType) error {
	expr := "IN(" + r.sel.MapPath() + ")"

	if r.sel.MapOwner != r.sel.RootAlias {
		return resolutionErrorf(UnknownAlias, expr, "alias %q is not declared", r.sel.MapOwner)
	}
	if r.sel.Var == r.sel.RootAlias {
		return resolutionErrorf(UnknownAlias, expr, "variable %q shadows the root alias", r.sel.Var)
	}

	owner := root
	if len(r.sel.MapVia) > 0 {
		via, err := r.navigate(ResolvedProjection{Label: expr, Fields: r.sel.MapVia}, root)
		if err != nil {
			return err
		}
		if via.Kind != ResultInstance {
			return resolutionErrorf(TypeMismatch, expr, "%s is a scalar field, not an entity", joinPath(r.sel.MapOwner, r.sel.MapVia))
		}
		owner = via.ResultType
	}

	field, ok := owner.Field(r.sel.MapField)
	if !ok {
		return resolutionErrorf(UnknownField, expr, "%s has no field %q", owner.Name, r.sel.MapField)
	}
	if field.Kind != ir.FieldMap {
		return resolutionErrorf(TypeMismatch, expr, "%s.%s is a %s field, not a map association", owner.Name, field.Name, field.Kind)
	}

	keyType, ok := r.reg.Lookup(field.KeyType)
	if !ok {
		return resolutionErrorf(UnknownType, expr, "map key type %q is not registered", field.KeyType)
	}
	valueType, ok := r.reg.Lookup(field.ValueType)
	if !ok {
		return resolutionErrorf(UnknownType, expr, "map value type %q is not registered", field.ValueType)
	}

	r.path.MapVia = r.sel.MapVia
	r.path.MapOwner = owner
	r.path.MapField = field
	r.path.KeyType = keyType
	r.path.ValueType = valueType
	return nil
}

func (r *resolver) resolveProjection(proj Projection) (ResolvedProjection, error) {
	rp := ResolvedProjection{Label: proj.String()}

	switch p := proj.(type) {
	case Path:
		op, start, err := r.resolveAlias(p.Alias, rp.Label)
		if err != nil {
			return rp, err
		}
		rp.Operator = op
		rp.Fields = p.Fields
		return r.navigate(rp, start)

	case Key:
		if err := r.checkVar(p.Var, rp.Label); err != nil {
			return rp, err
		}
		rp.Operator = OpKey
		rp.Fields = p.Fields
		return r.navigate(rp, r.path.KeyType)

	case Value:
		if err := r.checkVar(p.Var, rp.Label); err != nil {
			return rp, err
		}
		rp.Operator = OpValue
		rp.Fields = p.Fields
		return r.navigate(rp, r.path.ValueType)

	case Entry:
		if err := r.checkVar(p.Var, rp.Label); err != nil {
			return rp, err
		}
		if len(p.Fields) > 0 {
			return rp, resolutionErrorf(TypeMismatch, rp.Label, "ENTRY result has no fields; use KEY or VALUE")
		}
		rp.Operator = OpEntry
		rp.Kind = ResultEntry
		return rp, nil

	case TypeOf:
		var v string
		switch inner := p.Inner.(type) {
		case Key:
			if len(inner.Fields) > 0 {
				return rp, resolutionErrorf(TypeMismatch, rp.Label, "TYPE applies to KEY or VALUE without navigation")
			}
			v, rp.Operator = inner.Var, OpKey
		case Value:
			if len(inner.Fields) > 0 {
				return rp, resolutionErrorf(TypeMismatch, rp.Label, "TYPE applies to KEY or VALUE without navigation")
			}
			v, rp.Operator = inner.Var, OpValue
		default:
			return rp, resolutionErrorf(TypeMismatch, rp.Label, "TYPE applies to KEY or VALUE only")
		}
		if err := r.checkVar(v, rp.Label); err != nil {
			return rp, err
		}
		rp.TypeOf = true
		rp.Kind = ResultType
		return rp, nil

	default:
		return rp, resolutionErrorf(TypeMismatch, rp.Label, "unsupported projection %T", proj)
	}
}

// resolveAlias maps a path head to its operator and starting type.
func (r *resolver) resolveAlias(alias, expr string) (Operator, *ir.EntityType, error) {
	switch {
	case alias == r.path.RootAlias:
		return OpRoot, r.path.Root, nil
	case r.path.Var != "" && alias == r.path.Var:
		return OpNone, r.path.ValueType, nil
	default:
		return 0, nil, resolutionErrorf(UnknownAlias, expr, "alias %q is not declared", alias)
	}
}

func (r *resolver) checkVar(v, expr string) error {
	if r.path.Var == "" || v != r.path.Var {
		return resolutionErrorf(UnknownAlias, expr, "%q is not an IN(...) variable", v)
	}
	return nil
}

// navigate walks trailing fields from start. Intermediate fields must be refs;
// the last field may be a scalar or a ref. Map fields cannot be navigated.
func (r *resolver) navigate(rp ResolvedProjection, start *ir.EntityType) (ResolvedProjection, error) {
	current := start
	for i, name := range rp.Fields {
		field, ok := current.Field(name)
		if !ok {
			return rp, resolutionErrorf(UnknownField, rp.Label, "%s has no field %q", current.Name, name)
		}

		last := i == len(rp.Fields)-1
		switch field.Kind {
		case ir.FieldScalar:
			if !last {
				return rp, resolutionErrorf(TypeMismatch, rp.Label, "cannot navigate through scalar field %s.%s", current.Name, name)
			}
			rp.Kind = ResultScalar
			rp.ScalarType = field.ScalarType
			return rp, nil
		case ir.FieldRef:
			target, ok := r.reg.Lookup(field.Target)
			if !ok {
				return rp, resolutionErrorf(UnknownType, rp.Label, "ref target %q is not registered", field.Target)
			}
			current = target
		case ir.FieldMap:
			return rp, resolutionErrorf(TypeMismatch, rp.Label, "cannot navigate into map field %s.%s; use IN(...)", current.Name, name)
		}
	}

	rp.Kind = ResultInstance
	rp.ResultType = current
	return rp, nil
}

// resolveFilter accepts VALUE(var) IS [NOT] NULL and comparisons of a root
// or variable scalar path. KEY/VALUE/ENTRY/TYPE operands are never compared.
func (r *resolver) resolveFilter(pred Predicate) error {
	switch p := pred.(type) {
	case Compare:
		where, err := r.resolveCompare(p)
		if err != nil {
			return err
		}
		r.path.Where = where
		return nil

	case IsNull:
		switch operand := p.Operand.(type) {
		case Value:
			if err := r.checkVar(operand.Var, p.String()); err != nil {
				return err
			}
			if len(operand.Fields) > 0 {
				return resolutionErrorf(UnsupportedPredicate, p.String(),
					"null checks apply to VALUE(%s) itself, not its fields", operand.Var)
			}
			r.path.Filter = &NullFilter{Negated: p.Negated}
			return nil
		case Key:
			return resolutionErrorf(UnsupportedPredicate, p.String(), "map keys are never null")
		default:
			return resolutionErrorf(UnsupportedPredicate, p.String(), "null checks are supported on VALUE(...) only")
		}

	default:
		return resolutionErrorf(UnsupportedPredicate, pred.String(), "unsupported predicate %T", pred)
	}
}

func (r *resolver) resolveCompare(c Compare) (*Comparison, error) {
	label := c.String()

	left, ok := c.Left.(Path)
	if !ok {
		return nil, resolutionErrorf(UnsupportedPredicate, label,
			"comparison on KEY/VALUE operator results is not supported")
	}

	op, start, err := r.resolveAlias(left.Alias, label)
	if err != nil {
		return nil, err
	}
	rp, err := r.navigate(ResolvedProjection{Label: label, Operator: op, Fields: left.Fields}, start)
	if err != nil {
		return nil, err
	}
	if rp.Kind != ResultScalar {
		return nil, resolutionErrorf(TypeMismatch, label, "comparison requires a scalar field, %s is an entity", rp.ResultType.Name)
	}
	if c.Literal != nil && !literalFits(rp.ScalarType, c.Literal) {
		return nil, resolutionErrorf(TypeMismatch, label, "%s is %s", left, rp.ScalarType)
	}

	return &Comparison{
		Label:    label,
		Operator: op,
		Fields:   left.Fields,
		Op:       c.Op,
		Param:    c.Param,
		Value:    c.Literal,
	}, nil
}

func literalFits(scalarType string, v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRInt:
		return scalarType == ir.TypeInt
	case ir.IRString:
		return scalarType == ir.TypeString
	case ir.IRBool:
		return scalarType == ir.TypeBool
	default:
		return false
	}
}

// resolveOrder validates the ORDER BY path. It must end on a scalar field.
func (r *resolver) resolveOrder(p Path) (*OrderKey, error) {
	label := p.String()
	op, start, err := r.resolveAlias(p.Alias, label)
	if err != nil {
		return nil, err
	}
	if len(p.Fields) == 0 {
		return nil, resolutionErrorf(TypeMismatch, label, "ORDER BY requires a scalar field")
	}

	rp, err := r.navigate(ResolvedProjection{Label: label, Operator: op, Fields: p.Fields}, start)
	if err != nil {
		return nil, err
	}
	if rp.Kind != ResultScalar {
		return nil, resolutionErrorf(TypeMismatch, label, "ORDER BY requires a scalar field, %s is an entity", rp.ResultType)
	}

	return &OrderKey{Label: label, Operator: op, Fields: p.Fields}, nil
}
