package eval

import (
	"fmt"
	"iter"
	"slices"

	"github.com/roach88/mapql/internal/ir"
	"github.com/roach88/mapql/internal/queryir"
)

// record is one logical input row before projection: a root instance and,
// for map paths, one of its entries.
type record struct {
	root  *ir.Instance
	entry ir.Entry
}

// Evaluate returns the rows produced by path over roots.
//
// Errors from roots are yielded unchanged and end the sequence. When the
// path has an order key the whole input is consumed before the first row is
// yielded; otherwise rows stream as roots are read.
func Evaluate(path *queryir.AssociationPath, roots iter.Seq2[*ir.Instance, error]) iter.Seq2[Row, error] {
	if path.Order == nil {
		return func(yield func(Row, error) bool) {
			for rec, err := range records(path, roots) {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(project(path, rec), nil) {
					return
				}
			}
		}
	}

	return func(yield func(Row, error) bool) {
		type keyed struct {
			key ir.IRValue
			row Row
		}
		var buf []keyed
		for rec, err := range records(path, roots) {
			if err != nil {
				yield(nil, err)
				return
			}
			buf = append(buf, keyed{key: orderValue(path.Order, rec), row: project(path, rec)})
		}

		slices.SortStableFunc(buf, func(a, b keyed) int {
			return ir.Compare(a.key, b.key)
		})

		for _, k := range buf {
			if !yield(k.row, nil) {
				return
			}
		}
	}
}

// Collect drains a row sequence. On error the rows read so far are discarded.
func Collect(rows iter.Seq2[Row, error]) ([]Row, error) {
	var out []Row
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// records expands roots into per-entry records and applies the filters.
// A root whose ref chain to the map owner is broken contributes no rows.
func records(path *queryir.AssociationPath, roots iter.Seq2[*ir.Instance, error]) iter.Seq2[record, error] {
	return func(yield func(record, error) bool) {
		for root, err := range roots {
			if err != nil {
				yield(record{}, err)
				return
			}
			if root == nil {
				continue
			}
			if root.Type == nil || root.Type.Name != path.Root.Name {
				yield(record{}, fmt.Errorf("root instance %s is not a %s", describe(root), path.Root.Name))
				return
			}

			if !path.HasMap() {
				if keep(path, record{root: root}) && !yield(record{root: root}, nil) {
					return
				}
				continue
			}

			owner := instanceAt(root, path.MapVia)
			if owner == nil {
				continue
			}
			for entry := range owner.Maps[path.MapField.Name].All() {
				rec := record{root: root, entry: entry}
				if !keep(path, rec) {
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// keep applies the null filter and the comparison to a record.
func keep(path *queryir.AssociationPath, rec record) bool {
	if path.Filter != nil && (rec.entry.Value == nil) == path.Filter.Negated {
		return false
	}
	if w := path.Where; w != nil {
		return w.Matches(scalarAt(start(w.Operator, rec), w.Fields))
	}
	return true
}

// start returns the instance an operator reads from.
func start(op queryir.Operator, rec record) *ir.Instance {
	switch op {
	case queryir.OpRoot:
		return rec.root
	case queryir.OpKey:
		return rec.entry.Key
	case queryir.OpValue, queryir.OpNone:
		return rec.entry.Value
	default:
		return nil
	}
}

func project(path *queryir.AssociationPath, rec record) Row {
	row := make(Row, len(path.Projections))
	for i, p := range path.Projections {
		row[i] = projectOne(p, rec)
	}
	return row
}

// projectOne is the single dispatch point over projection operators.
func projectOne(p queryir.ResolvedProjection, rec record) Cell {
	if p.Operator == queryir.OpEntry {
		return Cell{Kind: CellEntry, Entry: rec.entry}
	}
	from := start(p.Operator, rec)

	if p.TypeOf {
		if from == nil {
			return Cell{Kind: CellType}
		}
		return Cell{Kind: CellType, Type: from.Type}
	}

	if p.Kind == queryir.ResultScalar {
		return Cell{Kind: CellScalar, Scalar: scalarAt(from, p.Fields)}
	}
	return Cell{Kind: CellInstance, Instance: instanceAt(from, p.Fields)}
}

func orderValue(key *queryir.OrderKey, rec record) ir.IRValue {
	return scalarAt(start(key.Operator, rec), key.Fields)
}

// instanceAt follows ref fields from inst. A missing link yields nil.
func instanceAt(inst *ir.Instance, fields []string) *ir.Instance {
	for _, f := range fields {
		if inst == nil {
			return nil
		}
		inst = inst.Refs[f]
	}
	return inst
}

// scalarAt follows ref fields and reads the last field as a scalar.
// A missing link yields IRNull.
func scalarAt(inst *ir.Instance, fields []string) ir.IRValue {
	if len(fields) == 0 {
		return ir.IRNull{}
	}
	last := len(fields) - 1
	inst = instanceAt(inst, fields[:last])
	if inst == nil {
		return ir.IRNull{}
	}
	return inst.Get(fields[last])
}

func describe(inst *ir.Instance) string {
	if inst.Type == nil {
		return "<untyped>"
	}
	return inst.Type.Name
}
