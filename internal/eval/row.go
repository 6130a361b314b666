package eval

import (
	"github.com/roach88/mapql/internal/ir"
)

// CellKind identifies which field of a Cell is set.
type CellKind int

const (
	CellInstance CellKind = iota
	CellScalar
	CellEntry
	CellType
)

func (k CellKind) String() string {
	switch k {
	case CellInstance:
		return "instance"
	case CellScalar:
		return "scalar"
	case CellEntry:
		return "entry"
	case CellType:
		return "type"
	default:
		return "unknown"
	}
}

// Cell is the value of one projection for one row.
type Cell struct {
	Kind     CellKind
	Instance *ir.Instance   // CellInstance; nil when the value side is absent
	Scalar   ir.IRValue     // CellScalar; IRNull when unreachable
	Entry    ir.Entry       // CellEntry
	Type     *ir.EntityType // CellType; nil when the instance is absent
}

// Row is one result row, one cell per projection.
type Row []Cell

// IsNull reports whether the cell carries no value.
func (c Cell) IsNull() bool {
	switch c.Kind {
	case CellInstance:
		return c.Instance == nil
	case CellScalar:
		return ir.IsNull(c.Scalar)
	case CellType:
		return c.Type == nil
	default:
		return false
	}
}

// IR renders the cell as a canonical IR value.
//
//	instance: {"type": "Division", "id": 1, "fields": {"id": 1, "name": "d1"}}
//	entry:    {"key": <instance>, "value": <instance>}
//	type:     {"entity_type": "Division"}
//
// Absent instances and descriptors render as null.
func (c Cell) IR() ir.IRValue {
	switch c.Kind {
	case CellInstance:
		return InstanceIR(c.Instance)
	case CellScalar:
		if c.Scalar == nil {
			return ir.IRNull{}
		}
		return c.Scalar
	case CellEntry:
		return ir.IRObject{
			"key":   InstanceIR(c.Entry.Key),
			"value": InstanceIR(c.Entry.Value),
		}
	case CellType:
		if c.Type == nil {
			return ir.IRNull{}
		}
		return ir.IRObject{"entity_type": ir.IRString(c.Type.Name)}
	default:
		return ir.IRNull{}
	}
}

// InstanceIR renders an instance's identity and scalar fields.
// Map and ref fields are omitted so that cyclic graphs render finitely.
func InstanceIR(inst *ir.Instance) ir.IRValue {
	if inst == nil {
		return ir.IRNull{}
	}
	fields := ir.IRObject{}
	for k, v := range inst.Scalars {
		fields[k] = v
	}
	return ir.IRObject{
		"type":   ir.IRString(inst.Type.Name),
		"id":     inst.ID,
		"fields": fields,
	}
}

// IR renders the row as an array of cells.
func (r Row) IR() ir.IRArray {
	out := make(ir.IRArray, len(r))
	for i, c := range r {
		out[i] = c.IR()
	}
	return out
}
