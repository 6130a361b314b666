package ir

// FieldKind classifies an entity field.
type FieldKind string

const (
	// FieldScalar holds an IRValue of ScalarType.
	FieldScalar FieldKind = "scalar"
	// FieldRef holds a single reference to another entity instance.
	FieldRef FieldKind = "ref"
	// FieldMap holds a map association from a key entity to a value entity.
	FieldMap FieldKind = "map"
)

// Scalar type names. Floats are forbidden.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeBool   = "bool"
)

// ValidScalarTypes defines allowed scalar type names.
var ValidScalarTypes = map[string]bool{
	TypeString: true,
	TypeInt:    true,
	TypeBool:   true,
}

// EntityType represents a compiled entity definition.
//
// EntityType descriptors are built once by the schema registry and are
// immutable thereafter. Pointer identity of a descriptor is stable for the
// lifetime of the registry, so TYPE(...) results can be compared with ==.
type EntityType struct {
	Name    string  `json:"name"`
	IDField string  `json:"id_field"`
	Fields  []Field `json:"fields"`
}

// Field describes one field of an EntityType.
//
// Exactly one of the type attributes is meaningful per Kind:
//   - FieldScalar: ScalarType
//   - FieldRef: Target
//   - FieldMap: KeyType and ValueType (both entity type names)
type Field struct {
	Name       string    `json:"name"`
	Kind       FieldKind `json:"kind"`
	ScalarType string    `json:"scalar_type,omitempty"`
	Target     string    `json:"target,omitempty"`
	KeyType    string    `json:"key_type,omitempty"`
	ValueType  string    `json:"value_type,omitempty"`
}

// Field looks up a field by name.
func (t *EntityType) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MapFields returns the map-association fields in declaration order.
func (t *EntityType) MapFields() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.Kind == FieldMap {
			out = append(out, f)
		}
	}
	return out
}

func (t *EntityType) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}
