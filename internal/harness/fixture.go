package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mapql/internal/ir"
	"github.com/roach88/mapql/internal/schema"
)

// Fixture is an object graph described in YAML.
//
//	instances:
//	  - type: Division
//	    id: 1
//	    fields: { name: d1 }
//	  - type: PhoneNumber
//	    id: 1
//	    maps:
//	      emps:
//	        - { key: 1, value: 1 }   # Division 1 -> Employee 1
//	        - { key: 2 }             # absent value
//
// Map keys, map values and refs name target instances by id; the target type
// comes from the field declaration.
type Fixture struct {
	Instances []InstanceSpec `yaml:"instances"`
}

// InstanceSpec describes one instance.
type InstanceSpec struct {
	Type   string                 `yaml:"type"`
	ID     any                    `yaml:"id"`
	Fields map[string]any         `yaml:"fields,omitempty"`
	Refs   map[string]any         `yaml:"refs,omitempty"`
	Maps   map[string][]EntrySpec `yaml:"maps,omitempty"`
}

// EntrySpec is one map entry. A missing value means the value side is absent.
type EntrySpec struct {
	Key   any `yaml:"key"`
	Value any `yaml:"value,omitempty"`
}

// LoadFixture reads and parses a fixture YAML file.
// Unknown fields are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var fixture Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &fixture, nil
}

// Build creates the instances described by the fixture, in declaration order.
//
// Every instance is created first, then refs and map entries are linked, so
// entries may name instances declared later in the file.
func (f *Fixture) Build(reg *schema.Registry) ([]*ir.Instance, error) {
	instances := make([]*ir.Instance, 0, len(f.Instances))
	byKey := make(map[string]*ir.Instance, len(f.Instances))

	for i, spec := range f.Instances {
		inst, err := newInstance(reg, spec)
		if err != nil {
			return nil, fmt.Errorf("instances[%d]: %w", i, err)
		}
		if _, dup := byKey[inst.Key()]; dup {
			return nil, fmt.Errorf("instances[%d]: duplicate %s %v", i, spec.Type, spec.ID)
		}
		byKey[inst.Key()] = inst
		instances = append(instances, inst)
	}

	lookup := func(typeName string, id any) (*ir.Instance, error) {
		irID, err := ir.FromAny(id)
		if err != nil {
			return nil, err
		}
		target, ok := byKey[ir.InstanceKey(typeName, irID)]
		if !ok {
			return nil, fmt.Errorf("%s %v is not defined", typeName, id)
		}
		return target, nil
	}

	for i, spec := range f.Instances {
		inst := instances[i]

		for name, id := range spec.Refs {
			field, ok := inst.Type.Field(name)
			if !ok || field.Kind != ir.FieldRef {
				return nil, fmt.Errorf("instances[%d]: %s has no ref field %q", i, spec.Type, name)
			}
			target, err := lookup(field.Target, id)
			if err != nil {
				return nil, fmt.Errorf("instances[%d]: ref %s: %w", i, name, err)
			}
			inst.Refs[name] = target
		}

		for name, entries := range spec.Maps {
			field, ok := inst.Type.Field(name)
			if !ok || field.Kind != ir.FieldMap {
				return nil, fmt.Errorf("instances[%d]: %s has no map field %q", i, spec.Type, name)
			}
			m := inst.Map(name)
			for j, e := range entries {
				key, err := lookup(field.KeyType, e.Key)
				if err != nil {
					return nil, fmt.Errorf("instances[%d]: %s[%d] key: %w", i, name, j, err)
				}
				var value *ir.Instance
				if e.Value != nil {
					value, err = lookup(field.ValueType, e.Value)
					if err != nil {
						return nil, fmt.Errorf("instances[%d]: %s[%d] value: %w", i, name, j, err)
					}
				}
				m.Put(key, value)
			}
		}
	}

	return instances, nil
}

func newInstance(reg *schema.Registry, spec InstanceSpec) (*ir.Instance, error) {
	t, ok := reg.Lookup(spec.Type)
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", spec.Type)
	}
	if spec.ID == nil {
		return nil, fmt.Errorf("%s: id is required", spec.Type)
	}
	id, err := ir.FromAny(spec.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: id: %w", spec.Type, err)
	}
	if idField, ok := t.Field(t.IDField); ok {
		if err := checkScalar(idField, id); err != nil {
			return nil, fmt.Errorf("%s: id: %w", spec.Type, err)
		}
	}

	inst := ir.NewInstance(t, id)
	for name, raw := range spec.Fields {
		field, ok := t.Field(name)
		if !ok || field.Kind != ir.FieldScalar {
			return nil, fmt.Errorf("%s %v: no scalar field %q", spec.Type, spec.ID, name)
		}
		if name == t.IDField {
			return nil, fmt.Errorf("%s %v: id field %q is set by id", spec.Type, spec.ID, name)
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("%s %v: field %s: %w", spec.Type, spec.ID, name, err)
		}
		if err := checkScalar(field, v); err != nil {
			return nil, fmt.Errorf("%s %v: field %s: %w", spec.Type, spec.ID, name, err)
		}
		inst.Set(name, v)
	}
	return inst, nil
}

// checkScalar verifies v matches the declared scalar type. Null is allowed.
func checkScalar(field ir.Field, v ir.IRValue) error {
	var ok bool
	switch v.(type) {
	case ir.IRNull:
		return nil
	case ir.IRString:
		ok = field.ScalarType == ir.TypeString
	case ir.IRInt:
		ok = field.ScalarType == ir.TypeInt
	case ir.IRBool:
		ok = field.ScalarType == ir.TypeBool
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", field.ScalarType, v)
	}
	return nil
}
