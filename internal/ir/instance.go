package ir

import "iter"

// Instance is a runtime object conforming to an EntityType.
//
// Instances are created by the caller (fixtures, the store) and handed to the
// evaluator by reference. The evaluator never mutates them.
type Instance struct {
	Type    *EntityType
	ID      IRValue
	Scalars IRObject
	Refs    map[string]*Instance
	Maps    map[string]*MapValue
}

// NewInstance creates an instance of t whose id field holds id.
// The id is also stored as a scalar so it can be projected and ordered on.
func NewInstance(t *EntityType, id IRValue) *Instance {
	inst := &Instance{
		Type:    t,
		ID:      id,
		Scalars: IRObject{},
		Refs:    map[string]*Instance{},
		Maps:    map[string]*MapValue{},
	}
	if t != nil && t.IDField != "" {
		inst.Scalars[t.IDField] = id
	}
	return inst
}

// Key returns the identity of the instance.
func (i *Instance) Key() string {
	return InstanceKey(i.Type.Name, i.ID)
}

// Set assigns a scalar field. Returns the instance for chaining.
func (i *Instance) Set(field string, v IRValue) *Instance {
	i.Scalars[field] = v
	return i
}

// Get returns a scalar field value, IRNull when unset.
func (i *Instance) Get(field string) IRValue {
	if v, ok := i.Scalars[field]; ok {
		return v
	}
	return IRNull{}
}

// Map returns the map association for field, creating it on first use.
func (i *Instance) Map(field string) *MapValue {
	m, ok := i.Maps[field]
	if !ok {
		m = &MapValue{index: map[string]int{}}
		i.Maps[field] = m
	}
	return m
}

// Entry is one key/value pair of a map association.
// Value is nil when the value side of the entry is absent.
type Entry struct {
	Key   *Instance
	Value *Instance
}

// MapValue is an insertion-ordered map from key instance to value instance.
// Keys are unique by identity (type name + id).
type MapValue struct {
	entries []Entry
	index   map[string]int
}

// Put adds or replaces the entry for key. Replacing keeps the original
// position so iteration order stays stable.
func (m *MapValue) Put(key, value *Instance) {
	if m.index == nil {
		m.index = map[string]int{}
	}
	k := key.Key()
	if pos, ok := m.index[k]; ok {
		m.entries[pos].Value = value
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Get returns the value for key and whether the key is present.
func (m *MapValue) Get(key *Instance) (*Instance, bool) {
	if m == nil {
		return nil, false
	}
	pos, ok := m.index[key.Key()]
	if !ok {
		return nil, false
	}
	return m.entries[pos].Value, true
}

// Len returns the number of entries.
func (m *MapValue) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// All iterates entries in insertion order.
// The sequence is restartable; a nil MapValue yields nothing.
func (m *MapValue) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if m == nil {
			return
		}
		for _, e := range m.entries {
			if !yield(e) {
				return
			}
		}
	}
}
