package store

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/roach88/mapql/internal/ir"
)

// ErrNotFound is returned by Find when no instance has the requested id.
var ErrNotFound = errors.New("instance not found")

// Supplier returns the current instances of an entity type.
//
// The sequence must be restartable and yield instances in a deterministic
// order. An error ends the sequence.
type Supplier interface {
	Instances(ctx context.Context, typeName string) iter.Seq2[*ir.Instance, error]
}

// Schema resolves entity type names to descriptors.
// *schema.Registry implements it.
type Schema interface {
	Lookup(name string) (*ir.EntityType, bool)
}

// MemorySupplier is an in-memory Supplier.
//
// Instances are grouped by type in insertion order. Adding an instance whose
// identity is already present replaces it in place.
//
// Thread-safety: All methods are safe for concurrent use.
type MemorySupplier struct {
	mu     sync.RWMutex
	byType map[string][]*ir.Instance
	index  map[string]int // instance key -> position within its type
}

// NewMemorySupplier creates a supplier holding the given instances.
func NewMemorySupplier(instances ...*ir.Instance) *MemorySupplier {
	m := &MemorySupplier{
		byType: make(map[string][]*ir.Instance),
		index:  make(map[string]int),
	}
	m.Add(instances...)
	return m
}

// Add registers instances. Nil instances are ignored.
func (m *MemorySupplier) Add(instances ...*ir.Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inst := range instances {
		if inst == nil || inst.Type == nil {
			continue
		}
		name := inst.Type.Name
		key := inst.Key()
		if pos, ok := m.index[key]; ok {
			m.byType[name][pos] = inst
			continue
		}
		m.index[key] = len(m.byType[name])
		m.byType[name] = append(m.byType[name], inst)
	}
}

// Len returns the number of instances of typeName.
func (m *MemorySupplier) Len(typeName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byType[typeName])
}

// Find returns the instance of typeName with the given id.
func (m *MemorySupplier) Find(typeName string, id ir.IRValue) (*ir.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.index[ir.InstanceKey(typeName, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.byType[typeName][pos], nil
}

// Instances implements Supplier. Each iteration reads a snapshot taken when
// the iteration starts; instances added later are seen by the next iteration.
func (m *MemorySupplier) Instances(ctx context.Context, typeName string) iter.Seq2[*ir.Instance, error] {
	return func(yield func(*ir.Instance, error) bool) {
		m.mu.RLock()
		snapshot := append([]*ir.Instance(nil), m.byType[typeName]...)
		m.mu.RUnlock()

		for _, inst := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(inst, nil) {
				return
			}
		}
	}
}
