package schema

import (
	"errors"
	"slices"
	"strings"

	"github.com/roach88/mapql/internal/ir"
)

// Registry maps entity type names to their immutable descriptors.
//
// A Registry is safe for concurrent use: it is never mutated after NewRegistry
// returns.
type Registry struct {
	types map[string]*ir.EntityType
	names []string
}

// NewRegistry validates the given types and builds a registry.
// On validation failure the returned error joins every ValidationError found.
func NewRegistry(types ...*ir.EntityType) (*Registry, error) {
	if verrs := Validate(types); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}

	r := &Registry{
		types: make(map[string]*ir.EntityType, len(types)),
		names: make([]string, 0, len(types)),
	}
	for _, t := range types {
		r.types[t.Name] = t
		r.names = append(r.names, t.Name)
	}
	slices.Sort(r.names)

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
// Use only in tests or with schemas known to be valid.
func MustRegistry(types ...*ir.EntityType) *Registry {
	r, err := NewRegistry(types...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the entity type registered under name.
func (r *Registry) Lookup(name string) (*ir.EntityType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// LookupFold is like Lookup but matches names case-insensitively when there
// is no exact match. Query keywords are case-insensitive, entity names are
// not; the fold is used only to suggest a name in error messages.
func (r *Registry) LookupFold(name string) (*ir.EntityType, bool) {
	if t, ok := r.types[name]; ok {
		return t, true
	}
	for _, n := range r.names {
		if strings.EqualFold(n, name) {
			return r.types[n], true
		}
	}
	return nil, false
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Types returns the registered entity types sorted by name.
func (r *Registry) Types() []*ir.EntityType {
	out := make([]*ir.EntityType, len(r.names))
	for i, n := range r.names {
		out[i] = r.types[n]
	}
	return out
}
