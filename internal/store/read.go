package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/mapql/internal/ir"
)

// Instances implements Supplier. Roots are yielded in first-save order.
//
// Each iteration reads a fresh snapshot. Instances reached through refs and
// map entries are loaded with the root, and the same entity reached twice
// within one iteration is the same *ir.Instance.
func (s *Store) Instances(ctx context.Context, typeName string) iter.Seq2[*ir.Instance, error] {
	return func(yield func(*ir.Instance, error) bool) {
		// Keys are read up front: the single connection cannot serve the
		// nested loads while a result set is open.
		keys, err := s.entityKeys(ctx, typeName)
		if err != nil {
			yield(nil, err)
			return
		}

		l := s.newLoader(ctx)
		for _, k := range keys {
			inst, err := l.load(k)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(inst, nil) {
				return
			}
		}
	}
}

// Find loads the instance of typeName with the given id.
// Returns ErrNotFound if it does not exist.
func (s *Store) Find(ctx context.Context, typeName string, id ir.IRValue) (*ir.Instance, error) {
	inst, err := s.newLoader(ctx).load(ir.InstanceKey(typeName, id))
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// Count returns the number of stored instances of typeName.
func (s *Store) Count(ctx context.Context, typeName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entities WHERE entity_type = ?
	`, typeName).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", typeName, err)
	}
	return n, nil
}

// TypeCount is the number of stored instances of one entity type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Stats returns instance counts per entity type, ordered by type name.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) Stats(ctx context.Context) ([]TypeCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, COUNT(*)
		FROM entities
		GROUP BY entity_type
		ORDER BY entity_type COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := []TypeCount{}
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// entityKeys returns the keys of all instances of typeName in seq order.
func (s *Store) entityKeys(ctx context.Context, typeName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_key
		FROM entities
		WHERE entity_type = ?
		ORDER BY seq ASC, entity_key COLLATE BINARY ASC
	`, typeName)
	if err != nil {
		return nil, fmt.Errorf("query %s keys: %w", typeName, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", typeName, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s keys: %w", typeName, err)
	}
	return keys, nil
}

// loader rebuilds instance graphs with an identity cache so cycles terminate
// and shared entities stay shared.
type loader struct {
	ctx   context.Context
	s     *Store
	cache map[string]*ir.Instance
}

func (s *Store) newLoader(ctx context.Context) *loader {
	return &loader{ctx: ctx, s: s, cache: make(map[string]*ir.Instance)}
}

type mapRow struct {
	field    string
	keyKey   string
	valueKey sql.NullString
}

func (l *loader) load(key string) (*ir.Instance, error) {
	if inst, ok := l.cache[key]; ok {
		return inst, nil
	}

	var typeName, idJSON, scalarsJSON string
	err := l.s.db.QueryRowContext(l.ctx, `
		SELECT entity_type, id, scalars FROM entities WHERE entity_key = ?
	`, key).Scan(&typeName, &idJSON, &scalarsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read entity: %w", err)
	}

	t, ok := l.s.schema.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("read entity: type %q is not in the schema", typeName)
	}
	id, err := unmarshalID(idJSON)
	if err != nil {
		return nil, err
	}
	scalars, err := unmarshalScalars(scalarsJSON)
	if err != nil {
		return nil, err
	}

	inst := ir.NewInstance(t, id)
	for k, v := range scalars {
		inst.Scalars[k] = v
	}
	l.cache[key] = inst

	refs, err := l.readRefs(key)
	if err != nil {
		return nil, err
	}
	for field, target := range refs {
		ref, err := l.load(target)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typeName, field, err)
		}
		inst.Refs[field] = ref
	}

	entries, err := l.readMapEntries(key)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		k, err := l.load(e.keyKey)
		if err != nil {
			return nil, fmt.Errorf("%s.%s key: %w", typeName, e.field, err)
		}
		var v *ir.Instance
		if e.valueKey.Valid {
			v, err = l.load(e.valueKey.String)
			if err != nil {
				return nil, fmt.Errorf("%s.%s value: %w", typeName, e.field, err)
			}
		}
		inst.Map(e.field).Put(k, v)
	}

	return inst, nil
}

func (l *loader) readRefs(owner string) (map[string]string, error) {
	rows, err := l.s.db.QueryContext(l.ctx, `
		SELECT field, target_key FROM entity_refs WHERE owner_key = ?
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]string)
	for rows.Next() {
		var field, target string
		if err := rows.Scan(&field, &target); err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		refs[field] = target
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refs: %w", err)
	}
	return refs, nil
}

func (l *loader) readMapEntries(owner string) ([]mapRow, error) {
	rows, err := l.s.db.QueryContext(l.ctx, `
		SELECT field, key_key, value_key
		FROM map_entries
		WHERE owner_key = ?
		ORDER BY field COLLATE BINARY ASC, position ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("query map entries: %w", err)
	}
	defer rows.Close()

	var entries []mapRow
	for rows.Next() {
		var e mapRow
		if err := rows.Scan(&e.field, &e.keyKey, &e.valueKey); err != nil {
			return nil, fmt.Errorf("scan map entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate map entries: %w", err)
	}
	return entries, nil
}
