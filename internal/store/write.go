package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/mapql/internal/ir"
)

// Save writes instances and every instance reachable from them through ref
// and map fields.
//
// The whole graph is written in one transaction. Entities are upserted:
// scalars are replaced, the first-save seq is kept. Refs and map entries of
// each saved owner are rewritten so the stored rows mirror the in-memory
// instance exactly.
func (s *Store) Save(ctx context.Context, instances ...*ir.Instance) error {
	graph := reachable(instances)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, inst := range graph {
		if err := writeEntity(ctx, tx, inst); err != nil {
			return fmt.Errorf("save %s: %w", inst.Type.Name, err)
		}
	}
	for _, inst := range graph {
		if err := writeAssociations(ctx, tx, inst); err != nil {
			return fmt.Errorf("save %s: %w", inst.Type.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: commit: %w", err)
	}
	return nil
}

// reachable returns the instances reachable from roots, each once, in
// breadth-first discovery order.
func reachable(roots []*ir.Instance) []*ir.Instance {
	seen := make(map[string]bool)
	var out []*ir.Instance

	queue := make([]*ir.Instance, 0, len(roots))
	visit := func(inst *ir.Instance) {
		if inst == nil || inst.Type == nil {
			return
		}
		k := inst.Key()
		if seen[k] {
			return
		}
		seen[k] = true
		queue = append(queue, inst)
	}

	for _, r := range roots {
		visit(r)
	}
	for len(queue) > 0 {
		inst := queue[0]
		queue = queue[1:]
		out = append(out, inst)

		for _, f := range inst.Type.Fields {
			switch f.Kind {
			case ir.FieldRef:
				visit(inst.Refs[f.Name])
			case ir.FieldMap:
				for e := range inst.Maps[f.Name].All() {
					visit(e.Key)
					visit(e.Value)
				}
			}
		}
	}
	return out
}

func writeEntity(ctx context.Context, tx *sql.Tx, inst *ir.Instance) error {
	idJSON, err := marshalID(inst.ID)
	if err != nil {
		return err
	}
	scalarsJSON, err := marshalScalars(inst.Scalars)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (entity_key, entity_type, id, scalars, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entities))
		ON CONFLICT(entity_key) DO UPDATE SET scalars = excluded.scalars
	`,
		inst.Key(),
		inst.Type.Name,
		idJSON,
		scalarsJSON,
	)
	if err != nil {
		return fmt.Errorf("write entity: %w", err)
	}
	return nil
}

func writeAssociations(ctx context.Context, tx *sql.Tx, inst *ir.Instance) error {
	owner := inst.Key()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_refs WHERE owner_key = ?`, owner); err != nil {
		return fmt.Errorf("clear refs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM map_entries WHERE owner_key = ?`, owner); err != nil {
		return fmt.Errorf("clear map entries: %w", err)
	}

	for _, f := range inst.Type.Fields {
		switch f.Kind {
		case ir.FieldRef:
			target := inst.Refs[f.Name]
			if target == nil {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO entity_refs (owner_key, field, target_key)
				VALUES (?, ?, ?)
			`, owner, f.Name, target.Key())
			if err != nil {
				return fmt.Errorf("write ref %s: %w", f.Name, err)
			}

		case ir.FieldMap:
			pos := 0
			for e := range inst.Maps[f.Name].All() {
				var valueKey sql.NullString
				if e.Value != nil {
					valueKey = sql.NullString{String: e.Value.Key(), Valid: true}
				}
				_, err := tx.ExecContext(ctx, `
					INSERT INTO map_entries (owner_key, field, position, key_key, value_key)
					VALUES (?, ?, ?, ?, ?)
				`, owner, f.Name, pos, e.Key.Key(), valueKey)
				if err != nil {
					return fmt.Errorf("write map entry %s[%d]: %w", f.Name, pos, err)
				}
				pos++
			}
		}
	}
	return nil
}
