// Package store supplies entity instances to the evaluator.
//
// A Supplier returns the current instances of a root entity type as a lazy,
// restartable sequence. Two implementations are provided:
//   - MemorySupplier: an in-memory index, used by fixtures and tests
//   - Store: SQLite-backed persistence of entities, refs and map entries
//
// # Store Layout
//
//   - entities: one row per instance, keyed by ir.InstanceKey
//   - entity_refs: single-valued reference fields
//   - map_entries: map association entries, ordered by position
//
// # Critical Patterns
//
// Deterministic Reads
//   - Roots are returned in first-save order: ORDER BY seq ASC
//   - Map entries keep insertion order: ORDER BY position ASC
//
// Graph Writes
//   - Save writes every instance reachable from its arguments in one
//     transaction; foreign keys are deferred to commit so cyclic graphs
//     (Employee.phones <-> PhoneNumber.emps) can be written in any order
//
// Identity
//   - Instances loaded in one Instances sequence share pointers: the same
//     entity reached twice is the same *ir.Instance
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Scalars and ids are stored as RFC 8785 canonical JSON via internal/ir.
package store
