// Package eval evaluates a resolved AssociationPath against root instances.
//
// For each root instance the evaluator walks the map association named by
// the path and produces one Row per entry, shaped by the projection list:
//
//	KEY(x)    the key instance
//	VALUE(x)  the value instance (nil when absent)
//	x         bare navigation, same as VALUE(x)
//	ENTRY(x)  the (key, value) pair
//	TYPE(...) the EntityType descriptor of the key or value instance
//
// The map may be declared on the root or on an instance reached through its
// refs; a root whose ref chain is broken yields no rows. Paths without a map
// association yield one row per root instance. A comparison keeps only rows
// whose operand has the same kind as the bound value and compares true.
//
// Evaluation is synchronous and read-only. Unordered results stream lazily;
// an ORDER BY buffers every row and applies a stable ascending sort with
// nulls first. Both forms are restartable when the root sequence is.
package eval
