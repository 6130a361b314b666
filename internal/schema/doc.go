// Package schema compiles entity definitions into an immutable registry.
//
// Entity types are declared in CUE under the top-level "entity" struct:
//
//	entity: Division: {
//		id: "id"
//		fields: { id: int, name: string }
//	}
//
//	entity: PhoneNumber: {
//		id: "number"
//		fields: { number: int }
//		maps: emps: { key: "Division", value: "Employee" }
//	}
//
// Scalar field types come from the CUE kind (string, int, bool). Floats are
// rejected. Every map field declares exactly one key entity type and one value
// entity type; refs declare a single target entity type.
//
// The Registry is built once at startup and never mutated. It replaces runtime
// reflection: query resolution looks up field descriptors by name here.
package schema
