// Package engine implements query submission for mapql.
//
// An Executor accepts a query string plus positional parameters and returns
// the evaluated rows, or a typed error:
//
//  1. Parse and resolve the query against the schema (queryir)
//  2. Bind positional parameters
//  3. Read root instances from the Supplier (store)
//  4. Evaluate the association path (eval), enforcing the row quota
//
// Every submission gets a query id from an IDGenerator (UUIDv7 in
// production, fixed ids in tests) that is attached to the result and to
// every log record.
//
// Resolution failures are returned before any instance is read. Supplier
// failures during evaluation are returned unchanged (wrapped with the query
// id) and no partial result is returned.
//
// The Executor holds no mutable state of its own; concurrent Submit calls
// are safe when the Supplier is.
package engine
