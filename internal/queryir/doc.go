// Package queryir provides the query intermediate representation for
// map-association queries, the parser that produces it, and the resolver that
// validates it against a schema registry.
//
// ARCHITECTURE:
//
//	[query text] → Parse → [Select IR] → Resolve → [AssociationPath] → eval
//
// SUPPORTED SUBSET:
//
// The resolver handles the map-navigation-and-projection subset only:
//
//	SELECT proj {, proj}
//	FROM <Entity> <alias> [, IN(<alias>[.<ref>...].<mapField>) <var>]
//	[WHERE VALUE(<var>) IS [NOT] NULL | <alias-or-var>.<field>... <op> (?N | literal)]
//	[ORDER BY <alias-or-var>.<field> [ASC]]
//
//	proj := <alias>[.<field>...] | <var>[.<field>...]
//	      | KEY(<var>)[.<field>...] | VALUE(<var>)[.<field>...] | ENTRY(<var>)
//	      | TYPE(KEY(<var>)) | TYPE(VALUE(<var>))
//
// Comparisons on KEY(x), VALUE(x), ENTRY(x) or TYPE(...) parse, so the
// rejection is reported with the same typed error as every other resolution
// failure: they are never supported, with or without a bound parameter.
// VALUE(x) IS NULL and IS NOT NULL are supported, and so are comparisons of
// a scalar field reached from the root alias or the variable.
//
// SEALED INTERFACES:
//
// Projection and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package implement them, which keeps the
// resolver's type switches exhaustive.
package queryir
