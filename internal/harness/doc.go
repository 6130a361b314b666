// Package harness provides conformance testing for map-association queries.
//
// The harness loads a CUE entity schema and a fixture object graph, submits
// queries through the engine and checks their outcomes.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../schema/many2many          # CUE schema directory
//	fixture: ../fixtures/many2many.yaml  # optional fixture file
//	instances:                           # optional inline fixture
//	  - { type: Division, id: 1, fields: { name: d1 } }
//	queries:
//	  - name: keys
//	    query: "SELECT KEY(x) FROM PhoneNumber p, IN(p.emps) x"
//	    expect:
//	      rows: 4
//	  - name: key_equality
//	    query: "SELECT p FROM PhoneNumber p, IN(p.emps) x WHERE KEY(x) = ?1"
//	    params: [1]
//	    expect:
//	      error: UnsupportedPredicate
//	assertions:
//	  - type: column_values
//	    query: keys
//	    column: "KEY(x)"
//	    values: [1, 3, 5, 7]
//
// # Assertion Types
//
//   - row_count: the query returned exactly N rows
//   - column_values: a column holds the given values in row order
//   - sorted: a column is non-decreasing
//   - error_kind: the query failed with the given kind
//   - entry_matches: an ENTRY column agrees with KEY and VALUE columns
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with a fixed
// query id, so golden snapshots are byte-identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/many2many_projections.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
