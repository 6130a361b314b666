package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query conformance scenario.
// A scenario loads a schema and an object graph, submits queries and checks
// their outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the directory holding the CUE entity schema.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// Fixture is an optional path to a fixture YAML file.
	// Relative paths are resolved against the scenario file location.
	Fixture string `yaml:"fixture,omitempty"`

	// Instances is an inline fixture, appended after Fixture's instances.
	Instances []InstanceSpec `yaml:"instances,omitempty"`

	// Queries are submitted in order against the loaded graph.
	Queries []QueryStep `yaml:"queries"`

	// Assertions validate query outcomes.
	// Supported types: row_count, column_values, sorted, error_kind, entry_matches
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// QueryID is an optional fixed query id for deterministic tests.
	// If empty, defaults to "test-query-default".
	QueryID string `yaml:"query_id,omitempty"`
}

// QueryStep is one query submission.
type QueryStep struct {
	// Name identifies the step for assertions and golden snapshots.
	Name string `yaml:"name"`

	// Query is the query text.
	Query string `yaml:"query"`

	// Params are bound positionally: ?1 is Params[0].
	Params []any `yaml:"params,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the query is expected to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a query step.
type ExpectClause struct {
	// Error is the expected error kind (e.g. "UnsupportedPredicate",
	// "SyntaxError", "MISSING_PARAMETER"). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Rows is the expected number of rows. Checked only on success.
	Rows *int `yaml:"rows,omitempty"`

	// Columns are the expected column labels. Checked only on success.
	Columns []string `yaml:"columns,omitempty"`
}

// Assertion validates the outcome of a named query step.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": the query returned exactly Count rows
	// - "column_values": Column holds Values, in row order
	// - "sorted": Column is non-decreasing
	// - "error_kind": the query failed with Kind
	// - "entry_matches": Column (an ENTRY) agrees with KeyColumn and ValueColumn
	Type string `yaml:"type"`

	// Query names the query step the assertion applies to.
	Query string `yaml:"query"`

	// Count is the expected row count (used by row_count).
	Count int `yaml:"count,omitempty"`

	// Column is a column label (used by column_values, sorted, entry_matches).
	Column string `yaml:"column,omitempty"`

	// Values are the expected column values (used by column_values).
	// Instances compare by id, types by entity name, entries as [key id, value id].
	Values []any `yaml:"values,omitempty"`

	// Kind is the expected error kind (used by error_kind).
	Kind string `yaml:"kind,omitempty"`

	// KeyColumn and ValueColumn label the KEY and VALUE columns (used by entry_matches).
	KeyColumn   string `yaml:"key_column,omitempty"`
	ValueColumn string `yaml:"value_column,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount     = "row_count"
	AssertColumnValues = "column_values"
	AssertSorted       = "sorted"
	AssertErrorKind    = "error_kind"
	AssertEntryMatches = "entry_matches"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Relative schema and fixture paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema and fixture paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	return loadScenario(path, basePath, "")
}

// LoadScenarioWithSchema reads a scenario file that may omit its schema;
// schemaDir is used in that case. Paths in the file resolve against the
// file's directory.
func LoadScenarioWithSchema(path, schemaDir string) (*Scenario, error) {
	return loadScenario(path, filepath.Dir(path), schemaDir)
}

func loadScenario(path, basePath, defaultSchema string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation
	scenario.Schema = resolvePath(basePath, scenario.Schema)
	if scenario.Schema == "" {
		scenario.Schema = defaultSchema
	}
	scenario.Fixture = resolvePath(basePath, scenario.Fixture)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}

	if s.Fixture != "" {
		if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
			return fmt.Errorf("fixture file not found: %s", s.Fixture)
		}
	}

	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true
		if q.Query == "" {
			return fmt.Errorf("queries[%d]: query is required", i)
		}
		if q.Expect != nil && q.Expect.Rows != nil && *q.Expect.Rows < 0 {
			return fmt.Errorf("queries[%d].expect: rows must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, names); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, queries map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Query == "" {
		return fmt.Errorf("assertions[%d]: query is required", index)
	}
	if !queries[a.Query] {
		return fmt.Errorf("assertions[%d]: unknown query %q", index, a.Query)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertColumnValues:
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for column_values", index)
		}
		if a.Values == nil {
			return fmt.Errorf("assertions[%d]: values is required for column_values", index)
		}
	case AssertSorted:
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for sorted", index)
		}
	case AssertErrorKind:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for error_kind", index)
		}
	case AssertEntryMatches:
		if a.Column == "" || a.KeyColumn == "" || a.ValueColumn == "" {
			return fmt.Errorf("assertions[%d]: column, key_column and value_column are required for entry_matches", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
