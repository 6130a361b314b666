package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mapql/internal/ir"
)

// Snapshot captures every query outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Outcomes     []QueryOutcome `json:"outcomes"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// Error messages are left out: the error kind is the stable part.
func (s *Snapshot) toCanonicalMap() map[string]any {
	outcomes := make([]any, len(s.Outcomes))
	for i, o := range s.Outcomes {
		m := map[string]any{
			"name":  o.Name,
			"query": o.Query,
		}
		if o.Failed() {
			m["error"] = o.Error
		} else {
			cols := make([]any, len(o.Columns))
			for j, c := range o.Columns {
				cols[j] = c
			}
			m["columns"] = cols
			rows := o.Rows
			if rows == nil {
				rows = ir.IRArray{}
			}
			m["rows"] = rows
		}
		outcomes[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"outcomes":      outcomes,
	}
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Outcomes:     result.Outcomes,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its outcomes against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcomes don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's outcomes against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
