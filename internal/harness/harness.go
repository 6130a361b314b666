package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/mapql/internal/engine"
	"github.com/roach88/mapql/internal/ir"
	"github.com/roach88/mapql/internal/queryir"
	"github.com/roach88/mapql/internal/schema"
	"github.com/roach88/mapql/internal/store"
	"github.com/roach88/mapql/internal/testutil"
)

// Error kinds reported for failures that are not resolution errors.
const (
	KindSyntaxError  = "SyntaxError"
	KindRowsExceeded = "ROWS_EXCEEDED"
	KindError        = "Error"
)

// Harness is the test execution engine.
// It runs scenarios against a fresh store with a fixed query id.
type Harness struct {
	store    *store.Store
	executor *engine.Executor
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load the CUE schema into a registry
// 2. Build the fixture graph and save it to an in-memory store
// 3. Submit every query step through the executor and check expect clauses
// 4. Evaluate assertions against the recorded outcomes
//
// A returned error means the scenario could not be set up. Query failures,
// expected or not, are recorded in the Result.
func Run(scenario *Scenario) (*Result, error) {
	reg, err := schema.LoadRegistry(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	instances, err := scenarioInstances(scenario, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to build fixture: %w", err)
	}

	st, err := store.Open(":memory:", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Save(ctx, instances...); err != nil {
		return nil, fmt.Errorf("failed to save fixture: %w", err)
	}

	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	exec := engine.New(reg, st,
		engine.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.QueryID)),
		engine.WithLogger(logger),
	)

	h := &Harness{
		store:    st,
		executor: exec,
		logger:   logger,
	}

	result := NewResult()
	h.executeQueries(ctx, scenario.Queries, result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// scenarioInstances builds the fixture file's instances followed by the
// inline ones. Both share one id space so inline entries may reference
// instances from the file.
func scenarioInstances(scenario *Scenario, reg *schema.Registry) ([]*ir.Instance, error) {
	fixture := &Fixture{}
	if scenario.Fixture != "" {
		loaded, err := LoadFixture(scenario.Fixture)
		if err != nil {
			return nil, err
		}
		fixture.Instances = append(fixture.Instances, loaded.Instances...)
	}
	fixture.Instances = append(fixture.Instances, scenario.Instances...)
	return fixture.Build(reg)
}

// executeQueries submits every step and validates expect clauses.
func (h *Harness) executeQueries(ctx context.Context, steps []QueryStep, result *Result) {
	for i, step := range steps {
		outcome := QueryOutcome{
			Name:  step.Name,
			Query: step.Query,
		}

		res, err := h.executor.Submit(ctx, step.Query, step.Params...)
		if err != nil {
			outcome.Error = ErrorKind(err)
			outcome.Message = err.Error()
		} else {
			outcome.Columns = res.Columns
			outcome.rows = res.Rows
			outcome.Rows = res.IR()["rows"].(ir.IRArray)
		}

		if msg := checkExpect(step, &outcome); msg != "" {
			result.AddError(fmt.Sprintf("queries[%d] %s: %s", i, step.Name, msg))
		}

		h.logger.Info("query step completed",
			"step", i,
			"name", step.Name,
			"rows", len(outcome.Rows),
			"error", outcome.Error,
		)

		result.Outcomes = append(result.Outcomes, outcome)
	}
}

// checkExpect compares an outcome with the step's expect clause.
// Returns an empty string when they agree.
func checkExpect(step QueryStep, outcome *QueryOutcome) string {
	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	if expect.Error != "" {
		if !outcome.Failed() {
			return fmt.Sprintf("expected error %s, query succeeded with %d rows", expect.Error, len(outcome.Rows))
		}
		if outcome.Error != expect.Error {
			return fmt.Sprintf("expected error %s, got %s (%s)", expect.Error, outcome.Error, outcome.Message)
		}
		return ""
	}

	if outcome.Failed() {
		return fmt.Sprintf("unexpected error: %s", outcome.Message)
	}
	if expect.Rows != nil && len(outcome.Rows) != *expect.Rows {
		return fmt.Sprintf("expected %d rows, got %d", *expect.Rows, len(outcome.Rows))
	}
	if expect.Columns != nil && !slices.Equal(expect.Columns, outcome.Columns) {
		return fmt.Sprintf("expected columns %v, got %v", expect.Columns, outcome.Columns)
	}
	return ""
}

// ErrorKind classifies a submission error for scenarios and golden files:
// the resolution kind, "SyntaxError", the executor error code,
// "ROWS_EXCEEDED", or "Error" for anything else.
func ErrorKind(err error) string {
	var resErr *queryir.ResolutionError
	var synErr *queryir.SyntaxError
	var qErr *engine.QueryError

	switch {
	case errors.As(err, &resErr):
		return string(resErr.Kind)
	case errors.As(err, &synErr):
		return KindSyntaxError
	case errors.As(err, &qErr):
		return string(qErr.Code)
	case engine.IsRowsExceededError(err):
		return KindRowsExceeded
	default:
		return KindError
	}
}
