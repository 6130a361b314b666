package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/mapql/internal/eval"
	"github.com/roach88/mapql/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Query    string        // Query step name
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Outcome  *QueryOutcome // Outcome for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (query %s)\n", e.Type, e.Query)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Outcome != nil {
		fmt.Fprintf(&buf, "\nQuery: %s\n", e.Outcome.Query)
		if e.Outcome.Failed() {
			fmt.Fprintf(&buf, "  error: %s\n", e.Outcome.Message)
		}
		for i, row := range e.Outcome.rows {
			fmt.Fprintf(&buf, "  [%d] %v\n", i+1, rowValues(row))
		}
	}

	return buf.String()
}

func assertRowCount(o *QueryOutcome, assertion Assertion) error {
	if o.Failed() || len(o.rows) != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Query:    assertion.Query,
			Expected: fmt.Sprintf("%d rows", assertion.Count),
			Actual:   describeOutcome(o),
			Outcome:  o,
		}
	}
	return nil
}

// assertColumnValues checks the column holds exactly the expected values,
// in row order.
func assertColumnValues(o *QueryOutcome, assertion Assertion) error {
	col, err := columnIndex(o, assertion)
	if err != nil {
		return err
	}

	expected := make([]ir.IRValue, len(assertion.Values))
	for i, v := range assertion.Values {
		irv, err := ir.FromAny(v)
		if err != nil {
			return fmt.Errorf("assertion on %s: values[%d]: %w", assertion.Query, i, err)
		}
		expected[i] = irv
	}

	actual := make([]ir.IRValue, len(o.rows))
	for i, row := range o.rows {
		actual[i] = cellValue(row[col])
	}

	if len(actual) != len(expected) {
		return &AssertionError{
			Type:     AssertColumnValues,
			Query:    assertion.Query,
			Expected: fmt.Sprintf("%d values in %s: %v", len(expected), assertion.Column, formatValues(expected)),
			Actual:   fmt.Sprintf("%d values: %v", len(actual), formatValues(actual)),
			Outcome:  o,
		}
	}
	for i := range actual {
		if !ir.Equal(actual[i], expected[i]) {
			return &AssertionError{
				Type:     AssertColumnValues,
				Query:    assertion.Query,
				Expected: fmt.Sprintf("row %d %s = %v", i+1, assertion.Column, formatValue(expected[i])),
				Actual:   fmt.Sprintf("row %d %s = %v", i+1, assertion.Column, formatValue(actual[i])),
				Outcome:  o,
			}
		}
	}
	return nil
}

// assertSorted checks the column is non-decreasing. Nulls sort first.
func assertSorted(o *QueryOutcome, assertion Assertion) error {
	col, err := columnIndex(o, assertion)
	if err != nil {
		return err
	}

	for i := 1; i < len(o.rows); i++ {
		prev := cellValue(o.rows[i-1][col])
		curr := cellValue(o.rows[i][col])
		if ir.Compare(prev, curr) > 0 {
			return &AssertionError{
				Type:     AssertSorted,
				Query:    assertion.Query,
				Expected: fmt.Sprintf("%s ascending", assertion.Column),
				Actual: fmt.Sprintf("row %d (%v) > row %d (%v)",
					i, formatValue(prev), i+1, formatValue(curr)),
				Outcome: o,
			}
		}
	}
	return nil
}

func assertErrorKind(o *QueryOutcome, assertion Assertion) error {
	if o.Error != assertion.Kind {
		return &AssertionError{
			Type:     AssertErrorKind,
			Query:    assertion.Query,
			Expected: fmt.Sprintf("error %s", assertion.Kind),
			Actual:   describeOutcome(o),
			Outcome:  o,
		}
	}
	return nil
}

// assertEntryMatches checks that in every row the ENTRY column's key and
// value are the instances in the KEY and VALUE columns.
func assertEntryMatches(o *QueryOutcome, assertion Assertion) error {
	if o.Failed() {
		return &AssertionError{
			Type:     AssertEntryMatches,
			Query:    assertion.Query,
			Expected: "successful query",
			Actual:   describeOutcome(o),
			Outcome:  o,
		}
	}

	entryCol, keyCol, valueCol := o.column(assertion.Column), o.column(assertion.KeyColumn), o.column(assertion.ValueColumn)
	for _, c := range []struct {
		label string
		idx   int
	}{
		{assertion.Column, entryCol},
		{assertion.KeyColumn, keyCol},
		{assertion.ValueColumn, valueCol},
	} {
		if c.idx < 0 {
			return fmt.Errorf("assertion on %s: unknown column %q (columns %v)", assertion.Query, c.label, o.Columns)
		}
	}

	for i, row := range o.rows {
		entry := row[entryCol]
		if entry.Kind != eval.CellEntry {
			return fmt.Errorf("assertion on %s: column %q is not an entry", assertion.Query, assertion.Column)
		}
		if !sameInstance(entry.Entry.Key, row[keyCol].Instance) || !sameInstance(entry.Entry.Value, row[valueCol].Instance) {
			return &AssertionError{
				Type:     AssertEntryMatches,
				Query:    assertion.Query,
				Expected: fmt.Sprintf("row %d entry %v", i+1, formatValue(cellValue(entry))),
				Actual: fmt.Sprintf("row %d key %v, value %v", i+1,
					formatValue(cellValue(row[keyCol])), formatValue(cellValue(row[valueCol]))),
				Outcome: o,
			}
		}
	}
	return nil
}

func columnIndex(o *QueryOutcome, assertion Assertion) (int, error) {
	if o.Failed() {
		return 0, &AssertionError{
			Type:     assertion.Type,
			Query:    assertion.Query,
			Expected: "successful query",
			Actual:   describeOutcome(o),
			Outcome:  o,
		}
	}
	col := o.column(assertion.Column)
	if col < 0 {
		return 0, fmt.Errorf("assertion on %s: unknown column %q (columns %v)", assertion.Query, assertion.Column, o.Columns)
	}
	return col, nil
}

// cellValue reduces a cell to a comparable IR value: instances by id,
// descriptors by name, entries as [key id, value id].
func cellValue(c eval.Cell) ir.IRValue {
	switch c.Kind {
	case eval.CellInstance:
		return instanceID(c.Instance)
	case eval.CellScalar:
		if c.Scalar == nil {
			return ir.IRNull{}
		}
		return c.Scalar
	case eval.CellEntry:
		return ir.IRArray{instanceID(c.Entry.Key), instanceID(c.Entry.Value)}
	case eval.CellType:
		if c.Type == nil {
			return ir.IRNull{}
		}
		return ir.IRString(c.Type.Name)
	default:
		return ir.IRNull{}
	}
}

func instanceID(inst *ir.Instance) ir.IRValue {
	if inst == nil {
		return ir.IRNull{}
	}
	return inst.ID
}

func sameInstance(a, b *ir.Instance) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

func rowValues(row eval.Row) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = formatValue(cellValue(c))
	}
	return out
}

func formatValue(v ir.IRValue) any {
	return ir.ToAny(v)
}

func formatValues(vs []ir.IRValue) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = formatValue(v)
	}
	return out
}

func describeOutcome(o *QueryOutcome) string {
	if o.Failed() {
		return fmt.Sprintf("error %s: %s", o.Error, o.Message)
	}
	return fmt.Sprintf("%d rows", len(o.rows))
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		outcome, ok := result.Outcome(assertion.Query)
		if !ok {
			errors = append(errors, fmt.Sprintf("assertion[%d]: unknown query %q", i, assertion.Query))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(outcome, assertion)
		case AssertColumnValues:
			err = assertColumnValues(outcome, assertion)
		case AssertSorted:
			err = assertSorted(outcome, assertion)
		case AssertErrorKind:
			err = assertErrorKind(outcome, assertion)
		case AssertEntryMatches:
			err = assertEntryMatches(outcome, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
