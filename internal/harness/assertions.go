package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/ehrstore/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Run      *RunRecord // Run under test, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Run != nil {
		fmt.Fprintf(&buf, "\nRun %s (columns %v):\n", e.Run.Query, e.Run.Columns)
		for i, row := range e.Run.Rows {
			fmt.Fprintf(&buf, "  [%d] %v\n", i+1, row)
		}
	}

	return buf.String()
}

// assertRowCount checks that a run returned exactly assertion.Count rows.
func assertRowCount(run *RunRecord, assertion Assertion) error {
	if len(run.Rows) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows", assertion.Count),
		Actual:   fmt.Sprintf("%d rows", len(run.Rows)),
		Run:      run,
	}
}

// assertRowsEqual checks that a run returned exactly the expected rows, in order.
func assertRowsEqual(run *RunRecord, assertion Assertion) error {
	want := normalizeRows(assertion.Rows)
	got := normalizeRows(run.Rows)
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertRowsEqual,
			Expected: fmt.Sprintf("rows %v", assertion.Rows),
			Actual:   fmt.Sprintf("mismatch (-want +got):\n%s", diff),
			Run:      run,
		}
	}
	return nil
}

// assertContainsRow checks that a run returned the expected row anywhere.
func assertContainsRow(run *RunRecord, assertion Assertion) error {
	want := normalizeValue(assertion.Row)
	for _, row := range run.Rows {
		if cmp.Equal(want, normalizeValue(row)) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertContainsRow,
		Expected: fmt.Sprintf("row %v", assertion.Row),
		Actual:   "not found in result",
		Run:      run,
	}
}

// assertColumns checks the projected column names and their order.
func assertColumns(run *RunRecord, assertion Assertion) error {
	if cmp.Equal(assertion.Columns, run.Columns) {
		return nil
	}
	return &AssertionError{
		Type:     AssertColumns,
		Expected: fmt.Sprintf("columns %v", assertion.Columns),
		Actual:   fmt.Sprintf("columns %v", run.Columns),
		Run:      run,
	}
}

// assertCompositionCount checks how many latest compositions an EHR holds.
func assertCompositionCount(ctx context.Context, eng *engine.Engine, assertion Assertion) error {
	comps, err := eng.List(ctx, assertion.EHR)
	if err != nil {
		return fmt.Errorf("composition_count: failed to list EHR %s: %w", assertion.EHR, err)
	}
	if len(comps) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCompositionCount,
		Expected: fmt.Sprintf("%d compositions in EHR %s", assertion.Count, assertion.EHR),
		Actual:   fmt.Sprintf("%d compositions", len(comps)),
	}
}

// normalizeRows applies normalizeValue to every cell.
func normalizeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = normalizeValue(row).([]any)
	}
	return out
}

// normalizeValue maps YAML-decoded and JSON-decoded values onto one
// representation: integral numbers become int64, other numbers float64.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return string(val)
	case int:
		return int64(val)
	case int64:
		return val
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return float64(val)
	case float64:
		return normalizeFloat(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeValue(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeValue(elem)
		}
		return out
	default:
		return v
	}
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides engine access for composition_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		var run *RunRecord
		if assertion.Type != AssertCompositionCount {
			if assertion.Run < 0 || assertion.Run >= len(result.Runs) {
				errs = append(errs, fmt.Sprintf("assertion[%d]: run %d out of range", i, assertion.Run))
				continue
			}
			run = &result.Runs[assertion.Run]
		}

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(run, assertion)
		case AssertRowsEqual:
			err = assertRowsEqual(run, assertion)
		case AssertContainsRow:
			err = assertContainsRow(run, assertion)
		case AssertColumns:
			err = assertColumns(run, assertion)
		case AssertCompositionCount:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: composition_count requires engine context", i)
			} else {
				err = assertCompositionCount(actx.Ctx, actx.Engine, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
