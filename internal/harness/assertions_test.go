package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ehrstore/internal/engine"
	"github.com/roach88/ehrstore/internal/store"
	"github.com/roach88/ehrstore/internal/testutil"
)

func sampleRun() *RunRecord {
	return &RunRecord{
		Query:   "blood_pressure::1.0.0",
		Columns: []string{"systolic", "diastolic"},
		Rows: [][]any{
			{json.Number("120"), json.Number("80")},
			{json.Number("135.5"), nil},
		},
	}
}

func TestAssertRowCount(t *testing.T) {
	run := sampleRun()

	assert.NoError(t, assertRowCount(run, Assertion{Type: AssertRowCount, Count: 2}))

	err := assertRowCount(run, Assertion{Type: AssertRowCount, Count: 3})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, AssertRowCount, assertErr.Type)
	assert.Equal(t, "3 rows", assertErr.Expected)
	assert.Equal(t, "2 rows", assertErr.Actual)
}

func TestAssertRowsEqual(t *testing.T) {
	run := sampleRun()

	t.Run("match with YAML numbers", func(t *testing.T) {
		err := assertRowsEqual(run, Assertion{
			Type: AssertRowsEqual,
			Rows: [][]any{{120, 80}, {135.5, nil}},
		})
		assert.NoError(t, err)
	})

	t.Run("order matters", func(t *testing.T) {
		err := assertRowsEqual(run, Assertion{
			Type: AssertRowsEqual,
			Rows: [][]any{{135.5, nil}, {120, 80}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mismatch (-want +got)")
	})

	t.Run("string does not match number", func(t *testing.T) {
		err := assertRowsEqual(run, Assertion{
			Type: AssertRowsEqual,
			Rows: [][]any{{"120", "80"}, {135.5, nil}},
		})
		assert.Error(t, err)
	})
}

func TestAssertContainsRow(t *testing.T) {
	run := sampleRun()

	assert.NoError(t, assertContainsRow(run, Assertion{Type: AssertContainsRow, Row: []any{135.5, nil}}))

	err := assertContainsRow(run, Assertion{Type: AssertContainsRow, Row: []any{120, 81}})
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, "not found in result", assertErr.Actual)
}

func TestAssertColumns(t *testing.T) {
	run := sampleRun()

	assert.NoError(t, assertColumns(run, Assertion{Type: AssertColumns, Columns: []string{"systolic", "diastolic"}}))
	assert.Error(t, assertColumns(run, Assertion{Type: AssertColumns, Columns: []string{"diastolic", "systolic"}}))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRowCount,
		Expected: "1 rows",
		Actual:   "2 rows",
		Run:      sampleRun(),
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: row_count")
	assert.Contains(t, msg, "Expected: 1 rows")
	assert.Contains(t, msg, "Actual: 2 rows")
	assert.Contains(t, msg, "Run blood_pressure::1.0.0")
	assert.Contains(t, msg, "[1] [120 80]")
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"json integer", json.Number("42"), int64(42)},
		{"json decimal", json.Number("4.5"), 4.5},
		{"json integral exponent", json.Number("1e2"), int64(100)},
		{"yaml int", 42, int64(42)},
		{"yaml float", 4.5, 4.5},
		{"integral float", 42.0, int64(42)},
		{"string", "42", "42"},
		{"bool", true, true},
		{"nil", nil, nil},
		{"nested", map[string]any{"a": []any{json.Number("1"), 2}}, map[string]any{"a": []any{int64(1), int64(2)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeValue(tt.in))
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.AddRun(*sampleRun())

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertRowCount, Run: 0, Count: 2},
		{Type: AssertRowCount, Run: 0, Count: 5},
		{Type: AssertColumns, Run: 3, Columns: []string{"x"}},
		{Type: "bogus", Run: 0},
		{Type: AssertCompositionCount, EHR: "e", Count: 0},
	}, nil)

	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "Assertion failed: row_count")
	assert.Contains(t, errs[1], "run 3 out of range")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
	assert.Contains(t, errs[3], "requires engine context")
}

func TestAssertCompositionCount(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	eng := engine.New(st, engine.WithRecordIDs(testutil.NewSequenceGenerator("")))
	_, err = eng.CreateEHR(ctx, testEHR)
	require.NoError(t, err)
	_, err = eng.Commit(ctx, testEHR, testutil.BloodPressureDocument(120, 80))
	require.NoError(t, err)
	_, err = eng.Commit(ctx, testEHR, testutil.BloodPressureDocument(130, 85))
	require.NoError(t, err)

	assert.NoError(t, assertCompositionCount(ctx, eng, Assertion{EHR: testEHR, Count: 2}))

	err = assertCompositionCount(ctx, eng, Assertion{EHR: testEHR, Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 compositions in EHR")
}
