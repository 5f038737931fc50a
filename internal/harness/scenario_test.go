package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createScenarioDir creates a queries directory with one placeholder CUE
// file and returns the scenario directory.
func createScenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	queriesDir := filepath.Join(dir, "queries")
	require.NoError(t, os.MkdirAll(queriesDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(queriesDir, "q.cue"), []byte("package queries\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.json"), []byte(`{}`), 0644))
	return dir
}

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := createScenarioDir(t)
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
queries: queries
records:
  - ehr: ehr-1
    compositions:
      - label: first
        file: doc.json
      - updates: first
        document: {archetype_node_id: x}
runs:
  - query: blood_pressure
    ehr: ehr-1
    limit: 5
  - query: broken
    expect:
      error: INVALID_PATH
assertions:
  - type: row_count
    run: 0
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(dir, "queries"), scenario.Queries)

	require.Len(t, scenario.Records, 1)
	comps := scenario.Records[0].Compositions
	require.Len(t, comps, 2)
	assert.Equal(t, filepath.Join(dir, "doc.json"), comps[0].File)
	assert.Equal(t, "first", comps[1].Updates)
	assert.Equal(t, "x", comps[1].Document["archetype_node_id"])

	require.Len(t, scenario.Runs, 2)
	assert.Equal(t, 5, scenario.Runs[0].Limit)
	require.NotNil(t, scenario.Runs[1].Expect)
	assert.Equal(t, "INVALID_PATH", scenario.Runs[1].Expect.Error)

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertRowCount, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	dir := createScenarioDir(t)
	path := writeScenario(t, dir, "name: [unclosed\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := createScenarioDir(t)
	path := writeScenario(t, dir, `
name: typo
description: "Misspelled field"
queries: queries
runs:
  - query: q
assertion:
  - type: row_count
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
queries: queries
runs: [{query: q}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
queries: queries
runs: [{query: q}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing queries",
			content: `
name: n
description: d
runs: [{query: q}]
`,
			wantErr: "queries directory is required",
		},
		{
			name: "queries directory not found",
			content: `
name: n
description: d
queries: elsewhere
runs: [{query: q}]
`,
			wantErr: "queries directory not found",
		},
		{
			name: "no runs",
			content: `
name: n
description: d
queries: queries
`,
			wantErr: "runs list is required",
		},
		{
			name: "run without query",
			content: `
name: n
description: d
queries: queries
runs: [{ehr: e}]
`,
			wantErr: "runs[0]: query is required",
		},
		{
			name: "negative limit",
			content: `
name: n
description: d
queries: queries
runs: [{query: q, limit: -1}]
`,
			wantErr: "limit and offset must be non-negative",
		},
		{
			name: "empty expect",
			content: `
name: n
description: d
queries: queries
runs: [{query: q, expect: {}}]
`,
			wantErr: "runs[0].expect: error is required",
		},
		{
			name: "record without ehr",
			content: `
name: n
description: d
queries: queries
records: [{compositions: [{file: doc.json}]}]
runs: [{query: q}]
`,
			wantErr: "records[0]: ehr is required",
		},
		{
			name: "composition without source",
			content: `
name: n
description: d
queries: queries
records: [{ehr: e, compositions: [{label: a}]}]
runs: [{query: q}]
`,
			wantErr: "file or document is required",
		},
		{
			name: "composition with both sources",
			content: `
name: n
description: d
queries: queries
records: [{ehr: e, compositions: [{file: doc.json, document: {a: 1}}]}]
runs: [{query: q}]
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "composition file not found",
			content: `
name: n
description: d
queries: queries
records: [{ehr: e, compositions: [{file: missing.json}]}]
runs: [{query: q}]
`,
			wantErr: "composition file not found",
		},
		{
			name: "duplicate label",
			content: `
name: n
description: d
queries: queries
records: [{ehr: e, compositions: [{label: a, file: doc.json}, {label: a, file: doc.json}]}]
runs: [{query: q}]
`,
			wantErr: `duplicate label "a"`,
		},
		{
			name: "update of unknown label",
			content: `
name: n
description: d
queries: queries
records: [{ehr: e, compositions: [{updates: a, file: doc.json}]}]
runs: [{query: q}]
`,
			wantErr: `updates unknown label "a"`,
		},
		{
			name: "assertion without type",
			content: `
name: n
description: d
queries: queries
runs: [{query: q}]
assertions: [{run: 0}]
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "assertion run out of range",
			content: `
name: n
description: d
queries: queries
runs: [{query: q}]
assertions: [{type: row_count, run: 1}]
`,
			wantErr: "run 1 out of range",
		},
		{
			name: "rows_equal without rows",
			content: `
name: n
description: d
queries: queries
runs: [{query: q}]
assertions: [{type: rows_equal}]
`,
			wantErr: "rows is required for rows_equal",
		},
		{
			name: "contains_row without row",
			content: `
name: n
description: d
queries: queries
runs: [{query: q}]
assertions: [{type: contains_row}]
`,
			wantErr: "row is required for contains_row",
		},
		{
			name: "columns without list",
			content: `
name: n
description: d
queries: queries
runs: [{query: q}]
assertions: [{type: columns}]
`,
			wantErr: "columns list is required",
		},
		{
			name: "composition_count without ehr",
			content: `
name: n
description: d
queries: queries
runs: [{query: q}]
assertions: [{type: composition_count, count: 1}]
`,
			wantErr: "ehr is required for composition_count",
		},
		{
			name: "unknown assertion type",
			content: `
name: n
description: d
queries: queries
runs: [{query: q}]
assertions: [{type: trace_order}]
`,
			wantErr: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := createScenarioDir(t)
			path := writeScenario(t, dir, tt.content)

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Runs)
		})
	}
}
