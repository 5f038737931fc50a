package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ehrstore/internal/ir"
)

func TestRunWithGolden_Testdata(t *testing.T) {
	for _, name := range []string{"latest_only", "paths"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestSnapshot_CanonicalMap(t *testing.T) {
	snapshot := Snapshot{
		ScenarioName: "snap",
		Runs: []RunRecord{
			{
				Query:   "q::1.0.0",
				EhrID:   "ehr-1",
				QueryID: "query-1",
				Columns: []string{"b", "a"},
				Rows:    [][]any{{json.Number("1"), nil}},
			},
			{
				Query:     "broken",
				Columns:   []string{"v"},
				Rows:      [][]any{},
				ErrorCode: "INVALID_PATH",
			},
		},
	}

	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err)

	want := `{"runs":[` +
		`{"columns":["b","a"],"ehr_id":"ehr-1","query":"q::1.0.0","query_id":"query-1","rows":[{"b":1}]},` +
		`{"columns":["v"],"error_code":"INVALID_PATH","query":"broken","rows":[]}` +
		`],"scenario_name":"snap"}`
	assert.Equal(t, want, string(data))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "paths.yaml"))
	require.NoError(t, err)

	var outputs []string
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)

		data, err := MarshalSnapshot(scenario.Name, result)
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}
