package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ehrstore/internal/ir"
)

// Snapshot captures the runs of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Runs         []RunRecord `json:"runs"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles JSON-shaped values.
//
// Rows are rendered as objects keyed by column name. Cells whose path matched
// nothing are omitted, since canonical JSON has no null.
func (s *Snapshot) toCanonicalMap() map[string]any {
	runs := make([]any, len(s.Runs))
	for i, run := range s.Runs {
		columns := make([]any, len(run.Columns))
		for c, name := range run.Columns {
			columns[c] = name
		}

		rows := make([]any, len(run.Rows))
		for r, row := range run.Rows {
			obj := make(map[string]any, len(row))
			for c, cell := range row {
				if cell == nil || c >= len(run.Columns) {
					continue
				}
				obj[run.Columns[c]] = cell
			}
			rows[r] = obj
		}

		runMap := map[string]any{
			"query":   run.Query,
			"columns": columns,
			"rows":    rows,
		}
		if run.EhrID != "" {
			runMap["ehr_id"] = run.EhrID
		}
		if run.QueryID != "" {
			runMap["query_id"] = run.QueryID
		}
		if run.ErrorCode != "" {
			runMap["error_code"] = run.ErrorCode
		}
		runs[i] = runMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"runs":          runs,
	}
}

// RunWithGolden executes a scenario and compares its runs against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the runs don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's runs against a golden file.
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

// MarshalSnapshot renders the runs of result as canonical JSON, the golden
// file format.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Runs:         result.Runs,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}
