// Package harness provides conformance testing for stored path queries.
//
// The harness seeds a fresh store with EHRs and compositions, executes
// stored query definitions against it, and validates the returned rows.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	queries: queries            # CUE definitions, relative to this file
//	records:
//	  - ehr: 7d44b88c-4199-4bad-97dc-d78268e01398
//	    compositions:
//	      - label: first
//	        file: compositions/bp_120_80.json
//	      - updates: first
//	        file: compositions/bp_135_85.json
//	runs:
//	  - query: blood_pressure::1.0.0
//	    ehr: 7d44b88c-4199-4bad-97dc-d78268e01398
//	  - query: broken
//	    expect:
//	      error: INVALID_PATH
//	assertions:
//	  - type: rows_equal
//	    run: 0
//	    rows: [[135, 85]]
//	  - type: composition_count
//	    ehr: 7d44b88c-4199-4bad-97dc-d78268e01398
//	    count: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - row_count: Verifies a run returned exactly N rows
//   - rows_equal: Verifies a run returned exactly the given rows, in order
//   - contains_row: Verifies a run returned the given row
//   - columns: Verifies the projected column names
//   - composition_count: Verifies how many latest compositions an EHR holds
//
// Numbers compare by value: 120 in YAML matches 120 decoded from a document.
// A cell whose path matched nothing is null (`~` in YAML).
//
// # Deterministic Testing
//
// The harness uses:
//   - Sequential record and query ids (testutil.SequenceGenerator)
//   - A clock that advances one millisecond per reading (testutil.SteppingClock)
//   - In-memory SQLite database (isolated per scenario)
//
// This ensures identical results across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/latest_only.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
