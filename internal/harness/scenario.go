package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios seed a fresh store with records, execute stored queries against
// it, and assert on the rows that come back.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Queries is the directory holding the CUE query definitions.
	// Relative paths are resolved against the scenario file location.
	Queries string `yaml:"queries"`

	// Records lists the EHRs and compositions to commit before any run.
	Records []RecordStep `yaml:"records,omitempty"`

	// Runs lists the stored queries to execute, in order.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the recorded runs and the final store state.
	// Supported types: row_count, rows_equal, contains_row, columns, composition_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RecordStep creates one EHR and commits compositions into it.
type RecordStep struct {
	// EHR is the EHR id to create.
	EHR string `yaml:"ehr"`

	// Compositions are committed in order.
	Compositions []CompositionStep `yaml:"compositions,omitempty"`
}

// CompositionStep commits one composition document.
// Exactly one of File and Document must be set.
type CompositionStep struct {
	// Label names the composition so later steps can update it.
	Label string `yaml:"label,omitempty"`

	// File is a JSON document, relative to the scenario file.
	File string `yaml:"file,omitempty"`

	// Document is an inline document.
	Document map[string]any `yaml:"document,omitempty"`

	// Updates is the label of an earlier composition this document
	// supersedes. The new version becomes the latest one.
	Updates string `yaml:"updates,omitempty"`
}

// RunStep executes one stored query.
type RunStep struct {
	// Query is "name" or "name::version".
	Query string `yaml:"query"`

	// EHR narrows the run to one EHR.
	EHR string `yaml:"ehr,omitempty"`

	Limit  int `yaml:"limit,omitempty"`
	Offset int `yaml:"offset,omitempty"`

	// Expect specifies the expected run outcome.
	// If nil, the run must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected run behavior.
type ExpectClause struct {
	// Error is the expected engine error code (e.g. "INVALID_PATH").
	Error string `yaml:"error"`
}

// Assertion validates recorded runs or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": Check run returned exactly Count rows
	// - "rows_equal": Check run returned exactly Rows, in order
	// - "contains_row": Check run returned Row somewhere
	// - "columns": Check run projected Columns, in order
	// - "composition_count": Check EHR holds Count latest compositions
	Type string `yaml:"type"`

	// Run is the zero-based index of the run under test.
	Run int `yaml:"run,omitempty"`

	// Count is the expected number of rows or compositions.
	Count int `yaml:"count,omitempty"`

	// Rows are the expected rows (used by rows_equal).
	Rows [][]any `yaml:"rows,omitempty"`

	// Row is the expected row (used by contains_row).
	Row []any `yaml:"row,omitempty"`

	// Columns are the expected column names (used by columns).
	Columns []string `yaml:"columns,omitempty"`

	// EHR is the EHR id (used by composition_count).
	EHR string `yaml:"ehr,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount         = "row_count"
	AssertRowsEqual        = "rows_equal"
	AssertContainsRow      = "contains_row"
	AssertColumns          = "columns"
	AssertCompositionCount = "composition_count"
)

// LoadScenario reads and parses a scenario YAML file.
// The queries directory and composition files are resolved relative to the
// scenario file. Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
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

	resolvePaths(&scenario, filepath.Dir(path))

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// resolvePaths makes relative file references absolute against base.
func resolvePaths(s *Scenario, base string) {
	if s.Queries != "" && !filepath.IsAbs(s.Queries) {
		s.Queries = filepath.Join(base, s.Queries)
	}
	for i := range s.Records {
		for j := range s.Records[i].Compositions {
			c := &s.Records[i].Compositions[j]
			if c.File != "" && !filepath.IsAbs(c.File) {
				c.File = filepath.Join(base, c.File)
			}
		}
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Queries == "" {
		return fmt.Errorf("queries directory is required")
	}
	if info, err := os.Stat(s.Queries); err != nil || !info.IsDir() {
		return fmt.Errorf("queries directory not found: %s", s.Queries)
	}

	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	labels := make(map[string]bool)
	for i, rec := range s.Records {
		if rec.EHR == "" {
			return fmt.Errorf("records[%d]: ehr is required", i)
		}
		for j, c := range rec.Compositions {
			if err := validateComposition(c, labels); err != nil {
				return fmt.Errorf("records[%d].compositions[%d]: %w", i, j, err)
			}
			if c.Label != "" {
				labels[c.Label] = true
			}
		}
	}

	for i, run := range s.Runs {
		if run.Query == "" {
			return fmt.Errorf("runs[%d]: query is required", i)
		}
		if run.Limit < 0 || run.Offset < 0 {
			return fmt.Errorf("runs[%d]: limit and offset must be non-negative", i)
		}
		if run.Expect != nil && run.Expect.Error == "" {
			return fmt.Errorf("runs[%d].expect: error is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Runs)); err != nil {
			return err
		}
	}

	return nil
}

// validateComposition checks one composition step against the labels seen so far.
func validateComposition(c CompositionStep, labels map[string]bool) error {
	switch {
	case c.File == "" && c.Document == nil:
		return fmt.Errorf("file or document is required")
	case c.File != "" && c.Document != nil:
		return fmt.Errorf("file and document are mutually exclusive")
	}

	if c.File != "" {
		if _, err := os.Stat(c.File); os.IsNotExist(err) {
			return fmt.Errorf("composition file not found: %s", c.File)
		}
	}

	if c.Label != "" && labels[c.Label] {
		return fmt.Errorf("duplicate label %q", c.Label)
	}
	if c.Updates != "" && !labels[c.Updates] {
		return fmt.Errorf("updates unknown label %q", c.Updates)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, runs int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Type != AssertCompositionCount && (a.Run < 0 || a.Run >= runs) {
		return fmt.Errorf("assertions[%d]: run %d out of range (have %d runs)", index, a.Run, runs)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertRowsEqual:
		if a.Rows == nil {
			return fmt.Errorf("assertions[%d]: rows is required for rows_equal", index)
		}
	case AssertContainsRow:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for contains_row", index)
		}
	case AssertColumns:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns list is required for columns", index)
		}
	case AssertCompositionCount:
		if a.EHR == "" {
			return fmt.Errorf("assertions[%d]: ehr is required for composition_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for composition_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
