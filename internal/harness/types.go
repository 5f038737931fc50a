package harness

// RunRecord is the observed outcome of one scenario run.
type RunRecord struct {
	Query     string   `json:"query"`
	EhrID     string   `json:"ehr_id,omitempty"`
	QueryID   string   `json:"query_id,omitempty"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	ErrorCode string   `json:"error_code,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every run expectation and assertion holds.
	Pass bool `json:"pass"`

	// Runs holds one record per scenario run, in order.
	// Used for assertions and golden comparison.
	Runs []RunRecord `json:"runs"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunRecord{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRun appends the record of an executed run.
func (r *Result) AddRun(rec RunRecord) {
	r.Runs = append(r.Runs, rec)
}
