package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/ehrstore/internal/compiler"
	"github.com/roach88/ehrstore/internal/engine"
	"github.com/roach88/ehrstore/internal/ir"
	"github.com/roach88/ehrstore/internal/store"
	"github.com/roach88/ehrstore/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a stepping clock and sequential ids.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	queries *compiler.LoadResult
	logger  *slog.Logger

	// uids tracks the latest version committed under each label.
	uids map[string]ir.ObjectVersionID
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and compile the query definitions
// 3. Create EHRs and commit compositions
// 4. Execute runs and check expect clauses
// 5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	loaded, errs := compiler.LoadQueries(scenario.Queries, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load queries: %w", errors.Join(errs...))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	eng := engine.New(st,
		engine.WithRecordIDs(testutil.NewSequenceGenerator("")),
		engine.WithQueryIDs(testutil.NewSequenceGenerator("query")),
		engine.WithClock(testutil.NewSteppingClock(time.Millisecond)),
		engine.WithLogger(logger),
	)

	h := &Harness{
		store:   st,
		engine:  eng,
		queries: loaded,
		logger:  logger,
		uids:    make(map[string]ir.ObjectVersionID),
	}

	ctx := context.Background()

	if err := h.executeRecords(ctx, scenario.Records); err != nil {
		return nil, fmt.Errorf("failed to execute records: %w", err)
	}

	result := NewResult()
	if err := h.executeRuns(ctx, scenario.Runs, result); err != nil {
		return nil, fmt.Errorf("failed to execute runs: %w", err)
	}

	actx := &AssertionContext{
		Engine: eng,
		Ctx:    ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeRecords creates every EHR and commits its compositions in order.
// Record steps are setup: any failure aborts the scenario.
func (h *Harness) executeRecords(ctx context.Context, records []RecordStep) error {
	for i, rec := range records {
		if _, err := h.engine.CreateEHR(ctx, rec.EHR); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}

		for j, step := range rec.Compositions {
			doc, err := loadDocument(step)
			if err != nil {
				return fmt.Errorf("records[%d].compositions[%d]: %w", i, j, err)
			}

			var comp ir.Composition
			if step.Updates != "" {
				comp, err = h.engine.Update(ctx, rec.EHR, h.uids[step.Updates], doc)
			} else {
				comp, err = h.engine.Commit(ctx, rec.EHR, doc)
			}
			if err != nil {
				return fmt.Errorf("records[%d].compositions[%d]: %w", i, j, err)
			}

			if step.Label != "" {
				h.uids[step.Label] = comp.UID
			}
			if step.Updates != "" {
				h.uids[step.Updates] = comp.UID
			}

			h.logger.Info("composition committed",
				"ehr_id", rec.EHR,
				"uid", comp.UID.String(),
				"template_id", comp.TemplateID,
			)
		}
	}
	return nil
}

// executeRuns executes every run and checks its expect clause.
//
// A run that fails with an engine error is recorded with its error code;
// the mismatch, if any, is added to the result rather than aborting.
func (h *Harness) executeRuns(ctx context.Context, runs []RunStep, result *Result) error {
	for i, run := range runs {
		q, ok := h.queries.Lookup(run.Query)
		if !ok {
			return fmt.Errorf("runs[%d]: unknown query %q", i, run.Query)
		}

		rec := RunRecord{
			Query:   q.QualifiedName(),
			EhrID:   run.EHR,
			Columns: make([]string, len(q.Columns)),
			Rows:    [][]any{},
		}
		for c, col := range q.Columns {
			rec.Columns[c] = col.Alias
		}

		res, err := h.engine.RunStored(ctx, q, engine.StoredParams{
			EhrID:  run.EHR,
			Limit:  run.Limit,
			Offset: run.Offset,
		})
		if err != nil {
			var qe *engine.QueryError
			if !errors.As(err, &qe) {
				return fmt.Errorf("runs[%d]: %w", i, err)
			}
			rec.ErrorCode = string(qe.Code)
		} else {
			rec.QueryID = res.ExecutionInfo().QueryID
			rec.Rows = res.Payload().Rows
		}

		result.AddRun(rec)

		expected := ""
		if run.Expect != nil {
			expected = run.Expect.Error
		}
		if rec.ErrorCode != expected {
			result.AddError(fmt.Sprintf("runs[%d] (%s): expected error %q, got %q",
				i, rec.Query, expected, rec.ErrorCode))
		}

		h.logger.Info("run completed",
			"run", i,
			"query", rec.Query,
			"rows", len(rec.Rows),
			"error_code", rec.ErrorCode,
		)
	}
	return nil
}

// loadDocument returns the JSON bytes of a composition step.
func loadDocument(step CompositionStep) ([]byte, error) {
	if step.File != "" {
		data, err := os.ReadFile(step.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read composition file: %w", err)
		}
		return data, nil
	}

	data, err := json.Marshal(step.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inline document: %w", err)
	}
	return data, nil
}
