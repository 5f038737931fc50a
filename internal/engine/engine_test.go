package engine

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ehrstore/internal/ir"
	"github.com/roach88/ehrstore/internal/store"
	"github.com/roach88/ehrstore/internal/testutil"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// setupTestEngine returns an engine with deterministic ids and a clock that
// advances one millisecond per read.
func setupTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithRecordIDs(testutil.NewSequenceGenerator("")),
		WithQueryIDs(testutil.NewSequenceGenerator("query")),
		WithClock(testutil.NewSteppingClock(time.Millisecond)),
	}
	return New(setupTestStore(t), append(base, opts...)...)
}

func TestEngine_NewDefaults(t *testing.T) {
	e := New(setupTestStore(t))

	assert.NotNil(t, e.compiler)
	assert.IsType(t, UUIDv4Generator{}, e.recordID)
	assert.IsType(t, UUIDv7Generator{}, e.queryID)
	assert.IsType(t, SystemClock{}, e.clock)
	assert.Equal(t, ir.DefaultSystemID, e.SystemID())
	assert.False(t, e.explain)
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.tracer)
}

func TestEngine_Options(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := New(setupTestStore(t),
		WithSystemID("hospital.example"),
		WithExplain(true),
		WithLogger(logger),
	)

	assert.Equal(t, "hospital.example", e.SystemID())
	assert.True(t, e.explain)
	assert.Same(t, logger, e.logger)
}

func TestEngine_EmptyOptionsKeepDefaults(t *testing.T) {
	e := New(setupTestStore(t), WithSystemID(""), WithLogger(nil))

	assert.Equal(t, ir.DefaultSystemID, e.SystemID())
	assert.NotNil(t, e.logger)
}

func TestSystemClock_UTC(t *testing.T) {
	now := SystemClock{}.Now()
	assert.Equal(t, time.UTC, now.Location())
}

func TestQueryError_Format(t *testing.T) {
	err := newQueryError(ErrCodeInvalidPath, "systolic", assert.AnError, "cannot resolve column path")

	assert.Equal(t,
		"INVALID_PATH: cannot resolve column path (column=systolic): "+assert.AnError.Error(),
		err.Error())
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, IsPathError(err))
	assert.True(t, IsRequestError(err))

	exec := newQueryError(ErrCodeExecutionFailed, "", nil, "query execution failed")
	assert.Equal(t, "EXECUTION_FAILED: query execution failed", exec.Error())
	assert.False(t, IsPathError(exec))
	assert.False(t, IsRequestError(exec))
}
