package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ehrstore/internal/engine"
	"github.com/roach88/ehrstore/internal/testutil"
)

const testEHR = "7d44b88c-4199-4bad-97dc-d78268e01398"

// firstUID is the uid of the first composition committed under testOptions.
const firstUID = "00000000-0000-4000-8000-000000000001::local.ehrstore::1"

var testQueriesDir = filepath.Join("..", "harness", "testdata", "queries")

// testOptions returns root options bound to a fresh database file, with
// sequential ids and a stepping clock.
func testOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:   format,
		Database: filepath.Join(t.TempDir(), "ehrstore.db"),
		Queries:  testQueriesDir,
		EngineOptions: []engine.Option{
			engine.WithRecordIDs(testutil.NewSequenceGenerator("")),
			engine.WithQueryIDs(testutil.NewSequenceGenerator("query")),
			engine.WithClock(testutil.NewSteppingClock(time.Millisecond)),
		},
	}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeBloodPressure writes a blood pressure document and returns its path.
func writeBloodPressure(t *testing.T, systolic, diastolic int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bp.json")
	require.NoError(t, os.WriteFile(path, testutil.BloodPressureDocument(systolic, diastolic), 0644))
	return path
}

// seed creates testEHR and commits one blood pressure composition.
func seed(t *testing.T, opts *RootOptions, systolic, diastolic int) {
	t.Helper()
	_, err := execute(t, NewEHRCommand(opts), "create", testEHR)
	require.NoError(t, err)
	_, err = execute(t, NewCompositionCommand(opts), "commit", testEHR, writeBloodPressure(t, systolic, diastolic))
	require.NoError(t, err)
}
