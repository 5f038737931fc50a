package queryresult

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() *ResultSet {
	return &ResultSet{
		Name:  "systolic",
		Query: "items[at0004,'Systolic']/value/magnitude",
		Columns: []Column{
			{Name: "systolic", Path: "content[openEHR-EHR-OBSERVATION.blood_pressure.v1]/items[at0004,'Systolic']/value/magnitude"},
		},
		Rows: [][]any{{json.Number("120")}, {json.Number("135")}},
	}
}

func TestNew_DefaultsToNone(t *testing.T) {
	r, err := New(samplePayload())
	require.NoError(t, err)

	assert.Equal(t, None, r.ExecutionInfo())
	assert.True(t, r.ExecutionInfo().IsNone())
	assert.False(t, r.HasExecutionInfo())
	assert.Equal(t, 2, r.RowCount())
}

func TestNewWithInfo_PreservesInfo(t *testing.T) {
	info := ExecutionInfo{
		QueryID:       "019a0000-0000-7000-8000-000000000001",
		ExecutionTime: 1500 * time.Microsecond,
		SQL:           "SELECT 1",
		Explain:       "SCAN c",
	}

	r, err := NewWithInfo(samplePayload(), info)
	require.NoError(t, err)

	assert.Equal(t, info, r.ExecutionInfo())
	assert.True(t, r.HasExecutionInfo())
}

func TestNewWithInfo_None(t *testing.T) {
	r, err := NewWithInfo(samplePayload(), None)
	require.NoError(t, err)
	assert.False(t, r.HasExecutionInfo())
}

func TestNew_NilPayload(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilPayload)

	_, err = NewWithInfo(nil, ExecutionInfo{QueryID: "q"})
	assert.ErrorIs(t, err, ErrNilPayload)
}

func TestNew_EmptyResultIsValid(t *testing.T) {
	r, err := New(&ResultSet{Columns: []Column{{Name: "a", Path: "a"}}})
	require.NoError(t, err)
	assert.Equal(t, 0, r.RowCount())
	assert.Empty(t, r.Payload().Rows)
}

func TestQueryResult_Immutable(t *testing.T) {
	payload := samplePayload()
	r, err := New(payload)
	require.NoError(t, err)

	payload.Rows[0][0] = json.Number("999")
	payload.Rows = append(payload.Rows, []any{json.Number("1")})
	payload.Columns[0].Name = "changed"

	got := r.Payload()
	assert.Equal(t, json.Number("120"), got.Rows[0][0])
	assert.Len(t, got.Rows, 2)
	assert.Equal(t, "systolic", got.Columns[0].Name)

	got.Rows[1][0] = json.Number("0")
	assert.Equal(t, json.Number("135"), r.Payload().Rows[1][0])
}

func TestQueryResult_MarshalJSON(t *testing.T) {
	t.Run("without info", func(t *testing.T) {
		r, err := New(&ResultSet{
			Name:    "q",
			Columns: []Column{{Name: "a", Path: "a"}},
			Rows:    [][]any{{"x"}},
		})
		require.NoError(t, err)

		data, err := json.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, `{"result":{"name":"q","columns":[{"name":"a","path":"a"}],"rows":[["x"]]}}`, string(data))
	})

	t.Run("with info", func(t *testing.T) {
		r, err := NewWithInfo(&ResultSet{
			Columns: []Column{{Name: "a", Path: "a"}},
			Rows:    [][]any{},
		}, ExecutionInfo{QueryID: "id-1", ExecutionTime: 42})
		require.NoError(t, err)

		data, err := json.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, `{"result":{"columns":[{"name":"a","path":"a"}],"rows":[]},"meta":{"query_id":"id-1","execution_time_ns":42}}`, string(data))
	})
}

func TestQueryResult_ZeroValue(t *testing.T) {
	var r QueryResult
	assert.Nil(t, r.Payload())
	assert.Equal(t, 0, r.RowCount())

	_, err := json.Marshal(r)
	assert.ErrorIs(t, err, ErrNilPayload)
}
