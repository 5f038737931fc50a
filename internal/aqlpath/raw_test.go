package aqlpath

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Raw fixture in the form the AQL parser emits it.
var bloodPressureRaw = []string{
	"/content[openEHR-EHR-OBSERVATION.sample_blood_pressure.v1]",
	"0",
	"/data[at0001]",
	"/events",
	"/events[at0002]",
	"0",
	"/data[at0003]",
	"/items[at0004]",
	"$AQL_NODE_NAME_PREDICATE$",
	"'Systolic'",
}

func TestParseRaw_Fixture(t *testing.T) {
	tokens, err := ParseRaw(bloodPressureRaw)
	require.NoError(t, err)

	want := []Token{
		Segment{Container: "content", NodeID: "openEHR-EHR-OBSERVATION.sample_blood_pressure.v1"},
		Index{Value: 0},
		Segment{Container: "data", NodeID: "at0001"},
		Segment{Container: "events"},
		Segment{Container: "events", NodeID: "at0002"},
		Index{Value: 0},
		Segment{Container: "data", NodeID: "at0003"},
		Segment{Container: "items", NodeID: "at0004"},
		PredicateSentinel{},
		PredicateLiteral{Raw: "'Systolic'"},
	}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, bloodPressureRaw, EncodeRaw(tokens))
}

func TestResolveRaw_Fixture(t *testing.T) {
	expr, err := ResolveRaw(bloodPressureRaw)
	require.NoError(t, err)

	require.Equal(t, 6, expr.Len())
	assert.Equal(t, 0, *expr.Step(0).Index)
	assert.Nil(t, expr.Step(2).Index)
	assert.Equal(t, 0, *expr.Step(3).Index)
	assert.Equal(t, "Systolic", *expr.Leaf().NamePredicate)
}

func TestParseRaw_Segments(t *testing.T) {
	tests := []struct {
		raw  string
		want []Token
	}{
		{"/events", []Token{Segment{Container: "events"}}},
		{"events", []Token{Segment{Container: "events"}}},
		{"/items[ at0004 ]", []Token{Segment{Container: "items", NodeID: "at0004"}}},
		{"/items[]", []Token{Segment{Container: "items"}}},
		{
			"/items[at0004,'Systolic']",
			[]Token{
				Segment{Container: "items", NodeID: "at0004"},
				PredicateSentinel{},
				PredicateLiteral{Raw: "'Systolic'"},
			},
		},
		{
			"/items[at0004, 'a,b']",
			[]Token{
				Segment{Container: "items", NodeID: "at0004"},
				PredicateSentinel{},
				PredicateLiteral{Raw: "'a,b'"},
			},
		},
		{
			"/items[name/value='Systolic']",
			[]Token{
				Segment{Container: "items"},
				PredicateSentinel{},
				PredicateLiteral{Raw: "'Systolic'"},
			},
		},
		{
			"/items[at0004, name/value = 'Systolic'][1]",
			[]Token{
				Segment{Container: "items", NodeID: "at0004"},
				Index{Value: 1},
				PredicateSentinel{},
				PredicateLiteral{Raw: "'Systolic'"},
			},
		},
		{
			"/items[name/value='a]b']",
			[]Token{
				Segment{Container: "items"},
				PredicateSentinel{},
				PredicateLiteral{Raw: "'a]b'"},
			},
		},
		{"/events[3]", []Token{Segment{Container: "events"}, Index{Value: 3}}},
		{"/events[at0002][0]", []Token{Segment{Container: "events", NodeID: "at0002"}, Index{Value: 0}}},
		{"-1", []Token{Index{Value: -1}}},
		{"'loose'", []Token{PredicateLiteral{Raw: "'loose'"}}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRaw([]string{tt.raw})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRaw_LiteralAfterMarkerIsVerbatim(t *testing.T) {
	tokens, err := ParseRaw([]string{"/items", NamePredicateMarker, "0"})
	require.NoError(t, err)
	assert.Equal(t, PredicateLiteral{Raw: "0"}, tokens[2])

	_, err = Resolve(tokens)
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeMalformedLiteral, code)
}

func TestParseRaw_TrailingMarker(t *testing.T) {
	tokens, err := ParseRaw([]string{"/items", NamePredicateMarker})
	require.NoError(t, err)
	assert.Equal(t, []Token{Segment{Container: "items"}, PredicateSentinel{}}, tokens)

	_, err = ResolveRaw([]string{"/items", NamePredicateMarker})
	code, _ := CodeOf(err)
	assert.Equal(t, ErrCodeMissingLiteral, code)
}

func TestParseRaw_Invalid(t *testing.T) {
	tests := []string{
		"",
		"/",
		"/items[at0004",
		"/items]at0004[",
		"/items[a][b]",
		"/[at0004]",
		"/a/b",
		"/items[at0004,]",
		"/items[name/value]",
		"/items[name/value=]",
		"/items[name/value='open]",
		"/items[at0004][x]",
		"/items[0][1]",
		"/items[at0004]x",
		"/items[at'0004]",
		"99999999999999999999999",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseRaw([]string{"/ok", raw})
			require.Error(t, err)

			var re *ResolveError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, ErrCodeInvalidSegment, re.Code)
			assert.Equal(t, 1, re.Position)
			assert.Equal(t, raw, re.Token)
		})
	}
}
