package aqlpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_String(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Step{Container: "events"}, "events"},
		{Step{Container: "events", NodeID: "at0002"}, "events[at0002]"},
		{Step{Container: "events", NodeID: "at0002", Index: IntPtr(0)}, "events[at0002][0]"},
		{Step{Container: "items", NodeID: "at0004", NamePredicate: StringPtr("Systolic")}, "items[at0004,'Systolic']"},
		{Step{Container: "items", NamePredicate: StringPtr("Systolic")}, "items[name/value='Systolic']"},
		{Step{Container: "events", Index: IntPtr(3)}, "events[3]"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.step.String())
		})
	}
}

func TestStep_Equal(t *testing.T) {
	base := Step{Container: "items", NodeID: "at0004", Index: IntPtr(1), NamePredicate: StringPtr("x")}

	assert.True(t, base.Equal(Step{Container: "items", NodeID: "at0004", Index: IntPtr(1), NamePredicate: StringPtr("x")}))
	assert.False(t, base.Equal(Step{Container: "items", NodeID: "at0004", NamePredicate: StringPtr("x")}))
	assert.False(t, base.Equal(Step{Container: "items", NodeID: "at0004", Index: IntPtr(0), NamePredicate: StringPtr("x")}))
	assert.False(t, base.Equal(Step{Container: "items", NodeID: "at0004", Index: IntPtr(1)}))
	assert.False(t, base.Equal(Step{Container: "items", NodeID: "at0004", Index: IntPtr(1), NamePredicate: StringPtr("")}))

	// absent index and index 0 are different steps
	assert.False(t, Step{Container: "a"}.Equal(Step{Container: "a", Index: IntPtr(0)}))
}

func TestExpression_Immutable(t *testing.T) {
	idx := 1
	name := "Systolic"
	steps := []Step{{Container: "items", Index: &idx, NamePredicate: &name}}

	expr, err := NewExpression(steps...)
	require.NoError(t, err)

	idx = 9
	name = "changed"
	steps[0].Container = "other"
	assert.Equal(t, "items[name/value='Systolic'][1]", expr.String())

	got := expr.Steps()
	*got[0].Index = 5
	got[0].Container = "mutated"
	leaf := expr.Leaf()
	*leaf.NamePredicate = "mutated"
	assert.Equal(t, "items[name/value='Systolic'][1]", expr.String())
}

func TestNewExpression_Invalid(t *testing.T) {
	_, err := NewExpression()
	assert.Error(t, err)

	_, err = NewExpression(Step{NodeID: "at0001"})
	assert.Error(t, err)

	_, err = NewExpression(Step{Container: "a", Index: IntPtr(-2)})
	assert.Error(t, err)

	assert.Panics(t, func() { MustExpression() })
}

func TestExpression_ZeroValue(t *testing.T) {
	var e Expression
	assert.True(t, e.IsZero())
	assert.Equal(t, 0, e.Len())
	assert.Error(t, e.Validate())
	assert.Equal(t, "", e.String())
}

func TestExpression_Equal(t *testing.T) {
	a := MustExpression(Step{Container: "a"}, Step{Container: "b", NodeID: "at1"})
	b := MustExpression(Step{Container: "a"}, Step{Container: "b", NodeID: "at1"})
	c := MustExpression(Step{Container: "a"})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, c.Equal(a))
}

func TestStep_StringDecodesBack(t *testing.T) {
	steps := []Step{
		{Container: "events"},
		{Container: "events", NodeID: "at0002"},
		{Container: "events", Index: IntPtr(3)},
		{Container: "events", NodeID: "at0002", Index: IntPtr(0)},
		{Container: "items", NamePredicate: StringPtr("Systolic")},
		{Container: "items", NamePredicate: StringPtr("Systolic"), Index: IntPtr(1)},
		{Container: "items", NodeID: "at0004", NamePredicate: StringPtr("Systolic")},
		{Container: "items", NodeID: "at0004", NamePredicate: StringPtr("Systolic"), Index: IntPtr(2)},
		{Container: "items", NamePredicate: StringPtr("a,b [x]")},
		{Container: "items", NodeID: "at0004", NamePredicate: StringPtr("O'Brien")},
		{Container: "items", NamePredicate: StringPtr("")},
	}

	for _, step := range steps {
		t.Run(step.String(), func(t *testing.T) {
			want := MustExpression(step)

			got, err := ResolveRaw([]string{"/" + want.String()})
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestExpression_StringDecodesBack(t *testing.T) {
	want := MustExpression(
		Step{Container: "content", NodeID: "openEHR-EHR-OBSERVATION.blood_pressure.v1", Index: IntPtr(0)},
		Step{Container: "data", NodeID: "at0001"},
		Step{Container: "items", NamePredicate: StringPtr("Systolic")},
		Step{Container: "value"},
	)

	parts := make([]string, want.Len())
	for i, s := range want.Steps() {
		parts[i] = "/" + s.String()
	}
	got, err := ResolveRaw(parts)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "got %s", got)
}
