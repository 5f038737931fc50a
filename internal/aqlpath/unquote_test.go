package aqlpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnquote(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`'Systolic'`, "Systolic"},
		{`"Systolic"`, "Systolic"},
		{`''`, ""},
		{`'it's'`, "it's"},
		{`'it\'s'`, `it\'s`},
		{`"'quoted'"`, "'quoted'"},
		{`'  padded  '`, "  padded  "},
		{`'Blutdruck – systolisch'`, "Blutdruck – systolisch"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Unquote(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnquote_Malformed(t *testing.T) {
	for _, raw := range []string{``, `'`, `"`, `Systolic`, `'Systolic`, `Systolic'`, `'Systolic"`, `"Systolic'`} {
		t.Run(raw, func(t *testing.T) {
			_, err := Unquote(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedLiteral)
		})
	}
}

func TestUnquote_StripsOneLayerOnly(t *testing.T) {
	once, err := Unquote(`"'x'"`)
	require.NoError(t, err)
	twice, err := Unquote(once)
	require.NoError(t, err)
	assert.Equal(t, "x", twice)
}
