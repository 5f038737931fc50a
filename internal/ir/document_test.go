package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectDocument(t *testing.T) {
	doc := []byte(`{
		"archetype_node_id": "openEHR-EHR-COMPOSITION.encounter.v1",
		"archetype_details": {"template_id": {"value": "vital_signs.v1"}},
		"content": []
	}`)

	info, err := InspectDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "openEHR-EHR-COMPOSITION.encounter.v1", info.ArchetypeNodeID)
	assert.Equal(t, "vital_signs.v1", info.TemplateID)
}

func TestInspectDocument_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"array root", `[]`},
		{"missing node id", `{"archetype_details": {"template_id": {"value": "t"}}}`},
		{"missing template", `{"archetype_node_id": "x"}`},
		{"template not string", `{"archetype_node_id": "x", "archetype_details": {"template_id": {"value": 3}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InspectDocument([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestCompactDocument(t *testing.T) {
	out, err := CompactDocument([]byte(`{ "b": [1, 2], "a": "x" }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":[1,2]}`, string(out))
}
