package ir

import (
	"encoding/json"
	"fmt"
)

// DocumentInfo holds the identifying attributes of a composition document.
type DocumentInfo struct {
	ArchetypeNodeID string
	TemplateID      string
}

// InspectDocument decodes a composition document and extracts its root
// archetype node id and template id.
//
// The document must be a JSON object carrying:
//
//	{
//	  "archetype_node_id": "openEHR-EHR-COMPOSITION.encounter.v1",
//	  "archetype_details": {"template_id": {"value": "vital_signs.v1"}},
//	  ...
//	}
func InspectDocument(document []byte) (DocumentInfo, error) {
	doc, err := DecodeJSON(document)
	if err != nil {
		return DocumentInfo{}, err
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return DocumentInfo{}, fmt.Errorf("composition document must be a JSON object, got %T", doc)
	}

	nodeID, _ := root["archetype_node_id"].(string)
	if nodeID == "" {
		return DocumentInfo{}, fmt.Errorf("composition document missing archetype_node_id")
	}

	templateID := lookupString(root, "archetype_details", "template_id", "value")
	if templateID == "" {
		return DocumentInfo{}, fmt.Errorf("composition document missing archetype_details.template_id.value")
	}

	return DocumentInfo{ArchetypeNodeID: nodeID, TemplateID: templateID}, nil
}

// CompactDocument re-encodes a document as canonical JSON text.
// Stored documents are always canonical so equal content compares equal.
func CompactDocument(document []byte) (json.RawMessage, error) {
	doc, err := DecodeJSON(document)
	if err != nil {
		return nil, err
	}
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("canonicalize document: %w", err)
	}
	return json.RawMessage(canonical), nil
}

func lookupString(obj map[string]any, keys ...string) string {
	var cur any = obj
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[k]
	}
	s, _ := cur.(string)
	return s
}
