package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ehrstore/internal/ir"
)

var testTime = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEHR inserts an EHR and fails the test on error.
func createTestEHR(t *testing.T, s *Store, id string) ir.EHR {
	t.Helper()
	ehr := ir.EHR{ID: id, SystemID: ir.DefaultSystemID, CreatedAt: testTime}
	if err := s.CreateEHR(context.Background(), ehr); err != nil {
		t.Fatalf("CreateEHR(%s) failed: %v", id, err)
	}
	return ehr
}

// createTestComposition builds a composition version with a minimal document.
func createTestComposition(ehrID, id string, version int, label string) ir.Composition {
	return ir.Composition{
		UID:             ir.ObjectVersionID{ID: id, SystemID: ir.DefaultSystemID, Version: version},
		EhrID:           ehrID,
		TemplateID:      "vital_signs.v1",
		ArchetypeNodeID: "openEHR-EHR-COMPOSITION.encounter.v1",
		ContentHash:     "hash-" + label,
		Document:        json.RawMessage(`{"archetype_node_id":"openEHR-EHR-COMPOSITION.encounter.v1","name":{"value":"` + label + `"}}`),
		CommittedAt:     testTime.Add(time.Duration(version) * time.Minute),
	}
}
