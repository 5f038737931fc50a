package store

import (
	"context"
	"errors"
	"testing"
)

func TestCreateEHR(t *testing.T) {
	s := createTestStore(t)
	ehr := createTestEHR(t, s, "ehr-1")

	got, err := s.ReadEHR(context.Background(), "ehr-1")
	if err != nil {
		t.Fatalf("ReadEHR() failed: %v", err)
	}
	if got.ID != ehr.ID || got.SystemID != ehr.SystemID || !got.CreatedAt.Equal(ehr.CreatedAt) {
		t.Errorf("ReadEHR() = %+v, want %+v", got, ehr)
	}
}

func TestCreateEHR_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ehr := createTestEHR(t, s, "ehr-1")

	err := s.CreateEHR(context.Background(), ehr)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("CreateEHR() duplicate error = %v, want ErrAlreadyExists", err)
	}
}

func TestWriteComposition(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestEHR(t, s, "ehr-1")

	comp := createTestComposition("ehr-1", "comp-1", 1, "first")
	if err := s.WriteComposition(ctx, comp); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}

	var isLatest int
	if err := s.db.QueryRow(`SELECT is_latest FROM compositions WHERE uid = ?`, comp.UID.String()).Scan(&isLatest); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if isLatest != 1 {
		t.Errorf("is_latest = %d, want 1", isLatest)
	}
}

func TestWriteComposition_StoresCanonicalDocument(t *testing.T) {
	s := createTestStore(t)
	createTestEHR(t, s, "ehr-1")

	comp := createTestComposition("ehr-1", "comp-1", 1, "first")
	comp.Document = []byte(`{ "name": {"value": "first"}, "archetype_node_id": "x" }`)
	if err := s.WriteComposition(context.Background(), comp); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}

	var doc string
	if err := s.db.QueryRow(`SELECT document FROM compositions WHERE id = 'comp-1'`).Scan(&doc); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := `{"archetype_node_id":"x","name":{"value":"first"}}`
	if doc != want {
		t.Errorf("document = %s, want %s", doc, want)
	}
}

func TestWriteComposition_RejectsNonFirstVersion(t *testing.T) {
	s := createTestStore(t)
	createTestEHR(t, s, "ehr-1")

	err := s.WriteComposition(context.Background(), createTestComposition("ehr-1", "comp-1", 2, "second"))
	if err == nil {
		t.Fatal("WriteComposition() should reject version 2")
	}
}

func TestWriteComposition_MissingEHR(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteComposition(context.Background(), createTestComposition("ehr-missing", "comp-1", 1, "first"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("WriteComposition() error = %v, want ErrNotFound", err)
	}
}

func TestWriteComposition_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestEHR(t, s, "ehr-1")

	comp := createTestComposition("ehr-1", "comp-1", 1, "first")
	if err := s.WriteComposition(ctx, comp); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}

	err := s.WriteComposition(ctx, comp)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("WriteComposition() duplicate error = %v, want ErrAlreadyExists", err)
	}
}

func TestWriteComposition_RejectsNullDocument(t *testing.T) {
	s := createTestStore(t)
	createTestEHR(t, s, "ehr-1")

	comp := createTestComposition("ehr-1", "comp-1", 1, "first")
	comp.Document = []byte(`{"archetype_node_id":"x","name":null}`)
	if err := s.WriteComposition(context.Background(), comp); err == nil {
		t.Fatal("WriteComposition() should reject documents containing null")
	}

	if _, err := s.ReadComposition(context.Background(), "ehr-1", "comp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected write must not leave a row, got %v", err)
	}
}

func TestUpdateComposition(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestEHR(t, s, "ehr-1")

	v1 := createTestComposition("ehr-1", "comp-1", 1, "first")
	if err := s.WriteComposition(ctx, v1); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}

	v2 := createTestComposition("ehr-1", "comp-1", 2, "second")
	if err := s.UpdateComposition(ctx, v1.UID, v2); err != nil {
		t.Fatalf("UpdateComposition() failed: %v", err)
	}

	latest, err := s.ReadComposition(ctx, "ehr-1", "comp-1")
	if err != nil {
		t.Fatalf("ReadComposition() failed: %v", err)
	}
	if latest.UID != v2.UID {
		t.Errorf("latest uid = %s, want %s", latest.UID, v2.UID)
	}

	var latestCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM compositions WHERE id = 'comp-1' AND is_latest = 1`).Scan(&latestCount); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if latestCount != 1 {
		t.Errorf("latest rows = %d, want 1", latestCount)
	}
}

func TestUpdateComposition_StalePreceding(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestEHR(t, s, "ehr-1")

	v1 := createTestComposition("ehr-1", "comp-1", 1, "first")
	v2 := createTestComposition("ehr-1", "comp-1", 2, "second")
	if err := s.WriteComposition(ctx, v1); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}
	if err := s.UpdateComposition(ctx, v1.UID, v2); err != nil {
		t.Fatalf("UpdateComposition() failed: %v", err)
	}

	// A second writer still holding v1 loses.
	err := s.UpdateComposition(ctx, v1.UID, createTestComposition("ehr-1", "comp-1", 2, "other"))
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("UpdateComposition() stale error = %v, want ErrVersionConflict", err)
	}

	latest, err := s.ReadComposition(ctx, "ehr-1", "comp-1")
	if err != nil {
		t.Fatalf("ReadComposition() failed: %v", err)
	}
	if latest.ContentHash != "hash-second" {
		t.Errorf("conflicting update changed latest: %s", latest.ContentHash)
	}
}

func TestUpdateComposition_NotFound(t *testing.T) {
	s := createTestStore(t)
	createTestEHR(t, s, "ehr-1")

	v1 := createTestComposition("ehr-1", "comp-1", 1, "first")
	v2 := createTestComposition("ehr-1", "comp-1", 2, "second")

	err := s.UpdateComposition(context.Background(), v1.UID, v2)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateComposition() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateComposition_UIDMustFollowPreceding(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestEHR(t, s, "ehr-1")

	v1 := createTestComposition("ehr-1", "comp-1", 1, "first")
	if err := s.WriteComposition(ctx, v1); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}

	err := s.UpdateComposition(ctx, v1.UID, createTestComposition("ehr-1", "comp-1", 3, "third"))
	if err == nil {
		t.Fatal("UpdateComposition() should reject a skipped version")
	}
}

func TestAdminDeleteComposition(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestEHR(t, s, "ehr-1")

	v1 := createTestComposition("ehr-1", "comp-1", 1, "first")
	if err := s.WriteComposition(ctx, v1); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}
	if err := s.UpdateComposition(ctx, v1.UID, createTestComposition("ehr-1", "comp-1", 2, "second")); err != nil {
		t.Fatalf("UpdateComposition() failed: %v", err)
	}

	n, err := s.AdminDeleteComposition(ctx, "ehr-1", "comp-1")
	if err != nil {
		t.Fatalf("AdminDeleteComposition() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d versions, want 2", n)
	}

	if _, err := s.ListVersions(ctx, "ehr-1", "comp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListVersions() after delete error = %v, want ErrNotFound", err)
	}
}

func TestAdminDeleteComposition_NotFound(t *testing.T) {
	s := createTestStore(t)
	createTestEHR(t, s, "ehr-1")

	_, err := s.AdminDeleteComposition(context.Background(), "ehr-1", "comp-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AdminDeleteComposition() error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, ErrEHRNotFound) {
		t.Errorf("AdminDeleteComposition() error = %v, want a composition not-found", err)
	}
}

func TestAdminDeleteComposition_EHRNotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.AdminDeleteComposition(context.Background(), "ehr-missing", "comp-1")
	if !errors.Is(err, ErrEHRNotFound) {
		t.Errorf("AdminDeleteComposition() error = %v, want ErrEHRNotFound", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AdminDeleteComposition() error = %v, should still match ErrNotFound", err)
	}
}

func TestAdminDeleteComposition_ScopedToEHR(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestEHR(t, s, "ehr-1")
	createTestEHR(t, s, "ehr-2")

	if err := s.WriteComposition(ctx, createTestComposition("ehr-1", "comp-1", 1, "first")); err != nil {
		t.Fatalf("WriteComposition() failed: %v", err)
	}

	if _, err := s.AdminDeleteComposition(ctx, "ehr-2", "comp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete through another EHR error = %v, want ErrNotFound", err)
	}
	if _, err := s.ReadComposition(ctx, "ehr-1", "comp-1"); err != nil {
		t.Errorf("composition should survive: %v", err)
	}
}
