package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ehrstore/internal/ir"
)

const compositionColumns = `uid, id, system_id, version, ehr_id, template_id, archetype_node_id,
		content_hash, document, committed_at`

// ReadEHR retrieves an EHR by id.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadEHR(ctx context.Context, id string) (ir.EHR, error) {
	var ehr ir.EHR
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, system_id, created_at FROM ehrs WHERE id = ?
	`, id).Scan(&ehr.ID, &ehr.SystemID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.EHR{}, fmt.Errorf("ehr %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.EHR{}, fmt.Errorf("read ehr: %w", err)
	}

	ehr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return ir.EHR{}, fmt.Errorf("read ehr: %w", err)
	}
	return ehr, nil
}

// ReadComposition retrieves the latest version of a composition in an EHR.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadComposition(ctx context.Context, ehrID, id string) (ir.Composition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+compositionColumns+`
		FROM compositions
		WHERE ehr_id = ? AND id = ? AND is_latest = 1
	`, ehrID, id)

	comp, err := scanComposition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Composition{}, fmt.Errorf("composition %s: %w", id, ErrNotFound)
	}
	return comp, err
}

// ReadCompositionVersion retrieves one specific version of a composition.
// Returns ErrNotFound if that version does not exist.
func (s *Store) ReadCompositionVersion(ctx context.Context, uid ir.ObjectVersionID) (ir.Composition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+compositionColumns+`
		FROM compositions
		WHERE uid = ?
	`, uid.String())

	comp, err := scanComposition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Composition{}, fmt.Errorf("composition version %s: %w", uid, ErrNotFound)
	}
	return comp, err
}

// ListVersions returns every version of a composition, oldest first.
// Returns ErrNotFound if the composition has no versions in the EHR.
func (s *Store) ListVersions(ctx context.Context, ehrID, id string) ([]ir.Composition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+compositionColumns+`
		FROM compositions
		WHERE ehr_id = ? AND id = ?
		ORDER BY version ASC
	`, ehrID, id)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	versions, err := collectCompositions(rows)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("composition %s: %w", id, ErrNotFound)
	}
	return versions, nil
}

// ListCompositions returns the latest version of every composition in an EHR,
// ordered by uid. Returns an empty slice (not nil) when there are none.
func (s *Store) ListCompositions(ctx context.Context, ehrID string) ([]ir.Composition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+compositionColumns+`
		FROM compositions
		WHERE ehr_id = ? AND is_latest = 1
		ORDER BY uid COLLATE BINARY ASC
	`, ehrID)
	if err != nil {
		return nil, fmt.Errorf("list compositions: %w", err)
	}

	comps, err := collectCompositions(rows)
	if err != nil {
		return nil, fmt.Errorf("list compositions: %w", err)
	}
	if comps == nil {
		comps = []ir.Composition{}
	}
	return comps, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanComposition(row rowScanner) (ir.Composition, error) {
	var comp ir.Composition
	var uid, document, committedAt string

	err := row.Scan(
		&uid,
		&comp.UID.ID,
		&comp.UID.SystemID,
		&comp.UID.Version,
		&comp.EhrID,
		&comp.TemplateID,
		&comp.ArchetypeNodeID,
		&comp.ContentHash,
		&document,
		&committedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Composition{}, err
		}
		return ir.Composition{}, fmt.Errorf("scan composition: %w", err)
	}

	comp.Document = []byte(document)
	comp.CommittedAt, err = parseTime(committedAt)
	if err != nil {
		return ir.Composition{}, fmt.Errorf("scan composition %s: %w", uid, err)
	}
	return comp, nil
}

func collectCompositions(rows *sql.Rows) ([]ir.Composition, error) {
	defer rows.Close()

	var comps []ir.Composition
	for rows.Next() {
		comp, err := scanComposition(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compositions: %w", err)
	}
	return comps, nil
}
