package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/ehrstore/internal/ir"
)

// CreateEHR inserts a new EHR.
// Returns ErrAlreadyExists if the id is taken.
func (s *Store) CreateEHR(ctx context.Context, ehr ir.EHR) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ehrs (id, system_id, created_at)
		VALUES (?, ?, ?)
	`,
		ehr.ID,
		ehr.SystemID,
		formatTime(ehr.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create ehr %s: %w", ehr.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("create ehr: %w", err)
	}
	return nil
}

// WriteComposition inserts the first version of a composition.
//
// The composition's UID must carry version 1 and its EHR must exist
// (ErrNotFound otherwise). Returns ErrAlreadyExists if any version of the
// composition id is already stored.
//
// The document is stored as canonical JSON; ContentHash is stored as given.
func (s *Store) WriteComposition(ctx context.Context, comp ir.Composition) error {
	if comp.UID.Version != 1 {
		return fmt.Errorf("write composition: first version must be 1, got %d", comp.UID.Version)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write composition: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := requireEHR(ctx, tx, comp.EhrID); err != nil {
		return fmt.Errorf("write composition: %w", err)
	}

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM compositions WHERE id = ?`, comp.UID.ID).Scan(&existing); err != nil {
		return fmt.Errorf("write composition: check existing: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("write composition %s: %w", comp.UID.ID, ErrAlreadyExists)
	}

	if err := insertVersion(ctx, tx, comp); err != nil {
		return fmt.Errorf("write composition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write composition: commit: %w", err)
	}
	return nil
}

// UpdateComposition stores comp as the version following preceding.
//
// Optimistic locking: preceding must name the current latest version of the
// composition, otherwise ErrVersionConflict is returned and nothing changes.
// Returns ErrNotFound when the composition does not exist in the EHR.
// comp.UID must equal preceding.Next().
func (s *Store) UpdateComposition(ctx context.Context, preceding ir.ObjectVersionID, comp ir.Composition) error {
	if comp.UID != preceding.Next() {
		return fmt.Errorf("update composition: uid %s does not follow %s", comp.UID, preceding)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update composition: begin tx: %w", err)
	}
	defer tx.Rollback()

	var latestUID string
	var latestVersion int
	err = tx.QueryRowContext(ctx, `
		SELECT uid, version FROM compositions
		WHERE id = ? AND ehr_id = ? AND is_latest = 1
	`, preceding.ID, comp.EhrID).Scan(&latestUID, &latestVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update composition %s: %w", preceding.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update composition: read latest: %w", err)
	}

	if latestUID != preceding.String() {
		return fmt.Errorf("update composition: latest is %s, not %s: %w", latestUID, preceding, ErrVersionConflict)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE compositions SET is_latest = 0 WHERE uid = ?`, latestUID); err != nil {
		return fmt.Errorf("update composition: clear latest: %w", err)
	}

	if err := insertVersion(ctx, tx, comp); err != nil {
		return fmt.Errorf("update composition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update composition: commit: %w", err)
	}
	return nil
}

// AdminDeleteComposition physically removes every version of a composition.
// Returns the number of versions removed. A missing EHR yields ErrEHRNotFound;
// an EHR without the composition yields a plain ErrNotFound.
func (s *Store) AdminDeleteComposition(ctx context.Context, ehrID, id string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("admin delete composition: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := requireEHR(ctx, tx, ehrID); err != nil {
		return 0, fmt.Errorf("admin delete composition: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM compositions WHERE ehr_id = ? AND id = ?
	`, ehrID, id)
	if err != nil {
		return 0, fmt.Errorf("admin delete composition: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("admin delete composition: rows affected: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("admin delete composition %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("admin delete composition: commit: %w", err)
	}
	return n, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, comp ir.Composition) error {
	document, err := marshalDocument(comp.Document)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO compositions
		(uid, id, system_id, version, ehr_id, template_id, archetype_node_id,
		 content_hash, document, committed_at, is_latest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		comp.UID.String(),
		comp.UID.ID,
		comp.UID.SystemID,
		comp.UID.Version,
		comp.EhrID,
		comp.TemplateID,
		comp.ArchetypeNodeID,
		comp.ContentHash,
		document,
		formatTime(comp.CommittedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert version %s: %w", comp.UID, ErrVersionConflict)
		}
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func requireEHR(ctx context.Context, tx *sql.Tx, ehrID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM ehrs WHERE id = ?`, ehrID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", ehrID, ErrEHRNotFound)
	}
	if err != nil {
		return fmt.Errorf("read ehr: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY violation.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
