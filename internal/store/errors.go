package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an EHR or composition does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEHRNotFound is returned when the EHR named by an operation does not
	// exist. It wraps ErrNotFound.
	ErrEHRNotFound = fmt.Errorf("ehr %w", ErrNotFound)

	// ErrAlreadyExists is returned when creating a record whose id is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrVersionConflict is returned when an update names a preceding version
	// that is no longer the latest.
	ErrVersionConflict = errors.New("version conflict")
)
