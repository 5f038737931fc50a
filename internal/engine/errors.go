package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument is returned when a composition document cannot be stored.
var ErrInvalidDocument = errors.New("invalid composition document")

// QueryError represents an error detected while running a query.
//
// QueryError includes structured fields for diagnostics. Column names the
// projected column (or filter path) the error concerns, when there is one.
type QueryError struct {
	// Code identifies the error category.
	Code QueryErrorCode

	// Message is a human-readable description.
	Message string

	// Column is the alias of the offending column, if any.
	Column string

	// Err is the underlying cause.
	Err error
}

// QueryErrorCode categorizes query errors.
type QueryErrorCode string

const (
	// ErrCodeInvalidRequest indicates a structurally unusable request.
	ErrCodeInvalidRequest QueryErrorCode = "INVALID_REQUEST"

	// ErrCodeInvalidPath indicates a column or filter path failed to resolve.
	ErrCodeInvalidPath QueryErrorCode = "INVALID_PATH"

	// ErrCodeInvalidQuery indicates the query IR failed validation.
	ErrCodeInvalidQuery QueryErrorCode = "INVALID_QUERY"

	// ErrCodeCompileFailed indicates SQL generation failed.
	ErrCodeCompileFailed QueryErrorCode = "COMPILE_FAILED"

	// ErrCodeExecutionFailed indicates the database rejected or aborted the query.
	ErrCodeExecutionFailed QueryErrorCode = "EXECUTION_FAILED"

	// ErrCodeScanFailed indicates a result row could not be decoded.
	ErrCodeScanFailed QueryErrorCode = "SCAN_FAILED"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Column != "" {
		msg += fmt.Sprintf(" (column=%s)", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsPathError returns true if the error is a path resolution error.
// Uses errors.As to handle wrapped errors.
func IsPathError(err error) bool {
	return hasCode(err, ErrCodeInvalidPath)
}

// IsRequestError returns true if the error was caused by the request itself
// (invalid request, path or query) rather than by execution.
func IsRequestError(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		switch qe.Code {
		case ErrCodeInvalidRequest, ErrCodeInvalidPath, ErrCodeInvalidQuery:
			return true
		}
	}
	return false
}

func hasCode(err error, code QueryErrorCode) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

func newQueryError(code QueryErrorCode, column string, err error, format string, args ...any) *QueryError {
	return &QueryError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Column:  column,
		Err:     err,
	}
}
