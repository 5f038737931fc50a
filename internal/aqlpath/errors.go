package aqlpath

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes path resolution failures.
type ErrorCode string

const (
	// ErrCodeEmptyStream indicates no tokens were supplied.
	ErrCodeEmptyStream ErrorCode = "EMPTY_STREAM"

	// ErrCodeOrphanIndex indicates an Index with no preceding Segment.
	ErrCodeOrphanIndex ErrorCode = "ORPHAN_INDEX"

	// ErrCodeDuplicateIndex indicates a second Index for the same step.
	ErrCodeDuplicateIndex ErrorCode = "DUPLICATE_INDEX"

	// ErrCodeNegativeIndex indicates an Index below zero.
	ErrCodeNegativeIndex ErrorCode = "NEGATIVE_INDEX"

	// ErrCodeOrphanPredicate indicates a PredicateSentinel with no preceding Segment.
	ErrCodeOrphanPredicate ErrorCode = "ORPHAN_PREDICATE"

	// ErrCodeMissingLiteral indicates a PredicateSentinel not followed by a PredicateLiteral.
	ErrCodeMissingLiteral ErrorCode = "MISSING_LITERAL"

	// ErrCodeUnexpectedLiteral indicates a PredicateLiteral not preceded by a sentinel.
	ErrCodeUnexpectedLiteral ErrorCode = "UNEXPECTED_LITERAL"

	// ErrCodeMalformedLiteral indicates a literal with broken quoting.
	ErrCodeMalformedLiteral ErrorCode = "MALFORMED_LITERAL"

	// ErrCodeDuplicatePredicate indicates a second name predicate for the same step.
	ErrCodeDuplicatePredicate ErrorCode = "DUPLICATE_PREDICATE"

	// ErrCodeIndexAfterPredicate indicates an Index that follows a name
	// predicate on the same step. The parser only emits index-then-predicate;
	// the reverse order is rejected until its meaning is settled.
	ErrCodeIndexAfterPredicate ErrorCode = "INDEX_AFTER_PREDICATE"

	// ErrCodeInvalidSegment indicates a Segment without a container name,
	// or a raw segment that cannot be decoded.
	ErrCodeInvalidSegment ErrorCode = "INVALID_SEGMENT"

	// ErrCodeUnknownToken indicates a nil or foreign Token value.
	ErrCodeUnknownToken ErrorCode = "UNKNOWN_TOKEN"
)

// ResolveError reports a malformed token stream.
//
// Position is the zero-based index of the offending token, or -1 when the
// failure concerns the stream as a whole (e.g. it is empty). Token holds the
// raw rendering of the offending token when there is one.
type ResolveError struct {
	Code     ErrorCode
	Position int
	Token    string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %s (%s %q)", e.Code, e.Message, formatPosition(e.Position), e.Token)
	}
	if e.Position >= 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, formatPosition(e.Position))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsResolveError returns true if err is or wraps a *ResolveError.
func IsResolveError(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}

// CodeOf returns the ErrorCode of a wrapped *ResolveError.
// The second result is false when err carries no ResolveError.
func CodeOf(err error) (ErrorCode, bool) {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

func newResolveError(code ErrorCode, pos int, tok Token, format string, args ...any) *ResolveError {
	e := &ResolveError{
		Code:     code,
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
	}
	e.Token = tokenText(tok)
	return e
}

// tokenText renders tok, treating nil interfaces and nil pointers as empty.
func tokenText(tok Token) string {
	switch t := tok.(type) {
	case nil:
		return ""
	case *Segment:
		if t == nil {
			return ""
		}
	case *Index:
		if t == nil {
			return ""
		}
	case *PredicateSentinel:
		if t == nil {
			return ""
		}
	case *PredicateLiteral:
		if t == nil {
			return ""
		}
	}
	return tok.String()
}
