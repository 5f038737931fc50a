package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/ehrstore/internal/aqlpath"
	"github.com/roach88/ehrstore/internal/ir"
	"github.com/roach88/ehrstore/internal/queryir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// StoredQuery errors (E101-E109)
	ErrQueryNameInvalid     = "E101" // name is empty or not an identifier
	ErrQueryDescription     = "E102" // description is required
	ErrQueryNoColumns       = "E103" // at least one column required
	ErrInvalidAlias         = "E104" // alias is not an identifier
	ErrDuplicateName        = "E105" // duplicate column alias
	ErrInvalidVersion       = "E106" // version is not MAJOR.MINOR.PATCH
	ErrNegativeLimit        = "E107" // limit below zero
	ErrInvalidTemplateID    = "E108" // template id is blank
	ErrInvalidFilterLiteral = "E109" // unsupported equality literal

	// Path errors (E110-E119)
	ErrPathDecode  = "E110" // raw path cannot be decoded
	ErrPathResolve = "E111" // token stream cannot be resolved
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	versionPattern    = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
)

// Validate validates a compiled stored query.
// Returns all errors found (does not fail-fast).
//
// Every raw path is decoded and resolved, so a query that validates cleanly
// only fails at run time for database reasons.
func Validate(v any) []ValidationError {
	switch q := v.(type) {
	case *ir.StoredQuery:
		if q == nil {
			break
		}
		return validateStoredQuery(q)
	case ir.StoredQuery:
		return validateStoredQuery(&q)
	}
	return []ValidationError{{
		Field:   "type",
		Message: fmt.Sprintf("unsupported IR type: %T", v),
		Code:    ErrUnsupportedIRType,
	}}
}

func validateStoredQuery(q *ir.StoredQuery) []ValidationError {
	var errs []ValidationError

	// E101: name must be an identifier
	if !identifierPattern.MatchString(q.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("query name %q must be an identifier", q.Name),
			Code:    ErrQueryNameInvalid,
		})
	}

	// E102: description is required
	if strings.TrimSpace(q.Description) == "" {
		errs = append(errs, ValidationError{
			Field:   "description",
			Message: "description is required and must be non-empty",
			Code:    ErrQueryDescription,
		})
	}

	// E106: version format
	if q.Version != "" && !versionPattern.MatchString(q.Version) {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("version %q must be MAJOR.MINOR.PATCH", q.Version),
			Code:    ErrInvalidVersion,
		})
	}

	// E108: template id, when given, must not be blank
	if q.TemplateID != "" && strings.TrimSpace(q.TemplateID) == "" {
		errs = append(errs, ValidationError{
			Field:   "template_id",
			Message: "template_id must not be blank",
			Code:    ErrInvalidTemplateID,
		})
	}

	// E107: limit
	if q.Limit < 0 {
		errs = append(errs, ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit must not be negative, got %d", q.Limit),
			Code:    ErrNegativeLimit,
		})
	}

	// E103: at least one column
	if len(q.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   "select",
			Message: "at least one column is required",
			Code:    ErrQueryNoColumns,
		})
	}

	aliases := make(map[string]bool)
	for i, col := range q.Columns {
		field := fmt.Sprintf("select[%d]", i)

		switch {
		case !identifierPattern.MatchString(col.Alias):
			// E104
			errs = append(errs, ValidationError{
				Field:   field + ".alias",
				Message: fmt.Sprintf("alias %q must be an identifier", col.Alias),
				Code:    ErrInvalidAlias,
			})
		case aliases[col.Alias]:
			// E105
			errs = append(errs, ValidationError{
				Field:   field + ".alias",
				Message: fmt.Sprintf("duplicate column alias: %q", col.Alias),
				Code:    ErrDuplicateName,
			})
		}
		aliases[col.Alias] = true

		errs = append(errs, validatePath(col.Path, field+".path")...)
	}

	for i, f := range q.Where {
		field := fmt.Sprintf("where[%d]", i)
		errs = append(errs, validatePath(f.Path, field+".path")...)

		// E109
		if err := queryir.CheckLiteral(f.Equals); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".equals",
				Message: err.Error(),
				Code:    ErrInvalidFilterLiteral,
			})
		}
	}

	return errs
}

// validatePath decodes and resolves a raw path (E110, E111).
func validatePath(raw []string, field string) []ValidationError {
	tokens, err := aqlpath.ParseRaw(raw)
	if err != nil {
		return []ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    ErrPathDecode,
		}}
	}
	if _, err := aqlpath.Resolve(tokens); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: err.Error(),
			Code:    ErrPathResolve,
		}}
	}
	return nil
}
