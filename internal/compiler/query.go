package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ehrstore/internal/ir"
)

// queryFields lists the fields a query definition may declare.
var queryFields = map[string]bool{
	"description": true,
	"version":     true,
	"template_id": true,
	"select":      true,
	"where":       true,
	"limit":       true,
}

// CompileQuery parses a CUE value into a StoredQuery.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the query struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: blood_pressure: { ... }`)
//	q, err := CompileQuery(v.LookupPath(cue.ParsePath("query.blood_pressure")))
//
// Columns keep the declaration order of the select struct.
func CompileQuery(v cue.Value) (*ir.StoredQuery, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	q := &ir.StoredQuery{}

	// Query name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		q.Name = labels[len(labels)-1].String()
	}

	if err := checkFields(v); err != nil {
		return nil, err
	}

	// Parse description (required)
	descVal := v.LookupPath(cue.ParsePath("description"))
	if !descVal.Exists() {
		return nil, &CompileError{
			Field:   "description",
			Message: "description is required",
			Pos:     v.Pos(),
		}
	}
	desc, err := descVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	q.Description = desc

	if q.Version, err = optionalString(v, "version"); err != nil {
		return nil, err
	}
	if q.TemplateID, err = optionalString(v, "template_id"); err != nil {
		return nil, err
	}

	// Parse select (required, at least one column)
	q.Columns, err = parseSelect(v)
	if err != nil {
		return nil, err
	}

	// Parse where (optional)
	q.Where, err = parseWhere(v)
	if err != nil {
		return nil, err
	}

	// Parse limit (optional)
	limitVal := v.LookupPath(cue.ParsePath("limit"))
	if limitVal.Exists() {
		limit, err := limitVal.Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   "limit",
				Message: "limit must be an integer",
				Pos:     limitVal.Pos(),
			}
		}
		if limit < 0 {
			return nil, &CompileError{
				Field:   "limit",
				Message: fmt.Sprintf("limit must not be negative, got %d", limit),
				Pos:     limitVal.Pos(),
			}
		}
		q.Limit = int(limit)
	}

	return q, nil
}

// checkFields rejects unknown top-level fields so typos are not ignored.
func checkFields(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if !queryFields[iter.Label()] {
			return &CompileError{
				Field:   iter.Label(),
				Message: "unknown query field",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s must be a string", field),
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

// parseSelect extracts columns in declaration order.
func parseSelect(v cue.Value) ([]ir.StoredColumn, error) {
	selectVal := v.LookupPath(cue.ParsePath("select"))
	if !selectVal.Exists() {
		return nil, &CompileError{
			Field:   "select",
			Message: "select is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := selectVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var columns []ir.StoredColumn
	for iter.Next() {
		alias := iter.Label()
		path, err := parsePath(iter.Value(), "select."+alias)
		if err != nil {
			return nil, err
		}
		columns = append(columns, ir.StoredColumn{Alias: alias, Path: path})
	}

	if len(columns) == 0 {
		return nil, &CompileError{
			Field:   "select",
			Message: "at least one column is required",
			Pos:     selectVal.Pos(),
		}
	}
	return columns, nil
}

// parseWhere extracts equality filters.
func parseWhere(v cue.Value) ([]ir.StoredFilter, error) {
	whereVal := v.LookupPath(cue.ParsePath("where"))
	if !whereVal.Exists() {
		return nil, nil
	}

	iter, err := whereVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var filters []ir.StoredFilter
	for i := 0; iter.Next(); i++ {
		field := fmt.Sprintf("where[%d]", i)
		fv := iter.Value()

		path, err := parsePath(fv.LookupPath(cue.ParsePath("path")), field+".path")
		if err != nil {
			return nil, err
		}

		equalsVal := fv.LookupPath(cue.ParsePath("equals"))
		if !equalsVal.Exists() {
			return nil, &CompileError{
				Field:   field + ".equals",
				Message: "equals is required",
				Pos:     fv.Pos(),
			}
		}
		equals, err := extractLiteral(equalsVal, field+".equals")
		if err != nil {
			return nil, err
		}

		filters = append(filters, ir.StoredFilter{Path: path, Equals: equals})
	}
	return filters, nil
}

// parsePath reads a raw path: a non-empty list of strings.
func parsePath(v cue.Value, field string) ([]string, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: field, Message: "path is required", Pos: v.Pos()}
	}

	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "path must be a list of strings",
			Pos:     v.Pos(),
		}
	}

	var parts []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: "path parts must be strings",
				Pos:     iter.Value().Pos(),
			}
		}
		parts = append(parts, s)
	}

	if len(parts) == 0 {
		return nil, &CompileError{Field: field, Message: "path must not be empty", Pos: v.Pos()}
	}
	return parts, nil
}

// extractLiteral converts a concrete CUE scalar to a filter literal.
// Floats are forbidden; integers become int64.
func extractLiteral(v cue.Value, field string) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return i, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float literals are forbidden - use an int or a string",
			Pos:     v.Pos(),
		}
	case cue.BottomKind:
		return nil, &CompileError{
			Field:   field,
			Message: "value must be concrete",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported literal kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
