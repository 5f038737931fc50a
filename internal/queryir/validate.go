package queryir

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/roach88/ehrstore/internal/aqlpath"
)

// aliasPattern matches valid column aliases.
var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// repeatingContainers are reference-model attributes that hold lists.
var repeatingContainers = map[string]bool{
	"content":    true,
	"items":      true,
	"events":     true,
	"activities": true,
	"members":    true,
	"rows":       true,
}

// ValidationResult contains the outcome of validating a query.
type ValidationResult struct {
	// IsValid is true when Errors is empty. Only valid queries may be compiled.
	IsValid bool

	// Errors lists problems that make the query unexecutable.
	Errors []string

	// Warnings lists legal constructs with surprising results, such as
	// unconstrained repeating steps that multiply rows.
	Warnings []string
}

// Validate checks a query for structural problems.
//
// Errors:
//  1. No columns
//  2. Invalid or duplicate column aliases
//  3. Invalid path expressions
//  4. Unsupported literal types (floats, nil, composites)
//  5. Negative limit or offset
//
// Warnings:
//   - Interior steps over list attributes (items, events, ...) with no
//     index, no name predicate and no node id fan out over every member
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		errors:   []string{},
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsValid:  len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

// validator accumulates findings during traversal.
type validator struct {
	errors   []string
	warnings []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addError("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addError("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if len(sel.Columns) == 0 {
		v.addError("select has no columns - explicit columns are required")
	}

	seen := make(map[string]bool, len(sel.Columns))
	for i, col := range sel.Columns {
		switch {
		case col.Alias == "":
			v.addError("column %d: alias is required", i)
		case !aliasPattern.MatchString(col.Alias):
			v.addError("column %d: alias %q is not a valid identifier", i, col.Alias)
		case seen[col.Alias]:
			v.addError("column %d: duplicate alias %q", i, col.Alias)
		}
		seen[col.Alias] = true

		v.validatePath(fmt.Sprintf("column %q", col.Alias), col.Path)
	}

	if sel.Limit < 0 {
		v.addError("limit must not be negative, got %d", sel.Limit)
	}
	if sel.Offset < 0 {
		v.addError("offset must not be negative, got %d", sel.Offset)
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePath(where string, path aqlpath.Expression) {
	if err := path.Validate(); err != nil {
		v.addError("%s: invalid path: %v", where, err)
		return
	}

	// The leaf is the selected node itself, so only interior steps multiply rows.
	for i := 0; i < path.Len()-1; i++ {
		s := path.Step(i)
		if repeatingContainers[s.Container] && !s.HasIndex() && !s.HasNamePredicate() && !s.HasNodeID() {
			v.addWarning("%s: step %q is unconstrained and returns one row per member", where, s.Container)
		}
	}
}

func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return
	}

	switch pred := p.(type) {
	case PathEquals:
		v.validatePathEquals(pred)
	case *PathEquals:
		v.validatePathEquals(*pred)
	case EhrEquals:
		v.validateEhrEquals(pred)
	case *EhrEquals:
		v.validateEhrEquals(*pred)
	case TemplateEquals:
		v.validateTemplateEquals(pred)
	case *TemplateEquals:
		v.validateTemplateEquals(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validatePathEquals(eq PathEquals) {
	v.validatePath(fmt.Sprintf("filter %q", eq.Path.String()), eq.Path)
	if err := CheckLiteral(eq.Value); err != nil {
		v.addError("filter %q: %v", eq.Path.String(), err)
	}
}

func (v *validator) validateEhrEquals(eq EhrEquals) {
	if eq.EhrID == "" {
		v.addError("ehr filter: ehr id is required")
	}
}

func (v *validator) validateTemplateEquals(eq TemplateEquals) {
	if eq.TemplateID == "" {
		v.addError("template filter: template id is required")
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}

// CheckLiteral reports whether value is a supported literal.
func CheckLiteral(value any) error {
	switch val := value.(type) {
	case string, bool, int, int64:
		return nil
	case json.Number:
		if _, err := val.Int64(); err != nil {
			return fmt.Errorf("number literal %q is not an integer", string(val))
		}
		return nil
	case nil:
		return fmt.Errorf("null literal is not supported - compare with an explicit value")
	case float32, float64:
		return fmt.Errorf("float literal %v is not supported - use json.Number", val)
	default:
		return fmt.Errorf("unsupported literal type %T", value)
	}
}
