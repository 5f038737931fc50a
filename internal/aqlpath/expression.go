package aqlpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one resolved node in a navigation chain.
//
// Optional parts:
//   - NodeID: empty means no archetype node constraint
//   - Index: nil means every member of a repeating container, NOT index 0
//   - NamePredicate: nil means no name constraint; the value is already unquoted
type Step struct {
	Container     string
	NodeID        string
	Index         *int
	NamePredicate *string
}

// HasNodeID reports whether the step is tagged with an archetype node id.
func (s Step) HasNodeID() bool {
	return s.NodeID != ""
}

// HasIndex reports whether the step selects one member by position.
func (s Step) HasIndex() bool {
	return s.Index != nil
}

// HasNamePredicate reports whether the step carries a name equality constraint.
func (s Step) HasNamePredicate() bool {
	return s.NamePredicate != nil
}

// String renders the step in AQL-like notation:
//
//	items[at0004,'Systolic']
//	events[at0002][0]
//	items[name/value='Systolic']
func (s Step) String() string {
	var b strings.Builder
	b.WriteString(s.Container)

	switch {
	case s.HasNodeID() && s.HasNamePredicate():
		fmt.Fprintf(&b, "[%s,%s]", s.NodeID, quoteLiteral(*s.NamePredicate))
	case s.HasNodeID():
		fmt.Fprintf(&b, "[%s]", s.NodeID)
	case s.HasNamePredicate():
		fmt.Fprintf(&b, "[name/value=%s]", quoteLiteral(*s.NamePredicate))
	}

	if s.HasIndex() {
		fmt.Fprintf(&b, "[%d]", *s.Index)
	}
	return b.String()
}

// quoteLiteral wraps a name in single quotes, or double quotes when the name
// itself contains a single quote.
func quoteLiteral(name string) string {
	if strings.Contains(name, "'") && !strings.Contains(name, `"`) {
		return `"` + name + `"`
	}
	return "'" + name + "'"
}

// Equal reports whether two steps have the same structure and constraints.
func (s Step) Equal(o Step) bool {
	if s.Container != o.Container || s.NodeID != o.NodeID {
		return false
	}
	if s.HasIndex() != o.HasIndex() || (s.HasIndex() && *s.Index != *o.Index) {
		return false
	}
	if s.HasNamePredicate() != o.HasNamePredicate() ||
		(s.HasNamePredicate() && *s.NamePredicate != *o.NamePredicate) {
		return false
	}
	return true
}

// clone returns a copy that shares no pointers with s.
func (s Step) clone() Step {
	c := Step{Container: s.Container, NodeID: s.NodeID}
	if s.Index != nil {
		idx := *s.Index
		c.Index = &idx
	}
	if s.NamePredicate != nil {
		name := *s.NamePredicate
		c.NamePredicate = &name
	}
	return c
}

// tokens returns the token encoding of the step. Index precedes the predicate pair.
func (s Step) tokens() []Token {
	toks := []Token{Segment{Container: s.Container, NodeID: s.NodeID}}
	if s.HasIndex() {
		toks = append(toks, Index{Value: *s.Index})
	}
	if s.HasNamePredicate() {
		toks = append(toks, PredicateSentinel{}, PredicateLiteral{Raw: quoteLiteral(*s.NamePredicate)})
	}
	return toks
}

// Expression is an ordered, non-empty sequence of resolved steps.
// The final step is the node or value being selected.
//
// Expression is immutable: accessors return copies.
// The zero Expression is empty and invalid; obtain one from Resolve or NewExpression.
type Expression struct {
	steps []Step
}

// NewExpression builds an Expression from steps after validating them.
func NewExpression(steps ...Step) (Expression, error) {
	e := Expression{steps: cloneSteps(steps)}
	if err := e.Validate(); err != nil {
		return Expression{}, err
	}
	return e, nil
}

// MustExpression is like NewExpression but panics on error.
// Use only in tests or when steps are known to be valid.
func MustExpression(steps ...Step) Expression {
	e, err := NewExpression(steps...)
	if err != nil {
		panic(err)
	}
	return e
}

// Validate checks the structural invariants of the expression.
func (e Expression) Validate() error {
	if len(e.steps) == 0 {
		return fmt.Errorf("path expression must have at least one step")
	}
	for i, s := range e.steps {
		if s.Container == "" {
			return fmt.Errorf("step %d: container name is required", i)
		}
		if s.Index != nil && *s.Index < 0 {
			return fmt.Errorf("step %d: index %d is negative", i, *s.Index)
		}
	}
	return nil
}

// Len returns the number of steps.
func (e Expression) Len() int {
	return len(e.steps)
}

// IsZero reports whether e is the empty zero value.
func (e Expression) IsZero() bool {
	return len(e.steps) == 0
}

// Step returns a copy of the i-th step. Panics if i is out of range.
func (e Expression) Step(i int) Step {
	return e.steps[i].clone()
}

// Steps returns a copy of all steps in traversal order.
func (e Expression) Steps() []Step {
	return cloneSteps(e.steps)
}

// Leaf returns a copy of the final step. Panics on the zero Expression.
func (e Expression) Leaf() Step {
	return e.steps[len(e.steps)-1].clone()
}

// Tokens returns a token stream that resolves back to e.
func (e Expression) Tokens() []Token {
	var toks []Token
	for _, s := range e.steps {
		toks = append(toks, s.tokens()...)
	}
	return toks
}

// Equal reports whether both expressions have equal steps in the same order.
func (e Expression) Equal(o Expression) bool {
	if len(e.steps) != len(o.steps) {
		return false
	}
	for i := range e.steps {
		if !e.steps[i].Equal(o.steps[i]) {
			return false
		}
	}
	return true
}

// String renders the expression as slash-joined steps.
func (e Expression) String() string {
	parts := make([]string, len(e.steps))
	for i, s := range e.steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.clone()
	}
	return out
}

// IntPtr returns a pointer to v. Convenience for building Steps by hand.
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to v. Convenience for building Steps by hand.
func StringPtr(v string) *string {
	return &v
}

// formatPosition renders a token position for error messages.
func formatPosition(pos int) string {
	if pos < 0 {
		return "end of stream"
	}
	return "token " + strconv.Itoa(pos)
}
