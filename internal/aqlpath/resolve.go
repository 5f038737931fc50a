package aqlpath

import "fmt"

// Resolve turns a flat token stream into a normalized Expression.
//
// Binding rules:
//   - every Segment starts a new step
//   - an Index binds to the step of the most recent Segment
//   - a PredicateSentinel and the PredicateLiteral that follows it are
//     consumed together and set the name predicate of the most recent step
//
// The stream is scanned once, front to back. Resolve is pure: the same input
// always yields the same Expression or the same error, and the input slice is
// never modified.
func Resolve(tokens []Token) (Expression, error) {
	if len(tokens) == 0 {
		return Expression{}, newResolveError(ErrCodeEmptyStream, -1, nil, "token stream is empty")
	}

	r := resolver{tokens: tokens}
	for r.pos < len(r.tokens) {
		if err := r.step(); err != nil {
			return Expression{}, err
		}
	}
	r.seal()

	return Expression{steps: r.steps}, nil
}

// resolver holds the cursor and the step being built.
type resolver struct {
	tokens  []Token
	pos     int
	steps   []Step
	pending *stepBuilder
}

// stepBuilder accumulates the parts of one step until the next Segment.
type stepBuilder struct {
	step Step
	// predicateAt is the position of the sentinel that set the predicate, or -1.
	predicateAt int
}

// step consumes one token (two for a predicate pair) and advances the cursor.
func (r *resolver) step() error {
	tok := r.tokens[r.pos]

	switch t := tok.(type) {
	case Segment:
		return r.segment(t)
	case *Segment:
		if t == nil {
			return r.unknown(tok)
		}
		return r.segment(*t)
	case Index:
		return r.index(t)
	case *Index:
		if t == nil {
			return r.unknown(tok)
		}
		return r.index(*t)
	case PredicateSentinel, *PredicateSentinel:
		if p, ok := t.(*PredicateSentinel); ok && p == nil {
			return r.unknown(tok)
		}
		return r.injectPredicate()
	case PredicateLiteral, *PredicateLiteral:
		if p, ok := t.(*PredicateLiteral); ok && p == nil {
			return r.unknown(tok)
		}
		return newResolveError(ErrCodeUnexpectedLiteral, r.pos, tok,
			"predicate literal without a preceding %s", NamePredicateMarker)
	default:
		return r.unknown(tok)
	}
}

func (r *resolver) segment(s Segment) error {
	if s.Container == "" {
		return newResolveError(ErrCodeInvalidSegment, r.pos, s, "segment has no container name")
	}
	r.seal()
	r.pending = &stepBuilder{
		step:        Step{Container: s.Container, NodeID: s.NodeID},
		predicateAt: -1,
	}
	r.pos++
	return nil
}

func (r *resolver) index(i Index) error {
	if r.pending == nil {
		return newResolveError(ErrCodeOrphanIndex, r.pos, i, "index appears before any segment")
	}
	if i.Value < 0 {
		return newResolveError(ErrCodeNegativeIndex, r.pos, i, "index must be zero or greater")
	}
	if r.pending.step.Index != nil {
		return newResolveError(ErrCodeDuplicateIndex, r.pos, i,
			"step %q already has index %d", r.pending.step.Container, *r.pending.step.Index)
	}
	if r.pending.predicateAt >= 0 {
		return newResolveError(ErrCodeIndexAfterPredicate, r.pos, i,
			"index follows the name predicate of step %q", r.pending.step.Container)
	}

	v := i.Value
	r.pending.step.Index = &v
	r.pos++
	return nil
}

// injectPredicate handles a sentinel at r.pos: it requires the next token to
// be a literal, unquotes it onto the pending step, and consumes both tokens.
func (r *resolver) injectPredicate() error {
	sentinel := r.tokens[r.pos]
	if r.pending == nil {
		return newResolveError(ErrCodeOrphanPredicate, r.pos, sentinel, "name predicate appears before any segment")
	}

	next := r.pos + 1
	if next >= len(r.tokens) {
		return newResolveError(ErrCodeMissingLiteral, r.pos, sentinel, "name predicate marker at end of stream")
	}
	lit, ok := literalOf(r.tokens[next])
	if !ok {
		return newResolveError(ErrCodeMissingLiteral, next, r.tokens[next], "name predicate marker must be followed by a literal")
	}

	if r.pending.predicateAt >= 0 {
		return newResolveError(ErrCodeDuplicatePredicate, r.pos, sentinel,
			"step %q already has name predicate %q", r.pending.step.Container, *r.pending.step.NamePredicate)
	}

	value, err := Unquote(lit.Raw)
	if err != nil {
		e := newResolveError(ErrCodeMalformedLiteral, next, lit, "cannot unquote name predicate")
		e.Err = err
		return e
	}

	r.pending.step.NamePredicate = &value
	r.pending.predicateAt = r.pos
	r.pos += 2
	return nil
}

// seal appends the pending step, if any, to the output.
func (r *resolver) seal() {
	if r.pending == nil {
		return
	}
	r.steps = append(r.steps, r.pending.step)
	r.pending = nil
}

func (r *resolver) unknown(tok Token) error {
	return newResolveError(ErrCodeUnknownToken, r.pos, nil, "unsupported token %s", describeToken(tok))
}

func literalOf(tok Token) (PredicateLiteral, bool) {
	switch t := tok.(type) {
	case PredicateLiteral:
		return t, true
	case *PredicateLiteral:
		if t != nil {
			return *t, true
		}
	}
	return PredicateLiteral{}, false
}

func describeToken(tok Token) string {
	if tok == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", tok)
}
