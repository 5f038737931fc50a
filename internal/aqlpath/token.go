package aqlpath

import "strconv"

// NamePredicateMarker is the raw encoding of a PredicateSentinel.
const NamePredicateMarker = "$AQL_NODE_NAME_PREDICATE$"

// Token is one element of a path token stream.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern enables exhaustive type switches in Resolve.
//
// Token types:
//   - Segment: a container, optionally tagged with an archetype node id
//   - Index: a zero-based repetition index for the preceding Segment
//   - PredicateSentinel: announces that the next token is a name literal
//   - PredicateLiteral: the quoted name literal
//
// String returns the raw encoding of the token as the AQL parser emits it.
type Token interface {
	pathToken() // Marker method - seals interface to this package
	String() string
}

// Segment is a structural container step, e.g. "items" tagged "at0004".
// An empty NodeID means the container is traversed without a node constraint.
type Segment struct {
	Container string
	NodeID    string
}

func (Segment) pathToken() {}

// String renders "/items[at0004]" or "/events".
func (s Segment) String() string {
	if s.NodeID == "" {
		return "/" + s.Container
	}
	return "/" + s.Container + "[" + s.NodeID + "]"
}

// Index selects one member of the preceding repeating container.
type Index struct {
	Value int
}

func (Index) pathToken() {}

func (i Index) String() string {
	return strconv.Itoa(i.Value)
}

// PredicateSentinel marks that the next token is a PredicateLiteral.
type PredicateSentinel struct{}

func (PredicateSentinel) pathToken() {}

func (PredicateSentinel) String() string {
	return NamePredicateMarker
}

// PredicateLiteral is a quoted name literal, e.g. "'Systolic'".
// Raw keeps the quotes; Resolve strips exactly one layer.
type PredicateLiteral struct {
	Raw string
}

func (PredicateLiteral) pathToken() {}

func (l PredicateLiteral) String() string {
	return l.Raw
}

// EncodeRaw renders tokens in the raw string-array form accepted by ParseRaw.
func EncodeRaw(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.String()
	}
	return out
}
