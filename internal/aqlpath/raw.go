package aqlpath

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var indexPattern = regexp.MustCompile(`^-?[0-9]+$`)

// ParseRaw decodes the string-array path encoding emitted by the AQL parser.
//
//	"/content[openEHR-EHR-OBSERVATION.blood_pressure.v1]"  Segment
//	"0"                                                    Index
//	"$AQL_NODE_NAME_PREDICATE$"                            PredicateSentinel
//	"'Systolic'"                                           PredicateLiteral
//
// The part following a marker is always taken as a literal, whatever it looks
// like, so that Resolve can report quoting problems precisely. A segment with
// an inline name, "/items[at0004,'Systolic']" or "/items[name/value='Systolic']",
// expands to Segment, sentinel and literal, so every Step.String rendering
// decodes back to the same step. Negative integers decode to Index so
// Resolve can reject them.
//
// ParseRaw only decodes; adjacency is checked by Resolve.
func ParseRaw(parts []string) ([]Token, error) {
	tokens := make([]Token, 0, len(parts))

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		switch {
		case part == NamePredicateMarker:
			tokens = append(tokens, PredicateSentinel{})
			if i+1 < len(parts) {
				i++
				tokens = append(tokens, PredicateLiteral{Raw: parts[i]})
			}

		case indexPattern.MatchString(part):
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, rawError(i, part, "index out of range", err)
			}
			tokens = append(tokens, Index{Value: v})

		case isQuoted(part):
			tokens = append(tokens, PredicateLiteral{Raw: part})

		default:
			seg, err := parseSegment(part)
			if err != nil {
				return nil, rawError(i, part, err.Error(), nil)
			}
			tokens = append(tokens, seg.tokens()...)
		}
	}

	return tokens, nil
}

// ResolveRaw is ParseRaw followed by Resolve.
func ResolveRaw(parts []string) (Expression, error) {
	tokens, err := ParseRaw(parts)
	if err != nil {
		return Expression{}, err
	}
	return Resolve(tokens)
}

// namePredicatePrefix introduces a name predicate inside segment brackets.
const namePredicatePrefix = "name/value"

// rawSegment is one decoded segment part with its inline constraints.
type rawSegment struct {
	segment Segment
	index   *int
	literal string // quoted; empty when absent
}

// tokens expands the segment in the order Step.tokens uses.
func (r rawSegment) tokens() []Token {
	toks := []Token{r.segment}
	if r.index != nil {
		toks = append(toks, Index{Value: *r.index})
	}
	if r.literal != "" {
		toks = append(toks, PredicateSentinel{}, PredicateLiteral{Raw: r.literal})
	}
	return toks
}

// parseSegment decodes the forms Step.String renders, with or without a
// leading slash:
//
//	name
//	name[nodeId]
//	name[nodeId,'literal']
//	name[nodeId,name/value='literal']
//	name[name/value='literal']
//	name[0]
//
// Any of the bracketed forms may be followed by a trailing [index].
// The literal is returned with its quotes.
func parseSegment(part string) (rawSegment, error) {
	s := strings.TrimPrefix(part, "/")
	if s == "" {
		return rawSegment{}, fmt.Errorf("empty segment")
	}

	open := strings.IndexByte(s, '[')
	if open < 0 {
		if strings.ContainsAny(s, "]/") {
			return rawSegment{}, fmt.Errorf("unexpected character in segment")
		}
		return rawSegment{segment: Segment{Container: s}}, nil
	}

	container := s[:open]
	if container == "" || strings.ContainsAny(container, "]/'\"") {
		return rawSegment{}, fmt.Errorf("segment has no container name")
	}

	end := closingBracket(s, open+1)
	if end < 0 {
		return rawSegment{}, fmt.Errorf("unbalanced brackets in segment")
	}

	out := rawSegment{segment: Segment{Container: container}}
	if err := out.parsePredicate(strings.TrimSpace(s[open+1 : end])); err != nil {
		return rawSegment{}, err
	}

	rest := s[end+1:]
	if rest == "" {
		return out, nil
	}
	if out.index != nil || !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
		return rawSegment{}, fmt.Errorf("unbalanced brackets in segment")
	}
	idx, err := parseIndex(rest[1 : len(rest)-1])
	if err != nil {
		return rawSegment{}, err
	}
	out.index = &idx
	return out, nil
}

// parsePredicate decodes the content of the first bracket group.
func (r *rawSegment) parsePredicate(inner string) error {
	switch {
	case inner == "":
		return nil
	case indexPattern.MatchString(inner):
		idx, err := parseIndex(inner)
		if err != nil {
			return err
		}
		r.index = &idx
		return nil
	case strings.HasPrefix(inner, namePredicatePrefix):
		lit, err := namePredicateLiteral(inner)
		if err != nil {
			return err
		}
		r.literal = lit
		return nil
	}

	nodeID, literal, hasLiteral := strings.Cut(inner, ",")
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" || strings.ContainsAny(nodeID, "'\"=[]") {
		return fmt.Errorf("malformed node id %q in segment", nodeID)
	}
	r.segment.NodeID = nodeID

	if !hasLiteral {
		return nil
	}
	literal = strings.TrimSpace(literal)
	if strings.HasPrefix(literal, namePredicatePrefix) {
		lit, err := namePredicateLiteral(literal)
		if err != nil {
			return err
		}
		literal = lit
	}
	if literal == "" {
		return fmt.Errorf("empty name literal in segment")
	}
	r.literal = literal
	return nil
}

// namePredicateLiteral returns the literal of "name/value=<literal>".
func namePredicateLiteral(s string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(s, namePredicatePrefix))
	if !strings.HasPrefix(rest, "=") {
		return "", fmt.Errorf("name predicate is missing '='")
	}
	literal := strings.TrimSpace(rest[1:])
	if literal == "" {
		return "", fmt.Errorf("empty name literal in segment")
	}
	return literal, nil
}

// closingBracket returns the index of the ']' closing a group that starts at
// from, skipping brackets inside quoted literals. It returns -1 if there is none.
func closingBracket(s string, from int) int {
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			return -1
		case c == ']':
			return i
		}
	}
	return -1
}

func parseIndex(s string) (int, error) {
	if !indexPattern.MatchString(s) {
		return 0, fmt.Errorf("malformed index %q in segment", s)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index out of range")
	}
	return v, nil
}

func isQuoted(part string) bool {
	return part != "" && (part[0] == '\'' || part[0] == '"')
}

func rawError(pos int, part, msg string, cause error) *ResolveError {
	return &ResolveError{
		Code:     ErrCodeInvalidSegment,
		Position: pos,
		Token:    part,
		Message:  msg,
		Err:      cause,
	}
}
