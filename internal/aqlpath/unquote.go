package aqlpath

import (
	"errors"
	"fmt"
)

// ErrMalformedLiteral is wrapped by every Unquote failure.
var ErrMalformedLiteral = errors.New("malformed predicate literal")

// Unquote strips exactly one layer of matching single or double quotes.
//
// The content between the quotes is returned verbatim: escape sequences are
// NOT interpreted, so "'it\'s'" yields "it\'s" and "'it's'" yields "it's".
// Values are opaque equality targets.
//
// Fails when raw is shorter than two characters, does not start with a
// quote, or does not end with the same quote character.
func Unquote(raw string) (string, error) {
	if len(raw) < 2 {
		return "", fmt.Errorf("%w: %q is too short to be quoted", ErrMalformedLiteral, raw)
	}

	open := raw[0]
	if open != '\'' && open != '"' {
		return "", fmt.Errorf("%w: %q does not start with a quote", ErrMalformedLiteral, raw)
	}
	if raw[len(raw)-1] != open {
		return "", fmt.Errorf("%w: %q is missing its closing %c", ErrMalformedLiteral, raw, open)
	}

	return raw[1 : len(raw)-1], nil
}
