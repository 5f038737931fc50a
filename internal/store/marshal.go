package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/ehrstore/internal/ir"
)

// timeLayout is used for every stored timestamp. Stored values are UTC.
const timeLayout = time.RFC3339Nano

// marshalDocument converts a composition document to canonical JSON TEXT.
func marshalDocument(doc json.RawMessage) (string, error) {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
