package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashes.
// Version suffix enables future algorithm migration.
const (
	DomainComposition = "ehrstore/composition/v1"
	DomainQuery       = "ehrstore/query/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the content hash of a composition document.
// Two documents that differ only in key order, whitespace, or Unicode
// normalization hash identically.
func ContentHash(document []byte) (string, error) {
	doc, err := DecodeJSON(document)
	if err != nil {
		return "", fmt.Errorf("ContentHash: %w", err)
	}

	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainComposition, canonical), nil
}

// QueryHash computes a fingerprint of a stored query definition.
// Used to detect definition changes between runs.
func QueryHash(q StoredQuery) (string, error) {
	columns := make([]any, len(q.Columns))
	for i, col := range q.Columns {
		columns[i] = map[string]any{
			"alias": col.Alias,
			"path":  stringsToAny(col.Path),
		}
	}
	where := make([]any, len(q.Where))
	for i, f := range q.Where {
		where[i] = map[string]any{
			"path":   stringsToAny(f.Path),
			"equals": fmt.Sprint(f.Equals),
		}
	}

	obj := map[string]any{
		"name":        q.Name,
		"version":     q.Version,
		"template_id": q.TemplateID,
		"columns":     columns,
		"where":       where,
		"limit":       q.Limit,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("QueryHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
