package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EHR represents an electronic health record container.
// Compositions always belong to exactly one EHR.
type EHR struct {
	ID        string    `json:"ehr_id"`
	SystemID  string    `json:"system_id"`
	CreatedAt time.Time `json:"time_created"`
}

// ObjectVersionID identifies one version of a versioned object.
//
// Format: "<uuid>::<system_id>::<version>", e.g.
// "8849182c-82ad-4088-a07f-48ead4180515::local.ehrstore::2".
// Versions start at 1 and increase by one per update.
type ObjectVersionID struct {
	ID       string `json:"id"`
	SystemID string `json:"system_id"`
	Version  int    `json:"version"`
}

// String renders the canonical "<uuid>::<system>::<version>" form.
func (v ObjectVersionID) String() string {
	return fmt.Sprintf("%s::%s::%d", v.ID, v.SystemID, v.Version)
}

// Next returns the id of the version that follows v.
func (v ObjectVersionID) Next() ObjectVersionID {
	return ObjectVersionID{ID: v.ID, SystemID: v.SystemID, Version: v.Version + 1}
}

// ParseObjectVersionID parses the "<uuid>::<system>::<version>" form.
// The system id may itself not contain "::".
func ParseObjectVersionID(s string) (ObjectVersionID, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 {
		return ObjectVersionID{}, fmt.Errorf("invalid object version id %q: want <uuid>::<system>::<version>", s)
	}
	if parts[0] == "" || parts[1] == "" {
		return ObjectVersionID{}, fmt.Errorf("invalid object version id %q: empty id or system", s)
	}
	version, err := strconv.Atoi(parts[2])
	if err != nil || version < 1 {
		return ObjectVersionID{}, fmt.Errorf("invalid object version id %q: version must be a positive integer", s)
	}
	return ObjectVersionID{ID: parts[0], SystemID: parts[1], Version: version}, nil
}

// Composition represents one committed version of a composition document.
type Composition struct {
	UID             ObjectVersionID `json:"uid"`
	EhrID           string          `json:"ehr_id"`
	TemplateID      string          `json:"template_id"`
	ArchetypeNodeID string          `json:"archetype_node_id"`
	ContentHash     string          `json:"content_hash"`
	Document        json.RawMessage `json:"document"`
	CommittedAt     time.Time       `json:"committed_at"`
}

// StoredQuery is a named, versioned query definition.
//
// Paths are kept in the raw string-array form emitted by the AQL parser
// (e.g. "/items[at0004]", "0", "$AQL_NODE_NAME_PREDICATE$", "'Systolic'")
// and resolved when the query is run.
type StoredQuery struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	TemplateID  string         `json:"template_id,omitempty"`
	Columns     []StoredColumn `json:"columns"`
	Where       []StoredFilter `json:"where,omitempty"`
	Limit       int            `json:"limit,omitempty"`
}

// StoredColumn is one projected column of a stored query.
type StoredColumn struct {
	Alias string   `json:"alias"`
	Path  []string `json:"path"`
}

// StoredFilter is an equality filter on the value found at Path.
// Equals holds a string, int64, or json.Number.
type StoredFilter struct {
	Path   []string `json:"path"`
	Equals any      `json:"equals"`
}

// QualifiedName returns "name::version", the key used to address a stored query.
func (q StoredQuery) QualifiedName() string {
	if q.Version == "" {
		return q.Name
	}
	return q.Name + "::" + q.Version
}
