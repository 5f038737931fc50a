package queryir

import "github.com/roach88/ehrstore/internal/aqlpath"

// Query represents an abstract query in the IR.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: columns projected from the latest composition versions
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the IR.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - PathEquals: value at a path = literal
//   - EhrEquals: composition belongs to an EHR
//   - TemplateEquals: composition was built from a template
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select projects one column per path expression.
//
// Semantics:
//
//	SELECT <columns> FROM latest compositions WHERE <filter>
//	LIMIT <limit> OFFSET <offset>
//
// Each column path is navigated from the composition root. A step without
// an index fans out over every member of a repeating container, producing
// one row per member. Columns whose paths share a prefix stay on the same
// row for that prefix.
//
// Example:
//
//	Select{
//	  Name: "systolic",
//	  Columns: []Column{
//	    {Alias: "systolic", Path: <content[...]/data[at0001]/events[at0006]/data[at0003]/items[at0004]/value/magnitude>},
//	  },
//	  Filter: &EhrEquals{EhrID: "7d44b88c-..."},
//	}
type Select struct {
	Name    string    // Optional label carried into the result set
	Columns []Column  // Projected columns, in output order
	Filter  Predicate // WHERE conditions (nil = no filter)
	Limit   int       // 0 = unlimited
	Offset  int
}

func (Select) queryNode() {}

// Column is one projected column.
type Column struct {
	Alias string             // Output name; must be a valid identifier
	Path  aqlpath.Expression // Resolved path navigated from the composition root
}

// PathEquals compares the value found at Path with a literal.
//
// Semantics:
//
//	json_extract(<node at Path>) = <value>
//
// The path navigates the same way a column does, so a PathEquals on an
// unindexed repeating step keeps a row when any member matches.
type PathEquals struct {
	Path  aqlpath.Expression
	Value any // string, bool, int, int64 or json.Number
}

func (PathEquals) predicateNode() {}

// EhrEquals restricts results to compositions of one EHR.
type EhrEquals struct {
	EhrID string
}

func (EhrEquals) predicateNode() {}

// TemplateEquals restricts results to compositions of one template.
type TemplateEquals struct {
	TemplateID string
}

func (TemplateEquals) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
