// Package queryir provides the query intermediate representation (IR) that
// sits between resolved archetype paths and the SQL backend.
//
//	[raw paths] → aqlpath.Resolve → [Query IR] → querysql → SQLite
//
// A query selects one column per resolved path expression from the latest
// version of every stored composition, optionally narrowed by filters.
//
// SUPPORTED FRAGMENT:
//
//   - Select(columns, filter, limit, offset)
//   - Predicates: PathEquals, EhrEquals, TemplateEquals, And
//   - Explicit columns only (no SELECT *)
//
// Excluded: OR predicates, ORDER BY on paths, aggregates, functions.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch over
// them exhaustively:
//
//	switch p := pred.(type) {
//	case PathEquals, *PathEquals:
//	case EhrEquals, *EhrEquals:
//	case TemplateEquals, *TemplateEquals:
//	case And, *And:
//	}
//
// LITERALS:
//
// Literal values are string, bool, int, int64 or json.Number. Floats are
// rejected so that equality stays exact and canonical encoding is stable.
package queryir
