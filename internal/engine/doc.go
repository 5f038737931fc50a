// Package engine runs archetype-path queries and record operations against
// the store.
//
// QUERY PIPELINE:
//
//	Request (raw or tokenized paths)
//	  → aqlpath.Resolve        one Expression per column and filter
//	  → queryir.Validate       structural checks, fan-out warnings
//	  → querysql.Compile       parameterized SQLite
//	  → store.Query            rows of JSON text cells
//	  → queryresult.NewWithInfo
//
// Each stage fails with a *QueryError whose Code names the stage, so callers
// can tell a bad request from a failed execution.
//
// RECORDS:
//
// Commit, Update, Get, History and AdminDelete wrap the store with document
// inspection (root archetype node id, template id), canonicalization and
// content hashing. Updates use optimistic locking on the preceding version.
//
// DETERMINISM:
//
// Ids and time come from an injectable IDGenerator and Clock. With fixed
// implementations, identical inputs produce identical stores and results.
//
// The Engine holds no mutable state of its own and is safe for concurrent
// use; the store serializes writes.
package engine
