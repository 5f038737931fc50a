// Package queryresult packages the rows of an executed query together with
// metadata about its execution.
//
// A QueryResult always carries a payload. Execution info is optional: when a
// caller supplies none, the result carries the None value, which is distinct
// from every populated ExecutionInfo.
//
// Results are immutable after construction. Constructors copy the payload's
// slices, and accessors hand out copies, so neither side can change what the
// other observes.
package queryresult
