package queryresult

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNilPayload is returned when a QueryResult is constructed without a payload.
var ErrNilPayload = errors.New("query result payload is required")

// ExecutionInfo describes how a query was executed.
//
// ExecutionInfo is comparable with ==; the zero value is None.
type ExecutionInfo struct {
	QueryID       string        `json:"query_id,omitempty"`
	ExecutionTime time.Duration `json:"execution_time_ns,omitempty"`
	SQL           string        `json:"sql,omitempty"`
	Explain       string        `json:"explain,omitempty"`
}

// None is the ExecutionInfo of a result constructed without metadata.
var None = ExecutionInfo{}

// IsNone reports whether info equals None.
func (info ExecutionInfo) IsNone() bool {
	return info == None
}

// Column names one projected column and the path it was selected from.
type Column struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ResultSet is the tabular payload of a query.
// Each row has one cell per column, in column order.
type ResultSet struct {
	Name    string   `json:"name,omitempty"`
	Query   string   `json:"q,omitempty"`
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// RowCount returns the number of rows.
func (rs *ResultSet) RowCount() int {
	return len(rs.Rows)
}

// clone copies the column slice, the row slice and each row.
// Cell values are shared; they are decoded JSON scalars or trees.
func (rs *ResultSet) clone() *ResultSet {
	out := &ResultSet{
		Name:    rs.Name,
		Query:   rs.Query,
		Columns: make([]Column, len(rs.Columns)),
		Rows:    make([][]any, len(rs.Rows)),
	}
	copy(out.Columns, rs.Columns)
	for i, row := range rs.Rows {
		r := make([]any, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// QueryResult pairs a payload with its execution info.
type QueryResult struct {
	payload *ResultSet
	info    ExecutionInfo
}

// New builds a result with no execution info.
func New(payload *ResultSet) (QueryResult, error) {
	return NewWithInfo(payload, None)
}

// NewWithInfo builds a result carrying info exactly as supplied.
func NewWithInfo(payload *ResultSet, info ExecutionInfo) (QueryResult, error) {
	if payload == nil {
		return QueryResult{}, ErrNilPayload
	}
	return QueryResult{payload: payload.clone(), info: info}, nil
}

// Payload returns a copy of the result set.
func (r QueryResult) Payload() *ResultSet {
	if r.payload == nil {
		return nil
	}
	return r.payload.clone()
}

// ExecutionInfo returns the execution info, None if none was supplied.
func (r QueryResult) ExecutionInfo() ExecutionInfo {
	return r.info
}

// HasExecutionInfo reports whether the result carries execution info.
func (r QueryResult) HasExecutionInfo() bool {
	return !r.info.IsNone()
}

// RowCount returns the number of payload rows.
func (r QueryResult) RowCount() int {
	if r.payload == nil {
		return 0
	}
	return len(r.payload.Rows)
}

// resultJSON is the wire form of a QueryResult.
type resultJSON struct {
	Result *ResultSet     `json:"result"`
	Meta   *ExecutionInfo `json:"meta,omitempty"`
}

// MarshalJSON renders {"result": ..., "meta": ...}; meta is omitted for None.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	if r.payload == nil {
		return nil, ErrNilPayload
	}
	out := resultJSON{Result: r.payload}
	if r.HasExecutionInfo() {
		info := r.info
		out.Meta = &info
	}
	return json.Marshal(out)
}
