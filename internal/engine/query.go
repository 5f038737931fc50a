package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/ehrstore/internal/aqlpath"
	"github.com/roach88/ehrstore/internal/ir"
	"github.com/roach88/ehrstore/internal/queryir"
	"github.com/roach88/ehrstore/internal/queryresult"
)

// Request describes one path query.
//
// Columns and filters carry token streams as produced by the AQL parser
// (see aqlpath.ParseRaw). EhrID and TemplateID, when set, narrow the query
// to one EHR or one template.
type Request struct {
	Name       string
	Columns    []ColumnRequest
	Filters    []FilterRequest
	EhrID      string
	TemplateID string
	Limit      int
	Offset     int
	Explain    bool
}

// ColumnRequest is one projected column.
type ColumnRequest struct {
	Alias  string
	Tokens []aqlpath.Token
}

// FilterRequest keeps rows whose value at the path equals Equals.
type FilterRequest struct {
	Tokens []aqlpath.Token
	Equals any
}

// RawColumn decodes raw path parts into a ColumnRequest.
func RawColumn(alias string, raw ...string) (ColumnRequest, error) {
	tokens, err := aqlpath.ParseRaw(raw)
	if err != nil {
		return ColumnRequest{}, newQueryError(ErrCodeInvalidPath, alias, err, "cannot decode path")
	}
	return ColumnRequest{Alias: alias, Tokens: tokens}, nil
}

// RawFilter decodes raw path parts into a FilterRequest.
func RawFilter(equals any, raw ...string) (FilterRequest, error) {
	tokens, err := aqlpath.ParseRaw(raw)
	if err != nil {
		return FilterRequest{}, newQueryError(ErrCodeInvalidPath, "", err, "cannot decode filter path")
	}
	return FilterRequest{Tokens: tokens, Equals: equals}, nil
}

// Query resolves, compiles and executes a path query.
//
// The result always carries ExecutionInfo with the query id, execution time
// and generated SQL; Explain is filled when requested by the request or the
// engine. Errors are *QueryError values.
func (e *Engine) Query(ctx context.Context, req Request) (result queryresult.QueryResult, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.Query", trace.WithAttributes(
		attribute.String("ehrstore.query.name", req.Name),
		attribute.Int("ehrstore.query.columns", len(req.Columns)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			queryTotal.WithLabelValues(outcomeLabel(err)).Inc()
		} else {
			span.SetAttributes(attribute.Int("ehrstore.query.rows", result.RowCount()))
			queryTotal.WithLabelValues("ok").Inc()
		}
		span.End()
	}()

	sel, err := e.buildSelect(req)
	if err != nil {
		return queryresult.QueryResult{}, err
	}

	validation := queryir.Validate(sel)
	for _, w := range validation.Warnings {
		e.logger.Warn("query warning", "query", req.Name, "warning", w)
	}
	if !validation.IsValid {
		return queryresult.QueryResult{}, newQueryError(ErrCodeInvalidQuery, "", nil,
			"%s", strings.Join(validation.Errors, "; "))
	}

	sqlStr, params, err := e.compiler.Compile(sel)
	if err != nil {
		return queryresult.QueryResult{}, newQueryError(ErrCodeCompileFailed, "", err, "cannot compile query")
	}

	queryID := e.queryID.Generate()
	span.SetAttributes(attribute.String("ehrstore.query.id", queryID))

	start := e.clock.Now()
	rows, err := e.execute(ctx, sqlStr, params, len(sel.Columns))
	if err != nil {
		return queryresult.QueryResult{}, err
	}
	elapsed := e.clock.Now().Sub(start)

	queryDuration.Observe(elapsed.Seconds())
	queryRows.Observe(float64(len(rows)))

	var explain string
	if req.Explain || e.explain {
		explain, err = e.store.Explain(ctx, sqlStr, params...)
		if err != nil {
			return queryresult.QueryResult{}, newQueryError(ErrCodeExecutionFailed, "", err, "cannot explain query")
		}
	}

	columns := make([]queryresult.Column, len(sel.Columns))
	for i, col := range sel.Columns {
		columns[i] = queryresult.Column{Name: col.Alias, Path: col.Path.String()}
	}

	e.logger.Debug("query executed",
		"query_id", queryID,
		"query", req.Name,
		"rows", len(rows),
		"elapsed", elapsed,
	)

	return queryresult.NewWithInfo(&queryresult.ResultSet{
		Name:    req.Name,
		Query:   describeSelect(sel),
		Columns: columns,
		Rows:    rows,
	}, queryresult.ExecutionInfo{
		QueryID:       queryID,
		ExecutionTime: elapsed,
		SQL:           sqlStr,
		Explain:       explain,
	})
}

// buildSelect resolves every column and filter path and assembles the IR.
func (e *Engine) buildSelect(req Request) (queryir.Select, error) {
	if len(req.Columns) == 0 {
		return queryir.Select{}, newQueryError(ErrCodeInvalidRequest, "", nil, "at least one column is required")
	}

	sel := queryir.Select{
		Name:    req.Name,
		Columns: make([]queryir.Column, len(req.Columns)),
		Limit:   req.Limit,
		Offset:  req.Offset,
	}

	for i, col := range req.Columns {
		path, err := aqlpath.Resolve(col.Tokens)
		if err != nil {
			return queryir.Select{}, newQueryError(ErrCodeInvalidPath, col.Alias, err, "cannot resolve column path")
		}
		pathSteps.Observe(float64(path.Len()))
		sel.Columns[i] = queryir.Column{Alias: col.Alias, Path: path}
	}

	var preds []queryir.Predicate
	if req.EhrID != "" {
		preds = append(preds, queryir.EhrEquals{EhrID: req.EhrID})
	}
	if req.TemplateID != "" {
		preds = append(preds, queryir.TemplateEquals{TemplateID: req.TemplateID})
	}
	for i, f := range req.Filters {
		path, err := aqlpath.Resolve(f.Tokens)
		if err != nil {
			return queryir.Select{}, newQueryError(ErrCodeInvalidPath, fmt.Sprintf("where[%d]", i), err, "cannot resolve filter path")
		}
		preds = append(preds, queryir.PathEquals{Path: path, Value: f.Equals})
	}

	switch len(preds) {
	case 0:
	case 1:
		sel.Filter = preds[0]
	default:
		sel.Filter = queryir.And{Predicates: preds}
	}

	return sel, nil
}

// execute runs the compiled statement and decodes every JSON text cell.
func (e *Engine) execute(ctx context.Context, sqlStr string, params []any, width int) ([][]any, error) {
	rows, err := e.store.Query(ctx, sqlStr, params...)
	if err != nil {
		return nil, newQueryError(ErrCodeExecutionFailed, "", err, "query execution failed")
	}
	defer rows.Close()

	out := [][]any{}
	for rows.Next() {
		cells := make([]sql.NullString, width)
		dest := make([]any, width)
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, newQueryError(ErrCodeScanFailed, "", err, "cannot scan row %d", len(out))
		}

		row := make([]any, width)
		for i, cell := range cells {
			if !cell.Valid {
				continue
			}
			v, err := ir.DecodeJSON([]byte(cell.String))
			if err != nil {
				return nil, newQueryError(ErrCodeScanFailed, "", err, "cannot decode row %d column %d", len(out), i)
			}
			row[i] = v
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, newQueryError(ErrCodeExecutionFailed, "", err, "query cancelled")
		}
		return nil, newQueryError(ErrCodeExecutionFailed, "", err, "rows iteration failed")
	}

	return out, nil
}

// describeSelect renders the query in AQL-like notation for result sets.
func describeSelect(sel queryir.Select) string {
	var b strings.Builder

	b.WriteString("SELECT ")
	for i, col := range sel.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "c/%s AS %s", col.Path.String(), col.Alias)
	}
	b.WriteString(" FROM EHR e CONTAINS COMPOSITION c")

	if conds := describePredicate(sel.Filter); len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	if sel.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(sel.Limit))
	}
	if sel.Offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(sel.Offset))
	}
	return b.String()
}

func describePredicate(p queryir.Predicate) []string {
	switch pred := p.(type) {
	case queryir.EhrEquals:
		return []string{"e/ehr_id/value = " + quoteAQL(pred.EhrID)}
	case queryir.TemplateEquals:
		return []string{"c/archetype_details/template_id/value = " + quoteAQL(pred.TemplateID)}
	case queryir.PathEquals:
		return []string{fmt.Sprintf("c/%s = %s", pred.Path.String(), describeLiteral(pred.Value))}
	case queryir.And:
		var out []string
		for _, sub := range pred.Predicates {
			out = append(out, describePredicate(sub)...)
		}
		return out
	default:
		return nil
	}
}

func describeLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return quoteAQL(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// quoteAQL renders s as a single-quoted AQL string, doubling embedded quotes.
func quoteAQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// outcomeLabel maps an error to its metrics label.
func outcomeLabel(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return string(qe.Code)
	}
	return "error"
}
