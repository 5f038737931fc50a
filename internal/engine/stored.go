package engine

import (
	"context"
	"fmt"

	"github.com/roach88/ehrstore/internal/ir"
	"github.com/roach88/ehrstore/internal/queryresult"
)

// StoredParams are the run-time parameters of a stored query.
type StoredParams struct {
	// EhrID narrows the query to one EHR when set.
	EhrID string

	// Limit overrides the stored limit when greater than zero.
	Limit int

	Offset  int
	Explain bool
}

// RunStored executes a stored query definition.
//
// Raw paths are decoded with aqlpath.ParseRaw; a path that fails to decode
// is reported as ErrCodeInvalidPath for its column.
func (e *Engine) RunStored(ctx context.Context, q ir.StoredQuery, p StoredParams) (queryresult.QueryResult, error) {
	req, err := RequestFromStored(q, p)
	if err != nil {
		queryTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return queryresult.QueryResult{}, err
	}
	return e.Query(ctx, req)
}

// RequestFromStored converts a stored query and its parameters to a Request.
func RequestFromStored(q ir.StoredQuery, p StoredParams) (Request, error) {
	req := Request{
		Name:       q.QualifiedName(),
		Columns:    make([]ColumnRequest, len(q.Columns)),
		EhrID:      p.EhrID,
		TemplateID: q.TemplateID,
		Limit:      q.Limit,
		Offset:     p.Offset,
		Explain:    p.Explain,
	}
	if p.Limit > 0 {
		req.Limit = p.Limit
	}

	for i, col := range q.Columns {
		c, err := RawColumn(col.Alias, col.Path...)
		if err != nil {
			return Request{}, err
		}
		req.Columns[i] = c
	}

	for i, f := range q.Where {
		filter, err := RawFilter(f.Equals, f.Path...)
		if err != nil {
			if qe, ok := err.(*QueryError); ok {
				qe.Column = fmt.Sprintf("where[%d]", i)
			}
			return Request{}, err
		}
		req.Filters = append(req.Filters, filter)
	}

	return req, nil
}
