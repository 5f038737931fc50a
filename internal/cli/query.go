package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/ehrstore/internal/compiler"
	"github.com/roach88/ehrstore/internal/engine"
	"github.com/roach88/ehrstore/internal/queryresult"
)

// NewQueryCommand creates the query command group.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run path queries",
	}

	cmd.AddCommand(newQueryRunCommand(rootOpts))
	cmd.AddCommand(newQueryPathCommand(rootOpts))

	return cmd
}

// QueryRunOptions holds flags shared by the query subcommands.
type QueryRunOptions struct {
	EhrID   string
	Limit   int
	Offset  int
	Explain bool
}

func (q *QueryRunOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.EhrID, "ehr", "", "restrict the query to one EHR")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum number of rows (0 = no limit)")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&q.Explain, "explain", false, "include the SQLite query plan")
}

func newQueryRunCommand(opts *RootOptions) *cobra.Command {
	q := &QueryRunOptions{}

	cmd := &cobra.Command{
		Use:   "run <name>[::version]",
		Short: "Run a stored query",
		Long: `Run a query defined in the CUE query directory (--queries or the
config file). A bare name runs the highest version.

Example:
  ehrstore query run blood_pressure --ehr 7d44b88c-4199-4bad-97dc-d78268e01398
  ehrstore query run blood_pressure::1.0.0 --limit 10`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoredQuery(opts, q, args[0], cmd)
		},
	}

	q.register(cmd)
	return cmd
}

func runStoredQuery(opts *RootOptions, q *QueryRunOptions, name string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	loaded, loadErrs := compiler.LoadQueries(s.cfg.Queries, compiler.LoadModeFailFast)
	if len(loadErrs) > 0 {
		return fail(f, "failed to load queries", loadErrs[0])
	}
	f.VerboseLog("Loaded %d query definition(s) from %s", len(loaded.Queries), s.cfg.Queries)

	stored, ok := loaded.Lookup(name)
	if !ok {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("query %q not found in %s", name, s.cfg.Queries), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("query %q not found", name))
	}

	result, err := s.engine.RunStored(cmd.Context(), stored, engine.StoredParams{
		EhrID:   q.EhrID,
		Limit:   q.Limit,
		Offset:  q.Offset,
		Explain: q.Explain,
	})
	if err != nil {
		return fail(f, "query failed", err)
	}
	return outputQueryResult(f, result)
}

func newQueryPathCommand(opts *RootOptions) *cobra.Command {
	q := &QueryRunOptions{}
	var (
		columns    []string
		filters    []string
		templateID string
	)

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Run an ad hoc path query",
		Long: `Run a query given directly as columns and filters. Paths are JSON arrays
in the string-array form emitted by the AQL parser.

  --column 'alias=["/content[...]","/value","/magnitude"]'
  --where  '["/content[...]","/name","/value"]="Systolic"'

The value after "=" in --where is a JSON string, integer or boolean.

Example:
  ehrstore query path \
    --column 'systolic=["/content[openEHR-EHR-OBSERVATION.blood_pressure.v1]","/data[at0001]","/events[at0006]","0","/data[at0003]","/items[at0004]","/value","/magnitude"]' \
    --template vital_signs.v1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			req, err := buildPathRequest(columns, filters)
			if err != nil {
				_ = f.Error(errorCode(err), err.Error(), nil)
				return WrapExitError(ExitCommandError, "invalid query", err)
			}
			req.EhrID = q.EhrID
			req.TemplateID = templateID
			req.Limit = q.Limit
			req.Offset = q.Offset
			req.Explain = q.Explain
			return runPathQuery(opts, req, cmd)
		},
	}

	q.register(cmd)
	cmd.Flags().StringArrayVar(&columns, "column", nil, `projected column as alias=[path parts] (repeatable)`)
	cmd.Flags().StringArrayVar(&filters, "where", nil, `equality filter as [path parts]=literal (repeatable)`)
	cmd.Flags().StringVar(&templateID, "template", "", "restrict the query to one template")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func runPathQuery(opts *RootOptions, req engine.Request, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.engine.Query(cmd.Context(), req)
	if err != nil {
		return fail(f, "query failed", err)
	}
	return outputQueryResult(f, result)
}

// buildPathRequest decodes --column and --where flag values.
func buildPathRequest(columns, filters []string) (engine.Request, error) {
	var req engine.Request

	for _, c := range columns {
		alias, parts, err := parseColumnFlag(c)
		if err != nil {
			return engine.Request{}, err
		}
		col, err := engine.RawColumn(alias, parts...)
		if err != nil {
			return engine.Request{}, err
		}
		req.Columns = append(req.Columns, col)
	}

	for _, w := range filters {
		parts, literal, err := parseWhereFlag(w)
		if err != nil {
			return engine.Request{}, err
		}
		filter, err := engine.RawFilter(literal, parts...)
		if err != nil {
			return engine.Request{}, err
		}
		req.Filters = append(req.Filters, filter)
	}

	return req, nil
}

var errFlagSyntax = errors.New("invalid flag syntax")

// parseColumnFlag splits `alias=["part", ...]`.
func parseColumnFlag(value string) (string, []string, error) {
	alias, path, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(alias) == "" {
		return "", nil, fmt.Errorf("%w: --column %q: want alias=[path parts]", errFlagSyntax, value)
	}
	parts, err := decodeParts(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: --column %q: %v", errFlagSyntax, value, err)
	}
	return strings.TrimSpace(alias), parts, nil
}

// parseWhereFlag splits `["part", ...]=literal`. The path array is decoded
// first, so "]=" inside a path part or the literal does not confuse it.
func parseWhereFlag(value string) ([]string, any, error) {
	dec := json.NewDecoder(strings.NewReader(value))
	var parts []string
	if err := dec.Decode(&parts); err != nil {
		return nil, nil, fmt.Errorf("%w: --where %q: path must be a JSON array of strings: %v", errFlagSyntax, value, err)
	}
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("%w: --where %q: path must not be empty", errFlagSyntax, value)
	}
	rest, ok := strings.CutPrefix(strings.TrimSpace(value[dec.InputOffset():]), "=")
	if !ok {
		return nil, nil, fmt.Errorf("%w: --where %q: want [path parts]=literal", errFlagSyntax, value)
	}
	literal, err := decodeLiteral(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: --where %q: %v", errFlagSyntax, value, err)
	}
	return parts, literal, nil
}

func decodeParts(s string) ([]string, error) {
	var parts []string
	if err := json.Unmarshal([]byte(s), &parts); err != nil {
		return nil, fmt.Errorf("path must be a JSON array of strings: %v", err)
	}
	if len(parts) == 0 {
		return nil, errors.New("path must not be empty")
	}
	return parts, nil
}

// decodeLiteral accepts a JSON string, integer or boolean.
func decodeLiteral(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("literal must be JSON: %v", err)
	}
	if dec.More() {
		return nil, errors.New("literal must be a single JSON value")
	}
	switch val := v.(type) {
	case string, bool:
		return v, nil
	case json.Number:
		if _, err := val.Int64(); err != nil {
			return nil, fmt.Errorf("number literal %s must be an integer", val)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("literal must be a string, integer or boolean, got %T", v)
	}
}

// queryResponse is the JSON envelope of a query result.
type queryResponse struct {
	Status  string                  `json:"status"`
	Data    queryresult.QueryResult `json:"data"`
	QueryID string                  `json:"query_id,omitempty"`
}

// outputQueryResult prints result as a table or a JSON envelope.
func outputQueryResult(f *OutputFormatter, result queryresult.QueryResult) error {
	info := result.ExecutionInfo()

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(queryResponse{
			Status:  "ok",
			Data:    result,
			QueryID: info.QueryID,
		})
	}

	payload := result.Payload()
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)

	header := make([]string, len(payload.Columns))
	for i, c := range payload.Columns {
		header[i] = c.Name
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range payload.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = formatCell(cell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(f.Writer, "(%d rows)\n", payload.RowCount())
	f.VerboseLog("query %s took %s", info.QueryID, info.ExecutionTime)
	if info.Explain != "" {
		fmt.Fprintln(f.Writer)
		fmt.Fprintln(f.Writer, info.Explain)
	}
	return nil
}

// formatCell renders one cell as compact JSON; a missing value is "null".
func formatCell(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
