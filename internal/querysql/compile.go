package querysql

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/ehrstore/internal/aqlpath"
	"github.com/roach88/ehrstore/internal/queryir"
)

var (
	containerPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	aliasPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// SQLCompiler compiles the query IR to parameterized SQL for SQLite.
//
// Every path step becomes one json_each source joined to its parent step, so
// a repeating container yields one row per member. Steps with the same
// prefix are joined once and shared by every column and filter that uses
// them.
//
// CRITICAL: ALL queries end with ORDER BY c.uid COLLATE BINARY plus the
// json_each keys, for deterministic row order.
// CRITICAL: All values are parameterized, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// Each selected cell is returned as JSON text ('null' when the path is
// missing) so callers decode every column the same way.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		if query == nil {
			return "", nil, fmt.Errorf("cannot compile nil query")
		}
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// node is one joined json_each source.
type node struct {
	alias  string
	parent *node // nil for steps navigated from the document root
	step   aqlpath.Step
}

// nodeKey identifies a join source by its parent and every step constraint.
type nodeKey struct {
	parent    string
	container string
	nodeID    string
	index     int
	hasIndex  bool
	name      string
	hasName   bool
}

func newNodeKey(parent *node, step aqlpath.Step) nodeKey {
	k := nodeKey{container: step.Container, nodeID: step.NodeID}
	if parent != nil {
		k.parent = parent.alias
	}
	if step.HasIndex() {
		k.index, k.hasIndex = *step.Index, true
	}
	if step.HasNamePredicate() {
		k.name, k.hasName = *step.NamePredicate, true
	}
	return k
}

// plan accumulates the join tree for one statement.
type plan struct {
	nodes []*node
	byKey map[nodeKey]*node
}

func newPlan() *plan {
	return &plan{byKey: make(map[nodeKey]*node)}
}

// walk registers every step of path and returns the node of its leaf.
func (p *plan) walk(path aqlpath.Expression) (*node, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	var parent *node
	for _, step := range path.Steps() {
		if !containerPattern.MatchString(step.Container) {
			return nil, fmt.Errorf("invalid container name %q", step.Container)
		}

		key := newNodeKey(parent, step)

		n, ok := p.byKey[key]
		if !ok {
			n = &node{
				alias:  "n" + strconv.Itoa(len(p.nodes)+1),
				parent: parent,
				step:   step,
			}
			p.nodes = append(p.nodes, n)
			p.byKey[key] = n
		}
		parent = n
	}
	return parent, nil
}

// compileSelect compiles a queryir.Select to SQL.
// MANDATORY: Includes ORDER BY.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("select has no columns")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return "", nil, fmt.Errorf("limit and offset must not be negative")
	}

	p := newPlan()

	// Columns first so their aliases are numbered in column order.
	cells := make([]string, len(q.Columns))
	for i, col := range q.Columns {
		if !aliasPattern.MatchString(col.Alias) {
			return "", nil, fmt.Errorf("column %d: invalid alias %q", i, col.Alias)
		}
		leaf, err := p.walk(col.Path)
		if err != nil {
			return "", nil, fmt.Errorf("column %q: %w", col.Alias, err)
		}
		cells[i] = fmt.Sprintf("%s AS %q", cellExpr(leaf.alias), col.Alias)
	}

	where := []string{"c.is_latest = 1"}
	var whereParams []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(p, q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = append(where, filterSQL)
		whereParams = filterParams
	}

	var sb strings.Builder
	var params []any

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cells, ", "))
	sb.WriteString(" FROM compositions c")

	for _, n := range p.nodes {
		joinSQL, joinParams := compileJoin(n)
		sb.WriteString(joinSQL)
		params = append(params, joinParams...)
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(where, " AND "))
	params = append(params, whereParams...)

	// MANDATORY: Always add ORDER BY
	sb.WriteString(" ORDER BY ")
	sb.WriteString(stableOrderKey(p))

	if q.Limit > 0 || q.Offset > 0 {
		limit := int64(-1)
		if q.Limit > 0 {
			limit = int64(q.Limit)
		}
		sb.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, limit, int64(q.Offset))
	}

	return sb.String(), params, nil
}

// compileJoin renders the json_each source of one step.
//
// The target at $.container (or $.container[i]) is navigated from the parent
// value. Arrays are iterated as-is; any other value is wrapped in a
// one-element array so objects and scalars navigate the same way. A missing
// target produces no members and the LEFT JOIN yields a NULL row.
func compileJoin(n *node) (string, []any) {
	parent := "c.document"
	if n.parent != nil {
		parent = fmt.Sprintf("(CASE WHEN %[1]s.type IN ('object', 'array') THEN %[1]s.value END)", n.parent.alias)
	}

	path := "$." + n.step.Container
	if n.step.HasIndex() {
		path += "[" + strconv.Itoa(*n.step.Index) + "]"
	}

	source := fmt.Sprintf(
		"json_each(CASE json_type(%[1]s, ?) WHEN 'array' THEN %[1]s -> ? ELSE '[' || (%[1]s -> ?) || ']' END)",
		parent)
	params := []any{path, path, path}

	on := []string{n.alias + ".type != 'null'"}
	if n.step.HasNodeID() {
		on = append(on, fmt.Sprintf("%s = ?", objectField(n.alias, "$.archetype_node_id")))
		params = append(params, n.step.NodeID)
	}
	if n.step.HasNamePredicate() {
		on = append(on, fmt.Sprintf("%s = ?", objectField(n.alias, "$.name.value")))
		params = append(params, *n.step.NamePredicate)
	}

	return fmt.Sprintf(" LEFT JOIN %s AS %s ON %s", source, n.alias, strings.Join(on, " AND ")), params
}

// objectField extracts a field of an object member; NULL for non-objects.
func objectField(alias, path string) string {
	return fmt.Sprintf("(CASE WHEN %[1]s.type = 'object' THEN json_extract(%[1]s.value, '%[2]s') END)", alias, path)
}

// cellExpr renders the member value as JSON text.
func cellExpr(alias string) string {
	return fmt.Sprintf(
		"(CASE %[1]s.type WHEN 'object' THEN %[1]s.value WHEN 'array' THEN %[1]s.value "+
			"WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' ELSE json_quote(%[1]s.value) END)",
		alias)
}

// stableOrderKey returns the ORDER BY clause for a plan.
// MANDATORY: Every query MUST call this function.
// Uses COLLATE BINARY for deterministic text ordering.
func stableOrderKey(p *plan) string {
	keys := []string{"c.uid COLLATE BINARY"}
	for _, n := range p.nodes {
		keys = append(keys, n.alias+".key")
	}
	return strings.Join(keys, ", ")
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p *plan, pred queryir.Predicate) (string, []any, error) {
	if pred == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pr := pred.(type) {
	case queryir.PathEquals:
		return c.compilePathEquals(p, pr)
	case *queryir.PathEquals:
		return c.compilePathEquals(p, *pr)
	case queryir.EhrEquals:
		return "c.ehr_id = ?", []any{pr.EhrID}, nil
	case *queryir.EhrEquals:
		return "c.ehr_id = ?", []any{pr.EhrID}, nil
	case queryir.TemplateEquals:
		return "c.template_id = ?", []any{pr.TemplateID}, nil
	case *queryir.TemplateEquals:
		return "c.template_id = ?", []any{pr.TemplateID}, nil
	case queryir.And:
		return c.compileAnd(p, pr)
	case *queryir.And:
		return c.compileAnd(p, *pr)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", pred)
	}
}

// compilePathEquals compares the leaf member of a path with a literal.
// The member type is checked as well, so "1" never equals 1 or true.
func (c *SQLCompiler) compilePathEquals(p *plan, eq queryir.PathEquals) (string, []any, error) {
	leaf, err := p.walk(eq.Path)
	if err != nil {
		return "", nil, fmt.Errorf("path %q: %w", eq.Path.String(), err)
	}
	a := leaf.alias

	param, err := literalToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("path %q: %w", eq.Path.String(), err)
	}

	switch v := param.(type) {
	case string:
		return fmt.Sprintf("(%s.type = 'text' AND %s.value = ?)", a, a), []any{v}, nil
	case bool:
		return fmt.Sprintf("%s.type = ?", a), []any{strconv.FormatBool(v)}, nil
	default:
		return fmt.Sprintf("(%s.type IN ('integer', 'real') AND %s.value = ?)", a, a), []any{v}, nil
	}
}

// compileAnd compiles an And predicate to a conjunction.
func (c *SQLCompiler) compileAnd(p *plan, and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(p, pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return "(" + strings.Join(sqlParts, " AND ") + ")", allParams, nil
}

// literalToParam converts a filter literal to a Go native SQL parameter.
func literalToParam(v any) (any, error) {
	if err := queryir.CheckLiteral(v); err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case json.Number:
		return val.Int64()
	default:
		return nil, fmt.Errorf("unsupported literal type for SQL parameter: %T", v)
	}
}
