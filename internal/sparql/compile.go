package sparql

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// DefaultPageSize bounds queries that set no limit.
const DefaultPageSize = 100

// MemberVar is the variable bound to each member of the container.
const MemberVar = "?m"

// Options configures a Compiler.
type Options struct {
	// Membership links the container to its members.
	// Defaults to ldp:contains, forward.
	Membership shape.Predicate

	// PageSize is the limit used when a query sets none.
	// Defaults to DefaultPageSize.
	PageSize int
}

// Compiler lowers (shape, query) pairs to SELECT statements.
// A Compiler is stateless and safe for concurrent use.
type Compiler struct {
	opts Options
}

// NewCompiler creates a Compiler, filling unset options with defaults.
func NewCompiler(opts Options) *Compiler {
	if opts.Membership.IRI == "" {
		opts.Membership = shape.Forward(value.LDPContains)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Compiler{opts: opts}
}

// Column binds a projected probe to its result variable.
type Column struct {
	Label string
	Var   string
	Expr  query.Expression
}

// Statement is compiled query text with the variables result rows carry.
type Statement struct {
	Text string

	// Member is MemberVar for resource templates and empty for tables.
	Member string

	Columns []Column
}

// Compile emits the SELECT statement listing the members of container that
// satisfy q, resolving every expression against s.
//
// Paths used by non-aggregate filters are required patterns; all other paths
// are optional. Aggregate filters become a HAVING clause. The ORDER BY always
// ends with a deterministic tie-break, except for all-aggregate tables, which
// yield a single row.
func (c *Compiler) Compile(container string, s *shape.Shape, q query.Query) (Statement, error) {
	if container == "" {
		return Statement{}, fmt.Errorf("compile: empty container")
	}
	if err := q.Validate(s); err != nil {
		return Statement{}, fmt.Errorf("compile: %w", err)
	}

	cc := &compilation{
		shape:   s,
		root:    &node{variable: MemberVar},
		columns: make(map[string]string),
	}
	for _, e := range q.Expressions() {
		if err := cc.bind(e); err != nil {
			return Statement{}, fmt.Errorf("compile: %w", err)
		}
	}
	for e := range q.Filters().All() {
		if !e.Aggregate() {
			cc.require(e)
		}
	}

	_, table := q.Model().(query.Table)
	stmt := Statement{}
	if !table {
		stmt.Member = MemberVar
	}

	// Probes.
	var (
		binds      []Pattern
		projection []string
		plainVars  []string
		aggregates bool
	)
	if !table {
		projection = append(projection, MemberVar)
	}
	for i, p := range q.Model().Probes() {
		col := Column{Label: p.Label, Expr: p.Expr}
		switch {
		case !p.Expr.Computed():
			col.Var = cc.pathVar(p.Expr)
			if !slices.Contains(projection, col.Var) {
				projection = append(projection, col.Var)
			}
			plainVars = appendUnique(plainVars, col.Var)
		case !p.Expr.Aggregate():
			col.Var = "?c" + strconv.Itoa(i+1)
			binds = append(binds, Bind{Expr: cc.render(p.Expr), Var: col.Var})
			projection = append(projection, col.Var)
			plainVars = appendUnique(plainVars, col.Var)
			cc.columns[p.Expr.Key()] = col.Var
		default:
			col.Var = "?c" + strconv.Itoa(i+1)
			projection = append(projection, "("+cc.render(p.Expr)+" AS "+col.Var+")")
			cc.columns[p.Expr.Key()] = col.Var
			aggregates = true
		}
		stmt.Columns = append(stmt.Columns, col)
	}

	// Filters.
	var where, having []string
	for e, con := range q.Filters().All() {
		if e.Aggregate() {
			having = append(having, conditions(cc.render(e), con, true)...)
			aggregates = true
			continue
		}
		where = append(where, conditions(cc.render(e), con, false)...)
	}
	for e := range q.Orders().All() {
		aggregates = aggregates || e.Aggregate()
	}
	for e, values := range q.Foci().All() {
		aggregates = aggregates || (e.Aggregate() && !values.IsEmpty())
	}

	// Grouping.
	var groupBy []string
	switch {
	case table && len(plainVars) > 0:
		groupBy = plainVars
	case !table && aggregates:
		groupBy = append([]string{MemberVar}, plainVars...)
	}
	cc.groupBy = groupBy

	// Patterns.
	patterns := []Pattern{c.membership(container)}
	for t := range s.Types().All() {
		patterns = append(patterns, Triple{Subject: MemberVar, Path: "a", Object: t.String()})
	}
	patterns = append(patterns, cc.patterns(cc.root)...)
	patterns = append(patterns, binds...)
	patterns = append(patterns, Filter{Conditions: where})

	sel := Select{
		Distinct:   !table,
		Projection: projection,
		Where:      patterns,
		GroupBy:    groupBy,
		Having:     having,
		Offset:     q.Offset(),
		Limit:      cmp.Or(q.Limit(), c.opts.PageSize),
	}
	if !table || len(plainVars) > 0 {
		sel.OrderBy = cc.orderBy(q, table, plainVars)
	}

	stmt.Text = renderSelect(sel)
	slog.Debug("statement compiled",
		"container", container,
		"table", table,
		"grouped", len(groupBy) > 0,
		"columns", len(stmt.Columns))
	return stmt, nil
}

// membership binds the member to the container. Reverse predicates keep the
// container as subject and use the inverse path.
func (c *Compiler) membership(container string) Triple {
	return Triple{Subject: value.IRI(container).String(), Path: c.opts.Membership.String(), Object: MemberVar}
}

// node is one step of the tree of referenced paths.
type node struct {
	step      string
	predicate shape.Predicate
	variable  string
	required  bool
	children  []*node
}

func (n *node) child(step string) *node {
	for _, ch := range n.children {
		if ch.step == step {
			return ch
		}
	}
	return nil
}

// compilation is the per-statement state of Compile.
type compilation struct {
	shape   *shape.Shape
	root    *node
	next    int
	columns map[string]string
	groupBy []string
}

// bind allocates variables for every prefix of e's path, in first-reference
// order.
func (cc *compilation) bind(e query.Expression) error {
	predicates, err := e.Predicates(cc.shape)
	if err != nil {
		return err
	}
	n := cc.root
	for i, step := range e.Steps() {
		ch := n.child(step)
		if ch == nil {
			cc.next++
			ch = &node{step: step, predicate: predicates[i], variable: "?v" + strconv.Itoa(cc.next)}
			n.children = append(n.children, ch)
		}
		n = ch
	}
	return nil
}

// require marks e's path as a required pattern.
func (cc *compilation) require(e query.Expression) {
	n := cc.root
	for _, step := range e.Steps() {
		n = n.child(step)
		n.required = true
	}
}

// pathVar returns the variable bound to e's path, MemberVar for the empty path.
func (cc *compilation) pathVar(e query.Expression) string {
	n := cc.root
	for _, step := range e.Steps() {
		n = n.child(step)
	}
	return n.variable
}

// patterns emits required children of n as plain triples and optional
// children as nested OPTIONAL groups.
func (cc *compilation) patterns(n *node) []Pattern {
	var required, optional []Pattern
	for _, ch := range n.children {
		t := Triple{Subject: n.variable, Path: ch.predicate.String(), Object: ch.variable}
		if ch.required {
			required = append(required, t)
			required = append(required, cc.patterns(ch)...)
			continue
		}
		optional = append(optional, Optional{Patterns: append([]Pattern{t}, cc.patterns(ch)...)})
	}
	return append(required, optional...)
}

// render expands e's pipe into nested function applications over its path
// variable.
func (cc *compilation) render(e query.Expression) string {
	pipe := e.Pipe()
	term := cc.pathVar(e)
	for i := len(pipe) - 1; i >= 0; i-- {
		wildcard := i == len(pipe)-1 && len(e.Steps()) == 0
		term = function(pipe[i], term, wildcard)
	}
	return term
}

func function(t query.Transform, arg string, wildcard bool) string {
	switch t {
	case query.Count:
		if wildcard {
			return "COUNT(*)"
		}
		return "COUNT(DISTINCT " + arg + ")"
	default:
		return strings.ToUpper(t.String()) + "(" + arg + ")"
	}
}

// sortTerm returns the term ordering by e. Projected computed columns sort by
// their variable; in grouped statements plain terms outside the group key
// are sampled.
func (cc *compilation) sortTerm(e query.Expression) string {
	if v, ok := cc.columns[e.Key()]; ok {
		return v
	}
	term := cc.render(e)
	if len(cc.groupBy) > 0 && !e.Aggregate() && !slices.Contains(cc.groupBy, term) {
		return "SAMPLE(" + term + ")"
	}
	return term
}

func (cc *compilation) orderBy(q query.Query, table bool, plainVars []string) []string {
	var (
		clauses []string
		used    = make(map[string]bool)
	)
	for e, values := range q.Foci().All() {
		if values.IsEmpty() {
			continue
		}
		clauses = append(clauses, "DESC("+cc.sortTerm(e)+" IN "+list(values)+")")
	}

	type ranked struct {
		expr     query.Expression
		priority int
	}
	var orders []ranked
	for e, p := range q.Orders().All() {
		orders = append(orders, ranked{expr: e, priority: p})
	}
	slices.SortStableFunc(orders, func(a, b ranked) int {
		return cmp.Compare(abs(a.priority), abs(b.priority))
	})
	for _, o := range orders {
		term := cc.sortTerm(o.expr)
		used[term] = true
		if o.priority > 0 {
			clauses = append(clauses, "ASC("+term+")")
		} else {
			clauses = append(clauses, "DESC("+term+")")
		}
	}

	if !table {
		if !used[MemberVar] {
			clauses = append(clauses, "ASC("+MemberVar+")")
		}
		return clauses
	}
	for _, v := range plainVars {
		if !used[v] {
			clauses = append(clauses, "ASC("+v+")")
		}
	}
	return clauses
}

// conditions renders the predicates of c over term. Existence tests are
// dropped for aggregate terms, which are always bound.
func conditions(term string, c query.Constraint, aggregate bool) []string {
	var out []string
	for _, b := range []struct {
		op string
		v  value.Value
	}{{">", c.Gt()}, {">=", c.Gte()}, {"<", c.Lt()}, {"<=", c.Lte()}} {
		if b.v != nil {
			out = append(out, term+" "+b.op+" "+b.v.String())
		}
	}
	if l, ok := c.Like(); ok {
		for _, p := range l.Patterns() {
			out = append(out, "REGEX(STR("+term+"), "+value.String(p).String()+", \"i\")")
		}
	}
	if values, ok := c.Any(); ok {
		switch {
		case !values.IsEmpty():
			out = append(out, term+" IN "+list(values))
		case !aggregate:
			out = append(out, "BOUND("+term+")")
		}
	}
	return out
}

func list(values value.Set) string {
	terms := make([]string, 0, values.Len())
	for v := range values.All() {
		terms = append(terms, v.String())
	}
	return "(" + strings.Join(terms, ", ") + ")"
}

func appendUnique(s []string, v string) []string {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
