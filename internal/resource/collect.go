package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/sparql"
	"github.com/roach88/shapeq/internal/value"
)

// Binding is one solution row, keyed by variable name without the leading "?".
type Binding map[string]value.Value

// Collect maps the rows returned for stmt back to descriptions.
//
// Template statements yield one description per member, in first-seen order,
// with every projected column pinned under its probe. Table statements yield
// one blank-node description per row.
func Collect(stmt sparql.Statement, rows []Binding) ([]*Description, error) {
	if stmt.Member == "" {
		return collectTable(stmt, rows), nil
	}

	member := varName(stmt.Member)
	var (
		out   []*Description
		index = make(map[string]*Description)
	)
	for i, row := range rows {
		id, ok := row[member]
		if !ok {
			return nil, fault.Malformed("row %d: unbound member variable %s", i, stmt.Member)
		}
		if !isResource(id) {
			return nil, fault.Malformed("row %d: member %s is not a resource", i, id)
		}
		d, ok := index[id.String()]
		if !ok {
			d = New(id)
			index[id.String()] = d
			out = append(out, d)
		}
		pin(d, stmt.Columns, row)
	}
	return out, nil
}

func collectTable(stmt sparql.Statement, rows []Binding) []*Description {
	out := make([]*Description, 0, len(rows))
	for i, row := range rows {
		d := New(value.BNode("r" + strconv.Itoa(i+1)))
		pin(d, stmt.Columns, row)
		out = append(out, d)
	}
	return out
}

func pin(d *Description, columns []sparql.Column, row Binding) {
	for _, c := range columns {
		if v, ok := row[varName(c.Var)]; ok && v != nil {
			d.Pin(query.Probe{Label: c.Label, Expr: c.Expr}, v)
		}
	}
}

func varName(v string) string {
	return strings.TrimPrefix(v, "?")
}

// String renders d as one N-Triples-like line per quad, in predicate order.
func (d *Description) String() string {
	var b strings.Builder
	for _, q := range d.Quads() {
		fmt.Fprintf(&b, "%s %s %s .\n", q.Subject.String(), q.Predicate.String(), q.Object.String())
	}
	return b.String()
}
