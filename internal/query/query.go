package query

import (
	"fmt"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// ProbeNamespace prefixes the synthetic predicates of probes.
const ProbeNamespace = "app:/probes#"

// Probe is a labelled expression standing in for a computed or aliased output
// column. Its synthetic predicate lets result descriptions address computed
// values the same way as stored properties.
type Probe struct {
	Label string
	Expr  Expression
}

// Predicate returns the synthetic predicate of the probe.
func (p Probe) Predicate() shape.Predicate {
	return shape.Forward(ProbeNamespace + p.Label)
}

func (p Probe) String() string {
	return p.Label + "=" + p.Expr.String()
}

// Model is the result template of a query: a Template of resources or a Table
// of named columns.
type Model interface {
	model()
	Probes() []Probe
}

// Template selects whole resources. Probes add computed values to each
// resource.
type Template struct {
	Extra []Probe
}

func (Template) model() {}

// Probes returns the computed values added to each resource.
func (t Template) Probes() []Probe { return t.Extra }

// Table selects rows of named columns.
type Table struct {
	Columns []Probe
}

func (Table) model() {}

// Probes returns the columns.
func (t Table) Probes() []Probe { return t.Columns }

// Query is an immutable view over a collection: a model, per-expression
// filters, a priority-ranked order, focus values pinned to the front of the
// window, and a page window. Zero offset and limit mean unset.
type Query struct {
	model  Model
	filter Map[Constraint]
	order  Map[int]
	focus  Map[value.Set]
	offset int
	limit  int
}

// Filter returns a fragment constraining e.
func Filter(e Expression, c Constraint) Query {
	return Query{filter: Map[Constraint]{}.With(e, c)}
}

// Order returns a fragment sorting by e. A positive priority sorts ascending,
// zero or a negative one descending; smaller magnitudes sort first.
func Order(e Expression, priority int) Query {
	return Query{order: Map[int]{}.With(e, priority)}
}

// Focus returns a fragment pinning resources whose e has one of values to the
// front of the window.
func Focus(e Expression, values ...value.Value) Query {
	return Query{focus: Map[value.Set]{}.With(e, value.NewSet(values...))}
}

// Offset returns a fragment skipping n results.
func Offset(n int) Query { return Query{offset: n} }

// Limit returns a fragment returning at most n results.
func Limit(n int) Query { return Query{limit: n} }

// Merge combines fragments into a query over model. Filters on the same
// expression are merged with And. Order and focus entries and positive
// offsets and limits must agree wherever two fragments set them.
func Merge(model Model, fragments ...Query) (Query, error) {
	if model == nil {
		model = Template{}
	}
	if err := validateModel(model); err != nil {
		return Query{}, err
	}

	q := Query{model: model}
	for _, f := range fragments {
		if f.offset < 0 || f.limit < 0 {
			return Query{}, fault.Malformed("negative window (offset %d, limit %d)", f.offset, f.limit)
		}

		var err error
		q.filter, err = q.filter.merge(f.filter, func(_ Expression, a, b Constraint) (Constraint, error) {
			return And(a, b)
		})
		if err != nil {
			return Query{}, err
		}

		q.order, err = q.order.merge(f.order, func(e Expression, a, b int) (int, error) {
			if a != b {
				return 0, fault.Conflict(fmt.Sprintf("conflicting order for %s", e), a, b)
			}
			return a, nil
		})
		if err != nil {
			return Query{}, err
		}

		q.focus, err = q.focus.merge(f.focus, func(e Expression, a, b value.Set) (value.Set, error) {
			if !a.Equal(b) {
				return value.Set{}, fault.Conflict(fmt.Sprintf("conflicting focus for %s", e), a, b)
			}
			return a, nil
		})
		if err != nil {
			return Query{}, err
		}

		if q.offset, err = window("offset", q.offset, f.offset); err != nil {
			return Query{}, err
		}
		if q.limit, err = window("limit", q.limit, f.limit); err != nil {
			return Query{}, err
		}
	}
	return q, nil
}

func window(name string, a, b int) (int, error) {
	switch {
	case a == 0:
		return b, nil
	case b == 0 || a == b:
		return a, nil
	}
	return 0, fault.Conflict("conflicting "+name, a, b)
}

func validateModel(m Model) error {
	seen := make(map[string]bool)
	for _, p := range m.Probes() {
		if p.Label == "" {
			return fault.Malformed("empty probe label for %s", p.Expr)
		}
		if seen[p.Label] {
			return fault.Malformed("duplicate probe label %q", p.Label)
		}
		seen[p.Label] = true
	}
	if t, ok := m.(Table); ok && len(t.Columns) == 0 {
		return fault.Malformed("table without columns")
	}
	return nil
}

// Model returns the result template.
func (q Query) Model() Model {
	if q.model == nil {
		return Template{}
	}
	return q.model
}

// Filters returns the per-expression constraints.
func (q Query) Filters() Map[Constraint] { return q.filter }

// Orders returns the per-expression sort priorities.
func (q Query) Orders() Map[int] { return q.order }

// Foci returns the per-expression focus values.
func (q Query) Foci() Map[value.Set] { return q.focus }

// Offset returns the number of skipped results, 0 when unset.
func (q Query) Offset() int { return q.offset }

// Limit returns the page size, 0 when unset.
func (q Query) Limit() int { return q.limit }

// Expressions returns every expression the query references: probes first,
// then filters, orders and foci, each once, in that order.
func (q Query) Expressions() []Expression {
	var out []Expression
	seen := make(map[string]bool)
	add := func(e Expression) {
		if !seen[e.Key()] {
			seen[e.Key()] = true
			out = append(out, e)
		}
	}
	for _, p := range q.Model().Probes() {
		add(p.Expr)
	}
	for e := range q.filter.All() {
		add(e)
	}
	for e := range q.order.All() {
		add(e)
	}
	for e := range q.focus.All() {
		add(e)
	}
	return out
}

// Validate resolves every referenced expression against s.
func (q Query) Validate(s *shape.Shape) error {
	for _, e := range q.Expressions() {
		if _, err := e.Apply(s); err != nil {
			return fmt.Errorf("resolve %s: %w", e, err)
		}
	}
	return nil
}
