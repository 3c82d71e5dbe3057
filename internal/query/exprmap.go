package query

import "iter"

// Map is an immutable insertion-ordered map keyed by Expression.
type Map[V any] struct {
	entries []entry[V]
	index   map[string]int
}

type entry[V any] struct {
	expr  Expression
	value V
}

// Len returns the number of entries.
func (m Map[V]) Len() int { return len(m.entries) }

// Get returns the value stored for e.
func (m Map[V]) Get(e Expression) (V, bool) {
	if i, ok := m.index[e.Key()]; ok {
		return m.entries[i].value, true
	}
	var zero V
	return zero, false
}

// All iterates the entries in insertion order.
func (m Map[V]) All() iter.Seq2[Expression, V] {
	return func(yield func(Expression, V) bool) {
		for _, en := range m.entries {
			if !yield(en.expr, en.value) {
				return
			}
		}
	}
}

// Keys returns the expressions in insertion order.
func (m Map[V]) Keys() []Expression {
	keys := make([]Expression, len(m.entries))
	for i, en := range m.entries {
		keys[i] = en.expr
	}
	return keys
}

// With returns a copy of m with e bound to v. An existing binding keeps its
// position.
func (m Map[V]) With(e Expression, v V) Map[V] {
	out := Map[V]{
		entries: make([]entry[V], len(m.entries), len(m.entries)+1),
		index:   make(map[string]int, len(m.entries)+1),
	}
	copy(out.entries, m.entries)
	for k, i := range m.index {
		out.index[k] = i
	}
	if i, ok := out.index[e.Key()]; ok {
		out.entries[i].value = v
		return out
	}
	out.index[e.Key()] = len(out.entries)
	out.entries = append(out.entries, entry[V]{expr: e, value: v})
	return out
}

// merge folds o into m. Shared keys are combined with join.
func (m Map[V]) merge(o Map[V], join func(e Expression, a, b V) (V, error)) (Map[V], error) {
	out := m
	for _, en := range o.entries {
		if existing, ok := out.Get(en.expr); ok {
			v, err := join(en.expr, existing, en.value)
			if err != nil {
				return Map[V]{}, err
			}
			out = out.With(en.expr, v)
			continue
		}
		out = out.With(en.expr, en.value)
	}
	return out, nil
}
