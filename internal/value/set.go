package value

import (
	"iter"
	"slices"
	"strings"
)

// Set is an immutable set of values ordered by their canonical term.
// The zero value is the empty set.
type Set struct {
	items []Value
}

// NewSet builds a set, dropping duplicates and nil values.
func NewSet(values ...Value) Set {
	items := make([]Value, 0, len(values))
	for _, v := range values {
		if v != nil {
			items = append(items, v)
		}
	}
	slices.SortFunc(items, func(a, b Value) int {
		return strings.Compare(a.String(), b.String())
	})
	items = slices.CompactFunc(items, Equal)
	return Set{items: items}
}

// Len returns the number of values.
func (s Set) Len() int { return len(s.items) }

// IsEmpty reports whether the set has no values.
func (s Set) IsEmpty() bool { return len(s.items) == 0 }

// Values returns a copy of the values in canonical order.
func (s Set) Values() []Value { return slices.Clone(s.items) }

// All iterates the values in canonical order.
func (s Set) All() iter.Seq[Value] {
	return slices.Values(s.items)
}

// Contains reports whether v is a member.
func (s Set) Contains(v Value) bool {
	if v == nil {
		return false
	}
	key := v.String()
	_, found := slices.BinarySearchFunc(s.items, key, func(e Value, k string) int {
		return strings.Compare(e.String(), k)
	})
	return found
}

// Union returns the values in either set.
func (s Set) Union(o Set) Set {
	return NewSet(append(slices.Clone(s.items), o.items...)...)
}

// Intersect returns the values in both sets.
func (s Set) Intersect(o Set) Set {
	var out []Value
	for _, v := range s.items {
		if o.Contains(v) {
			out = append(out, v)
		}
	}
	return Set{items: out}
}

// SubsetOf reports whether every value of s is in o.
func (s Set) SubsetOf(o Set) bool {
	for _, v := range s.items {
		if !o.Contains(v) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same values.
func (s Set) Equal(o Set) bool {
	return slices.EqualFunc(s.items, o.items, Equal)
}

// String renders the set as a parenthesized, comma-separated term list.
func (s Set) String() string {
	parts := make([]string, len(s.items))
	for i, v := range s.items {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Hash returns a structural hash of the set.
func (s Set) Hash() uint64 {
	return Hash64([]byte(s.String()))
}
