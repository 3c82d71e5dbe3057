package shape

import (
	"slices"
	"strings"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/value"
)

// Merge combines shapes field by field into a new shape.
//
// Merge of no shapes is Empty; a single shape is returned unchanged. Bounds
// and limits are tightened, type and hasValue sets are unioned, in sets are
// intersected, and properties sharing a label or predicate have their nested
// shapes merged lazily. Any incompatibility is a ConflictingConstraint error
// carrying both operands.
func Merge(shapes ...*Shape) (*Shape, error) {
	switch len(shapes) {
	case 0:
		return Empty(), nil
	case 1:
		if shapes[0] == nil {
			return Empty(), nil
		}
		return shapes[0], nil
	}

	merged := shapes[0]
	if merged == nil {
		merged = Empty()
	}
	for _, s := range shapes[1:] {
		if s == nil {
			continue
		}
		var err error
		if merged, err = merge(merged, s); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Must is like Merge but panics on error.
// Use only in tests or with constant inputs.
func Must(shapes ...*Shape) *Shape {
	s, err := Merge(shapes...)
	if err != nil {
		panic(err)
	}
	return s
}

func merge(a, b *Shape) (*Shape, error) {
	if a == empty {
		return b, nil
	}
	if b == empty {
		return a, nil
	}

	var (
		s   Shape
		err error
	)
	if s.datatype, err = mergeDatatype(a.datatype, b.datatype); err != nil {
		return nil, err
	}
	s.types = a.types.Union(b.types)

	if s.minExclusive, err = value.Max(a.minExclusive, b.minExclusive); err != nil {
		return nil, err
	}
	if s.maxExclusive, err = value.Min(a.maxExclusive, b.maxExclusive); err != nil {
		return nil, err
	}
	if s.minInclusive, err = value.Max(a.minInclusive, b.minInclusive); err != nil {
		return nil, err
	}
	if s.maxInclusive, err = value.Min(a.maxInclusive, b.maxInclusive); err != nil {
		return nil, err
	}

	s.minLength = lower(a.minLength, b.minLength)
	s.maxLength = upper(a.maxLength, b.maxLength)
	s.minCount = lower(a.minCount, b.minCount)
	s.maxCount = upper(a.maxCount, b.maxCount)

	switch {
	case a.pattern == "":
		s.pattern = b.pattern
	case b.pattern == "" || a.pattern == b.pattern:
		s.pattern = a.pattern
	default:
		return nil, fault.Conflict("conflicting patterns", a.pattern, b.pattern)
	}

	switch {
	case a.hasIn && b.hasIn:
		s.in = a.in.Intersect(b.in)
		if s.in.IsEmpty() {
			return nil, fault.Conflict("disjoint enumerations", a.in, b.in)
		}
		s.hasIn = true
	case a.hasIn:
		s.in, s.hasIn = a.in, true
	case b.hasIn:
		s.in, s.hasIn = b.in, true
	}
	s.hasValue = a.hasValue.Union(b.hasValue)

	if s.properties, err = mergeProperties(a.properties, b.properties); err != nil {
		return nil, err
	}

	s.virtual = a.virtual || b.virtual
	s.composite = a.composite || b.composite
	return &s, nil
}

// mergeDatatype keeps the more specific of two datatypes in the lattice.
func mergeDatatype(a, b string) (string, error) {
	switch {
	case a == "":
		return b, nil
	case b == "":
		return a, nil
	case value.Derives(a, b):
		return a, nil
	case value.Derives(b, a):
		return b, nil
	}
	return "", fault.Conflict("conflicting datatypes", value.IRI(a), value.IRI(b))
}

// lower keeps the larger of two minimums.
func lower(a, b limit) limit {
	if !a.set || (b.set && b.n > a.n) {
		return b
	}
	return a
}

// upper keeps the smaller of two maximums.
func upper(a, b limit) limit {
	if !a.set || (b.set && b.n < a.n) {
		return b
	}
	return a
}

// mergeProperties merges two label-sorted property lists. A label must map to
// the same predicate on both sides and vice versa.
func mergeProperties(a, b []Binding) ([]Binding, error) {
	if len(a) == 0 {
		return b, nil
	}
	if len(b) == 0 {
		return a, nil
	}

	byPredicate := make(map[Predicate]string, len(a))
	for _, p := range a {
		byPredicate[p.Predicate] = p.Label
	}

	merged := slices.Clone(a)
	for _, p := range b {
		if label, ok := byPredicate[p.Predicate]; ok && label != p.Label {
			return nil, fault.Conflict("predicate bound to different labels", label, p.Label)
		}
		i, found := slices.BinarySearchFunc(merged, p.Label, func(q Binding, l string) int {
			return strings.Compare(q.Label, l)
		})
		if !found {
			merged = slices.Insert(merged, i, p)
			continue
		}
		if merged[i].Predicate != p.Predicate {
			return nil, fault.Conflict("label bound to different predicates", merged[i].Predicate, p.Predicate)
		}
		merged[i].ref = mergeRefs(merged[i].ref, p.ref)
	}
	return merged, nil
}
