package shape

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/value"
)

// Shape is an immutable constraint node. All constraints are optional; the
// zero Shape accepts anything.
type Shape struct {
	datatype string
	types    value.Set

	minExclusive value.Value
	maxExclusive value.Value
	minInclusive value.Value
	maxInclusive value.Value

	minLength limit
	maxLength limit
	minCount  limit
	maxCount  limit

	pattern string

	in       value.Set
	hasIn    bool
	hasValue value.Set

	properties []Binding // sorted by label

	virtual   bool
	composite bool
}

// limit is an optional non-negative integer constraint.
type limit struct {
	n   int
	set bool
}

func some(n int) limit { return limit{n: n, set: true} }

// Binding binds a label to a predicate and a lazily resolved nested shape.
type Binding struct {
	Label     string
	Predicate Predicate
	ref       Ref
}

// Ref returns the nested shape ref.
func (p Binding) Ref() Ref { return p.ref }

// Shape forces the nested shape.
func (p Binding) Shape() (*Shape, error) { return p.ref.Resolve() }

func (p Binding) String() string {
	return p.Label + "=" + p.Predicate.String()
}

var empty = &Shape{}

// Empty returns the unconstrained shape, the identity of Merge.
func Empty() *Shape { return empty }

// Datatype constrains values to datatype or one of its specializations.
func Datatype(iri string) *Shape {
	return &Shape{datatype: iri}
}

// Type declares the classes of a resource.
func Type(iris ...string) *Shape {
	values := make([]value.Value, len(iris))
	for i, iri := range iris {
		values[i] = value.IRI(iri)
	}
	return &Shape{types: value.NewSet(values...)}
}

// MinExclusive constrains values to be greater than v.
func MinExclusive(v value.Value) *Shape { return &Shape{minExclusive: v} }

// MaxExclusive constrains values to be less than v.
func MaxExclusive(v value.Value) *Shape { return &Shape{maxExclusive: v} }

// MinInclusive constrains values to be greater than or equal to v.
func MinInclusive(v value.Value) *Shape { return &Shape{minInclusive: v} }

// MaxInclusive constrains values to be less than or equal to v.
func MaxInclusive(v value.Value) *Shape { return &Shape{maxInclusive: v} }

// MinLength constrains the lexical length of values.
func MinLength(n int) *Shape { return &Shape{minLength: some(n)} }

// MaxLength constrains the lexical length of values.
func MaxLength(n int) *Shape { return &Shape{maxLength: some(n)} }

// MinCount constrains the number of values.
func MinCount(n int) *Shape { return &Shape{minCount: some(n)} }

// MaxCount constrains the number of values.
func MaxCount(n int) *Shape { return &Shape{maxCount: some(n)} }

// Required is MinCount(1) merged with MaxCount(1).
func Required() *Shape { return &Shape{minCount: some(1), maxCount: some(1)} }

// Optional is MaxCount(1).
func Optional() *Shape { return &Shape{maxCount: some(1)} }

// Pattern constrains the lexical form of values to match expr.
func Pattern(expr string) (*Shape, error) {
	if expr == "" {
		return nil, fault.Malformed("empty pattern")
	}
	if _, err := regexp.Compile(expr); err != nil {
		return nil, fault.Malformed("malformed pattern %q: %v", expr, err)
	}
	return &Shape{pattern: expr}, nil
}

// In restricts values to the given enumeration.
func In(values ...value.Value) *Shape {
	return &Shape{in: value.NewSet(values...), hasIn: true}
}

// HasValue requires the given values to be present.
func HasValue(values ...value.Value) *Shape {
	return &Shape{hasValue: value.NewSet(values...)}
}

// Virtual marks a shape whose values are computed rather than stored.
func Virtual() *Shape { return &Shape{virtual: true} }

// Composite marks a shape whose nested resources are owned by their parent.
func Composite() *Shape { return &Shape{composite: true} }

// resourceSingleton specializes the reserved id and type predicates.
var resourceSingleton = Fixed(&Shape{datatype: value.ResourceType, maxCount: some(1)})

// Property declares a nested property. The reserved id and type predicates
// are specialized to a single resource value.
func Property(label string, predicate Predicate, ref Ref) *Shape {
	if predicate.reserved() {
		ref = mergeRefs(ref, resourceSingleton)
	}
	return &Shape{properties: []Binding{{Label: label, Predicate: predicate, ref: ref}}}
}

// Nested declares a property whose nested shape is already built.
func Nested(label string, predicate Predicate, s *Shape) *Shape {
	return Property(label, predicate, Fixed(s))
}

// Datatype returns the datatype IRI, or "" when unconstrained.
func (s *Shape) Datatype() string { return s.datatype }

// Types returns the declared classes.
func (s *Shape) Types() value.Set { return s.types }

// MinExclusive returns the exclusive lower bound, or nil.
func (s *Shape) MinExclusive() value.Value { return s.minExclusive }

// MaxExclusive returns the exclusive upper bound, or nil.
func (s *Shape) MaxExclusive() value.Value { return s.maxExclusive }

// MinInclusive returns the inclusive lower bound, or nil.
func (s *Shape) MinInclusive() value.Value { return s.minInclusive }

// MaxInclusive returns the inclusive upper bound, or nil.
func (s *Shape) MaxInclusive() value.Value { return s.maxInclusive }

// MinLength returns the minimum length and whether it is set.
func (s *Shape) MinLength() (int, bool) { return s.minLength.n, s.minLength.set }

// MaxLength returns the maximum length and whether it is set.
func (s *Shape) MaxLength() (int, bool) { return s.maxLength.n, s.maxLength.set }

// MinCount returns the minimum cardinality and whether it is set.
func (s *Shape) MinCount() (int, bool) { return s.minCount.n, s.minCount.set }

// MaxCount returns the maximum cardinality and whether it is set.
func (s *Shape) MaxCount() (int, bool) { return s.maxCount.n, s.maxCount.set }

// Pattern returns the pattern, or "" when unconstrained.
func (s *Shape) Pattern() string { return s.pattern }

// In returns the enumeration and whether one is set.
func (s *Shape) In() (value.Set, bool) { return s.in, s.hasIn }

// HasValue returns the required values.
func (s *Shape) HasValue() value.Set { return s.hasValue }

// IsVirtual reports the virtual marker.
func (s *Shape) IsVirtual() bool { return s.virtual }

// IsComposite reports the composite marker.
func (s *Shape) IsComposite() bool { return s.composite }

// Properties returns the properties sorted by label.
func (s *Shape) Properties() []Binding { return slices.Clone(s.properties) }

// Lookup returns the property with the given label.
func (s *Shape) Lookup(label string) (Binding, bool) {
	i, found := slices.BinarySearchFunc(s.properties, label, func(p Binding, l string) int {
		return strings.Compare(p.Label, l)
	})
	if !found {
		return Binding{}, false
	}
	return s.properties[i], true
}

// LookupPredicate returns the property bound to the given predicate.
func (s *Shape) LookupPredicate(p Predicate) (Binding, bool) {
	for _, prop := range s.properties {
		if prop.Predicate == p {
			return prop, true
		}
	}
	return Binding{}, false
}

// Entry resolves the nested shape of the property with the given label.
func (s *Shape) Entry(label string) (*Shape, error) {
	prop, ok := s.Lookup(label)
	if !ok {
		return nil, fault.Malformed("unknown property label %q", label)
	}
	return prop.Shape()
}

// EntryFor resolves the nested shape of the property bound to p.
func (s *Shape) EntryFor(p Predicate) (*Shape, error) {
	prop, ok := s.LookupPredicate(p)
	if !ok {
		return nil, fault.Malformed("unknown predicate %s", p)
	}
	return prop.Shape()
}

// Equal reports whether two shapes carry the same constraints. Nested shapes
// are compared by ref key without being resolved.
func Equal(a, b *Shape) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.datatype == b.datatype &&
		a.types.Equal(b.types) &&
		value.Equal(a.minExclusive, b.minExclusive) &&
		value.Equal(a.maxExclusive, b.maxExclusive) &&
		value.Equal(a.minInclusive, b.minInclusive) &&
		value.Equal(a.maxInclusive, b.maxInclusive) &&
		a.minLength == b.minLength &&
		a.maxLength == b.maxLength &&
		a.minCount == b.minCount &&
		a.maxCount == b.maxCount &&
		a.pattern == b.pattern &&
		a.hasIn == b.hasIn &&
		a.in.Equal(b.in) &&
		a.hasValue.Equal(b.hasValue) &&
		slices.EqualFunc(a.properties, b.properties, func(p, q Binding) bool {
			return p.Label == q.Label && p.Predicate == q.Predicate && p.ref.Key() == q.ref.Key()
		}) &&
		a.virtual == b.virtual &&
		a.composite == b.composite
}

// String renders the set constraints for diagnostics.
func (s *Shape) String() string {
	var parts []string
	add := func(name string, v any) {
		parts = append(parts, fmt.Sprintf("%s=%v", name, v))
	}
	if s.datatype != "" {
		add("datatype", value.IRI(s.datatype))
	}
	if !s.types.IsEmpty() {
		add("type", s.types)
	}
	for _, b := range []struct {
		name string
		v    value.Value
	}{
		{"minExclusive", s.minExclusive},
		{"maxExclusive", s.maxExclusive},
		{"minInclusive", s.minInclusive},
		{"maxInclusive", s.maxInclusive},
	} {
		if b.v != nil {
			add(b.name, b.v)
		}
	}
	for _, l := range []struct {
		name string
		l    limit
	}{
		{"minLength", s.minLength},
		{"maxLength", s.maxLength},
		{"minCount", s.minCount},
		{"maxCount", s.maxCount},
	} {
		if l.l.set {
			add(l.name, l.l.n)
		}
	}
	if s.pattern != "" {
		add("pattern", fmt.Sprintf("%q", s.pattern))
	}
	if s.hasIn {
		add("in", s.in)
	}
	if !s.hasValue.IsEmpty() {
		add("hasValue", s.hasValue)
	}
	if len(s.properties) > 0 {
		labels := make([]string, len(s.properties))
		for i, p := range s.properties {
			labels[i] = p.String()
		}
		add("properties", "["+strings.Join(labels, " ")+"]")
	}
	if s.virtual {
		parts = append(parts, "virtual")
	}
	if s.composite {
		parts = append(parts, "composite")
	}
	return "shape{" + strings.Join(parts, ", ") + "}"
}
