package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/value"
)

// Constraint is an immutable set of filter predicates over the values of one
// expression. Each predicate is optional.
type Constraint struct {
	lt, gt, lte, gte value.Value

	like *Like

	any    value.Set
	hasAny bool
}

// Lt requires values less than v.
func Lt(v value.Value) Constraint { return Constraint{lt: v} }

// Gt requires values greater than v.
func Gt(v value.Value) Constraint { return Constraint{gt: v} }

// Lte requires values less than or equal to v.
func Lte(v value.Value) Constraint { return Constraint{lte: v} }

// Gte requires values greater than or equal to v.
func Gte(v value.Value) Constraint { return Constraint{gte: v} }

// Any requires a value in values. With no values it only requires that a
// value exists.
func Any(values ...value.Value) Constraint {
	return Constraint{any: value.NewSet(values...), hasAny: true}
}

// Matches requires values to contain every keyword of text.
func Matches(text string, stemming bool) Constraint {
	l := NewLike(text, stemming)
	return Constraint{like: &l}
}

// Lt returns the strict upper bound, or nil.
func (c Constraint) Lt() value.Value { return c.lt }

// Gt returns the strict lower bound, or nil.
func (c Constraint) Gt() value.Value { return c.gt }

// Lte returns the inclusive upper bound, or nil.
func (c Constraint) Lte() value.Value { return c.lte }

// Gte returns the inclusive lower bound, or nil.
func (c Constraint) Gte() value.Value { return c.gte }

// Like returns the full-text predicate, if any.
func (c Constraint) Like() (Like, bool) {
	if c.like == nil {
		return Like{}, false
	}
	return *c.like, true
}

// Any returns the membership set and whether one is set.
func (c Constraint) Any() (value.Set, bool) { return c.any, c.hasAny }

// IsZero reports whether c constrains nothing.
func (c Constraint) IsZero() bool {
	return c.lt == nil && c.gt == nil && c.lte == nil && c.gte == nil && c.like == nil && !c.hasAny
}

// And merges constraints. Upper bounds keep the smaller value and lower
// bounds the larger; keyword sets are unioned; membership sets keep the
// subset. Strict and inclusive bounds on the same side, disagreeing stemming
// flags and unrelated membership sets are ConflictingConstraint errors.
func And(constraints ...Constraint) (Constraint, error) {
	var merged Constraint
	for _, c := range constraints {
		var err error
		if merged, err = and(merged, c); err != nil {
			return Constraint{}, err
		}
	}
	if merged.lt != nil && merged.lte != nil {
		return Constraint{}, fault.Conflict("ambiguous upper bound", Lt(merged.lt), Lte(merged.lte))
	}
	if merged.gt != nil && merged.gte != nil {
		return Constraint{}, fault.Conflict("ambiguous lower bound", Gt(merged.gt), Gte(merged.gte))
	}
	return merged, nil
}

func and(a, b Constraint) (Constraint, error) {
	var (
		c   Constraint
		err error
	)
	if c.lt, err = value.Min(a.lt, b.lt); err != nil {
		return Constraint{}, err
	}
	if c.lte, err = value.Min(a.lte, b.lte); err != nil {
		return Constraint{}, err
	}
	if c.gt, err = value.Max(a.gt, b.gt); err != nil {
		return Constraint{}, err
	}
	if c.gte, err = value.Max(a.gte, b.gte); err != nil {
		return Constraint{}, err
	}

	switch {
	case a.like == nil:
		c.like = b.like
	case b.like == nil:
		c.like = a.like
	default:
		l, err := a.like.and(*b.like)
		if err != nil {
			return Constraint{}, err
		}
		c.like = &l
	}

	switch {
	case !a.hasAny:
		c.any, c.hasAny = b.any, b.hasAny
	case !b.hasAny:
		c.any, c.hasAny = a.any, a.hasAny
	case a.any.IsEmpty():
		c.any, c.hasAny = b.any, true
	case b.any.IsEmpty() || a.any.SubsetOf(b.any):
		c.any, c.hasAny = a.any, true
	case b.any.SubsetOf(a.any):
		c.any, c.hasAny = b.any, true
	default:
		return Constraint{}, fault.Conflict("unrelated membership sets", a.any, b.any)
	}
	return c, nil
}

// Equal reports structural equality.
func (c Constraint) Equal(o Constraint) bool {
	likeEqual := c.like == nil && o.like == nil ||
		c.like != nil && o.like != nil && c.like.Equal(*o.like)
	return value.Equal(c.lt, o.lt) &&
		value.Equal(c.gt, o.gt) &&
		value.Equal(c.lte, o.lte) &&
		value.Equal(c.gte, o.gte) &&
		likeEqual &&
		c.hasAny == o.hasAny &&
		c.any.Equal(o.any)
}

func (c Constraint) String() string {
	var parts []string
	for _, b := range []struct {
		op string
		v  value.Value
	}{{"<", c.lt}, {"<=", c.lte}, {">", c.gt}, {">=", c.gte}} {
		if b.v != nil {
			parts = append(parts, b.op+b.v.String())
		}
	}
	if c.like != nil {
		parts = append(parts, "~"+c.like.String())
	}
	if c.hasAny {
		parts = append(parts, "?"+c.any.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Like is a full-text predicate: every keyword must occur as a word, or as
// a word prefix when stemming is enabled.
type Like struct {
	keywords []string
	stemming bool
}

// NewLike extracts the normalized keywords of text.
func NewLike(text string, stemming bool) Like {
	return Like{keywords: Keywords(text), stemming: stemming}
}

// Keywords returns the sorted, deduplicated normalized words of the like
// predicate.
func (l Like) Keywords() []string { return slices.Clone(l.keywords) }

// Stemming reports whether keywords match word prefixes.
func (l Like) Stemming() bool { return l.stemming }

// Patterns returns one case-insensitive regular expression per keyword.
func (l Like) Patterns() []string {
	patterns := make([]string, len(l.keywords))
	for i, k := range l.keywords {
		if l.stemming {
			patterns[i] = `(^|\W)` + k
		} else {
			patterns[i] = `(^|\W)` + k + `($|\W)`
		}
	}
	return patterns
}

// Equal reports structural equality.
func (l Like) Equal(o Like) bool {
	return l.stemming == o.stemming && slices.Equal(l.keywords, o.keywords)
}

func (l Like) String() string {
	s := fmt.Sprintf("%q", strings.Join(l.keywords, " "))
	if l.stemming {
		s += "*"
	}
	return s
}

func (l Like) and(o Like) (Like, error) {
	if l.stemming != o.stemming {
		return Like{}, fault.Conflict("conflicting stemming", l, o)
	}
	keywords := append(slices.Clone(l.keywords), o.keywords...)
	slices.Sort(keywords)
	return Like{keywords: slices.Compact(keywords), stemming: l.stemming}, nil
}
