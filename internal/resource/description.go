package resource

import (
	"cmp"
	"slices"

	"github.com/cayleygraph/quad"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// Object is one value of a property. Nested is set for owned resources that
// are described inline; Value is then the nested resource's id.
type Object struct {
	Value  value.Value
	Nested *Description
}

// Description maps the predicates of one resource to their values.
//
// A Description is built by one goroutine and read-only afterwards; it is not
// safe for concurrent mutation.
type Description struct {
	id      value.Value
	entries map[shape.Predicate][]Object
}

// New creates an empty description of the resource id, an IRI or blank node.
func New(id value.Value) *Description {
	return &Description{id: id, entries: make(map[shape.Predicate][]Object)}
}

// ID returns the described resource.
func (d *Description) ID() value.Value { return d.id }

// Add appends values to p, skipping values already present.
func (d *Description) Add(p shape.Predicate, values ...value.Value) *Description {
	for _, v := range values {
		if v == nil || d.has(p, v) {
			continue
		}
		d.entries[p] = append(d.entries[p], Object{Value: v})
	}
	return d
}

// Embed appends an owned nested resource to p.
func (d *Description) Embed(p shape.Predicate, nested *Description) *Description {
	if nested == nil || d.has(p, nested.id) {
		return d
	}
	d.entries[p] = append(d.entries[p], Object{Value: nested.id, Nested: nested})
	return d
}

// Pin attaches computed values under the synthetic predicate of probe.
func (d *Description) Pin(probe query.Probe, values ...value.Value) *Description {
	return d.Add(probe.Predicate(), values...)
}

func (d *Description) has(p shape.Predicate, v value.Value) bool {
	return slices.ContainsFunc(d.entries[p], func(o Object) bool {
		return value.Equal(o.Value, v)
	})
}

// Objects returns the objects of p in insertion order.
func (d *Description) Objects(p shape.Predicate) []Object {
	return slices.Clone(d.entries[p])
}

// Values returns the values of p in insertion order.
func (d *Description) Values(p shape.Predicate) []value.Value {
	objects := d.entries[p]
	values := make([]value.Value, len(objects))
	for i, o := range objects {
		values[i] = o.Value
	}
	return values
}

// Nested returns the nested descriptions of p.
func (d *Description) Nested(p shape.Predicate) []*Description {
	var nested []*Description
	for _, o := range d.entries[p] {
		if o.Nested != nil {
			nested = append(nested, o.Nested)
		}
	}
	return nested
}

// Predicates returns the predicates with at least one value, forward before
// reverse, by IRI.
func (d *Description) Predicates() []shape.Predicate {
	preds := make([]shape.Predicate, 0, len(d.entries))
	for p, objects := range d.entries {
		if len(objects) > 0 {
			preds = append(preds, p)
		}
	}
	slices.SortFunc(preds, comparePredicates)
	return preds
}

func comparePredicates(a, b shape.Predicate) int {
	if a.Reverse != b.Reverse {
		if a.Reverse {
			return 1
		}
		return -1
	}
	return cmp.Compare(a.IRI, b.IRI)
}

// Quads flattens the description and its nested descriptions into quads.
// Reverse predicates produce quads with the described resource as object.
func (d *Description) Quads() []quad.Quad {
	var quads []quad.Quad
	subject := value.ToQuad(d.id)
	for _, p := range d.Predicates() {
		for _, o := range d.entries[p] {
			q := quad.Quad{Subject: subject, Predicate: quad.IRI(p.IRI), Object: value.ToQuad(o.Value)}
			if p.Reverse {
				q.Subject, q.Object = q.Object, q.Subject
			}
			quads = append(quads, q)
			if o.Nested != nil {
				quads = append(quads, o.Nested.Quads()...)
			}
		}
	}
	return quads
}

// maxExtractDepth bounds the expansion of composite resources.
const maxExtractDepth = 3

// Extract reads the description of id from quads, following the properties
// of s. Virtual properties and the id predicate are skipped; composite
// properties are described inline.
func Extract(id value.Value, s *shape.Shape, quads []quad.Quad) (*Description, error) {
	return extract(id, s, quads, 0)
}

func extract(id value.Value, s *shape.Shape, quads []quad.Quad, depth int) (*Description, error) {
	d := New(id)
	term := value.ToQuad(id)
	if term == nil {
		return nil, fault.Malformed("unsupported resource id %v", id)
	}

	for _, prop := range s.Properties() {
		if prop.Predicate == shape.Forward(shape.IDPredicate) {
			continue
		}
		nested, err := prop.Shape()
		if err != nil {
			return nil, err
		}
		if nested.IsVirtual() {
			continue
		}

		pred := quad.IRI(prop.Predicate.IRI)
		for _, q := range quads {
			if q.Predicate != pred {
				continue
			}
			self, other := q.Subject, q.Object
			if prop.Predicate.Reverse {
				self, other = other, self
			}
			if self != term {
				continue
			}
			v, err := value.FromQuad(other)
			if err != nil {
				return nil, err
			}
			if nested.IsComposite() && depth+1 < maxExtractDepth && isResource(v) {
				child, err := extract(v, nested, quads, depth+1)
				if err != nil {
					return nil, err
				}
				d.Embed(prop.Predicate, child)
				continue
			}
			d.Add(prop.Predicate, v)
		}
	}
	return d, nil
}

func isResource(v value.Value) bool {
	switch v.(type) {
	case value.IRI, value.BNode:
		return true
	default:
		return false
	}
}
