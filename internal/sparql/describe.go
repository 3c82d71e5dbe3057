package sparql

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// maxDescribeDepth bounds the expansion of nested composite resources.
const maxDescribeDepth = 3

// Describe emits a CONSTRUCT statement retrieving the stored description of
// resource id. Virtual properties are skipped; composite properties are
// expanded in place, up to a fixed depth.
func (c *Compiler) Describe(id string, s *shape.Shape) (string, error) {
	if id == "" {
		return "", fmt.Errorf("describe: empty resource id")
	}

	d := &description{}
	where, err := d.properties(value.IRI(id).String(), s, 0)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", id, err)
	}

	text := renderConstruct(Construct{Template: d.template, Where: where})
	slog.Debug("description compiled", "resource", id, "triples", len(d.template))
	return text, nil
}

type description struct {
	next     int
	template []Triple
}

func (d *description) properties(subject string, s *shape.Shape, depth int) ([]Pattern, error) {
	var patterns []Pattern
	for _, prop := range s.Properties() {
		if prop.Predicate == shape.Forward(shape.IDPredicate) {
			continue
		}
		nested, err := prop.Shape()
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", prop.Label, err)
		}
		if nested.IsVirtual() {
			continue
		}

		d.next++
		object := "?v" + strconv.Itoa(d.next)
		t := Triple{Subject: subject, Path: value.IRI(prop.Predicate.IRI).String(), Object: object}
		if prop.Predicate.Reverse {
			t.Subject, t.Object = object, subject
		}
		d.template = append(d.template, t)

		group := []Pattern{t}
		if nested.IsComposite() && depth+1 < maxDescribeDepth {
			inner, err := d.properties(object, nested, depth+1)
			if err != nil {
				return nil, err
			}
			group = append(group, inner...)
		}
		patterns = append(patterns, Optional{Patterns: group})
	}
	return patterns, nil
}
