package query

import (
	"strconv"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// Transform is a scalar or aggregate operation applied to an expression's
// values.
type Transform uint8

const (
	Count Transform = iota + 1
	Sum
	Min
	Max
	Avg
	Abs
	Round
	Year
)

var transformNames = map[Transform]string{
	Count: "count",
	Sum:   "sum",
	Min:   "min",
	Max:   "max",
	Avg:   "avg",
	Abs:   "abs",
	Round: "round",
	Year:  "year",
}

// ParseTransform returns the transform with the given lowercase name.
func ParseTransform(name string) (Transform, error) {
	for t, n := range transformNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fault.Malformed("unknown transform %q", name)
}

func (t Transform) String() string {
	if n, ok := transformNames[t]; ok {
		return n
	}
	return "transform(" + strconv.Itoa(int(t)) + ")"
}

// Aggregate reports whether t reduces a value set to a single value.
func (t Transform) Aggregate() bool {
	switch t {
	case Count, Sum, Min, Max, Avg:
		return true
	default:
		return false
	}
}

// Apply computes the shape of the values produced by t from values described
// by operand.
//
//	count          integer, exactly one
//	sum, min, max  operand datatype, at most one
//	avg            decimal, exactly one
//	abs, round     operand datatype, operand cardinality
//	year           integer, operand cardinality
func (t Transform) Apply(operand *shape.Shape) *shape.Shape {
	switch t {
	case Count:
		return shape.Must(shape.Datatype(value.XSDInteger), shape.Required())
	case Sum, Min, Max:
		return shape.Must(datatypeOf(operand), shape.Optional())
	case Avg:
		return shape.Must(shape.Datatype(value.XSDDecimal), shape.Required())
	case Abs, Round:
		return shape.Must(datatypeOf(operand), cardinalityOf(operand))
	case Year:
		return shape.Must(shape.Datatype(value.XSDInteger), cardinalityOf(operand))
	default:
		return operand
	}
}

func datatypeOf(s *shape.Shape) *shape.Shape {
	if s.Datatype() == "" {
		return shape.Empty()
	}
	return shape.Datatype(s.Datatype())
}

func cardinalityOf(s *shape.Shape) *shape.Shape {
	var parts []*shape.Shape
	if n, ok := s.MinCount(); ok {
		parts = append(parts, shape.MinCount(n))
	}
	if n, ok := s.MaxCount(); ok {
		parts = append(parts, shape.MaxCount(n))
	}
	return shape.Must(parts...)
}
