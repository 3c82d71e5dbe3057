package value

import (
	"strings"

	"github.com/roach88/shapeq/internal/fault"
)

// Compare orders two values of the same variant.
//
// Values of different variants, language strings with different tags and
// generic literals with different datatypes are incomparable: Compare
// returns a ConflictingConstraint error instead of coercing.
func Compare(a, b Value) (int, error) {
	switch x := a.(type) {
	case IRI:
		if y, ok := b.(IRI); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case BNode:
		if y, ok := b.(BNode); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case LangString:
		if y, ok := b.(LangString); ok && x.Lang == y.Lang {
			return strings.Compare(x.Text, y.Text), nil
		}
	case Int:
		if y, ok := b.(Int); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	case Decimal:
		if y, ok := b.(Decimal); ok {
			return x.dec().Cmp(y.dec()), nil
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !bool(x):
				return -1, nil
			}
			return 1, nil
		}
	case DateTime:
		if y, ok := b.(DateTime); ok {
			return x.Time.Compare(y.Time), nil
		}
	case Literal:
		if y, ok := b.(Literal); ok && x.Type == y.Type {
			return strings.Compare(x.Text, y.Text), nil
		}
	}
	return 0, fault.Conflict("incomparable values", a, b)
}

// Equal reports whether two values denote the same term.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Min returns the smaller of two comparable values.
// A nil operand is treated as absent and the other operand is returned.
func Min(a, b Value) (Value, error) {
	return pick(a, b, -1)
}

// Max returns the larger of two comparable values.
// A nil operand is treated as absent and the other operand is returned.
func Max(a, b Value) (Value, error) {
	return pick(a, b, 1)
}

func pick(a, b Value, sign int) (Value, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	c, err := Compare(a, b)
	if err != nil {
		return nil, err
	}
	if c*sign >= 0 {
		return a, nil
	}
	return b, nil
}
