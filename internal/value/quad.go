package value

import (
	"strconv"
	"time"

	"github.com/cayleygraph/quad"

	"github.com/roach88/shapeq/internal/fault"
)

// ToQuad converts a value into its quad representation for the storage and
// codec layers.
func ToQuad(v Value) quad.Value {
	switch val := v.(type) {
	case IRI:
		return quad.IRI(string(val))
	case BNode:
		return quad.BNode(string(val))
	case String:
		return quad.String(string(val))
	case LangString:
		return quad.LangString{Value: quad.String(val.Text), Lang: val.Lang}
	case Int:
		return quad.Int(int64(val))
	case Decimal:
		return quad.TypedString{Value: quad.String(val.Text()), Type: quad.IRI(XSDDecimal)}
	case Bool:
		return quad.Bool(bool(val))
	case DateTime:
		return quad.Time(val.Time)
	case Literal:
		return quad.TypedString{Value: quad.String(val.Text), Type: quad.IRI(val.Type)}
	default:
		return nil
	}
}

// FromQuad converts a quad value into a Value.
func FromQuad(q quad.Value) (Value, error) {
	switch val := q.(type) {
	case nil:
		return nil, fault.Malformed("nil quad value")
	case quad.IRI:
		return IRI(string(val.Full())), nil
	case quad.BNode:
		return BNode(string(val)), nil
	case quad.String:
		return String(string(val)), nil
	case quad.LangString:
		return NewLangString(string(val.Value), val.Lang)
	case quad.TypedString:
		return NewLiteral(string(val.Value), string(val.Type.Full()))
	case quad.Int:
		return Int(int64(val)), nil
	case quad.Float:
		return NewDecimal(strconv.FormatFloat(float64(val), 'f', -1, 64))
	case quad.Bool:
		return Bool(bool(val)), nil
	case quad.Time:
		return NewDateTime(time.Time(val)), nil
	default:
		return nil, fault.Malformed("unsupported quad value %T", q)
	}
}
