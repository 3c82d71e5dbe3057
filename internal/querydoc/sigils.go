package querydoc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/value"
)

// Sigils prefixing query keys. Two-character sigils are matched first.
const (
	SigilLte    = "<="
	SigilGte    = ">="
	SigilLt     = "<"
	SigilGt     = ">"
	SigilLike   = "~"
	SigilAny    = "?"
	SigilOrder  = "^"
	SigilFocus  = "$"
	SigilOffset = "@"
	SigilLimit  = "#"
)

var sigils = []string{SigilLte, SigilGte, SigilLt, SigilGt, SigilLike, SigilAny, SigilOrder, SigilFocus, SigilOffset, SigilLimit}

// Fragments converts a mapping of sigil-prefixed keys into query fragments,
// one per entry, in document order. A key without a sigil is shorthand for
// "?key".
//
//	"<=expr": value        upper bound, inclusive
//	">expr": value         lower bound, exclusive
//	"~expr": "text"        keyword match; a trailing "*" enables stemming
//	"?expr": [values]      membership; an empty list tests existence
//	"^expr": 2 | asc       sort priority; zero, negative or desc is descending
//	"$expr": [values]      values pinned to the front of the window
//	"@": n, "#": n         offset and limit
func Fragments(n *yaml.Node) ([]query.Query, error) {
	if n.Kind != yaml.MappingNode {
		return nil, malformed(n, "query must be a mapping")
	}

	var out []query.Query
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		f, err := fragment(key, val)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func fragment(key, val *yaml.Node) (query.Query, error) {
	sigil, text := split(key.Value)

	switch sigil {
	case SigilOffset, SigilLimit:
		if text != "" {
			return query.Query{}, malformed(key, "%q takes no expression", sigil)
		}
		n, err := integer(val)
		if err != nil {
			return query.Query{}, err
		}
		if sigil == SigilOffset {
			return query.Offset(n), nil
		}
		return query.Limit(n), nil
	}

	e, err := query.ParseExpression(text)
	if err != nil {
		return query.Query{}, at(key, err)
	}

	switch sigil {
	case SigilLt, SigilGt, SigilLte, SigilGte:
		v, err := scalar(val)
		if err != nil {
			return query.Query{}, err
		}
		bound := map[string]func(value.Value) query.Constraint{
			SigilLt: query.Lt, SigilGt: query.Gt, SigilLte: query.Lte, SigilGte: query.Gte,
		}[sigil]
		return query.Filter(e, bound(v)), nil

	case SigilLike:
		if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!str" {
			return query.Query{}, malformed(val, "keywords must be a string")
		}
		words, stemming := strings.CutSuffix(val.Value, "*")
		return query.Filter(e, query.Matches(words, stemming)), nil

	case SigilOrder:
		p, err := priority(val)
		if err != nil {
			return query.Query{}, err
		}
		return query.Order(e, p), nil

	case SigilFocus:
		values, err := scalars(val)
		if err != nil {
			return query.Query{}, err
		}
		return query.Focus(e, values...), nil

	default:
		values, err := scalars(val)
		if err != nil {
			return query.Query{}, err
		}
		return query.Filter(e, query.Any(values...)), nil
	}
}

// split separates the sigil of a key from its expression text. Keys without
// a sigil return the any sigil.
func split(key string) (string, string) {
	for _, s := range sigils {
		if rest, ok := strings.CutPrefix(key, s); ok {
			return s, rest
		}
	}
	return SigilAny, key
}

func priority(n *yaml.Node) (int, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" {
		switch strings.ToLower(n.Value) {
		case "asc", "increasing":
			return 1, nil
		case "desc", "decreasing":
			return -1, nil
		}
		return 0, malformed(n, "unknown sort direction %q", n.Value)
	}
	return signed(n)
}

func integer(n *yaml.Node) (int, error) {
	v, err := signed(n)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, malformed(n, "expected a non-negative integer")
	}
	return v, nil
}

func signed(n *yaml.Node) (int, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		return 0, malformed(n, "expected an integer")
	}
	v, err := strconv.ParseInt(n.Value, 0, 64)
	if err != nil {
		return 0, malformed(n, "malformed integer %q", n.Value)
	}
	return int(v), nil
}

// scalars accepts a single scalar or a sequence of scalars.
func scalars(n *yaml.Node) ([]value.Value, error) {
	if n.Kind != yaml.SequenceNode {
		v, err := scalar(n)
		if err != nil {
			return nil, err
		}
		return []value.Value{v}, nil
	}
	out := make([]value.Value, 0, len(n.Content))
	for _, item := range n.Content {
		v, err := scalar(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// scalar converts a YAML scalar by its resolved tag. Strings starting with
// "<", "_:" or a double quote use the term syntax.
func scalar(n *yaml.Node) (value.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, malformed(n, "expected a scalar value")
	}
	switch n.ShortTag() {
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, malformed(n, "malformed integer %q", n.Value)
		}
		return value.Int(v), nil
	case "!!float":
		d, err := value.NewDecimal(n.Value)
		if err != nil {
			return nil, at(n, err)
		}
		return d, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, malformed(n, "malformed boolean %q", n.Value)
		}
		return value.Bool(b), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, malformed(n, "malformed timestamp %q", n.Value)
		}
		return value.NewDateTime(t), nil
	case "!!str":
		s := n.Value
		if strings.HasPrefix(s, "<") || strings.HasPrefix(s, "_:") || strings.HasPrefix(s, `"`) {
			v, err := value.ParseTerm(s)
			if err != nil {
				return nil, at(n, err)
			}
			return v, nil
		}
		return value.String(s), nil
	default:
		return nil, malformed(n, "unsupported value %q", n.Value)
	}
}

func at(n *yaml.Node, err error) error {
	return fmt.Errorf("line %d: %w", n.Line, err)
}

func malformed(n *yaml.Node, format string, args ...any) error {
	return at(n, fault.Malformed(format, args...))
}
