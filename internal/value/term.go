package value

import (
	"strconv"
	"strings"

	"github.com/roach88/shapeq/internal/fault"
)

// ParseTerm parses the term syntax produced by Value.String:
//
//	<iri>  _:label  "text"  "text"@tag  "text"^^<datatype>  true  42  4.2
//
// Bare words that are none of the above are rejected.
func ParseTerm(s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fault.Malformed("empty term")
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") || len(s) < 3 {
			return nil, fault.Malformed("malformed IRI term %q", s)
		}
		return IRI(unescapeIRI(s[1 : len(s)-1])), nil
	case strings.HasPrefix(s, "_:"):
		if len(s) == 2 {
			return nil, fault.Malformed("empty blank node label")
		}
		return BNode(s[2:]), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteral(s)
	case s == "true" || s == "false":
		return Bool(s == "true"), nil
	case strings.ContainsAny(s, ".eE"):
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, fault.Malformed("malformed term %q", s)
		}
		return NewDecimal(s)
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fault.Malformed("malformed term %q", s)
		}
		return Int(n), nil
	}
}

// MustParseTerm is like ParseTerm but panics on error.
// Use only in tests or with constant inputs.
func MustParseTerm(s string) Value {
	v, err := ParseTerm(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseLiteral parses a quoted literal with an optional tag or datatype.
func parseLiteral(s string) (Value, error) {
	var text strings.Builder
	i := 1
	for ; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			break
		}
		if c != '\\' {
			text.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return nil, fault.Malformed("unterminated escape in %q", s)
		}
		switch s[i] {
		case 'n':
			text.WriteByte('\n')
		case 'r':
			text.WriteByte('\r')
		case 't':
			text.WriteByte('\t')
		case '"', '\\':
			text.WriteByte(s[i])
		default:
			return nil, fault.Malformed("unknown escape \\%c in %q", s[i], s)
		}
	}
	if i >= len(s) {
		return nil, fault.Malformed("unterminated literal %q", s)
	}

	rest := s[i+1:]
	switch {
	case rest == "":
		return String(text.String()), nil
	case rest == "@":
		return nil, fault.Malformed("empty language tag in %q", s)
	case strings.HasPrefix(rest, "@"):
		return NewLangString(text.String(), rest[1:])
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		return NewLiteral(text.String(), unescapeIRI(rest[3:len(rest)-1]))
	default:
		return nil, fault.Malformed("malformed literal suffix %q", rest)
	}
}

// unescapeIRI reverses escapeIRI.
func unescapeIRI(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil && strings.ContainsRune("<>\"{}|^`\\ ", rune(n)) {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
