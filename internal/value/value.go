package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/language"

	"github.com/roach88/shapeq/internal/fault"
)

// Value is a sealed interface representing RDF terms.
// Only IRI, BNode, String, LangString, Int, Decimal, Bool, DateTime and
// Literal implement this.
type Value interface {
	value() // Sealed - only these types implement it

	// Datatype returns the value's datatype IRI; resources report the
	// abstract IRIType or BNodeType.
	Datatype() string

	// String renders the canonical query-language term.
	String() string
}

// IRI is an absolute resource identifier.
type IRI string

func (IRI) value() {}

func (IRI) Datatype() string { return IRIType }

func (v IRI) String() string { return "<" + escapeIRI(string(v)) + ">" }

// BNode is a blank node label.
type BNode string

func (BNode) value() {}

func (BNode) Datatype() string { return BNodeType }

func (v BNode) String() string { return "_:" + string(v) }

// String is a plain xsd:string literal.
type String string

func (String) value() {}

func (String) Datatype() string { return XSDString }

func (v String) String() string { return quote(string(v)) }

// LangString is a language-tagged literal. Tags are stored in canonical
// BCP 47 form; use NewLangString to construct one.
type LangString struct {
	Text string
	Lang string
}

func (LangString) value() {}

func (LangString) Datatype() string { return LangStringType }

func (v LangString) String() string { return quote(v.Text) + "@" + v.Lang }

// NewLangString validates and canonicalizes the language tag.
func NewLangString(text, tag string) (LangString, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return LangString{}, fault.Malformed("unresolvable language tag %q: %v", tag, err)
	}
	return LangString{Text: text, Lang: t.String()}, nil
}

// Int is an xsd:integer literal.
type Int int64

func (Int) value() {}

func (Int) Datatype() string { return XSDInteger }

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Decimal is an arbitrary-precision xsd:decimal literal.
// The zero value is 0. Decimals are never mutated after construction.
type Decimal struct {
	d *apd.Decimal
}

func (Decimal) value() {}

func (Decimal) Datatype() string { return XSDDecimal }

// String renders the reduced decimal, always with a fractional part so the
// term parses back as a decimal rather than an integer.
func (v Decimal) String() string {
	text := v.Text()
	if !strings.ContainsRune(text, '.') {
		text += ".0"
	}
	return text
}

// Text returns the reduced plain-notation lexical form.
func (v Decimal) Text() string {
	if v.d == nil {
		return "0"
	}
	var reduced apd.Decimal
	reduced.Reduce(v.d)
	return reduced.Text('f')
}

// NewDecimal parses a decimal lexical form.
func NewDecimal(text string) (Decimal, error) {
	d, _, err := apd.NewFromString(text)
	if err != nil {
		return Decimal{}, fault.Malformed("malformed decimal %q: %v", text, err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fault.Malformed("malformed decimal %q: not finite", text)
	}
	return Decimal{d: d}, nil
}

// MustDecimal is like NewDecimal but panics on error.
// Use only in tests or with constant inputs.
func MustDecimal(text string) Decimal {
	d, err := NewDecimal(text)
	if err != nil {
		panic(err)
	}
	return d
}

func (v Decimal) dec() *apd.Decimal {
	if v.d == nil {
		return apd.New(0, 0)
	}
	return v.d
}

// Bool is an xsd:boolean literal.
type Bool bool

func (Bool) value() {}

func (Bool) Datatype() string { return XSDBoolean }

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// DateTime is an xsd:dateTime literal, normalized to UTC.
type DateTime struct {
	Time time.Time
}

func (DateTime) value() {}

func (DateTime) Datatype() string { return XSDDateTime }

func (v DateTime) String() string {
	return quote(v.Time.UTC().Format(time.RFC3339Nano)) + "^^<" + XSDDateTime + ">"
}

// NewDateTime wraps t, normalized to UTC.
func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.UTC()}
}

// Literal is a typed literal whose datatype has no native variant.
type Literal struct {
	Text string
	Type string
}

func (Literal) value() {}

func (v Literal) Datatype() string { return v.Type }

func (v Literal) String() string { return quote(v.Text) + "^^<" + escapeIRI(v.Type) + ">" }

// NewLiteral builds the native variant for a lexical form and datatype.
// Datatypes without a native variant produce a Literal.
func NewLiteral(text, datatype string) (Value, error) {
	switch datatype {
	case "", XSDString:
		return String(text), nil
	case LangStringType:
		return nil, fault.Malformed("language-tagged literal %q requires a tag", text)
	case XSDInteger:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fault.Malformed("malformed integer %q", text)
		}
		return Int(n), nil
	case XSDDecimal:
		return NewDecimal(text)
	case XSDBoolean:
		switch text {
		case "true", "1":
			return Bool(true), nil
		case "false", "0":
			return Bool(false), nil
		}
		return nil, fault.Malformed("malformed boolean %q", text)
	case XSDDateTime:
		t, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return nil, fault.Malformed("malformed dateTime %q", text)
		}
		return NewDateTime(t), nil
	default:
		if IsAbstract(datatype) {
			return nil, fault.Malformed("abstract datatype <%s> has no literals", datatype)
		}
		return Literal{Text: text, Type: datatype}, nil
	}
}

// Of converts a native Go value into a Value.
// Floats are converted through their shortest decimal representation.
func Of(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return NewDecimal(strconv.FormatFloat(val, 'f', -1, 64))
	case time.Time:
		return NewDateTime(val), nil
	default:
		return nil, fault.Malformed("unsupported value type %T", v)
	}
}

// quote renders a double-quoted string literal with query-language escapes.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// escapeIRI percent-encodes the characters that may not appear inside an
// IRIREF.
func escapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune("<>\"{}|^`\\ ", r) {
			fmt.Fprintf(&b, "%%%02X", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
