package query

import (
	"slices"
	"strings"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// Expression addresses a possibly derived value: a transform pipe applied to
// the values reached by a property path. The pipe is stored outermost first,
// so the expression "abs:sum:price" applies sum before abs.
//
// Expressions are immutable. Equality is structural; Key returns a string that
// is equal for equal expressions and is used to key expression maps.
type Expression struct {
	pipe []Transform
	path []string
}

// Path returns the untransformed expression for a property path.
func Path(steps ...string) Expression {
	return Expression{path: slices.Clone(steps)}
}

// New returns the expression applying pipe, outermost first, to path.
func New(pipe []Transform, path ...string) Expression {
	return Expression{pipe: slices.Clone(pipe), path: slices.Clone(path)}
}

// Wrap returns the expression applying t to the values of e.
func Wrap(t Transform, e Expression) Expression {
	return Expression{pipe: append([]Transform{t}, e.pipe...), path: e.path}
}

// Pipe returns the transforms, outermost first.
func (e Expression) Pipe() []Transform { return slices.Clone(e.pipe) }

// Steps returns the property path labels.
func (e Expression) Steps() []string { return slices.Clone(e.path) }

// Computed reports whether the pipe is non-empty.
func (e Expression) Computed() bool { return len(e.pipe) > 0 }

// Aggregate reports whether the pipe contains a reducing transform.
func (e Expression) Aggregate() bool {
	return slices.ContainsFunc(e.pipe, Transform.Aggregate)
}

// Inner returns the expression without its outermost transform.
func (e Expression) Inner() Expression {
	if len(e.pipe) == 0 {
		return e
	}
	return Expression{pipe: e.pipe[1:], path: e.path}
}

// Bare returns the untransformed path of e.
func (e Expression) Bare() Expression {
	return Expression{path: e.path}
}

// Equal reports structural equality.
func (e Expression) Equal(o Expression) bool {
	return slices.Equal(e.pipe, o.pipe) && slices.Equal(e.path, o.path)
}

// Key returns the structural key of e.
func (e Expression) Key() string { return e.String() }

// Hash returns a structural hash of e.
func (e Expression) Hash() uint64 {
	return value.Hash64([]byte(e.String()))
}

// String renders e as "transform:...:step.step". Steps that are not bare
// identifiers are single-quoted.
func (e Expression) String() string {
	var b strings.Builder
	for _, t := range e.pipe {
		b.WriteString(t.String())
		b.WriteByte(':')
	}
	for i, step := range e.path {
		if i > 0 {
			b.WriteByte('.')
		}
		writeStep(&b, step)
	}
	return b.String()
}

// Apply resolves e against s and returns the shape of the values it yields.
// Every path step must name a property of the shape reached so far.
func (e Expression) Apply(s *shape.Shape) (*shape.Shape, error) {
	current := s
	for _, step := range e.path {
		next, err := current.Entry(step)
		if err != nil {
			return nil, err
		}
		current = next
	}
	for i := len(e.pipe) - 1; i >= 0; i-- {
		current = e.pipe[i].Apply(current)
	}
	return current, nil
}

// Predicates resolves each path step to its predicate.
func (e Expression) Predicates(s *shape.Shape) ([]shape.Predicate, error) {
	predicates := make([]shape.Predicate, 0, len(e.path))
	current := s
	for _, step := range e.path {
		prop, ok := current.Lookup(step)
		if !ok {
			return nil, fault.Malformed("unknown property label %q in %s", step, e)
		}
		next, err := prop.Shape()
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, prop.Predicate)
		current = next
	}
	return predicates, nil
}

// ParseExpression parses the text produced by Expression.String.
func ParseExpression(text string) (Expression, error) {
	var e Expression
	p := &exprParser{text: text}
	if p.done() {
		return e, nil
	}

	// Leading bare words followed by ':' form the pipe.
	for {
		start := p.pos
		word, quoted, err := p.token()
		if err != nil {
			return Expression{}, err
		}
		if !quoted && p.peek() == ':' {
			t, err := ParseTransform(word)
			if err != nil {
				return Expression{}, err
			}
			e.pipe = append(e.pipe, t)
			p.pos++
			if p.done() {
				return e, nil
			}
			continue
		}
		if quoted && p.peek() == ':' {
			return Expression{}, fault.Malformed("quoted transform at offset %d in %q", start, text)
		}
		e.path = append(e.path, word)
		break
	}

	for !p.done() {
		if p.peek() != '.' {
			return Expression{}, fault.Malformed("unexpected %q at offset %d in %q", p.peek(), p.pos, text)
		}
		p.pos++
		word, _, err := p.token()
		if err != nil {
			return Expression{}, err
		}
		e.path = append(e.path, word)
	}
	return e, nil
}

// MustParseExpression is like ParseExpression but panics on error.
// Use only in tests or with constant inputs.
func MustParseExpression(text string) Expression {
	e, err := ParseExpression(text)
	if err != nil {
		panic(err)
	}
	return e
}

type exprParser struct {
	text string
	pos  int
}

func (p *exprParser) done() bool { return p.pos >= len(p.text) }

func (p *exprParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.text[p.pos]
}

// token reads one bare or quoted step.
func (p *exprParser) token() (string, bool, error) {
	if p.peek() == '\'' {
		p.pos++
		var b strings.Builder
		for !p.done() {
			c := p.text[p.pos]
			p.pos++
			switch c {
			case '\'':
				return b.String(), true, nil
			case '\\':
				if p.done() {
					return "", false, fault.Malformed("unterminated escape in %q", p.text)
				}
				b.WriteByte(p.text[p.pos])
				p.pos++
			default:
				b.WriteByte(c)
			}
		}
		return "", false, fault.Malformed("unterminated quoted step in %q", p.text)
	}

	start := p.pos
	for !p.done() && isBare(p.text[p.pos], p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		return "", false, fault.Malformed("expected step at offset %d in %q", start, p.text)
	}
	return p.text[start:p.pos], false, nil
}

func isBare(c byte, first bool) bool {
	switch {
	case c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9' || c == '-':
		return !first
	default:
		return false
	}
}

func writeStep(b *strings.Builder, step string) {
	bare := step != ""
	for i := 0; i < len(step) && bare; i++ {
		bare = isBare(step[i], i == 0)
	}
	if bare {
		b.WriteString(step)
		return
	}
	b.WriteByte('\'')
	for i := 0; i < len(step); i++ {
		if step[i] == '\'' || step[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(step[i])
	}
	b.WriteByte('\'')
}
