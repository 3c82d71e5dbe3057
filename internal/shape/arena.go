package shape

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/roach88/shapeq/internal/fault"
)

// Ref addresses a lazily resolved nested shape.
// Refs are comparable; the zero Ref resolves to the empty shape.
type Ref struct {
	c *cell
}

// cell is a single-assignment slot. Exactly one of fixed, name or parts
// describes how the shape is obtained.
type cell struct {
	key  string
	home *Arena

	fixed *Shape
	name  string
	parts []Ref

	once  sync.Once
	shape *Shape
	err   error
}

var fixedSeq atomic.Uint64

// Fixed wraps an already built shape in an anonymous ref.
func Fixed(s *Shape) Ref {
	if s == nil {
		return Ref{}
	}
	return Ref{c: &cell{key: "#" + strconv.FormatUint(fixedSeq.Add(1), 10), fixed: s}}
}

// Key returns the structural key of the ref. Merged refs have commutative
// keys, so merging a with b and b with a yields equal keys.
func (r Ref) Key() string {
	if r.c == nil {
		return ""
	}
	return r.c.key
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r.c == nil
}

// Resolve forces the nested shape. Concurrent callers observe the same
// result; the computation runs once.
func (r Ref) Resolve() (*Shape, error) {
	if r.c == nil {
		return Empty(), nil
	}
	c := r.c
	c.once.Do(func() {
		switch {
		case c.fixed != nil:
			c.shape = c.fixed
		case c.parts != nil:
			shapes := make([]*Shape, 0, len(c.parts))
			for _, part := range c.parts {
				s, err := part.Resolve()
				if err != nil {
					c.err = err
					return
				}
				shapes = append(shapes, s)
			}
			c.shape, c.err = Merge(shapes...)
		default:
			c.shape, c.err = c.home.lookup(c.name)
		}
	})
	return c.shape, c.err
}

// Join returns a ref resolving to the merge of refs. Zero refs are skipped.
func Join(refs ...Ref) Ref {
	var out Ref
	for _, r := range refs {
		out = mergeRefs(out, r)
	}
	return out
}

// mergeRefs returns a ref resolving to the merge of a and b. Within an arena
// the result is memoized by key, which lets recursive merges terminate.
func mergeRefs(a, b Ref) Ref {
	switch {
	case a.c == nil:
		return b
	case b.c == nil || a == b:
		return a
	}

	left, right := a, b
	if right.c.key < left.c.key {
		left, right = right, left
	}
	key := "(" + left.c.key + "&" + right.c.key + ")"

	home := left.c.home
	if home == nil {
		home = right.c.home
	}
	if home == nil {
		return Ref{c: &cell{key: key, parts: []Ref{left, right}}}
	}
	return home.memo(key, []Ref{left, right})
}

// Arena holds named shape definitions and memoized merge cells.
// Arenas are safe for concurrent use.
type Arena struct {
	mu       sync.Mutex
	defs     map[string]*Shape
	named    map[string]*cell
	merged   map[string]*cell
	resolved map[string]bool
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		defs:     make(map[string]*Shape),
		named:    make(map[string]*cell),
		merged:   make(map[string]*cell),
		resolved: make(map[string]bool),
	}
}

// Ref returns the ref for a named shape, which need not be defined yet.
func (a *Arena) Ref(name string) Ref {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.named[name]
	if !ok {
		c = &cell{key: name, home: a, name: name}
		a.named[name] = c
	}
	return Ref{c: c}
}

// Define binds a name to a shape.
// Redefining a name, or defining one that was already resolved as undefined,
// is an IllegalState error.
func (a *Arena) Define(name string, s *Shape) error {
	if s == nil {
		return fault.Malformed("nil shape for %q", name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.defs[name]; ok {
		return fault.Illegal("shape %q already defined", name)
	}
	if a.resolved[name] {
		return fault.Illegal("shape %q already resolved before definition", name)
	}
	a.defs[name] = s
	return nil
}

// Lookup resolves a named shape.
func (a *Arena) Lookup(name string) (*Shape, error) {
	return a.Ref(name).Resolve()
}

// Names returns the defined names in sorted order.
func (a *Arena) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.defs))
	for name := range a.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (a *Arena) lookup(name string) (*Shape, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resolved[name] = true
	s, ok := a.defs[name]
	if !ok {
		return nil, fault.Malformed("undefined shape %q", name)
	}
	return s, nil
}

func (a *Arena) memo(key string, parts []Ref) Ref {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.merged[key]
	if !ok {
		c = &cell{key: key, home: a, parts: parts}
		a.merged[key] = c
	}
	return Ref{c: c}
}
