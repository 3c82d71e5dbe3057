package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cayleygraph/quad"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/value"
)

// ErrNotFound is returned when a resource has no stored description.
var ErrNotFound = errors.New("resource not found")

// Engine is the storage collaborator executing reads and writes of resource
// descriptions. Implementations must be safe for concurrent use.
type Engine interface {
	// Retrieve returns the stored description of id, read through s.
	Retrieve(ctx context.Context, id value.Value, s *shape.Shape) (*Description, error)

	// Create stores d as a new member of container.
	Create(ctx context.Context, container value.Value, d *Description) error

	// Update replaces the properties of d.ID() covered by s with those of d.
	Update(ctx context.Context, d *Description, s *shape.Shape) error

	// Delete removes the properties of id covered by s and its membership.
	Delete(ctx context.Context, id value.Value, s *shape.Shape) error
}

// Memory is an in-memory Engine over a flat list of quads.
type Memory struct {
	membership shape.Predicate

	mu    sync.RWMutex
	quads []quad.Quad
}

var _ Engine = (*Memory)(nil)

// NewMemory creates an empty store linking containers to members through
// membership.
func NewMemory(membership shape.Predicate) *Memory {
	if membership.IRI == "" {
		membership = shape.Forward(value.LDPContains)
	}
	return &Memory{membership: membership}
}

// Quads returns a copy of the stored quads.
func (m *Memory) Quads() []quad.Quad {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.quads)
}

// Members returns the members of container in insertion order.
func (m *Memory) Members(container value.Value) []value.Value {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := value.ToQuad(container)
	pred := quad.IRI(m.membership.IRI)
	var members []value.Value
	for _, q := range m.quads {
		if q.Predicate != pred {
			continue
		}
		owner, member := q.Subject, q.Object
		if m.membership.Reverse {
			owner, member = member, owner
		}
		if owner != c {
			continue
		}
		if v, err := value.FromQuad(member); err == nil {
			members = append(members, v)
		}
	}
	return members
}

func (m *Memory) Retrieve(ctx context.Context, id value.Value, s *shape.Shape) (*Description, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.known(id) {
		return nil, fmt.Errorf("retrieve %s: %w", id, ErrNotFound)
	}
	d, err := Extract(id, s, m.quads)
	if err != nil {
		return nil, fmt.Errorf("retrieve %s: %w", id, err)
	}
	return d, nil
}

func (m *Memory) Create(ctx context.Context, container value.Value, d *Description) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !isResource(container) || !isResource(d.ID()) {
		return fault.Malformed("create: container and member must be resources")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.known(d.ID()) {
		return fault.Illegal("create: resource %s already exists", d.ID())
	}
	link := quad.Quad{Subject: value.ToQuad(container), Predicate: quad.IRI(m.membership.IRI), Object: value.ToQuad(d.ID())}
	if m.membership.Reverse {
		link.Subject, link.Object = link.Object, link.Subject
	}
	m.add(append([]quad.Quad{link}, d.Quads()...))
	slog.Debug("resource created", "resource", d.ID().String(), "container", container.String())
	return nil
}

func (m *Memory) Update(ctx context.Context, d *Description, s *shape.Shape) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known(d.ID()) {
		return fmt.Errorf("update %s: %w", d.ID(), ErrNotFound)
	}
	current, err := Extract(d.ID(), s, m.quads)
	if err != nil {
		return fmt.Errorf("update %s: %w", d.ID(), err)
	}
	m.remove(current.Quads())
	m.add(d.Quads())
	slog.Debug("resource updated", "resource", d.ID().String())
	return nil
}

func (m *Memory) Delete(ctx context.Context, id value.Value, s *shape.Shape) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.known(id) {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	current, err := Extract(id, s, m.quads)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	m.remove(current.Quads())

	term := value.ToQuad(id)
	pred := quad.IRI(m.membership.IRI)
	m.quads = slices.DeleteFunc(m.quads, func(q quad.Quad) bool {
		if q.Predicate != pred {
			return false
		}
		if m.membership.Reverse {
			return q.Subject == term
		}
		return q.Object == term
	})
	slog.Debug("resource deleted", "resource", id.String())
	return nil
}

// known reports whether id is a member of some container. Caller holds mu.
func (m *Memory) known(id value.Value) bool {
	term := value.ToQuad(id)
	pred := quad.IRI(m.membership.IRI)
	return slices.ContainsFunc(m.quads, func(q quad.Quad) bool {
		if q.Predicate != pred {
			return false
		}
		if m.membership.Reverse {
			return q.Subject == term
		}
		return q.Object == term
	})
}

// add appends quads not already stored. Caller holds mu.
func (m *Memory) add(quads []quad.Quad) {
	seen := make(map[string]bool, len(m.quads))
	for _, q := range m.quads {
		seen[quadKey(q)] = true
	}
	for _, q := range quads {
		if k := quadKey(q); !seen[k] {
			seen[k] = true
			m.quads = append(m.quads, q)
		}
	}
}

// remove deletes the given quads. Caller holds mu.
func (m *Memory) remove(quads []quad.Quad) {
	drop := make(map[string]bool, len(quads))
	for _, q := range quads {
		drop[quadKey(q)] = true
	}
	m.quads = slices.DeleteFunc(m.quads, func(q quad.Quad) bool {
		return drop[quadKey(q)]
	})
}

func quadKey(q quad.Quad) string {
	return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String()
}
