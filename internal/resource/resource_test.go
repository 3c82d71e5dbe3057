package resource

import (
	"context"
	"sync"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/query"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/sparql"
	"github.com/roach88/shapeq/internal/value"
)

const schema = "https://schema.org/"

var (
	alice     = value.IRI("https://example.org/people/alice")
	people    = value.IRI("https://example.org/people/")
	acme      = value.IRI("https://example.org/orgs/acme")
	namePred  = shape.Forward(schema + "name")
	agePred   = shape.Forward(schema + "age")
	addrPred  = shape.Forward(schema + "address")
	cityPred  = shape.Forward(schema + "addressLocality")
	worksPred = shape.Forward(schema + "worksFor")
	memberOf  = shape.Reverse(schema + "member")
)

func personShape() *shape.Shape {
	return shape.Must(
		shape.Nested("id", shape.Forward(shape.IDPredicate), shape.Empty()),
		shape.Nested("name", namePred, shape.Datatype(value.XSDString)),
		shape.Nested("address", addrPred, shape.Must(
			shape.Composite(),
			shape.Nested("city", cityPred, shape.Datatype(value.XSDString)),
		)),
		shape.Nested("age", agePred, shape.Must(shape.Virtual(), shape.Datatype(value.XSDInteger))),
		shape.Nested("employer", worksPred, shape.Empty()),
		shape.Nested("memberOf", memberOf, shape.Empty()),
	)
}

func aliceDescription() *Description {
	addr := New(value.BNode("addr1")).Add(cityPred, value.String("Paris"))
	return New(alice).
		Add(namePred, value.String("Alice"), value.String("Alice")).
		Embed(addrPred, addr).
		Add(worksPred, acme).
		Add(memberOf, value.IRI("https://example.org/groups/chess"))
}

func TestDescription_AddSkipsDuplicates(t *testing.T) {
	d := aliceDescription()

	assert.Equal(t, []value.Value{value.String("Alice")}, d.Values(namePred))
	assert.Empty(t, d.Values(agePred))
	require.Len(t, d.Nested(addrPred), 1)
	assert.Equal(t, value.BNode("addr1"), d.Nested(addrPred)[0].ID())
	assert.Nil(t, d.Nested(namePred))
}

func TestDescription_Predicates(t *testing.T) {
	d := aliceDescription()

	assert.Equal(t, []shape.Predicate{addrPred, namePred, worksPred, memberOf}, d.Predicates())
}

func TestDescription_QuadsFlipReverse(t *testing.T) {
	quads := aliceDescription().Quads()

	assert.Contains(t, quads, quad.Quad{
		Subject:   quad.IRI("https://example.org/groups/chess"),
		Predicate: quad.IRI(schema + "member"),
		Object:    quad.IRI(string(alice)),
	})
	assert.Contains(t, quads, quad.Quad{
		Subject:   quad.BNode("addr1"),
		Predicate: quad.IRI(schema + "addressLocality"),
		Object:    quad.String("Paris"),
	})
	assert.Len(t, quads, 5)
}

func TestExtract_RoundTrip(t *testing.T) {
	original := aliceDescription()
	quads := append(original.Quads(), quad.Quad{
		Subject:   quad.IRI(string(alice)),
		Predicate: quad.IRI(schema + "age"),
		Object:    quad.Int(36),
	})

	d, err := Extract(alice, personShape(), quads)
	require.NoError(t, err)

	assert.Equal(t, original.Predicates(), d.Predicates())
	assert.Empty(t, d.Values(agePred), "virtual properties are not stored")
	require.Len(t, d.Nested(addrPred), 1)
	assert.Equal(t, []value.Value{value.String("Paris")}, d.Nested(addrPred)[0].Values(cityPred))
	assert.Equal(t, original.String(), d.String())
}

func TestExtract_IgnoresOtherSubjects(t *testing.T) {
	quads := []quad.Quad{
		{Subject: quad.IRI("https://example.org/people/bob"), Predicate: quad.IRI(schema + "name"), Object: quad.String("Bob")},
		{Subject: quad.IRI(string(alice)), Predicate: quad.IRI(schema + "name"), Object: quad.String("Alice")},
	}

	d, err := Extract(alice, personShape(), quads)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.String("Alice")}, d.Values(namePred))
}

func TestExtract_UnsupportedID(t *testing.T) {
	_, err := Extract(nil, personShape(), nil)
	require.Error(t, err)
	assert.True(t, fault.IsMalformed(err))
}

func TestCollect_Template(t *testing.T) {
	total := query.Probe{Label: "total", Expr: query.MustParseExpression("sum:offers.price")}
	stmt := sparql.Statement{
		Member:  sparql.MemberVar,
		Columns: []sparql.Column{{Label: "total", Var: "?c1", Expr: total.Expr}},
	}
	rows := []Binding{
		{"m": alice, "c1": value.Int(3)},
		{"m": acme},
		{"m": alice, "c1": value.Int(4)},
	}

	out, err := Collect(stmt, rows)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, alice, out[0].ID())
	assert.Equal(t, []value.Value{value.Int(3), value.Int(4)}, out[0].Values(total.Predicate()))
	assert.Equal(t, acme, out[1].ID())
	assert.Empty(t, out[1].Predicates())
}

func TestCollect_Table(t *testing.T) {
	n := query.Probe{Label: "n", Expr: query.MustParseExpression("count:")}
	stmt := sparql.Statement{Columns: []sparql.Column{{Label: "n", Var: "?c1", Expr: n.Expr}}}

	out, err := Collect(stmt, []Binding{{"c1": value.Int(7)}, {"c1": value.Int(2)}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, value.BNode("r1"), out[0].ID())
	assert.Equal(t, []value.Value{value.Int(7)}, out[0].Values(n.Predicate()))
	assert.Equal(t, []value.Value{value.Int(2)}, out[1].Values(n.Predicate()))
}

func TestCollect_UnboundMember(t *testing.T) {
	stmt := sparql.Statement{Member: sparql.MemberVar}

	_, err := Collect(stmt, []Binding{{"c1": value.Int(1)}})
	require.Error(t, err)
	assert.True(t, fault.IsMalformed(err))

	_, err = Collect(stmt, []Binding{{"m": value.String("x")}})
	require.Error(t, err)
	assert.True(t, fault.IsMalformed(err))
}

func TestMemory_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(shape.Predicate{})
	s := personShape()

	_, err := m.Retrieve(ctx, alice, s)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Create(ctx, people, aliceDescription()))
	assert.Equal(t, []value.Value{alice}, m.Members(people))

	err = m.Create(ctx, people, New(alice))
	require.Error(t, err)
	assert.True(t, fault.IsIllegalState(err))

	got, err := m.Retrieve(ctx, alice, s)
	require.NoError(t, err)
	assert.Equal(t, aliceDescription().String(), got.String())

	updated := New(alice).Add(namePred, value.String("Alice B."))
	require.NoError(t, m.Update(ctx, updated, s))
	got, err = m.Retrieve(ctx, alice, s)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.String("Alice B.")}, got.Values(namePred))
	assert.Empty(t, got.Values(worksPred))
	assert.Empty(t, got.Nested(addrPred))

	require.NoError(t, m.Delete(ctx, alice, s))
	assert.Empty(t, m.Members(people))
	assert.Empty(t, m.Quads())
	assert.ErrorIs(t, m.Delete(ctx, alice, s), ErrNotFound)
}

func TestMemory_UpdateKeepsUncoveredProperties(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(shape.Predicate{})
	require.NoError(t, m.Create(ctx, people, aliceDescription()))

	names := shape.Nested("name", namePred, shape.Datatype(value.XSDString))
	require.NoError(t, m.Update(ctx, New(alice).Add(namePred, value.String("Al")), names))

	got, err := m.Retrieve(ctx, alice, personShape())
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.String("Al")}, got.Values(namePred))
	assert.Equal(t, []value.Value{acme}, got.Values(worksPred))
}

func TestMemory_ReverseMembership(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(shape.Reverse(schema + "isPartOf"))
	require.NoError(t, m.Create(ctx, people, New(alice)))

	assert.Equal(t, []quad.Quad{{
		Subject:   quad.IRI(string(alice)),
		Predicate: quad.IRI(schema + "isPartOf"),
		Object:    quad.IRI(string(people)),
	}}, m.Quads())
	assert.Equal(t, []value.Value{alice}, m.Members(people))
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory(shape.Predicate{})
	assert.ErrorIs(t, m.Create(ctx, people, New(alice)), context.Canceled)
	_, err := m.Retrieve(ctx, alice, personShape())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(shape.Predicate{})

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = m.Create(ctx, people, New(alice))
		}()
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		if err == nil {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assert.Len(t, m.Members(people), 1)
}
