package shape

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/fault"
	"github.com/roach88/shapeq/internal/value"
)

const (
	schema = "https://schema.org/"
	foaf   = "http://xmlns.com/foaf/0.1/"
)

func TestMergeIdentityAndPassThrough(t *testing.T) {
	s, err := Merge()
	require.NoError(t, err)
	assert.Same(t, Empty(), s)

	one := Datatype(value.XSDString)
	s, err = Merge(one)
	require.NoError(t, err)
	assert.Same(t, one, s)

	s, err = Merge(Empty(), one, Empty())
	require.NoError(t, err)
	assert.Same(t, one, s)
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a := Must(
		MinInclusive(value.Int(1)),
		MaxExclusive(value.Int(100)),
		MinLength(2),
		MaxCount(5),
		Type(schema+"Person"),
		Nested("name", Forward(schema+"name"), Datatype(value.XSDString)),
	)
	b := Must(
		MinInclusive(value.Int(3)),
		MaxExclusive(value.Int(50)),
		MaxLength(10),
		MinCount(1),
		MaxCount(2),
		Type(schema+"Agent"),
		Nested("name", Forward(schema+"name"), MaxCount(1)),
	)

	ab, err := Merge(a, b)
	require.NoError(t, err)
	ba, err := Merge(b, a)
	require.NoError(t, err)

	assert.True(t, Equal(ab, ba), "%s != %s", ab, ba)
	assert.Equal(t, value.Int(3), ab.MinInclusive())
	assert.Equal(t, value.Int(50), ab.MaxExclusive())

	n, ok := ab.MinLength()
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	n, ok = ab.MaxLength()
	assert.True(t, ok)
	assert.Equal(t, 10, n)
	n, ok = ab.MaxCount()
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	n, ok = ab.MinCount()
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	assert.Equal(t, 2, ab.Types().Len())
}

func TestMergeIntersectsEnumerations(t *testing.T) {
	s, err := Merge(
		In(value.Int(1), value.Int(2), value.Int(3)),
		In(value.Int(2), value.Int(3), value.Int(4)),
	)
	require.NoError(t, err)
	assert.True(t, Equal(In(value.Int(2), value.Int(3)), s), "got %s", s)

	_, err = Merge(In(value.Int(1)), In(value.Int(2)))
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Len(t, fe.Operands, 2)
}

func TestMergeUnionsHasValue(t *testing.T) {
	s := Must(HasValue(value.String("a")), HasValue(value.String("b")))
	assert.True(t, s.HasValue().Equal(value.NewSet(value.String("a"), value.String("b"))))
}

func TestMergeDatatypeLattice(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		want     string
		conflict bool
	}{
		{name: "equal", a: value.XSDString, b: value.XSDString, want: value.XSDString},
		{name: "value top", a: value.ValueType, b: value.XSDString, want: value.XSDString},
		{name: "resource to iri", a: value.ResourceType, b: value.IRIType, want: value.IRIType},
		{name: "iri to resource", a: value.IRIType, b: value.ResourceType, want: value.IRIType},
		{name: "literal to concrete", a: value.LiteralType, b: value.XSDInteger, want: value.XSDInteger},
		{name: "siblings", a: value.IRIType, b: value.BNodeType, conflict: true},
		{name: "concrete literals", a: value.XSDString, b: value.XSDInteger, conflict: true},
		{name: "resource and literal", a: value.ResourceType, b: value.XSDString, conflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Merge(Datatype(tt.a), Datatype(tt.b))
			if tt.conflict {
				require.Error(t, err)
				assert.True(t, fault.IsConflict(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Datatype())
		})
	}
}

func TestMergePattern(t *testing.T) {
	p, err := Pattern(`^[a-z]+$`)
	require.NoError(t, err)
	q, err := Pattern(`^[0-9]+$`)
	require.NoError(t, err)

	s, err := Merge(p, MaxLength(3), p)
	require.NoError(t, err)
	assert.Equal(t, `^[a-z]+$`, s.Pattern())

	_, err = Merge(p, q)
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))
}

func TestPatternRejectsMalformedExpression(t *testing.T) {
	_, err := Pattern("(")
	require.Error(t, err)
	assert.True(t, fault.IsMalformed(err))

	_, err = Pattern("")
	assert.True(t, fault.IsMalformed(err))
}

func TestMergeIncomparableBoundsConflict(t *testing.T) {
	_, err := Merge(MinInclusive(value.Int(1)), MinInclusive(value.String("a")))
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))

	_, err = Merge(MaxExclusive(value.Int(1)), MaxExclusive(value.MustDecimal("1.5")))
	assert.True(t, fault.IsConflict(err))
}

func TestMergeFlags(t *testing.T) {
	s := Must(Virtual(), Datatype(value.XSDInteger))
	assert.True(t, s.IsVirtual())
	assert.False(t, s.IsComposite())

	s = Must(s, Composite())
	assert.True(t, s.IsVirtual())
	assert.True(t, s.IsComposite())
}

func TestMergeProperties(t *testing.T) {
	s := Must(
		Nested("name", Forward(schema+"name"), Datatype(value.XSDString)),
		Nested("age", Forward(schema+"age"), Datatype(value.XSDInteger)),
		Nested("name", Forward(schema+"name"), MaxCount(1)),
	)

	labels := []string{}
	for _, p := range s.Properties() {
		labels = append(labels, p.Label)
	}
	assert.Equal(t, []string{"age", "name"}, labels)

	name, err := s.Entry("name")
	require.NoError(t, err)
	assert.Equal(t, value.XSDString, name.Datatype())
	n, ok := name.MaxCount()
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	age, err := s.EntryFor(Forward(schema + "age"))
	require.NoError(t, err)
	assert.Equal(t, value.XSDInteger, age.Datatype())
}

func TestMergePropertyBindingConflicts(t *testing.T) {
	t.Run("label with two predicates", func(t *testing.T) {
		_, err := Merge(
			Nested("name", Forward(schema+"name"), Empty()),
			Nested("name", Forward(foaf+"name"), Empty()),
		)
		require.Error(t, err)
		assert.True(t, fault.IsConflict(err))
	})

	t.Run("predicate with two labels", func(t *testing.T) {
		_, err := Merge(
			Nested("name", Forward(schema+"name"), Empty()),
			Nested("title", Forward(schema+"name"), Empty()),
		)
		require.Error(t, err)
		assert.True(t, fault.IsConflict(err))
	})

	t.Run("direction distinguishes predicates", func(t *testing.T) {
		s, err := Merge(
			Nested("knows", Forward(foaf+"knows"), Empty()),
			Nested("knownBy", Reverse(foaf+"knows"), Empty()),
		)
		require.NoError(t, err)
		assert.Len(t, s.Properties(), 2)
	})
}

func TestNestedConflictSurfacesOnEntry(t *testing.T) {
	s, err := Merge(
		Nested("age", Forward(schema+"age"), Datatype(value.XSDInteger)),
		Nested("age", Forward(schema+"age"), Datatype(value.XSDString)),
	)
	require.NoError(t, err)

	_, err = s.Entry("age")
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))
}

func TestEntryUnknownLabel(t *testing.T) {
	s := Nested("name", Forward(schema+"name"), Empty())

	_, err := s.Entry("nmae")
	require.Error(t, err)
	assert.True(t, fault.IsMalformed(err))

	_, err = s.EntryFor(Reverse(schema + "name"))
	assert.True(t, fault.IsMalformed(err))
}

func TestPropertyLookupReturnsBinding(t *testing.T) {
	s := Must(
		Nested("name", Forward(schema+"name"), Datatype(value.XSDString)),
		Property("maker", Forward(schema+"manufacturer"), Fixed(Empty())),
	)

	var byLabel Binding
	byLabel, ok := s.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "name", byLabel.Label)
	assert.Equal(t, Forward(schema+"name"), byLabel.Predicate)

	byPredicate, ok := s.LookupPredicate(Forward(schema + "manufacturer"))
	require.True(t, ok)
	assert.Equal(t, "maker", byPredicate.Label)

	nested, err := byLabel.Shape()
	require.NoError(t, err)
	assert.Equal(t, value.XSDString, nested.Datatype())

	_, ok = s.LookupPredicate(Reverse(schema + "manufacturer"))
	assert.False(t, ok)
	assert.Equal(t, []string{"maker", "name"}, []string{s.Properties()[0].Label, s.Properties()[1].Label})
}

func TestReservedPredicatesAreSpecialized(t *testing.T) {
	s := Must(
		Nested("id", Forward(IDPredicate), Empty()),
		Nested("type", Forward(TypePredicate), Datatype(value.IRIType)),
		Nested("typeOf", Reverse(TypePredicate), Empty()),
	)

	id, err := s.Entry("id")
	require.NoError(t, err)
	assert.Equal(t, value.ResourceType, id.Datatype())
	n, ok := id.MaxCount()
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	typ, err := s.Entry("type")
	require.NoError(t, err)
	assert.Equal(t, value.IRIType, typ.Datatype())
	_, ok = typ.MaxCount()
	assert.True(t, ok)

	inverse, err := s.Entry("typeOf")
	require.NoError(t, err)
	assert.Same(t, Empty(), inverse)
}

func TestReservedPredicateRejectsLiteral(t *testing.T) {
	s := Nested("id", Forward(IDPredicate), Datatype(value.XSDString))
	_, err := s.Entry("id")
	require.Error(t, err)
	assert.True(t, fault.IsConflict(err))
}

func TestPredicateString(t *testing.T) {
	assert.Equal(t, "<https://schema.org/name>", Forward(schema+"name").String())
	assert.Equal(t, "^<https://schema.org/name>", Reverse(schema+"name").String())
	assert.Equal(t, Reverse(schema+"name"), Forward(schema+"name").Inverse())
}

func TestShapeString(t *testing.T) {
	s := Must(Datatype(value.XSDString), MaxCount(1), In(value.String("a")))
	assert.Equal(t,
		`shape{datatype=<http://www.w3.org/2001/XMLSchema#string>, maxCount=1, in=("a")}`,
		s.String())
}

func TestArenaForwardReference(t *testing.T) {
	arena := NewArena()
	address := arena.Ref("Address")

	person := Property("address", Forward(schema+"address"), address)
	require.NoError(t, arena.Define("Address", Nested("city", Forward(schema+"addressLocality"), Datatype(value.XSDString))))

	a, err := person.Entry("address")
	require.NoError(t, err)
	_, ok := a.Lookup("city")
	assert.True(t, ok)
	assert.Equal(t, []string{"Address"}, arena.Names())
}

func TestArenaCyclicMergeTerminates(t *testing.T) {
	arena := NewArena()
	knows := Forward(foaf + "knows")

	require.NoError(t, arena.Define("Person", Must(
		Type(foaf+"Person"),
		Property("knows", knows, arena.Ref("Person")),
	)))
	require.NoError(t, arena.Define("Agent", Must(
		Nested("name", Forward(foaf+"name"), Datatype(value.XSDString)),
		Property("knows", knows, arena.Ref("Agent")),
	)))

	person, err := arena.Lookup("Person")
	require.NoError(t, err)
	agent, err := arena.Lookup("Agent")
	require.NoError(t, err)

	merged, err := Merge(person, agent)
	require.NoError(t, err)

	friend, err := merged.Entry("knows")
	require.NoError(t, err)
	assert.Equal(t, 1, friend.Types().Len())
	_, ok := friend.Lookup("name")
	assert.True(t, ok)

	friendOfFriend, err := friend.Entry("knows")
	require.NoError(t, err)
	assert.Same(t, friend, friendOfFriend)

	p1, _ := merged.Lookup("knows")
	p2, _ := friend.Lookup("knows")
	assert.Equal(t, "(Agent&Person)", p1.Ref().Key())
	assert.Equal(t, p1.Ref(), p2.Ref())
}

func TestArenaDefineTwice(t *testing.T) {
	arena := NewArena()
	require.NoError(t, arena.Define("Person", Empty()))

	err := arena.Define("Person", Type(foaf+"Person"))
	require.Error(t, err)
	assert.True(t, fault.IsIllegalState(err))
}

func TestArenaDefineAfterResolve(t *testing.T) {
	arena := NewArena()

	_, err := arena.Lookup("Ghost")
	require.Error(t, err)
	assert.True(t, fault.IsMalformed(err))

	err = arena.Define("Ghost", Empty())
	require.Error(t, err)
	assert.True(t, fault.IsIllegalState(err))
}

func TestRefZeroResolvesEmpty(t *testing.T) {
	var r Ref
	assert.True(t, r.IsZero())
	assert.Equal(t, "", r.Key())

	s, err := r.Resolve()
	require.NoError(t, err)
	assert.Same(t, Empty(), s)
}

func TestConcurrentResolveObservesOneShape(t *testing.T) {
	arena := NewArena()
	require.NoError(t, arena.Define("A", Datatype(value.LiteralType)))
	require.NoError(t, arena.Define("B", Datatype(value.XSDDecimal)))

	ref := mergeRefs(arena.Ref("A"), arena.Ref("B"))

	const workers = 32
	results := make([]*Shape, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := ref.Resolve()
			if err == nil {
				results[i] = s
			}
		}()
	}
	wg.Wait()

	require.NotNil(t, results[0])
	assert.Equal(t, value.XSDDecimal, results[0].Datatype())
	for _, s := range results[1:] {
		assert.Same(t, results[0], s)
	}
}
