package value

import (
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetDeduplicatesAndSorts(t *testing.T) {
	s := NewSet(Int(3), Int(1), Int(3), nil, Int(2))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []Value{Int(1), Int(2), Int(3)}, s.Values())
	assert.Equal(t, "(1, 2, 3)", s.String())
}

func TestSetAlgebra(t *testing.T) {
	a := NewSet(Int(1), Int(2), Int(3))
	b := NewSet(Int(2), Int(3), Int(4))

	assert.True(t, a.Intersect(b).Equal(NewSet(Int(2), Int(3))))
	assert.True(t, a.Union(b).Equal(NewSet(Int(1), Int(2), Int(3), Int(4))))
	assert.True(t, NewSet(Int(2)).SubsetOf(a))
	assert.False(t, a.SubsetOf(b))
	assert.True(t, Set{}.SubsetOf(a))
	assert.True(t, a.Contains(Int(1)))
	assert.False(t, a.Contains(String("1")))
	assert.True(t, a.Intersect(NewSet(Int(9))).IsEmpty())
}

func TestSetHashIsStructural(t *testing.T) {
	assert.Equal(t, NewSet(Int(1), Int(2)).Hash(), NewSet(Int(2), Int(1)).Hash())
	assert.NotEqual(t, NewSet(Int(1)).Hash(), NewSet(Int(2)).Hash())
}

func TestSetAll(t *testing.T) {
	var got []Value
	for v := range NewSet(String("b"), String("a")).All() {
		got = append(got, v)
	}
	assert.Equal(t, []Value{String("a"), String("b")}, got)
}

func TestQuadRoundTrip(t *testing.T) {
	values := []Value{
		IRI("https://example.org/a"),
		BNode("n1"),
		String("x"),
		LangString{Text: "x", Lang: "en"},
		Int(5),
		MustDecimal("2.75"),
		Bool(true),
		Literal{Text: "P1D", Type: XSD + "duration"},
	}

	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			back, err := FromQuad(ToQuad(v))
			require.NoError(t, err)
			assert.True(t, Equal(v, back), "got %s", back)
		})
	}
}

func TestFromQuadFloat(t *testing.T) {
	v, err := FromQuad(quad.Float(0.5))
	require.NoError(t, err)
	assert.Equal(t, "0.5", v.String())

	_, err = FromQuad(nil)
	assert.Error(t, err)
}

func TestMarshalCanonical(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"text":      "a<b",
		"container": IRI("https://example.org/"),
		"limit":     10,
		"columns":   []string{"b", "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"columns":["b","a"],"container":"<https://example.org/>","limit":10,"text":"a<b"}`, string(data))

	_, err = MarshalCanonical(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestFingerprintStable(t *testing.T) {
	a, err := Fingerprint(DomainStatement, map[string]any{"x": "1", "y": "2"})
	require.NoError(t, err)
	b, err := Fingerprint(DomainStatement, map[string]any{"y": "2", "x": "1"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
