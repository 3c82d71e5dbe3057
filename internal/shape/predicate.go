package shape

import "github.com/roach88/shapeq/internal/value"

// Reserved predicates specialized by Property.
const (
	// IDPredicate addresses the identifier of a resource.
	IDPredicate = value.Term + "id"

	// TypePredicate addresses the classes of a resource.
	TypePredicate = value.RDFType
)

// Predicate is a property IRI with a traversal direction.
// Predicates are comparable and usable as map keys.
type Predicate struct {
	IRI     string
	Reverse bool
}

// Forward returns the subject-to-object predicate for iri.
func Forward(iri string) Predicate {
	return Predicate{IRI: iri}
}

// Reverse returns the object-to-subject predicate for iri.
func Reverse(iri string) Predicate {
	return Predicate{IRI: iri, Reverse: true}
}

// Inverse returns the predicate traversed in the opposite direction.
func (p Predicate) Inverse() Predicate {
	return Predicate{IRI: p.IRI, Reverse: !p.Reverse}
}

// String renders the predicate as a query-language path element; reverse
// predicates carry the inverse-path marker.
func (p Predicate) String() string {
	term := value.IRI(p.IRI).String()
	if p.Reverse {
		return "^" + term
	}
	return term
}

// reserved reports whether p is the forward id or type predicate.
func (p Predicate) reserved() bool {
	return !p.Reverse && (p.IRI == IDPredicate || p.IRI == TypePredicate)
}
