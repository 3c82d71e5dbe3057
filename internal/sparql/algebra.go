package sparql

// Pattern is a graph pattern inside a WHERE or CONSTRUCT block.
//
// This is a sealed interface - only types in this package implement it.
// The renderer switches exhaustively over:
//   - Triple: subject path object
//   - Optional: a left-joined group of patterns
//   - Bind: an expression assigned to a variable
//   - Filter: a conjunction of boolean conditions
type Pattern interface {
	patternNode()
}

// Triple matches subject and object connected by a predicate path.
//
// Path is a rendered IRI, "a", or an inverse path "^<iri>".
//
//	Triple{Subject: "?m", Path: "<https://schema.org/name>", Object: "?v1"}
//
// renders as
//
//	?m <https://schema.org/name> ?v1 .
type Triple struct {
	Subject string
	Path    string
	Object  string
}

func (Triple) patternNode() {}

// Optional left-joins its patterns: solutions without a match keep their
// bindings and leave the optional variables unbound.
//
//	OPTIONAL {
//	  ?m <https://schema.org/name> ?v1 .
//	}
type Optional struct {
	Patterns []Pattern
}

func (Optional) patternNode() {}

// Bind assigns a computed expression to a fresh variable.
//
//	BIND(ROUND(?v1) AS ?c1)
type Bind struct {
	Expr string
	Var  string
}

func (Bind) patternNode() {}

// Filter keeps solutions satisfying every condition.
//
//	FILTER (?v1 > 3 && ?v1 IN ("a", "b"))
//
// An empty Filter renders nothing.
type Filter struct {
	Conditions []string
}

func (Filter) patternNode() {}

// Select is a SELECT statement.
//
// Clauses render in the fixed order
//
//	SELECT [DISTINCT] projection
//	WHERE { patterns }
//	GROUP BY ... HAVING (...) ORDER BY ... OFFSET n LIMIT n
//
// Empty GroupBy, Having and OrderBy are omitted; Offset and Limit are always
// rendered.
type Select struct {
	Distinct   bool
	Projection []string
	Where      []Pattern
	GroupBy    []string
	Having     []string
	OrderBy    []string
	Offset     int
	Limit      int
}

// Construct is a CONSTRUCT statement.
type Construct struct {
	Template []Triple
	Where    []Pattern
}
