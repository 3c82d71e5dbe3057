// Package shape provides the constraint algebra describing the structure of
// graph resources.
//
// A Shape is an immutable record of optional constraints: datatype, classes,
// ordering bounds, length and cardinality limits, pattern, enumerations and
// nested named properties. Shapes are built with combinators and composed
// only through Merge, which tightens bounds, intersects enumerations and
// reports every incompatibility as a ConflictingConstraint error:
//
//	person, err := shape.Merge(
//	    shape.Type("https://schema.org/Person"),
//	    shape.Nested("name", shape.Forward("https://schema.org/name"),
//	        shape.Must(shape.Datatype(value.XSDString), shape.MaxCount(1))),
//	)
//
// NESTED SHAPES:
//
// Properties do not hold nested shapes directly but a Ref into a cell that is
// resolved at most once. Named cells live in an Arena and may be referenced
// before they are defined, which supports recursive schemas:
//
//	arena := shape.NewArena()
//	knows := shape.Property("knows", shape.Forward(foaf+"knows"), arena.Ref("Person"))
//	arena.Define("Person", knows)
//
// Merging two shapes that share a property label merges their refs into a new
// cell keyed by both operands, so the nested merge is computed lazily, once,
// and cyclic merges terminate.
package shape
