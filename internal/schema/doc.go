// Package schema loads shape definitions from CUE.
//
// Shapes are declared under a top-level "shape" struct. Each field of a shape
// body maps to one shape combinator (datatype, type, counts, lengths, bounds,
// pattern, in, hasValue, required, virtual, composite); "property" declares
// nested properties, which may reference other named shapes by name. Names
// are bound in a shape.Arena, so references may be forward or cyclic.
//
// Errors carry CUE source positions and stable codes for the CLI.
package schema
