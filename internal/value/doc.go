// Package value provides the RDF value types addressed by shapes and queries.
//
// This package contains leaf types only: it imports nothing internal except
// fault. Shapes, constraints and the compiler all build on it.
//
// Key design constraints:
//   - Value is a sealed interface; exhaustive type switches are safe
//   - String renders the canonical query-language term, which doubles as the
//     identity key of a value inside a Set
//   - Ordering is defined within a variant only; comparing values of
//     different variants is an error, never an implicit coercion
package value
