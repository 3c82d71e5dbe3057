// Package resource holds resource descriptions: predicate to value maps,
// possibly with nested owned resources and values pinned under query probes.
//
// Descriptions convert to and from quads. Extract reads one resource out of a
// quad set following a shape, and Collect maps the result rows of a compiled
// statement back to descriptions. Memory is a small in-process Engine used by
// the CLI and by tests.
package resource
