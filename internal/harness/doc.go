// Package harness provides conformance scenarios for shapes, queries and
// resource storage.
//
// A scenario loads a directory of CUE shapes, seeds an in-memory resource
// engine, runs a flow of operations and evaluates assertions against the
// resulting trace and the final engine state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	shapes: path/to/shapes
//	container: https://example.org/products/
//	setup:
//	  - resource: https://example.org/products/p1
//	    shape: Product
//	    properties: { name: [Widget] }
//	flow:
//	  - op: compile
//	    query:
//	      container: https://example.org/products/
//	      shape: Product
//	      query: { "?name": [Widget] }
//	    expect:
//	      contains: ["FILTER"]
//	  - op: delete
//	    resource: https://example.org/products/p1
//	    shape: Product
//	assertions:
//	  - type: member_count
//	    count: 0
//
// # Operations
//
//   - create, update: store a resource built from properties
//   - retrieve, delete: read or remove a resource under a shape
//   - compile: compile an inline query document
//   - describe: compile the CONSTRUCT retrieving a resource
//
// # Assertion Types
//
//   - statement_contains: the text of a flow step contains every fragment
//   - trace_count: an operation appears exactly N times in the trace
//   - member_count: a container has exactly N members at the end
//   - description_contains: a stored resource carries every triple
//
// Traces carry no timestamps or generated ids, so the same scenario always
// yields the same trace and can be compared against a golden file.
package harness
