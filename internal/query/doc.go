// Package query models filterable, sortable, paginated views over collections
// of shape-described resources.
//
// An Expression addresses a value: a property path, optionally wrapped in a
// pipe of transforms (count, sum, min, max, avg, abs, round, year). A
// Constraint filters an expression's values by ordering bounds, keywords and
// membership. A Query gathers a result Model with per-expression filters,
// orders and foci, and a page window.
//
// Queries are assembled from fragments, typically one per parsed filter term:
//
//	q, err := query.Merge(query.Template{},
//	    query.Filter(query.Path("age"), query.Gte(value.Int(18))),
//	    query.Filter(query.Path("age"), query.Lt(value.Int(65))),
//	    query.Order(query.Path("name"), 1),
//	    query.Limit(20),
//	)
//
// Merging is commutative and reports disagreement between fragments as a
// ConflictingConstraint error rather than picking a winner.
package query
