// Package sparql lowers a merged query over a shape to graph-query text.
//
// Compile resolves every expression of the query against the shape, binds one
// variable per referenced path prefix, and emits a SELECT statement:
//
//	SELECT DISTINCT ?m
//	WHERE {
//	  <container> <http://www.w3.org/ns/ldp#contains> ?m .
//	  ?m <https://schema.org/name> ?v1 .
//	  FILTER (?v1 IN ("Ada"))
//	}
//	ORDER BY ASC(?m)
//	OFFSET 0
//	LIMIT 100
//
// Paths constrained by non-aggregate filters are required; paths that are only
// projected or sorted on are OPTIONAL, so missing values never drop a member.
// Aggregate filters are evaluated after grouping in a HAVING clause.
//
// Every statement that can return more than one row ends its ORDER BY with a
// deterministic tie-break, so pages are stable across executions.
//
// Statements are built as a small pattern algebra (Triple, Optional, Bind,
// Filter) and rendered in a fixed clause order.
package sparql
