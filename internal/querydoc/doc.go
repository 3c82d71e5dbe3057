// Package querydoc reads query documents from YAML.
//
// A document names a container and a shape, optionally declares a table or
// extra probes, and carries a mapping of sigil-prefixed expressions that are
// converted one by one into query fragments and merged. Merge conflicts and
// malformed operands are reported as fault errors, prefixed with the YAML
// line they come from.
package querydoc
