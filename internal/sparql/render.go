package sparql

import (
	"strconv"
	"strings"
)

const indent = "  "

// renderSelect renders s as query text terminated by a newline.
func renderSelect(s Select) string {
	var b strings.Builder

	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(s.Projection, " "))
	b.WriteByte('\n')

	b.WriteString("WHERE {\n")
	renderPatterns(&b, s.Where, 1)
	b.WriteString("}\n")

	if len(s.GroupBy) > 0 {
		b.WriteString("GROUP BY " + strings.Join(s.GroupBy, " ") + "\n")
	}
	if len(s.Having) > 0 {
		b.WriteString("HAVING (" + strings.Join(s.Having, " && ") + ")\n")
	}
	if len(s.OrderBy) > 0 {
		b.WriteString("ORDER BY " + strings.Join(s.OrderBy, " ") + "\n")
	}
	b.WriteString("OFFSET " + strconv.Itoa(s.Offset) + "\n")
	b.WriteString("LIMIT " + strconv.Itoa(s.Limit) + "\n")
	return b.String()
}

// renderConstruct renders c as query text terminated by a newline.
func renderConstruct(c Construct) string {
	var b strings.Builder

	b.WriteString("CONSTRUCT {\n")
	for _, t := range c.Template {
		renderPattern(&b, t, 1)
	}
	b.WriteString("}\n")

	b.WriteString("WHERE {\n")
	renderPatterns(&b, c.Where, 1)
	b.WriteString("}\n")
	return b.String()
}

func renderPatterns(b *strings.Builder, patterns []Pattern, depth int) {
	for _, p := range patterns {
		renderPattern(b, p, depth)
	}
}

func renderPattern(b *strings.Builder, p Pattern, depth int) {
	pad := strings.Repeat(indent, depth)
	switch p := p.(type) {
	case Triple:
		b.WriteString(pad + p.Subject + " " + p.Path + " " + p.Object + " .\n")
	case Optional:
		b.WriteString(pad + "OPTIONAL {\n")
		renderPatterns(b, p.Patterns, depth+1)
		b.WriteString(pad + "}\n")
	case Bind:
		b.WriteString(pad + "BIND(" + p.Expr + " AS " + p.Var + ")\n")
	case Filter:
		if len(p.Conditions) == 0 {
			return
		}
		b.WriteString(pad + "FILTER (" + strings.Join(p.Conditions, " && ") + ")\n")
	}
}
