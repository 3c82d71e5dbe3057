package querydoc

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shapeq/internal/query"
)

// Document is a query over one container, as read from YAML:
//
//	container: https://example.org/products/
//	shape: Product
//	table:
//	  country: maker.country
//	  n: "count:"
//	query:
//	  ">=price": 9.5
//	  "~name": crème brûlée
//	  "?maker.country": [FR, BE]
//	  "^released": -1
//	  "@": 20
//	  "#": 10
//
// table and probes are mutually exclusive; with neither, the model is a plain
// resource template.
type Document struct {
	// Container is the IRI of the queried container.
	Container string `yaml:"container"`

	// Shape names the shape describing the members.
	Shape string `yaml:"shape"`

	// Table maps column labels to expressions, in column order.
	Table yaml.Node `yaml:"table,omitempty"`

	// Probes maps labels to computed expressions added to a resource template.
	Probes yaml.Node `yaml:"probes,omitempty"`

	// Query maps sigil-prefixed expressions to operands.
	Query yaml.Node `yaml:"query,omitempty"`
}

// Load reads and parses a query document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return Parse(data)
}

// Parse parses a query document, rejecting unknown fields.
func Parse(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateDocument(&doc); err != nil {
		return nil, fmt.Errorf("invalid query document: %w", err)
	}
	return &doc, nil
}

func validateDocument(doc *Document) error {
	if doc.Container == "" {
		return fmt.Errorf("container is required")
	}
	if doc.Shape == "" {
		return fmt.Errorf("shape is required")
	}
	if present(&doc.Table) && present(&doc.Probes) {
		return fmt.Errorf("table and probes are mutually exclusive")
	}
	return nil
}

func present(n *yaml.Node) bool {
	return n.Kind != 0 && n.Tag != "!!null"
}

// Build converts the document into a merged query.
func (d *Document) Build() (query.Query, error) {
	model, err := d.model()
	if err != nil {
		return query.Query{}, err
	}

	var fragments []query.Query
	if present(&d.Query) {
		fragments, err = Fragments(&d.Query)
		if err != nil {
			return query.Query{}, err
		}
	}
	q, err := query.Merge(model, fragments...)
	if err != nil {
		return query.Query{}, fmt.Errorf("query: %w", err)
	}
	return q, nil
}

func (d *Document) model() (query.Model, error) {
	switch {
	case present(&d.Table):
		columns, err := probes(&d.Table)
		if err != nil {
			return nil, fmt.Errorf("table: %w", err)
		}
		return query.Table{Columns: columns}, nil
	case present(&d.Probes):
		extra, err := probes(&d.Probes)
		if err != nil {
			return nil, fmt.Errorf("probes: %w", err)
		}
		return query.Template{Extra: extra}, nil
	default:
		return query.Template{}, nil
	}
}

func probes(n *yaml.Node) ([]query.Probe, error) {
	if n.Kind != yaml.MappingNode {
		return nil, malformed(n, "expected a mapping of labels to expressions")
	}
	var out []query.Probe
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, malformed(val, "expression for %q must be a string", key.Value)
		}
		e, err := query.ParseExpression(val.Value)
		if err != nil {
			return nil, at(val, err)
		}
		out = append(out, query.Probe{Label: key.Value, Expr: e})
	}
	return out, nil
}
