package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/catalog"
	"github.com/roach88/shapeq/internal/resource"
	"github.com/roach88/shapeq/internal/sparql"
	"github.com/roach88/shapeq/internal/value"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Shapes string
	Data   string
	DB     string
}

// DescribeResult is the JSON payload of a successful describe.
type DescribeResult struct {
	Resource    string   `json:"resource"`
	Shape       string   `json:"shape"`
	Text        string   `json:"text"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Description []string `json:"description,omitempty"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe <shape> <resource-iri>",
		Short: "Compile the CONSTRUCT retrieving a resource",
		Long: `Compile the CONSTRUCT statement retrieving the description of a resource
under a shape.

With --data the description is also extracted from an N-Quads file and
printed as triples.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Shapes, "shapes", "shapes", "directory of CUE shape files")
	cmd.Flags().StringVar(&opts.Data, "data", "", "N-Quads file to extract the description from")
	cmd.Flags().StringVar(&opts.DB, "db", "", "statement catalog to record into")

	return cmd
}

func runDescribe(opts *DescribeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	name, id := args[0], args[1]

	s, err := loadShape(formatter, opts.Shapes, name)
	if err != nil {
		return err
	}

	text, err := sparql.NewCompiler(sparql.Options{}).Describe(id, s)
	if err != nil {
		return formatter.Fail(ExitFailure, codeOf(err), err.Error())
	}
	result := DescribeResult{Resource: id, Shape: name, Text: text}

	if opts.DB != "" {
		entry, inserted, err := record(cmd.Context(), opts.DB, catalog.Entry{
			Kind:      catalog.KindConstruct,
			Container: id,
			Shape:     name,
			Text:      text,
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		result.Fingerprint = entry.Fingerprint
		formatter.VerboseLog("statement %s (seq %d, recorded %t)", entry.Fingerprint, entry.Seq, inserted)
	}

	var desc *resource.Description
	if opts.Data != "" {
		quads, err := readQuads(opts.Data)
		if errors.Is(err, fs.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error())
		}
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeMalformed, err.Error())
		}
		desc, err = resource.Extract(value.IRI(id), s, quads)
		if err != nil {
			return formatter.Fail(ExitFailure, codeOf(err), err.Error())
		}
		formatter.VerboseLog("extracted %d predicate(s) from %d quad(s)", len(desc.Predicates()), len(quads))
		if triples := strings.TrimSuffix(desc.String(), "\n"); triples != "" {
			result.Description = strings.Split(triples, "\n")
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	out := cmd.OutOrStdout()
	if desc == nil {
		_, err = io.WriteString(out, text)
		return err
	}
	_, err = io.WriteString(out, desc.String())
	return err
}

// readQuads reads every quad of an N-Quads file.
func readQuads(path string) ([]quad.Quad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	r := nquads.NewReader(f, false)
	var quads []quad.Quad
	for {
		q, err := r.ReadQuad()
		if errors.Is(err, io.EOF) {
			return quads, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		quads = append(quads, q)
	}
}
