package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/catalog"
	"github.com/roach88/shapeq/internal/querydoc"
	"github.com/roach88/shapeq/internal/schema"
	"github.com/roach88/shapeq/internal/shape"
	"github.com/roach88/shapeq/internal/sparql"
	"github.com/roach88/shapeq/internal/value"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Shapes     string
	Membership string
	Reverse    bool
	PageSize   int
	DB         string
}

// CompileResult is the JSON payload of a successful compile.
type CompileResult struct {
	Container   string           `json:"container"`
	Shape       string           `json:"shape"`
	Text        string           `json:"text"`
	Member      string           `json:"member,omitempty"`
	Columns     []catalog.Column `json:"columns,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Recorded    bool             `json:"recorded,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Compile a query document to SPARQL",
		Long: `Compile a YAML query document against a shape into a SPARQL SELECT.

The document names the container and the shape its members conform to.
With --db the compiled statement is recorded in the statement catalog.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Shapes, "shapes", "shapes", "directory of CUE shape files")
	cmd.Flags().StringVar(&opts.Membership, "membership", "", "membership predicate IRI or CURIE (default ldp:contains)")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "membership links members to the container")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", sparql.DefaultPageSize, "limit used when the query sets none")
	cmd.Flags().StringVar(&opts.DB, "db", "", "statement catalog to record into")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, err := querydoc.Load(args[0])
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error())
		}
		return formatter.Fail(ExitFailure, ErrCodeMalformed, err.Error())
	}
	q, err := doc.Build()
	if err != nil {
		return formatter.Fail(ExitFailure, codeOf(err), err.Error())
	}

	s, err := loadShape(formatter, opts.Shapes, doc.Shape)
	if err != nil {
		return err
	}

	compiler := sparql.NewCompiler(sparql.Options{
		Membership: membership(opts.Membership, opts.Reverse),
		PageSize:   opts.PageSize,
	})
	stmt, err := compiler.Compile(doc.Container, s, q)
	if err != nil {
		return formatter.Fail(ExitFailure, codeOf(err), err.Error())
	}

	result := CompileResult{
		Container: doc.Container,
		Shape:     doc.Shape,
		Text:      stmt.Text,
		Member:    stmt.Member,
	}
	for _, col := range stmt.Columns {
		result.Columns = append(result.Columns, catalog.Column{Label: col.Label, Var: col.Var, Expr: col.Expr.String()})
	}

	if opts.DB != "" {
		entry, inserted, err := record(cmd.Context(), opts.DB, catalog.Entry{
			Kind:      catalog.KindSelect,
			Container: doc.Container,
			Shape:     doc.Shape,
			Text:      stmt.Text,
			Columns:   result.Columns,
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		result.Fingerprint = entry.Fingerprint
		result.Recorded = inserted
		formatter.VerboseLog("statement %s (seq %d, recorded %t)", entry.Fingerprint, entry.Seq, inserted)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), stmt.Text)
	return err
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadShape loads the shapes of dir and resolves name, reporting failures
// through formatter.
func loadShape(formatter *OutputFormatter, dir, name string) (*shape.Shape, error) {
	result, errs := schema.LoadDir(dir, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, failLoad(formatter, errs[0])
	}
	if !slices.Contains(result.Arena.Names(), name) {
		return nil, formatter.Fail(ExitFailure, ErrCodeUnknownShape, fmt.Sprintf("shape %q is not defined in %s", name, dir))
	}
	s, err := result.Arena.Lookup(name)
	if err != nil {
		return nil, formatter.Fail(ExitFailure, codeOf(err), err.Error())
	}
	return s, nil
}

func failLoad(formatter *OutputFormatter, err error) error {
	if le, ok := err.(*schema.LoadError); ok {
		exit := ExitFailure
		switch le.Code {
		case schema.ErrCodeNotFound, schema.ErrCodeNoFiles, schema.ErrCodeScanError:
			exit = ExitCommandError
		}
		message := le.Message
		if le.Pos.IsValid() {
			message = fmt.Sprintf("%s:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Message)
		}
		return formatter.Fail(exit, le.Code, message)
	}
	return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error())
}

func membership(iri string, reverse bool) shape.Predicate {
	if iri == "" {
		iri = value.LDPContains
	}
	p := shape.Forward(value.ExpandCURIE(iri))
	if reverse {
		p = p.Inverse()
	}
	return p
}

func record(ctx context.Context, path string, e catalog.Entry) (catalog.Entry, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := catalog.Open(path)
	if err != nil {
		return catalog.Entry{}, false, err
	}
	defer c.Close()
	return c.Record(ctx, e)
}
