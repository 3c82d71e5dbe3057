package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/shapeq/internal/catalog"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB        string
	Container string
	Limit     int
}

// HistoryEntry is one listed statement.
type HistoryEntry struct {
	Seq         int64            `json:"seq"`
	Fingerprint string           `json:"fingerprint"`
	Kind        string           `json:"kind"`
	Container   string           `json:"container"`
	Shape       string           `json:"shape"`
	Text        string           `json:"text"`
	Columns     []catalog.Column `json:"columns,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded statements",
		Long: `List the statements recorded in a catalog, most recent first.

Use --container to restrict the listing to one container.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "statement catalog (required)")
	cmd.Flags().StringVar(&opts.Container, "container", "", "only list statements over this container")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum statements to list (0 for all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", opts.DB))
	}

	c, err := catalog.Open(opts.DB)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	defer c.Close()

	entries, err := c.List(cmd.Context(), opts.Container, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if opts.Format == "json" {
		out := make([]HistoryEntry, len(entries))
		for i, e := range entries {
			out[i] = HistoryEntry{
				Seq:         e.Seq,
				Fingerprint: e.Fingerprint,
				Kind:        e.Kind,
				Container:   e.Container,
				Shape:       e.Shape,
				Text:        e.Text,
				Columns:     e.Columns,
			}
		}
		return formatter.Success(out)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No statements recorded")
		return nil
	}
	w := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tKIND\tFINGERPRINT\tSHAPE\tCONTAINER")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Seq, e.Kind, e.Fingerprint[:12], e.Shape, e.Container)
	}
	return w.Flush()
}
