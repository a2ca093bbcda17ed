package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/planbench/planbench/internal/config"
	"github.com/planbench/planbench/internal/report"
	"github.com/planbench/planbench/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database   string
	Experiment string
	Attrs      []string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render the comparison report from a results database",
		Long: `Re-render a comparison report from an existing results database.

Without --experiment the most recent experiment is reported. The report
goes to stdout in the format selected by --format.

Example:
  planbench report --db experiments/issue595/results.db
  planbench report --db results.db --experiment issue595 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to results database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Experiment, "experiment", "", "experiment ID or name (default: most recent)")
	cmd.Flags().StringSliceVar(&opts.Attrs, "attrs", nil, "table attributes to report (default: built-in set)")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exp, err := findExperiment(ctx, st, opts.Experiment)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find experiment", err)
	}

	attrs, err := config.Defaults{TableAttributes: opts.Attrs}.ResolveTableAttributes()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid attributes", err)
	}

	matrix, err := st.PropertyMatrix(ctx, exp.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read results", err)
	}
	if len(matrix) == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("experiment %s has no parsed results", exp.Name))
	}

	revisions, configs := matrixAxes(matrix)
	tables, err := report.ComparisonTables(matrix, attrs, revisions, configs)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build report", err)
	}

	meta := report.Meta{
		Experiment: exp.Name,
		Suite:      exp.Suite,
		Contact:    exp.Contact,
	}

	if opts.Format == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), meta, tables)
	}
	return report.WriteText(cmd.OutOrStdout(), meta, tables)
}

// findExperiment resolves a --experiment flag value to a record: empty
// means the newest experiment, otherwise ID match first, then name.
func findExperiment(ctx context.Context, st *store.Store, ref string) (store.Experiment, error) {
	exps, err := st.Experiments(ctx)
	if err != nil {
		return store.Experiment{}, err
	}
	if len(exps) == 0 {
		return store.Experiment{}, fmt.Errorf("database contains no experiments")
	}
	if ref == "" {
		return exps[0], nil
	}
	for _, e := range exps {
		if e.ID == ref {
			return e, nil
		}
	}
	for _, e := range exps {
		if e.Name == ref {
			return e, nil
		}
	}
	return store.Experiment{}, fmt.Errorf("no experiment with ID or name %q", ref)
}

// matrixAxes extracts the sorted revision and configuration axes present
// in a property matrix.
func matrixAxes(m store.Matrix) (revisions, configs []string) {
	revSet := map[string]bool{}
	cfgSet := map[string]bool{}
	for cell := range m {
		revSet[cell.Revision] = true
		cfgSet[cell.Config] = true
	}
	for r := range revSet {
		revisions = append(revisions, r)
	}
	for c := range cfgSet {
		configs = append(configs, c)
	}
	sort.Strings(revisions)
	sort.Strings(configs)
	return revisions, configs
}
