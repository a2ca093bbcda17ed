package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planbench/planbench/internal/suite"
)

// SuiteListing is the JSON payload of the suites command.
type SuiteListing struct {
	Suites   []string `json:"suites,omitempty"`
	Suite    string   `json:"suite,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// NewSuitesCommand creates the suites command.
func NewSuitesCommand(rootOpts *RootOptions) *cobra.Command {
	var suiteFile string

	cmd := &cobra.Command{
		Use:   "suites [name]",
		Short: "List benchmark suites or the problems of one suite",
		Long: `List the known benchmark suites, or the problems of one suite.

Without arguments the built-in suite names are printed. With a suite
name the fully resolved problem list is printed, with includes expanded.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runSuites(rootOpts, name, suiteFile, cmd)
		},
	}

	cmd.Flags().StringVar(&suiteFile, "suite-file", "", "additional suite definitions (YAML)")

	return cmd
}

func runSuites(opts *RootOptions, name, suiteFile string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	builtin, err := suite.NewBuiltin()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load built-in suites", err)
	}

	if name == "" {
		listing := SuiteListing{Suites: builtin.Names()}
		if formatter.Format == "json" {
			return formatter.Success(listing)
		}
		for _, s := range listing.Suites {
			fmt.Fprintln(formatter.Writer, s)
		}
		return nil
	}

	resolver, err := newResolver(suiteFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load suites", err)
	}

	problems, err := resolver.Resolve(name)
	if err != nil {
		var unknown *suite.UnknownSuiteError
		if errors.As(err, &unknown) {
			_ = formatter.Error(ErrCodeNotFound, unknown.Error(), nil)
			return NewExitError(ExitCommandError, unknown.Error())
		}
		return WrapExitError(ExitCommandError, "failed to resolve suite", err)
	}

	listing := SuiteListing{Suite: name}
	for _, p := range problems {
		listing.Problems = append(listing.Problems, p.String())
	}

	if formatter.Format == "json" {
		return formatter.Success(listing)
	}
	for _, p := range listing.Problems {
		fmt.Fprintln(formatter.Writer, p)
	}
	return nil
}
