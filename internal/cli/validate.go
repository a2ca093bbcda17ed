package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/planbench/planbench/internal/config"
)

// ValidationResult holds validation results for one definition file.
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Name      string   `json:"name,omitempty"`
	Revisions []string `json:"revisions,omitempty"`
	Configs   []string `json:"configs,omitempty"`
	Problems  int      `json:"problems,omitempty"`
	Runs      int      `json:"runs,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var suiteFile string

	cmd := &cobra.Command{
		Use:   "validate <experiment.cue>",
		Short: "Validate an experiment definition without running it",
		Long: `Validate an experiment definition without running anything.

Checks the definition against the schema, resolves the benchmark suite
and reports the size of the resulting run matrix.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], suiteFile, cmd)
		},
	}

	cmd.Flags().StringVar(&suiteFile, "suite-file", "", "additional suite definitions (YAML)")

	return cmd
}

func runValidate(opts *RootOptions, defPath, suiteFile string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	def, err := LoadDefinition(defPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			if loadErr.Code == ErrCodeNotFound {
				return outputValidateError(formatter, ExitCommandError, loadErr.Code, loadErr.Message)
			}
			return outputValidateError(formatter, ExitFailure, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ExitFailure, ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Definition %s decoded", defPath)

	resolver, err := newResolver(suiteFile)
	if err != nil {
		return outputValidateError(formatter, ExitCommandError, ErrCodeNotFound, err.Error())
	}

	defaults, err := config.Load("")
	if err != nil {
		return outputValidateError(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}

	// BaseDir is a placeholder: nothing touches the filesystem until the
	// build step runs, and validate never adds steps.
	exp, _, err := buildExperiment(def, defaults, resolver, buildParams{
		BaseDir: ".",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return outputValidateError(formatter, ExitFailure, ErrCodeBuildFailed, err.Error())
	}

	problems := len(exp.Problems())
	result := ValidationResult{
		Valid:     true,
		Name:      exp.Name(),
		Revisions: def.Revisions,
		Configs:   exp.ConfigNames(),
		Problems:  problems,
		Runs:      len(def.Revisions) * len(exp.ConfigNames()) * problems,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", defPath)
	fmt.Fprintf(formatter.Writer, "  revisions: %d, configs: %d, problems: %d (%d runs)\n",
		len(result.Revisions), len(result.Configs), result.Problems, result.Runs)
	return nil
}

// outputValidateError reports one validation failure and returns the
// matching ExitError.
func outputValidateError(formatter *OutputFormatter, exitCode int, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}
