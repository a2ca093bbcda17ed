package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/planbench/planbench/internal/attr"
	"github.com/planbench/planbench/internal/config"
	"github.com/planbench/planbench/internal/experiment"
	"github.com/planbench/planbench/internal/parser"
	"github.com/planbench/planbench/internal/runner"
	"github.com/planbench/planbench/internal/store"
	"github.com/planbench/planbench/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Dir       string
	Smoke     bool
	MaxProcs  int
	SolverDir string
	Config    string
	SuiteFile string

	// Runner allows overriding the task runner (for testing).
	// If nil, a local process runner is used.
	Runner runner.Runner
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <experiment.cue>",
		Short: "Execute an experiment end to end",
		Long: `Execute an experiment definition end to end.

The experiment definition names the solver revisions, configurations and
benchmark suite. Every revision x configuration x problem combination is
executed (at most max_processes at a time), the run artifacts are parsed
into attribute values, and a comparison report is written next to the
run directories.

The solver binary for revision R is expected at <solver-dir>/R.

Example:
  planbench run issue595.cue
  planbench run issue595.cue --smoke --verbose
  planbench run issue595.cue --dir /tmp/issue595 --max-procs 8`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to results database (default <dir>/results.db)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "experiment directory (default experiments/<name>)")
	cmd.Flags().BoolVar(&opts.Smoke, "smoke", false, "run the definition's test_suite instead of the full suite")
	cmd.Flags().IntVar(&opts.MaxProcs, "max-procs", 0, "override the concurrency bound")
	cmd.Flags().StringVar(&opts.SolverDir, "solver-dir", "solvers", "directory holding one solver binary per revision")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to planbench.yaml with process-wide defaults")
	cmd.Flags().StringVar(&opts.SuiteFile, "suite-file", "", "additional suite definitions (YAML)")

	return cmd
}

func runExperiment(opts *RunOptions, defPath string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	defaults, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	slog.Info("loading experiment definition", "path", defPath)
	def, err := LoadDefinition(defPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load definition", err)
	}

	resolver, err := newResolver(opts.SuiteFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load suites", err)
	}

	baseDir := opts.Dir
	if baseDir == "" {
		baseDir = filepath.Join("experiments", def.Name)
	}

	exp, p, err := buildExperiment(def, defaults, resolver, buildParams{
		BaseDir:  baseDir,
		Smoke:    opts.Smoke,
		MaxProcs: opts.MaxProcs,
		Logger:   logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid experiment", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = filepath.Join(baseDir, "results.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create experiment directory", err)
	}

	slog.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	run := opts.Runner
	if run == nil {
		solverDir := opts.SolverDir
		run = &runner.Local{
			MaxProcs: exp.MaxProcesses(),
			Timeout:  time.Duration(defaults.SolverTimeoutSecs) * time.Second,
			SolverPath: func(revision string) string {
				return filepath.Join(solverDir, revision)
			},
			Logger: logger,
		}
	}

	if err := exp.AddBuildStep(st); err != nil {
		return WrapExitError(ExitCommandError, "invalid pipeline", err)
	}
	if err := exp.AddRunStep(run); err != nil {
		return WrapExitError(ExitCommandError, "invalid pipeline", err)
	}
	if err := exp.AddParseStep(p, st); err != nil {
		return WrapExitError(ExitCommandError, "invalid pipeline", err)
	}
	if err := exp.AddComparisonTableStep(st, nil); err != nil {
		return WrapExitError(ExitCommandError, "invalid pipeline", err)
	}

	// Setup signal handling for graceful shutdown.
	// Use command's context if available (for testing), otherwise create one.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, aborting", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("experiment starting",
		"name", exp.Name(),
		"id", exp.ID,
		"problems", len(exp.Problems()),
		"dir", baseDir,
	)

	if err := exp.RunSteps(ctx); err != nil {
		return WrapExitError(ExitFailure, "experiment failed", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s complete.\n", exp.Name())
	fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", exp.ReportPath("text"))
	return nil
}

// buildParams are the CLI-level knobs applied on top of a definition.
type buildParams struct {
	BaseDir  string
	Smoke    bool
	MaxProcs int
	Logger   *slog.Logger
}

// buildExperiment turns a decoded definition plus process defaults into a
// configured experiment and log parser. Flag overrides take precedence
// over the definition, which takes precedence over the config defaults.
func buildExperiment(def *Definition, defaults config.Defaults, resolver suite.Resolver, params buildParams) (*experiment.Experiment, *parser.Parser, error) {
	tableAttrs, err := defaults.ResolveTableAttributes()
	if err != nil {
		return nil, nil, err
	}

	contact := def.Contact
	if contact == "" {
		contact = defaults.Contact
	}

	maxProcs := defaults.MaxProcesses
	if def.MaxProcesses > 0 {
		maxProcs = def.MaxProcesses
	}
	if params.MaxProcs > 0 {
		maxProcs = params.MaxProcs
	}

	exp, err := experiment.New(experiment.Options{
		Name:              def.Name,
		Revisions:         def.Revisions,
		Configs:           def.ConfigList(),
		Suite:             def.Suite,
		TestSuite:         def.TestSuite,
		SmokeTest:         params.Smoke,
		MaxProcesses:      maxProcs,
		Contact:           contact,
		BaseDir:           params.BaseDir,
		DefaultAttributes: tableAttrs,
		Logger:            params.Logger,
	}, resolver)
	if err != nil {
		return nil, nil, err
	}

	for _, r := range def.Resources {
		if err := exp.AddResource(r.Name, r.Source, r.Dest); err != nil {
			return nil, nil, err
		}
	}
	for _, c := range def.Commands {
		if err := exp.AddCommand(c.Name, c.Argv); err != nil {
			return nil, nil, err
		}
	}
	for _, a := range def.Attributes {
		funcs := make([]attr.Func, 0, len(a.Functions))
		for _, name := range a.Functions {
			fn, err := attr.FuncByName(name)
			if err != nil {
				return nil, nil, fmt.Errorf("attribute %q: %w", a.Name, err)
			}
			funcs = append(funcs, fn)
		}
		if err := exp.AddAttribute(attr.Attribute{
			Name:      a.Name,
			Absolute:  a.Absolute,
			MinWins:   a.MinWins,
			Functions: funcs,
		}); err != nil {
			return nil, nil, err
		}
	}

	p := parser.NewDefault()
	if params.Logger != nil {
		p.SetLogger(params.Logger)
	}
	for _, pat := range def.Patterns {
		if err := p.AddPattern(pat.Attribute, pat.Regex); err != nil {
			return nil, nil, err
		}
	}

	return exp, p, nil
}

// newResolver builds the suite resolver: user-provided suite files are
// consulted before the built-in catalog.
func newResolver(suiteFile string) (suite.Resolver, error) {
	builtin, err := suite.NewBuiltin()
	if err != nil {
		return nil, err
	}
	if suiteFile == "" {
		return builtin, nil
	}
	fromFile, err := suite.FromFile(suiteFile)
	if err != nil {
		return nil, err
	}
	return suite.Chain{fromFile, builtin}, nil
}
