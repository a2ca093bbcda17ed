// Package experiment assembles revisions, configurations and a benchmark
// suite into a run matrix, and executes the resulting step pipeline.
package experiment

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/planbench/planbench/internal/attr"
	"github.com/planbench/planbench/internal/runner"
	"github.com/planbench/planbench/internal/suite"
)

// Config is one named solver parameterization. Args is a free-form
// command-line fragment passed to the solver verbatim; any syntax errors
// in it surface from the solver, not from the harness.
type Config struct {
	Name string
	Args []string
}

// Resource is a file shipped into the experiment directory and
// referenced by logical name from command invocations.
type Resource struct {
	Name   string
	Source string
	Dest   string
}

// Options describes an experiment to build. All validation happens in
// New; a successfully built Experiment is runnable as-is.
type Options struct {
	// Name labels the experiment in the store and report.
	Name string

	// Revisions are the solver versions to compare. Non-empty, ordered.
	Revisions []string

	// Configs are the solver parameterizations. Non-empty; names unique.
	Configs []Config

	// Suite is the symbolic benchmark-suite name to resolve.
	Suite string

	// TestSuite is the smoke-test subset used when SmokeTest is set.
	TestSuite []string

	// SmokeTest substitutes TestSuite for the full suite.
	SmokeTest bool

	// MaxProcesses bounds concurrent solver executions. Positive.
	MaxProcesses int

	// Contact is the run owner's email, recorded with the experiment.
	Contact string

	// BaseDir is the working directory: run directories and the report
	// are created beneath it.
	BaseDir string

	// DefaultAttributes seeds the comparison table's attribute set.
	// Experiment-specific declarations extend (and may override) it.
	// Nil means attr.DefaultTableAttributes().
	DefaultAttributes []attr.Attribute

	// Logger receives progress; nil discards.
	Logger *slog.Logger
}

// Experiment aggregates everything one benchmarking run needs. It is
// constructed once, mutated only during setup (resources, commands,
// attributes, steps), executed exactly once, then discarded.
type Experiment struct {
	ID       string
	opts     Options
	problems []suite.Problem

	resources []Resource
	commands  []runner.Command
	extras    *attr.Registry

	steps    []*Step
	executed bool

	results []runner.Result
	logger  *slog.Logger
}

// New validates the options, resolves the benchmark suite and returns a
// ready-to-configure experiment. All constraint violations are
// ConfigurationErrors; suite resolution failures pass through as
// UnknownSuiteErrors.
func New(opts Options, resolver suite.Resolver) (*Experiment, error) {
	if opts.Name == "" {
		return nil, configErr("name", "must not be empty")
	}
	if len(opts.Revisions) == 0 {
		return nil, configErr("revisions", "must not be empty")
	}
	if len(opts.Configs) == 0 {
		return nil, configErr("configs", "must not be empty")
	}
	if opts.MaxProcesses <= 0 {
		return nil, configErr("max_processes", "must be positive, got %d", opts.MaxProcesses)
	}
	if opts.BaseDir == "" {
		return nil, configErr("base_dir", "must not be empty")
	}

	seen := make(map[string]bool, len(opts.Configs))
	for _, c := range opts.Configs {
		if c.Name == "" {
			return nil, configErr("configs", "configuration with empty name")
		}
		if seen[c.Name] {
			return nil, configErr("configs", "configuration %q declared twice", c.Name)
		}
		seen[c.Name] = true
	}

	var problems []suite.Problem
	var err error
	if opts.SmokeTest {
		if len(opts.TestSuite) == 0 {
			return nil, configErr("test_suite", "smoke test requested but test_suite is empty")
		}
		problems, err = parseProblems(opts.TestSuite)
	} else {
		if opts.Suite == "" {
			return nil, configErr("suite", "must not be empty")
		}
		problems, err = resolver.Resolve(opts.Suite)
	}
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Experiment{
		ID:       uuid.NewString(),
		opts:     opts,
		problems: problems,
		extras:   attr.NewRegistry(),
		logger:   logger,
	}, nil
}

func parseProblems(refs []string) ([]suite.Problem, error) {
	problems := make([]suite.Problem, 0, len(refs))
	for _, ref := range refs {
		p, err := suite.ParseProblem(ref)
		if err != nil {
			return nil, configErr("test_suite", "%v", err)
		}
		problems = append(problems, p)
	}
	return problems, nil
}

// Name returns the experiment's label.
func (e *Experiment) Name() string { return e.opts.Name }

// Problems returns the resolved benchmark problems in suite order.
func (e *Experiment) Problems() []suite.Problem {
	return append([]suite.Problem(nil), e.problems...)
}

// MaxProcesses returns the experiment's concurrency bound.
func (e *Experiment) MaxProcesses() int { return e.opts.MaxProcesses }

// ConfigNames returns the configuration names in declaration order.
func (e *Experiment) ConfigNames() []string {
	names := make([]string, len(e.opts.Configs))
	for i, c := range e.opts.Configs {
		names[i] = c.Name
	}
	return names
}

// AddResource registers a file to ship into the experiment directory.
// Re-adding an existing logical name is an error.
func (e *Experiment) AddResource(name, source, dest string) error {
	for _, r := range e.resources {
		if r.Name == name {
			return configErr("resources", "resource %q added twice", name)
		}
	}
	if dest == "" {
		dest = filepath.Base(source)
	}
	e.resources = append(e.resources, Resource{Name: name, Source: source, Dest: dest})
	return nil
}

// AddCommand appends a post-processing command executed in every run
// directory after the solver. Argv tokens matching a resource's logical
// name are replaced with the staged resource path at execution time.
// Re-adding an existing command name is an error.
func (e *Experiment) AddCommand(name string, argv []string) error {
	for _, c := range e.commands {
		if c.Name == name {
			return configErr("commands", "command %q added twice", name)
		}
	}
	if len(argv) == 0 {
		return configErr("commands", "command %q has empty invocation", name)
	}
	e.commands = append(e.commands, runner.Command{Name: name, Argv: argv})
	return nil
}

// AddAttribute declares an experiment-specific result attribute.
// Duplicate names within the experiment's extra set are an error;
// overriding a default table attribute is allowed and happens at merge
// time in TableAttributes.
func (e *Experiment) AddAttribute(a attr.Attribute) error {
	return e.extras.Add(a)
}

// TableAttributes returns the merged attribute sequence for reports:
// the default set extended with the experiment's declarations.
func (e *Experiment) TableAttributes() []attr.Attribute {
	defaults := e.opts.DefaultAttributes
	if defaults == nil {
		defaults = attr.DefaultTableAttributes()
	}
	return attr.Extend(defaults, e.extras.List())
}

// RunDir returns the run directory for one matrix cell.
func (e *Experiment) RunDir(revision, config string, p suite.Problem) string {
	return filepath.Join(e.opts.BaseDir, "runs", revision, config, p.Domain, p.Name)
}

// ReportPath returns the report file path for the given format.
func (e *Experiment) ReportPath(format string) string {
	if format == "json" {
		return filepath.Join(e.opts.BaseDir, "report.json")
	}
	return filepath.Join(e.opts.BaseDir, "report.txt")
}

// tasks expands revisions x configs x problems into runner tasks, in
// deterministic order (revision outermost, then config, then problem).
func (e *Experiment) tasks() []runner.Task {
	commands := e.resolvedCommands()

	var tasks []runner.Task
	for _, rev := range e.opts.Revisions {
		for _, cfg := range e.opts.Configs {
			for _, p := range e.problems {
				tasks = append(tasks, runner.Task{
					RunID:      uuid.NewString(),
					Revision:   rev,
					Config:     cfg.Name,
					ConfigArgs: cfg.Args,
					Problem:    p,
					Dir:        e.RunDir(rev, cfg.Name, p),
					Commands:   commands,
				})
			}
		}
	}
	return tasks
}

// resolvedCommands substitutes resource logical names in command argv
// with the staged resource paths.
func (e *Experiment) resolvedCommands() []runner.Command {
	staged := make(map[string]string, len(e.resources))
	for _, r := range e.resources {
		staged[r.Name] = e.stagedPath(r)
	}

	commands := make([]runner.Command, len(e.commands))
	for i, c := range e.commands {
		argv := make([]string, len(c.Argv))
		for j, tok := range c.Argv {
			if path, ok := staged[tok]; ok {
				argv[j] = path
			} else {
				argv[j] = tok
			}
		}
		commands[i] = runner.Command{Name: c.Name, Argv: argv}
	}
	return commands
}

func (e *Experiment) stagedPath(r Resource) string {
	return filepath.Join(e.opts.BaseDir, "resources", r.Dest)
}

// stageResources copies every registered resource into the experiment
// directory, preserving the execute bit for parser scripts.
func (e *Experiment) stageResources() error {
	for _, r := range e.resources {
		dest := e.stagedPath(r)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("stage resource %q: %w", r.Name, err)
		}
		if err := copyFile(r.Source, dest); err != nil {
			return fmt.Errorf("stage resource %q: %w", r.Name, err)
		}
	}
	return nil
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
