package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/planbench/planbench/internal/attr"
	"github.com/planbench/planbench/internal/parser"
	"github.com/planbench/planbench/internal/report"
	"github.com/planbench/planbench/internal/runner"
	"github.com/planbench/planbench/internal/store"
)

// Standard pipeline step names.
const (
	StepNameBuild  = "build"
	StepNameRun    = "run"
	StepNameParse  = "parse"
	StepNameReport = "report-compare"
)

// AddBuildStep adds the setup step: create the experiment directory,
// verify and stage resources, record the experiment in the store.
// A missing resource file is an unrecoverable pipeline failure, caught
// here before any solver starts.
func (e *Experiment) AddBuildStep(st *store.Store) error {
	return e.AddStep(StepNameBuild, func(ctx context.Context) error {
		if err := os.MkdirAll(e.opts.BaseDir, 0o755); err != nil {
			return fmt.Errorf("create experiment directory: %w", err)
		}

		for _, r := range e.resources {
			if _, err := os.Stat(r.Source); err != nil {
				return fmt.Errorf("resource %q: %w", r.Name, err)
			}
		}
		if err := e.stageResources(); err != nil {
			return err
		}

		return st.WriteExperiment(ctx, store.Experiment{
			ID:      e.ID,
			Name:    e.opts.Name,
			Suite:   e.opts.Suite,
			Contact: e.opts.Contact,
		})
	})
}

// AddRunStep adds the run step: fan the matrix out to the runner, then
// materialize every run record to the store before the step completes.
// Later steps may rely on all results being durable.
func (e *Experiment) AddRunStep(r runner.Runner) error {
	return e.AddStep(StepNameRun, func(ctx context.Context) error {
		tasks := e.tasks()
		e.logger.Info("running matrix",
			"revisions", len(e.opts.Revisions),
			"configs", len(e.opts.Configs),
			"problems", len(e.problems),
			"runs", len(tasks),
		)

		results, err := r.Run(ctx, tasks)
		if err != nil {
			return fmt.Errorf("runner: %w", err)
		}
		e.results = results
		return nil
	})
}

// AddParseStep adds the parse step: extract attribute values from every
// run's artifacts and write run records plus properties to the store.
func (e *Experiment) AddParseStep(p *parser.Parser, st *store.Store) error {
	return e.AddStep(StepNameParse, func(ctx context.Context) error {
		if e.results == nil {
			return fmt.Errorf("no run results to parse (run step missing?)")
		}

		for _, res := range e.results {
			run := store.Run{
				ID:           res.Task.RunID,
				ExperimentID: e.ID,
				Revision:     res.Task.Revision,
				Config:       res.Task.Config,
				Domain:       res.Task.Problem.Domain,
				Problem:      res.Task.Problem.Name,
				Status:       string(res.Status),
				WallTime:     res.WallTime,
				MemoryKB:     res.MemoryKB,
			}
			if err := st.WriteRun(ctx, run); err != nil {
				return err
			}
			if err := st.WriteProperties(ctx, run.ID, p.Extract(res)); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddComparisonTableStep adds the report step: aggregate the collected
// attribute values and render the comparison table. Nil attrs means the
// experiment's merged table attributes.
func (e *Experiment) AddComparisonTableStep(st *store.Store, attrs []attr.Attribute) error {
	return e.AddStep(StepNameReport, func(ctx context.Context) error {
		tableAttrs := attrs
		if tableAttrs == nil {
			tableAttrs = e.TableAttributes()
		}

		matrix, err := st.PropertyMatrix(ctx, e.ID)
		if err != nil {
			return err
		}

		tables, err := report.ComparisonTables(matrix, tableAttrs, e.opts.Revisions, e.ConfigNames())
		if err != nil {
			return err
		}

		meta := report.Meta{
			Experiment: e.opts.Name,
			Suite:      e.opts.Suite,
			Contact:    e.opts.Contact,
		}

		if err := writeReport(e.ReportPath("text"), func(f *os.File) error {
			return report.WriteText(f, meta, tables)
		}); err != nil {
			return err
		}
		if err := writeReport(e.ReportPath("json"), func(f *os.File) error {
			return report.WriteJSON(f, meta, tables)
		}); err != nil {
			return err
		}

		e.logger.Info("report written", "path", e.ReportPath("text"))
		return nil
	})
}

func writeReport(path string, render func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer f.Close()

	if err := render(f); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
