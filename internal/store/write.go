package store

import (
	"context"
	"fmt"
)

// Experiment is the metadata record for one experiment execution.
type Experiment struct {
	ID      string
	Name    string
	Suite   string
	Contact string
}

// Run is one solver execution: a cell of the revision x configuration x
// problem matrix. Status holds the runner's outcome classification
// ("success", "timeout", "out_of_memory", "crash").
type Run struct {
	ID           string
	ExperimentID string
	Revision     string
	Config       string
	Domain       string
	Problem      string
	Status       string
	WallTime     float64 // seconds
	MemoryKB     int64
}

// WriteExperiment inserts an experiment record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteExperiment(ctx context.Context, exp Experiment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO experiments (id, name, suite, contact)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		exp.ID,
		exp.Name,
		exp.Suite,
		exp.Contact,
	)
	if err != nil {
		return fmt.Errorf("write experiment: %w", err)
	}

	return nil
}

// WriteRun inserts a run record. Duplicate run IDs and duplicate matrix
// cells (same experiment/revision/config/problem) are silently ignored,
// so re-ingesting a run directory is safe.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, experiment_id, revision, config, domain, problem, status, wall_time, memory_kb)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		run.ID,
		run.ExperimentID,
		run.Revision,
		run.Config,
		run.Domain,
		run.Problem,
		run.Status,
		run.WallTime,
		run.MemoryKB,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

// WriteProperties inserts parsed attribute values for one run inside a
// single transaction. Re-parsing overwrites earlier values for the same
// attribute name (last parse wins).
func (s *Store) WriteProperties(ctx context.Context, runID string, props map[string]float64) error {
	if len(props) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write properties: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO properties (run_id, name, value)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("write properties: %w", err)
	}
	defer stmt.Close()

	for name, value := range props {
		if _, err := stmt.ExecContext(ctx, runID, name, value); err != nil {
			return fmt.Errorf("write property %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write properties: %w", err)
	}

	return nil
}
