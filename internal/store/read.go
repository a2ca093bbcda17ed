package store

import (
	"context"
	"fmt"
)

// Cell addresses one run within an experiment's matrix.
type Cell struct {
	Revision string
	Config   string
	Problem  string // "domain:name" form
}

// Matrix holds every parsed attribute value of an experiment, keyed by
// matrix cell and attribute name. A missing entry means the run did not
// produce a value for that attribute (e.g. unsolved problem).
type Matrix map[Cell]map[string]float64

// Get returns the value of one attribute in one cell.
func (m Matrix) Get(revision, config, problem, attribute string) (float64, bool) {
	props, ok := m[Cell{Revision: revision, Config: config, Problem: problem}]
	if !ok {
		return 0, false
	}
	v, ok := props[attribute]
	return v, ok
}

// Experiments returns all experiment records, newest first.
func (s *Store) Experiments(ctx context.Context) ([]Experiment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, suite, contact
		FROM experiments
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("read experiments: %w", err)
	}
	defer rows.Close()

	var exps []Experiment
	for rows.Next() {
		var e Experiment
		if err := rows.Scan(&e.ID, &e.Name, &e.Suite, &e.Contact); err != nil {
			return nil, fmt.Errorf("read experiments: %w", err)
		}
		exps = append(exps, e)
	}
	return exps, rows.Err()
}

// Experiment returns a single experiment record by ID.
func (s *Store) Experiment(ctx context.Context, id string) (Experiment, error) {
	var e Experiment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, suite, contact FROM experiments WHERE id = ?
	`, id).Scan(&e.ID, &e.Name, &e.Suite, &e.Contact)
	if err != nil {
		return Experiment{}, fmt.Errorf("read experiment %s: %w", id, err)
	}
	return e, nil
}

// Runs returns all runs of an experiment in deterministic order
// (revision, config, domain, problem).
func (s *Store) Runs(ctx context.Context, experimentID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, experiment_id, revision, config, domain, problem, status, wall_time, memory_kb
		FROM runs
		WHERE experiment_id = ?
		ORDER BY revision, config, domain, problem
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ExperimentID, &r.Revision, &r.Config,
			&r.Domain, &r.Problem, &r.Status, &r.WallTime, &r.MemoryKB); err != nil {
			return nil, fmt.Errorf("read runs: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PropertyMatrix loads every attribute value of an experiment into an
// in-memory matrix for report aggregation. Reports run after the run and
// parse steps complete, so a single bulk read is sufficient.
func (s *Store) PropertyMatrix(ctx context.Context, experimentID string) (Matrix, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.revision, r.config, r.domain, r.problem, p.name, p.value
		FROM properties p
		JOIN runs r ON r.id = p.run_id
		WHERE r.experiment_id = ?
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("read property matrix: %w", err)
	}
	defer rows.Close()

	matrix := make(Matrix)
	for rows.Next() {
		var revision, config, domain, problem, name string
		var value float64
		if err := rows.Scan(&revision, &config, &domain, &problem, &name, &value); err != nil {
			return nil, fmt.Errorf("read property matrix: %w", err)
		}
		cell := Cell{Revision: revision, Config: config, Problem: domain + ":" + problem}
		if matrix[cell] == nil {
			matrix[cell] = make(map[string]float64)
		}
		matrix[cell][name] = value
	}
	return matrix, rows.Err()
}
