// Package runner executes the solver over the run matrix with bounded
// parallelism. The Runner interface is the seam between the experiment
// pipeline and the execution environment; Local runs solver processes
// on this machine, alternate schedulers can implement the same contract.
package runner

import (
	"context"

	"github.com/planbench/planbench/internal/suite"
)

// Status classifies the outcome of one solver run. Per-run failures are
// data points, not errors: they feed attributes like out_of_memory
// instead of aborting the experiment.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusTimeout     Status = "timeout"
	StatusOutOfMemory Status = "out_of_memory"
	StatusCrash       Status = "crash"
)

// Command is a post-processing step executed inside the run directory
// after the solver finishes (e.g. a custom log parser).
type Command struct {
	Name string
	Argv []string
}

// Task is one cell of the revision x configuration x problem matrix.
type Task struct {
	RunID      string
	Revision   string
	Config     string
	ConfigArgs []string
	Problem    suite.Problem

	// Dir is the run directory. The runner creates it and writes the
	// solver log there; later steps read from it.
	Dir string

	// Commands run sequentially in Dir after the solver exits.
	Commands []Command
}

// Result records the outcome of one task.
type Result struct {
	Task     Task
	Status   Status
	WallTime float64 // seconds
	MemoryKB int64   // peak resident set, 0 if unavailable
	LogPath  string  // solver log within Task.Dir
}

// Runner executes a batch of tasks and returns one result per task, in
// task order. A non-nil error means the batch could not be executed at
// all (infrastructure failure); individual solver failures are reported
// through Result.Status.
type Runner interface {
	Run(ctx context.Context, tasks []Task) ([]Result, error)
}
