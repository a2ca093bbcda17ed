// Package testutil provides deterministic test doubles for the
// experiment pipeline.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/planbench/planbench/internal/runner"
)

// Outcome is the canned result the FakeRunner produces for one matrix
// cell, keyed by "config/domain:problem".
type Outcome struct {
	Status   runner.Status
	WallTime float64
	MemoryKB int64

	// Log, if non-empty, is written to run.log so parse steps have
	// something to scan.
	Log string

	// Properties, if non-empty, is written verbatim to properties.json
	// to simulate a custom parser command.
	Properties string
}

// FakeRunner implements runner.Runner with deterministic, in-process
// results. Cells without a configured outcome succeed with zero cost.
type FakeRunner struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	calls    int
}

// NewFakeRunner creates an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{outcomes: make(map[string]Outcome)}
}

// Key builds the outcome key for a config and problem reference.
func Key(config, problem string) string {
	return config + "/" + problem
}

// Set configures the outcome for one cell.
func (f *FakeRunner) Set(config, problem string, o Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[Key(config, problem)] = o
}

// Calls returns how many times Run was invoked.
func (f *FakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Run implements runner.Runner. Run directories are created and log /
// properties files written, so the real parser can process the output.
func (f *FakeRunner) Run(ctx context.Context, tasks []runner.Task) ([]runner.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	results := make([]runner.Result, len(tasks))
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(task.Dir, 0o755); err != nil {
			return nil, err
		}

		f.mu.Lock()
		outcome, ok := f.outcomes[Key(task.Config, task.Problem.String())]
		f.mu.Unlock()
		if !ok {
			outcome = Outcome{Status: runner.StatusSuccess}
		}

		logPath := filepath.Join(task.Dir, runner.LogName)
		if err := os.WriteFile(logPath, []byte(outcome.Log), 0o644); err != nil {
			return nil, err
		}
		if outcome.Properties != "" {
			propsPath := filepath.Join(task.Dir, "properties.json")
			if err := os.WriteFile(propsPath, []byte(outcome.Properties), 0o644); err != nil {
				return nil, err
			}
		}

		results[i] = runner.Result{
			Task:     task,
			Status:   outcome.Status,
			WallTime: outcome.WallTime,
			MemoryKB: outcome.MemoryKB,
			LogPath:  logPath,
		}
	}
	return results, nil
}
