package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// Solver exit codes with a defined meaning. Anything else non-zero is a
// crash. These follow the planner driver convention: the solver signals
// resource exhaustion through dedicated codes so the harness can record
// it as data instead of a failure.
const (
	ExitOutOfMemory = 6
	ExitOutOfTime   = 7
)

// LogName is the solver log file written into each run directory.
const LogName = "run.log"

// Local executes tasks as child processes on this machine, at most
// MaxProcs at a time.
type Local struct {
	// MaxProcs bounds concurrent solver processes. Must be positive.
	MaxProcs int

	// Timeout is the per-task wall-clock limit. Zero means no limit.
	Timeout time.Duration

	// SolverPath maps a revision identifier to the solver binary to run.
	SolverPath func(revision string) string

	// Logger receives per-run progress. Nil disables logging.
	Logger *slog.Logger
}

// Run executes all tasks and returns results in task order.
//
// Fan-out is bounded by MaxProcs via a semaphore channel. Run directories
// are created up front: a directory that cannot be created is an
// infrastructure failure and aborts the whole batch before any solver
// starts. Context cancellation stops pending tasks; already-running
// solvers are killed through their per-task context.
func (l *Local) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	if l.MaxProcs <= 0 {
		return nil, fmt.Errorf("local runner: MaxProcs must be positive, got %d", l.MaxProcs)
	}
	if l.SolverPath == nil {
		return nil, fmt.Errorf("local runner: SolverPath is required")
	}

	for _, task := range tasks {
		if err := os.MkdirAll(task.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	results := make([]Result, len(tasks))
	sem := make(chan struct{}, l.MaxProcs)
	var wg sync.WaitGroup

	for i, task := range tasks {
		select {
		case <-ctx.Done():
			// Mark everything not yet started as crashed by cancellation.
			for j := i; j < len(tasks); j++ {
				results[j] = Result{Task: tasks[j], Status: StatusCrash}
			}
			wg.Wait()
			return results, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = l.runOne(ctx, task)
			logger.Info("run finished",
				"revision", task.Revision,
				"config", task.Config,
				"problem", task.Problem.String(),
				"status", string(results[i].Status),
			)
		}(i, task)
	}

	wg.Wait()
	return results, nil
}

// runOne executes a single solver process plus its post-processing
// commands and classifies the outcome.
func (l *Local) runOne(ctx context.Context, task Task) Result {
	result := Result{
		Task:    task,
		LogPath: filepath.Join(task.Dir, LogName),
	}

	logFile, err := os.Create(result.LogPath)
	if err != nil {
		result.Status = StatusCrash
		return result
	}
	defer logFile.Close()

	runCtx := ctx
	var cancel context.CancelFunc
	if l.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	argv := append([]string{task.Problem.String()}, task.ConfigArgs...)
	cmd := exec.CommandContext(runCtx, l.SolverPath(task.Revision), argv...)
	cmd.Dir = task.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	start := time.Now()
	err = cmd.Run()
	result.WallTime = time.Since(start).Seconds()
	result.MemoryKB = peakMemoryKB(cmd)
	result.Status = classify(runCtx, err)

	// Post-processing commands run regardless of solver status: parsers
	// often extract partial attributes from failed runs too. A failing
	// command is logged and skipped, never fatal.
	for _, c := range task.Commands {
		if err := l.runCommand(ctx, task, c); err != nil {
			if l.Logger != nil {
				l.Logger.Warn("post-processing command failed",
					"command", c.Name,
					"run", task.RunID,
					"error", err,
				)
			}
		}
	}

	return result
}

// runCommand executes one post-processing command in the run directory,
// capturing its output in command-<name>.log.
func (l *Local) runCommand(ctx context.Context, task Task, c Command) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("command %q has empty argv", c.Name)
	}

	out, err := os.Create(filepath.Join(task.Dir, "command-"+c.Name+".log"))
	if err != nil {
		return err
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = task.Dir
	cmd.Stdout = out
	cmd.Stderr = out
	return cmd.Run()
}

// classify maps process termination to a run status.
func classify(ctx context.Context, err error) Status {
	if err == nil {
		return StatusSuccess
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return StatusTimeout
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case ExitOutOfMemory:
			return StatusOutOfMemory
		case ExitOutOfTime:
			return StatusTimeout
		}
	}
	return StatusCrash
}

// peakMemoryKB extracts the child's peak resident set size from rusage.
// Returns 0 when the platform doesn't expose it.
func peakMemoryKB(cmd *exec.Cmd) int64 {
	if cmd.ProcessState == nil {
		return 0
	}
	rusage, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage)
	if !ok || rusage == nil {
		return 0
	}
	// Maxrss is KB on Linux.
	return int64(rusage.Maxrss)
}
