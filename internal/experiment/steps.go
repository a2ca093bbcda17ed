package experiment

import (
	"context"
	"fmt"
)

// StepState tracks a step through the pipeline's sequential state
// machine. A single cursor advances left to right; the first failure
// leaves all later steps Pending forever.
type StepState string

const (
	StepPending StepState = "pending"
	StepRunning StepState = "running"
	StepDone    StepState = "done"
	StepFailed  StepState = "failed"
)

// Step is a named unit of work in the pipeline.
type Step struct {
	Name  string
	State StepState
	fn    func(ctx context.Context) error
}

// AddStep appends a step to the pipeline. Step names must be unique so
// failures can be attributed unambiguously.
func (e *Experiment) AddStep(name string, fn func(ctx context.Context) error) error {
	if name == "" {
		return configErr("steps", "step with empty name")
	}
	if fn == nil {
		return configErr("steps", "step %q has no action", name)
	}
	for _, s := range e.steps {
		if s.Name == name {
			return configErr("steps", "step %q added twice", name)
		}
	}
	e.steps = append(e.steps, &Step{Name: name, State: StepPending, fn: fn})
	return nil
}

// Steps returns the pipeline's steps with their current states.
func (e *Experiment) Steps() []Step {
	out := make([]Step, len(e.steps))
	for i, s := range e.steps {
		out[i] = Step{Name: s.Name, State: s.State}
	}
	return out
}

// RunSteps executes the pipeline strictly in declaration order. The
// first failing step aborts everything after it and surfaces as a
// StepFailure naming the step. An experiment executes exactly once;
// rerunning requires rebuilding it.
func (e *Experiment) RunSteps(ctx context.Context) error {
	if e.executed {
		return fmt.Errorf("experiment %q already executed", e.opts.Name)
	}
	e.executed = true

	if len(e.steps) == 0 {
		return configErr("steps", "pipeline is empty")
	}

	for _, step := range e.steps {
		if err := ctx.Err(); err != nil {
			step.State = StepFailed
			return &StepFailure{Step: step.Name, Err: err}
		}

		e.logger.Info("step starting", "step", step.Name)
		step.State = StepRunning

		if err := step.fn(ctx); err != nil {
			step.State = StepFailed
			e.logger.Error("step failed", "step", step.Name, "error", err)
			return &StepFailure{Step: step.Name, Err: err}
		}

		step.State = StepDone
		e.logger.Info("step done", "step", step.Name)
	}
	return nil
}
