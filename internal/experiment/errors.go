package experiment

import (
	"errors"
	"fmt"
)

// ConfigurationError marks an invalid experiment definition: duplicate
// names, empty required collections, non-positive limits. It is always
// raised at build time, before any run starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid experiment: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid experiment: %s", e.Message)
}

// IsConfigurationError reports whether err is a ConfigurationError.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func configErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StepFailure aborts the pipeline: the named step failed and no later
// step runs. There is no rollback and no resume; recovering means
// rebuilding the experiment and starting over.
type StepFailure struct {
	Step string
	Err  error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepFailure) Unwrap() error {
	return e.Err
}

// IsStepFailure reports whether err is a StepFailure.
// Uses errors.As to handle wrapped errors.
func IsStepFailure(err error) bool {
	var sf *StepFailure
	return errors.As(err, &sf)
}
