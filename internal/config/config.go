// Package config loads process-wide defaults for experiments: run-owner
// contact, concurrency bound and the baseline table attributes. Values
// come from an optional planbench.yaml plus PLANBENCH_* environment
// variables; an explicit Defaults value is then passed into the builder
// rather than read ambiently.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/planbench/planbench/internal/attr"
)

// Defaults holds every process-wide setting an experiment consumes.
type Defaults struct {
	// Contact is the run owner's email, recorded with each experiment.
	Contact string `mapstructure:"contact"`

	// MaxProcesses is the default concurrency bound, used when the
	// experiment definition doesn't set one.
	MaxProcesses int `mapstructure:"max_processes"`

	// SolverTimeoutSecs is the per-run wall-clock limit.
	SolverTimeoutSecs int `mapstructure:"solver_timeout_secs"`

	// TableAttributes names the baseline attributes of every comparison
	// table. Empty means the built-in default set.
	TableAttributes []string `mapstructure:"table_attributes"`
}

// Load reads defaults from the given config file (optional; empty path
// skips file loading) and the PLANBENCH_* environment.
func Load(path string) (Defaults, error) {
	v := viper.New()
	v.SetEnvPrefix("PLANBENCH")
	v.AutomaticEnv()

	v.SetDefault("contact", "")
	v.SetDefault("max_processes", 1)
	v.SetDefault("solver_timeout_secs", 1800)
	v.SetDefault("table_attributes", []string{})

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Defaults{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var d Defaults
	if err := v.Unmarshal(&d); err != nil {
		return Defaults{}, fmt.Errorf("parse config: %w", err)
	}

	if d.MaxProcesses <= 0 {
		return Defaults{}, fmt.Errorf("max_processes must be positive, got %d", d.MaxProcesses)
	}
	if d.SolverTimeoutSecs < 0 {
		return Defaults{}, fmt.Errorf("solver_timeout_secs must not be negative, got %d", d.SolverTimeoutSecs)
	}

	return d, nil
}

// ResolveTableAttributes maps the configured attribute names onto the
// built-in definitions. Unknown names fail: the baseline set can only
// reference derived attributes, experiment-specific ones belong in the
// experiment definition.
func (d Defaults) ResolveTableAttributes() ([]attr.Attribute, error) {
	if len(d.TableAttributes) == 0 {
		return attr.DefaultTableAttributes(), nil
	}

	builtin := make(map[string]attr.Attribute)
	for _, a := range attr.DefaultTableAttributes() {
		builtin[a.Name] = a
	}

	out := make([]attr.Attribute, 0, len(d.TableAttributes))
	for _, name := range d.TableAttributes {
		a, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("unknown baseline attribute %q", name)
		}
		out = append(out, a)
	}
	return out, nil
}
