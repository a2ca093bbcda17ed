// Package attr declares result attributes: named metrics extracted from
// solver runs, with the metadata reports need to aggregate and rank them.
package attr

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Func is a named aggregation function applied to the per-problem values
// of one attribute for one configuration.
type Func struct {
	Name string
	Eval func(values []float64) float64
}

// Aggregation functions available to attribute declarations.
//
// GM shifts all values by +1 before taking the geometric mean and shifts
// the result back, so zero values (instant solves) don't collapse the
// mean to zero.
var (
	Sum = Func{Name: "sum", Eval: func(v []float64) float64 {
		return floats.Sum(v)
	}}

	Mean = Func{Name: "mean", Eval: func(v []float64) float64 {
		if len(v) == 0 {
			return math.NaN()
		}
		return stat.Mean(v, nil)
	}}

	GM = Func{Name: "gm", Eval: func(v []float64) float64 {
		if len(v) == 0 {
			return math.NaN()
		}
		shifted := make([]float64, len(v))
		for i, x := range v {
			shifted[i] = x + 1
		}
		return stat.GeometricMean(shifted, nil) - 1
	}}

	Min = Func{Name: "min", Eval: func(v []float64) float64 {
		if len(v) == 0 {
			return math.NaN()
		}
		return floats.Min(v)
	}}

	Max = Func{Name: "max", Eval: func(v []float64) float64 {
		if len(v) == 0 {
			return math.NaN()
		}
		return floats.Max(v)
	}}
)

// FuncByName resolves an aggregation function referenced by name in an
// experiment definition file.
func FuncByName(name string) (Func, error) {
	switch name {
	case "sum":
		return Sum, nil
	case "mean":
		return Mean, nil
	case "gm":
		return GM, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	default:
		return Func{}, fmt.Errorf("unknown aggregation function %q", name)
	}
}

// Attribute is a declared result metric. Immutable once declared.
//
// Absolute attributes (counts such as coverage) are summed over every
// problem attempted. Relative attributes (timings, sizes) are aggregated
// only over the subset of problems solved by all compared configurations,
// to avoid survivor bias.
type Attribute struct {
	// Name uniquely identifies the attribute within an experiment.
	Name string

	// Absolute marks count-like attributes that may be aggregated over
	// all problems rather than the common-solved subset.
	Absolute bool

	// MinWins indicates whether smaller values are better (timings)
	// or larger values are better (coverage).
	MinWins bool

	// Functions are applied in order when aggregating. Empty means
	// Sum for absolute attributes and Mean for relative ones.
	Functions []Func
}

// EffectiveFunctions returns the declared functions, or the default for
// the attribute's kind when none were declared.
func (a Attribute) EffectiveFunctions() []Func {
	if len(a.Functions) > 0 {
		return a.Functions
	}
	if a.Absolute {
		return []Func{Sum}
	}
	return []Func{Mean}
}

// DuplicateAttributeError is returned when an attribute name is declared
// twice in the same registry.
type DuplicateAttributeError struct {
	Name string
}

func (e *DuplicateAttributeError) Error() string {
	return fmt.Sprintf("attribute %q already declared", e.Name)
}

// IsDuplicateAttributeError reports whether err is a DuplicateAttributeError.
// Uses errors.As to handle wrapped errors.
func IsDuplicateAttributeError(err error) bool {
	var de *DuplicateAttributeError
	return errors.As(err, &de)
}

// Registry is an insertion-ordered set of attributes keyed by name.
// The zero value is not usable; call NewRegistry.
type Registry struct {
	order []string
	byName map[string]Attribute
}

// NewRegistry creates an empty attribute registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Attribute)}
}

// Declare registers a new attribute. Fails with DuplicateAttributeError
// if the name is already taken.
func (r *Registry) Declare(name string, absolute, minWins bool, functions ...Func) (Attribute, error) {
	if _, ok := r.byName[name]; ok {
		return Attribute{}, &DuplicateAttributeError{Name: name}
	}
	a := Attribute{Name: name, Absolute: absolute, MinWins: minWins, Functions: functions}
	r.byName[name] = a
	r.order = append(r.order, name)
	return a, nil
}

// Add registers an already-constructed attribute.
func (r *Registry) Add(a Attribute) error {
	if _, ok := r.byName[a.Name]; ok {
		return &DuplicateAttributeError{Name: a.Name}
	}
	r.byName[a.Name] = a
	r.order = append(r.order, a.Name)
	return nil
}

// Get returns the attribute with the given name.
func (r *Registry) Get(name string) (Attribute, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// List returns all attributes in declaration order.
func (r *Registry) List() []Attribute {
	out := make([]Attribute, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of declared attributes.
func (r *Registry) Len() int {
	return len(r.order)
}

// Extend merges extra attributes into a base sequence, deduplicating by
// name. A later declaration overrides an earlier one of the same name;
// the override is logged as a warning but is not an error. Order follows
// first appearance of each name.
func Extend(base, extra []Attribute) []Attribute {
	merged := make([]Attribute, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))

	for _, a := range append(append([]Attribute{}, base...), extra...) {
		if i, ok := index[a.Name]; ok {
			slog.Warn("attribute redeclared, later declaration wins",
				"attribute", a.Name,
				"min_wins", a.MinWins,
				"absolute", a.Absolute,
			)
			merged[i] = a
			continue
		}
		index[a.Name] = len(merged)
		merged = append(merged, a)
	}
	return merged
}
