package attr

// Baseline attribute names derived from run records rather than parsed
// from solver logs. The parse step materializes these for every run.
const (
	Coverage    = "coverage"
	Error       = "error"
	RunTime     = "run_time"
	Memory      = "memory_kb"
	OutOfMemory = "out_of_memory"
	OutOfTime   = "out_of_time"
)

// DefaultTableAttributes is the baseline attribute set every comparison
// table starts from. Experiments extend it with their own declarations
// via Extend; an experiment-level redeclaration overrides the default.
func DefaultTableAttributes() []Attribute {
	return []Attribute{
		{Name: Coverage, Absolute: true, MinWins: false},
		{Name: Error, Absolute: true, MinWins: true},
		{Name: OutOfMemory, Absolute: true, MinWins: true},
		{Name: OutOfTime, Absolute: true, MinWins: true},
		{Name: RunTime, Absolute: false, MinWins: true, Functions: []Func{GM}},
		{Name: Memory, Absolute: false, MinWins: true},
	}
}

// IsDerived reports whether the attribute is materialized from run
// records by the parse step (as opposed to extracted from logs).
func IsDerived(name string) bool {
	switch name {
	case Coverage, Error, RunTime, Memory, OutOfMemory, OutOfTime:
		return true
	}
	return false
}
