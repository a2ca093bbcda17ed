package parser

import "regexp"

// DefaultPatterns covers the log lines a planner prints in its search
// and merge-and-shrink output. Experiment-specific values beyond these
// come from custom post-processing commands via properties.json.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Attribute: "plan_cost", Regexp: regexp.MustCompile(`Plan cost: (\d+)`)},
		{Attribute: "plan_length", Regexp: regexp.MustCompile(`Plan length: (\d+) step`)},
		{Attribute: "expansions", Regexp: regexp.MustCompile(`Expanded (\d+) state`)},
		{Attribute: "evaluations", Regexp: regexp.MustCompile(`Evaluated (\d+) state`)},
		{Attribute: "generated", Regexp: regexp.MustCompile(`Generated (\d+) state`)},
		{Attribute: "search_time", Regexp: regexp.MustCompile(`Search time: ([0-9.]+)s`)},
		{Attribute: "total_time", Regexp: regexp.MustCompile(`Total time: ([0-9.]+)s`)},
		{Attribute: "proved_unsolvability", Regexp: regexp.MustCompile(`Completely explored state space -- no solution`)},
		{Attribute: "ms_construction_time", Regexp: regexp.MustCompile(`Merge-and-shrink algorithm runtime: ([0-9.]+)s`)},
		{Attribute: "ms_final_size", Regexp: regexp.MustCompile(`Final transition system size: (\d+)`)},
		{Attribute: "ms_abstraction_constructed", Regexp: regexp.MustCompile(`Final transition system size`)},
	}
}
