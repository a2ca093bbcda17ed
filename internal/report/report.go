// Package report aggregates collected attribute values and renders
// comparison tables across solver configurations.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/planbench/planbench/internal/attr"
	"github.com/planbench/planbench/internal/store"
)

// UnknownAttributeError is returned when a declared attribute matches no
// collected data and is not one of the derived baseline attributes.
// It usually means a parser pattern or custom command is missing.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("attribute %q not found in collected data", e.Name)
}

// IsUnknownAttributeError reports whether err is an UnknownAttributeError.
// Uses errors.As to handle wrapped errors.
func IsUnknownAttributeError(err error) bool {
	var ue *UnknownAttributeError
	return errors.As(err, &ue)
}

// Table is one comparison table: one revision, one column per
// configuration, one row per attribute/function pair.
type Table struct {
	Revision string
	Columns  []string
	Rows     []Row
}

// Row holds the aggregated values of one attribute across columns.
// Values align with Table.Columns; NaN marks a cell that could not be
// computed (no data).
type Row struct {
	Attribute string
	Function  string
	MinWins   bool
	Values    []float64

	// Common is the size of the common-solved subset the relative
	// aggregate was computed over. Zero for absolute attributes.
	Common int
}

// ComparisonTables builds one table per revision.
//
// Absolute attributes aggregate over every problem with a value for the
// given configuration; a problem without a value contributes nothing
// (equivalently zero, for the default Sum).
//
// Relative attributes aggregate only over the common-solved subset: the
// problems for which every compared configuration produced a value.
// This avoids survivor bias when configurations solve different sets.
func ComparisonTables(matrix store.Matrix, attrs []attr.Attribute, revisions, configs []string) ([]Table, error) {
	if err := checkAttributes(matrix, attrs); err != nil {
		return nil, err
	}

	problems := problemsOf(matrix)

	tables := make([]Table, 0, len(revisions))
	for _, rev := range revisions {
		table := Table{Revision: rev, Columns: append([]string(nil), configs...)}

		for _, a := range attrs {
			common := 0
			var byConfig [][]float64

			if a.Absolute {
				byConfig = absoluteValues(matrix, rev, a.Name, configs, problems)
			} else {
				commonProblems := commonSolved(matrix, rev, a.Name, configs, problems)
				common = len(commonProblems)
				byConfig = relativeValues(matrix, rev, a.Name, configs, commonProblems)
			}

			for _, fn := range a.EffectiveFunctions() {
				row := Row{
					Attribute: a.Name,
					Function:  fn.Name,
					MinWins:   a.MinWins,
					Common:    common,
					Values:    make([]float64, len(configs)),
				}
				for i, values := range byConfig {
					if len(values) == 0 && !a.Absolute {
						row.Values[i] = math.NaN()
						continue
					}
					row.Values[i] = fn.Eval(values)
				}
				table.Rows = append(table.Rows, row)
			}
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// checkAttributes verifies that every declared attribute is resolvable:
// either derived from run records or present somewhere in the data.
func checkAttributes(matrix store.Matrix, attrs []attr.Attribute) error {
	for _, a := range attrs {
		if attr.IsDerived(a.Name) {
			continue
		}
		found := false
		for _, props := range matrix {
			if _, ok := props[a.Name]; ok {
				found = true
				break
			}
		}
		if !found {
			return &UnknownAttributeError{Name: a.Name}
		}
	}
	return nil
}

// problemsOf returns the sorted set of problems appearing in the matrix.
func problemsOf(matrix store.Matrix) []string {
	seen := make(map[string]bool)
	for cell := range matrix {
		seen[cell.Problem] = true
	}
	problems := make([]string, 0, len(seen))
	for p := range seen {
		problems = append(problems, p)
	}
	sort.Strings(problems)
	return problems
}

// commonSolved returns the problems for which every configuration has a
// value for the attribute, in sorted problem order.
func commonSolved(matrix store.Matrix, revision, attribute string, configs, problems []string) []string {
	var common []string
	for _, p := range problems {
		all := true
		for _, c := range configs {
			if _, ok := matrix.Get(revision, c, p, attribute); !ok {
				all = false
				break
			}
		}
		if all {
			common = append(common, p)
		}
	}
	return common
}

// absoluteValues gathers, per configuration, every present value of the
// attribute across all problems.
func absoluteValues(matrix store.Matrix, revision, attribute string, configs, problems []string) [][]float64 {
	byConfig := make([][]float64, len(configs))
	for i, c := range configs {
		for _, p := range problems {
			if v, ok := matrix.Get(revision, c, p, attribute); ok {
				byConfig[i] = append(byConfig[i], v)
			}
		}
	}
	return byConfig
}

// relativeValues gathers, per configuration, the attribute values over
// the common-solved subset only.
func relativeValues(matrix store.Matrix, revision, attribute string, configs, common []string) [][]float64 {
	byConfig := make([][]float64, len(configs))
	for i, c := range configs {
		for _, p := range common {
			if v, ok := matrix.Get(revision, c, p, attribute); ok {
				byConfig[i] = append(byConfig[i], v)
			}
		}
	}
	return byConfig
}
