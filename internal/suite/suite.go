// Package suite resolves symbolic benchmark-suite names into ordered
// lists of planning problems.
package suite

import (
	"errors"
	"fmt"
	"strings"
)

// Problem identifies one benchmark instance within a domain,
// e.g. "depot:pfile1".
type Problem struct {
	Domain string `yaml:"domain"`
	Name   string `yaml:"name"`
}

// String returns the canonical "domain:name" form.
func (p Problem) String() string {
	return p.Domain + ":" + p.Name
}

// ParseProblem parses the "domain:name" form.
func ParseProblem(s string) (Problem, error) {
	domain, name, ok := strings.Cut(s, ":")
	if !ok || domain == "" || name == "" {
		return Problem{}, fmt.Errorf("invalid problem reference %q: want domain:name", s)
	}
	return Problem{Domain: domain, Name: name}, nil
}

// Resolver resolves a suite name into its ordered problem list.
//
// Implementations must be deterministic: resolving the same name twice
// returns the same problems in the same order.
type Resolver interface {
	Resolve(name string) ([]Problem, error)
}

// UnknownSuiteError is returned when a suite name cannot be resolved.
type UnknownSuiteError struct {
	Name  string
	Known []string // known suite names, for the error message
}

func (e *UnknownSuiteError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown suite %q", e.Name)
	}
	return fmt.Sprintf("unknown suite %q (known suites: %s)", e.Name, strings.Join(e.Known, ", "))
}

// IsUnknownSuiteError reports whether err is an UnknownSuiteError.
// Uses errors.As to handle wrapped errors.
func IsUnknownSuiteError(err error) bool {
	var ue *UnknownSuiteError
	return errors.As(err, &ue)
}
