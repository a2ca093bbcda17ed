package suite

import (
	"errors"
	"fmt"
	"os"
)

// FromFile parses a user-provided suite file and returns a resolver for
// the suites it defines. The file format matches the built-in suites.yaml:
//
//	suites:
//	  - name: mysuite
//	    problems: [depot:pfile1, gripper:prob01]
//
// Unknown YAML fields are rejected to catch typos early.
func FromFile(path string) (Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	b, err := parseSuites(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Chain tries each resolver in order, returning the first successful
// resolution. Only if every resolver reports UnknownSuiteError does the
// chain report one, merged over all known names. Any other error aborts
// immediately.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(name string) ([]Problem, error) {
	var known []string
	for _, r := range c {
		problems, err := r.Resolve(name)
		if err == nil {
			return problems, nil
		}
		if !IsUnknownSuiteError(err) {
			return nil, err
		}
		var ue *UnknownSuiteError
		if errors.As(err, &ue) {
			known = append(known, ue.Known...)
		}
	}
	return nil, &UnknownSuiteError{Name: name, Known: known}
}
