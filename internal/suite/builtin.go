package suite

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed suites.yaml
var builtinYAML []byte

// suiteFile is the on-disk shape of a suite collection, shared by the
// embedded builtin file and user-provided suite files.
type suiteFile struct {
	Suites []suiteDef `yaml:"suites"`
}

type suiteDef struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Includes    []string `yaml:"includes,omitempty"`
	Problems    []string `yaml:"problems"`
}

// Builtin resolves the suite names shipped with the tool.
type Builtin struct {
	order []string
	defs  map[string]suiteDef
}

// NewBuiltin parses the embedded suite collection.
// The embedded file is part of the binary, so a parse failure is a
// programming error and surfaces as a plain error at startup.
func NewBuiltin() (*Builtin, error) {
	return parseSuites(builtinYAML)
}

func parseSuites(data []byte) (*Builtin, error) {
	var file suiteFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields (catches typos)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse suite file: %w", err)
	}

	b := &Builtin{defs: make(map[string]suiteDef, len(file.Suites))}
	for _, def := range file.Suites {
		if def.Name == "" {
			return nil, fmt.Errorf("suite with empty name")
		}
		if _, ok := b.defs[def.Name]; ok {
			return nil, fmt.Errorf("suite %q defined twice", def.Name)
		}
		if len(def.Problems) == 0 && len(def.Includes) == 0 {
			return nil, fmt.Errorf("suite %q has no problems", def.Name)
		}
		b.defs[def.Name] = def
		b.order = append(b.order, def.Name)
	}
	return b, nil
}

// Names returns all known suite names in file order.
func (b *Builtin) Names() []string {
	return append([]string(nil), b.order...)
}

// Resolve returns the ordered problems of the named suite. Included
// suites expand first, in declaration order, followed by the suite's own
// problems. Fails with UnknownSuiteError for unrecognized names.
func (b *Builtin) Resolve(name string) ([]Problem, error) {
	return b.resolve(name, map[string]bool{})
}

func (b *Builtin) resolve(name string, visiting map[string]bool) ([]Problem, error) {
	def, ok := b.defs[name]
	if !ok {
		return nil, &UnknownSuiteError{Name: name, Known: b.Names()}
	}
	if visiting[name] {
		return nil, fmt.Errorf("suite %q includes itself (directly or indirectly)", name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	var problems []Problem
	for _, inc := range def.Includes {
		expanded, err := b.resolve(inc, visiting)
		if err != nil {
			return nil, fmt.Errorf("suite %q: %w", name, err)
		}
		problems = append(problems, expanded...)
	}
	for _, ref := range def.Problems {
		p, err := ParseProblem(ref)
		if err != nil {
			return nil, fmt.Errorf("suite %q: %w", name, err)
		}
		problems = append(problems, p)
	}
	return problems, nil
}
