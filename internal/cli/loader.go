package cli

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/planbench/planbench/internal/experiment"
)

//go:embed schema.cue
var definitionSchema string

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found or unreadable
	ErrCodeBadCUE      = "E003" // Definition file failed CUE evaluation
	ErrCodeSchema      = "E004" // Definition violates the schema
	ErrCodeBuildFailed = "E005" // Experiment could not be built from the definition
	ErrCodeStore       = "E006" // Database error
)

// LoadError is a definition-loading failure with a stable error code.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ResourceDef mirrors one resource entry of the definition file.
type ResourceDef struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// CommandDef mirrors one post-processing command entry.
type CommandDef struct {
	Name string   `json:"name"`
	Argv []string `json:"argv"`
}

// AttributeDef mirrors one attribute declaration. Functions holds
// aggregation function names ("sum", "mean", "gm", "min", "max").
type AttributeDef struct {
	Name      string   `json:"name"`
	Absolute  bool     `json:"absolute"`
	MinWins   bool     `json:"min_wins"`
	Functions []string `json:"functions"`
}

// PatternDef mirrors one custom log-parsing pattern.
type PatternDef struct {
	Attribute string `json:"attribute"`
	Regex     string `json:"regex"`
}

// Definition is a decoded experiment definition file.
type Definition struct {
	Name         string              `json:"name"`
	Revisions    []string            `json:"revisions"`
	Configs      map[string][]string `json:"configs"`
	Suite        string              `json:"suite"`
	TestSuite    []string            `json:"test_suite"`
	MaxProcesses int                 `json:"max_processes"`
	Contact      string              `json:"contact"`
	Resources    []ResourceDef       `json:"resources"`
	Commands     []CommandDef        `json:"commands"`
	Attributes   []AttributeDef      `json:"attributes"`
	Patterns     []PatternDef        `json:"patterns"`
}

// ConfigList returns the configurations in sorted name order. Definition
// files declare configs as a CUE struct, which has no declaration order,
// so sorting keeps report columns deterministic.
func (d *Definition) ConfigList() []experiment.Config {
	names := make([]string, 0, len(d.Configs))
	for name := range d.Configs {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]experiment.Config, len(names))
	for i, name := range names {
		configs[i] = experiment.Config{Name: name, Args: d.Configs[name]}
	}
	return configs
}

// LoadDefinition reads, validates and decodes one experiment definition
// file. The embedded schema is unified with the file's value, so schema
// violations surface with CUE's field-level error messages.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("read definition: %v", err)}
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(definitionSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("internal schema error: %v", err)}
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBadCUE, Message: fmt.Sprintf("evaluate %s: %v", path, err)}
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("invalid definition %s: %v", path, err)}
	}

	expVal := unified.LookupPath(cue.ParsePath("experiment"))
	if !expVal.Exists() {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("%s: missing top-level \"experiment\" field", path)}
	}

	var def Definition
	if err := expVal.Decode(&def); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("decode %s: %v", path, err)}
	}
	return &def, nil
}
