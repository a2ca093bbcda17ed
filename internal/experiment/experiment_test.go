package experiment

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbench/planbench/internal/attr"
	"github.com/planbench/planbench/internal/suite"
)

func validOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Name:         "issue595",
		Revisions:    []string{"r1"},
		Configs:      []Config{{Name: "dfp-b50k", Args: []string{"--search", "astar(merge_and_shrink())"}}},
		Suite:        "smoke",
		TestSuite:    []string{"depot:pfile1"},
		MaxProcesses: 4,
		Contact:      "owner@example.org",
		BaseDir:      t.TempDir(),
	}
}

func testResolver(t *testing.T) suite.Resolver {
	t.Helper()
	b, err := suite.NewBuiltin()
	require.NoError(t, err)
	return b
}

func TestNew_Valid(t *testing.T) {
	e, err := New(validOptions(t), testResolver(t))
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "issue595", e.Name())
	assert.Equal(t, []string{"dfp-b50k"}, e.ConfigNames())
	assert.Len(t, e.Problems(), 2) // smoke suite
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"empty name", func(o *Options) { o.Name = "" }},
		{"no revisions", func(o *Options) { o.Revisions = nil }},
		{"no configs", func(o *Options) { o.Configs = nil }},
		{"duplicate config", func(o *Options) {
			o.Configs = append(o.Configs, Config{Name: "dfp-b50k", Args: []string{"--search", "astar(lmcut())"}})
		}},
		{"empty config name", func(o *Options) {
			o.Configs = []Config{{Name: "", Args: []string{"-x"}}}
		}},
		{"zero processes", func(o *Options) { o.MaxProcesses = 0 }},
		{"negative processes", func(o *Options) { o.MaxProcesses = -2 }},
		{"no base dir", func(o *Options) { o.BaseDir = "" }},
		{"no suite", func(o *Options) { o.Suite = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions(t)
			tt.mutate(&opts)
			_, err := New(opts, testResolver(t))
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err), "want ConfigurationError, got %v", err)
		})
	}
}

func TestNew_UnknownSuite(t *testing.T) {
	opts := validOptions(t)
	opts.Suite = "nonexistent"

	_, err := New(opts, testResolver(t))
	require.Error(t, err)
	assert.True(t, suite.IsUnknownSuiteError(err))
	assert.False(t, IsConfigurationError(err))
}

func TestNew_SmokeTest(t *testing.T) {
	opts := validOptions(t)
	opts.SmokeTest = true

	e, err := New(opts, testResolver(t))
	require.NoError(t, err)
	require.Len(t, e.Problems(), 1)
	assert.Equal(t, "depot:pfile1", e.Problems()[0].String())

	opts.TestSuite = nil
	_, err = New(opts, testResolver(t))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestAddResource_DuplicateName(t *testing.T) {
	e, err := New(validOptions(t), testResolver(t))
	require.NoError(t, err)

	require.NoError(t, e.AddResource("ms_parser", "ms-parser.py", "ms-parser.py"))
	err = e.AddResource("ms_parser", "other.py", "other.py")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestAddCommand_DuplicateName(t *testing.T) {
	e, err := New(validOptions(t), testResolver(t))
	require.NoError(t, err)

	require.NoError(t, e.AddCommand("ms-parser", []string{"ms_parser"}))
	assert.Error(t, e.AddCommand("ms-parser", []string{"ms_parser"}))
	assert.Error(t, e.AddCommand("empty", nil))
}

func TestAddAttribute_Duplicate(t *testing.T) {
	e, err := New(validOptions(t), testResolver(t))
	require.NoError(t, err)

	require.NoError(t, e.AddAttribute(attr.Attribute{Name: "ms_final_size", MinWins: true}))
	err = e.AddAttribute(attr.Attribute{Name: "ms_final_size", MinWins: false})
	require.Error(t, err)
	assert.True(t, attr.IsDuplicateAttributeError(err))
}

// TestTableAttributes verifies default-set extension with override.
func TestTableAttributes(t *testing.T) {
	e, err := New(validOptions(t), testResolver(t))
	require.NoError(t, err)

	// Override the default run_time direction, add a new attribute
	require.NoError(t, e.AddAttribute(attr.Attribute{Name: attr.RunTime, Absolute: false, MinWins: false}))
	require.NoError(t, e.AddAttribute(attr.Attribute{Name: "perfect_heuristic", Absolute: true, MinWins: false}))

	merged := e.TableAttributes()

	counts := map[string]int{}
	for _, a := range merged {
		counts[a.Name]++
	}
	assert.Equal(t, 1, counts[attr.RunTime])
	assert.Equal(t, 1, counts["perfect_heuristic"])

	for _, a := range merged {
		if a.Name == attr.RunTime {
			assert.False(t, a.MinWins, "override should win")
		}
	}
}

// TestTasks verifies matrix expansion and command resource substitution.
func TestTasks(t *testing.T) {
	opts := validOptions(t)
	opts.Revisions = []string{"r1", "r2"}
	opts.Configs = append(opts.Configs, Config{Name: "lmcut", Args: []string{"--search", "astar(lmcut())"}})
	opts.SmokeTest = true
	opts.TestSuite = []string{"depot:pfile1", "gripper:prob01"}

	e, err := New(opts, testResolver(t))
	require.NoError(t, err)
	require.NoError(t, e.AddResource("ms_parser", "ms-parser.py", "ms-parser.py"))
	require.NoError(t, e.AddCommand("ms-parser", []string{"ms_parser", "--verbose"}))

	tasks := e.tasks()
	require.Len(t, tasks, 2*2*2)

	// Revision outermost, then config, then problem
	assert.Equal(t, "r1", tasks[0].Revision)
	assert.Equal(t, "dfp-b50k", tasks[0].Config)
	assert.Equal(t, "depot:pfile1", tasks[0].Problem.String())
	assert.Equal(t, "gripper:prob01", tasks[1].Problem.String())
	assert.Equal(t, "lmcut", tasks[2].Config)
	assert.Equal(t, "r2", tasks[4].Revision)

	// Logical resource name resolved to the staged path
	require.Len(t, tasks[0].Commands, 1)
	cmd := tasks[0].Commands[0]
	assert.Equal(t, filepath.Join(opts.BaseDir, "resources", "ms-parser.py"), cmd.Argv[0])
	assert.Equal(t, "--verbose", cmd.Argv[1])

	// Run IDs are unique
	seen := map[string]bool{}
	for _, task := range tasks {
		assert.False(t, seen[task.RunID])
		seen[task.RunID] = true
	}
}

func TestRunDir(t *testing.T) {
	opts := validOptions(t)
	e, err := New(opts, testResolver(t))
	require.NoError(t, err)

	dir := e.RunDir("r1", "dfp-b50k", suite.Problem{Domain: "depot", Name: "pfile1"})
	assert.Equal(t, filepath.Join(opts.BaseDir, "runs", "r1", "dfp-b50k", "depot", "pfile1"), dir)
}
