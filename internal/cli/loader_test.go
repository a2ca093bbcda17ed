package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDefinition = `
experiment: {
	name: "issue595"
	revisions: ["r1", "r2"]
	configs: {
		"lmcut":     ["--search", "astar(lmcut())"]
		"dfp-b50k":  ["--search", "astar(merge_and_shrink())"]
	}
	suite:      "smoke"
	test_suite: ["depot:pfile1"]
	contact:    "owner@example.org"
	resources: [
		{name: "ms_parser", source: "ms-parser.py"},
	]
	commands: [
		{name: "ms-parser", argv: ["ms_parser"]},
	]
	attributes: [
		{name: "ms_final_size"},
		{name: "actual_search_time", functions: ["gm"]},
		{name: "perfect_heuristic", absolute: true, min_wins: false},
	]
	patterns: [
		{attribute: "landmarks", regex: "Discovered (\\d+) landmarks"},
	]
}
`

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefinition(t *testing.T) {
	def, err := LoadDefinition(writeDefinition(t, validDefinition))
	require.NoError(t, err)

	assert.Equal(t, "issue595", def.Name)
	assert.Equal(t, []string{"r1", "r2"}, def.Revisions)
	assert.Equal(t, "smoke", def.Suite)
	assert.Equal(t, []string{"depot:pfile1"}, def.TestSuite)
	assert.Equal(t, "owner@example.org", def.Contact)
	assert.Zero(t, def.MaxProcesses)

	require.Len(t, def.Resources, 1)
	assert.Equal(t, "ms_parser", def.Resources[0].Name)
	assert.Empty(t, def.Resources[0].Dest)

	require.Len(t, def.Commands, 1)
	assert.Equal(t, []string{"ms_parser"}, def.Commands[0].Argv)

	require.Len(t, def.Attributes, 3)
	assert.True(t, def.Attributes[0].MinWins, "min_wins defaults to true")
	assert.False(t, def.Attributes[0].Absolute)
	assert.Equal(t, []string{"gm"}, def.Attributes[1].Functions)
	assert.True(t, def.Attributes[2].Absolute)

	require.Len(t, def.Patterns, 1)
	assert.Equal(t, "landmarks", def.Patterns[0].Attribute)
}

func TestConfigList_Sorted(t *testing.T) {
	def, err := LoadDefinition(writeDefinition(t, validDefinition))
	require.NoError(t, err)

	configs := def.ConfigList()
	require.Len(t, configs, 2)
	assert.Equal(t, "dfp-b50k", configs[0].Name)
	assert.Equal(t, "lmcut", configs[1].Name)
	assert.Equal(t, []string{"--search", "astar(lmcut())"}, configs[1].Args)
}

func TestLoadDefinition_MissingFile(t *testing.T) {
	_, err := LoadDefinition(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDefinition_SyntaxError(t *testing.T) {
	_, err := LoadDefinition(writeDefinition(t, "experiment: {name: "))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeBadCUE, loadErr.Code)
}

func TestLoadDefinition_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		def  string
	}{
		{"empty name", `experiment: {name: "", revisions: ["r1"], configs: {a: []}}`},
		{"no revisions", `experiment: {name: "x", revisions: [], configs: {a: []}}`},
		{"zero processes", `experiment: {name: "x", revisions: ["r1"], configs: {a: []}, max_processes: 0}`},
		{"unknown function", `experiment: {name: "x", revisions: ["r1"], configs: {a: []}, attributes: [{name: "y", functions: ["median"]}]}`},
		{"empty command argv", `experiment: {name: "x", revisions: ["r1"], configs: {a: []}, commands: [{name: "c", argv: []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDefinition(writeDefinition(t, tt.def))
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, ErrCodeSchema, loadErr.Code)
		})
	}
}

func TestLoadDefinition_MissingExperimentField(t *testing.T) {
	_, err := LoadDefinition(writeDefinition(t, `other: {name: "x"}`))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeSchema, loadErr.Code)
}
