package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProblem(t *testing.T) {
	p, err := ParseProblem("depot:pfile1")
	require.NoError(t, err)
	assert.Equal(t, "depot", p.Domain)
	assert.Equal(t, "pfile1", p.Name)
	assert.Equal(t, "depot:pfile1", p.String())

	for _, bad := range []string{"", "depot", "depot:", ":pfile1"} {
		_, err := ParseProblem(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

// TestBuiltin_Resolve tests resolution of the embedded suites.
func TestBuiltin_Resolve(t *testing.T) {
	b, err := NewBuiltin()
	require.NoError(t, err)

	problems, err := b.Resolve("smoke")
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "depot:pfile1", problems[0].String())
	assert.Equal(t, "gripper:prob01", problems[1].String())
}

// TestBuiltin_ResolveIdempotent verifies that resolving the same name
// twice returns an identical ordered sequence.
func TestBuiltin_ResolveIdempotent(t *testing.T) {
	b, err := NewBuiltin()
	require.NoError(t, err)

	first, err := b.Resolve("optimal_with_ipc11")
	require.NoError(t, err)
	second, err := b.Resolve("optimal_with_ipc11")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestBuiltin_Includes verifies that included suites expand first.
func TestBuiltin_Includes(t *testing.T) {
	b, err := NewBuiltin()
	require.NoError(t, err)

	base, err := b.Resolve("optimal")
	require.NoError(t, err)
	extended, err := b.Resolve("optimal_with_ipc11")
	require.NoError(t, err)

	require.Greater(t, len(extended), len(base))
	assert.Equal(t, base, extended[:len(base)])
}

func TestBuiltin_UnknownSuite(t *testing.T) {
	b, err := NewBuiltin()
	require.NoError(t, err)

	_, err = b.Resolve("no-such-suite")
	require.Error(t, err)
	assert.True(t, IsUnknownSuiteError(err))

	var ue *UnknownSuiteError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "no-such-suite", ue.Name)
	assert.Contains(t, ue.Known, "optimal")
}

func TestParseSuites_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "suites:\n  - name: a\n    problemz: [x:y]\n"},
		{"empty name", "suites:\n  - name: \"\"\n    problems: [x:y]\n"},
		{"duplicate name", "suites:\n  - name: a\n    problems: [x:y]\n  - name: a\n    problems: [x:z]\n"},
		{"no problems", "suites:\n  - name: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSuites([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseSuites_SelfInclude(t *testing.T) {
	b, err := parseSuites([]byte("suites:\n  - name: a\n    includes: [b]\n    problems: [x:y]\n  - name: b\n    includes: [a]\n    problems: [x:z]\n"))
	require.NoError(t, err)

	_, err = b.Resolve("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "includes itself")
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := "suites:\n  - name: mine\n    problems:\n      - depot:pfile1\n      - rovers:p03\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := FromFile(path)
	require.NoError(t, err)

	problems, err := r.Resolve("mine")
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "rovers:p03", problems[1].String())

	_, err = FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// TestChain tests fallthrough from user files to built-in suites.
func TestChain(t *testing.T) {
	builtin, err := NewBuiltin()
	require.NoError(t, err)

	custom, err := parseSuites([]byte("suites:\n  - name: mine\n    problems: [depot:pfile1]\n"))
	require.NoError(t, err)

	chain := Chain{custom, builtin}

	mine, err := chain.Resolve("mine")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	smoke, err := chain.Resolve("smoke")
	require.NoError(t, err)
	assert.Len(t, smoke, 2)

	_, err = chain.Resolve("nope")
	require.Error(t, err)
	assert.True(t, IsUnknownSuiteError(err))
}
