package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuitesList(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSuitesCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "smoke")
	assert.Contains(t, output, "optimal")
}

func TestSuitesResolve(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSuitesCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"smoke"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "depot:pfile1")
	assert.Contains(t, output, "gripper:prob01")
}

func TestSuitesResolveJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSuitesCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"smoke"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "smoke", data["suite"])
	assert.Len(t, data["problems"], 2)
}

func TestSuitesUnknown(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSuitesCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"no-such-suite"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSuitesFromFile(t *testing.T) {
	suiteFile := filepath.Join(t.TempDir(), "suites.yaml")
	content := `suites:
  - name: mine
    problems: [blocks:probBLOCKS-4-0]
`
	require.NoError(t, os.WriteFile(suiteFile, []byte(content), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewSuitesCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"mine", "--suite-file", suiteFile})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "blocks:probBLOCKS-4-0")
}
