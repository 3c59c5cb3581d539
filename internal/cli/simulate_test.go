package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: cli_smoke
description: one vertical commit and a view registration
threads:
  - id: t1
    parent: v1
  - id: t2
    parent: v2
steps:
  - advance: 500
  - drag: {dy: -80}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSimulateCommand_TextOutput(t *testing.T) {
	path := writeFile(t, "scenario.yaml", validScenario)

	out, err := executeCommand("simulate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "scenario: cli_smoke")
	assert.Contains(t, out, "view container=cell-0-0 video=v1")
	assert.Contains(t, out, "navigate thread=1 stitch=0")
	assert.Contains(t, out, "final: thread=1 stitch=0")
}

func TestSimulateCommand_JSONOutput(t *testing.T) {
	path := writeFile(t, "scenario.yaml", validScenario)

	out, err := executeCommand("--format", "json", "simulate", path)
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cli_smoke", data["scenario"])
	assert.Equal(t, float64(1), data["final_thread"])
}

func TestSimulateCommand_MissingFile(t *testing.T) {
	_, err := executeCommand("simulate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand_ValidAndInvalid(t *testing.T) {
	good := writeFile(t, "good.yaml", validScenario)
	out, err := executeCommand("validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	bad := writeFile(t, "bad.yaml", "name: broken\n")
	out, err = executeCommand("validate", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Validation failed")
}
