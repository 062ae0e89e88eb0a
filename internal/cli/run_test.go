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

func TestRun_PassingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mirror.yaml", mirrorScenario)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	assert.Contains(t, out, "PASS cli_mirror")
	assert.Contains(t, out, "Summary: 1 passed, 0 failed, 1 total")
}

func TestRun_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mirror.yaml", mirrorScenario)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL cli_failing")
	assert.Contains(t, out, "Expected: [ghost]")
	assert.Contains(t, out, "PASS cli_mirror")
	assert.Contains(t, out, "Error [E_SCENARIO]: 1 scenario(s) failed")
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "failing.yaml", failingScenario)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), file)
	require.Error(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestRun_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mirror.yaml", mirrorScenario)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), dir, "--filter", "mir*")
	require.NoError(t, err)

	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "cli_failing")
}

func TestRun_NoScenarios(t *testing.T) {
	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRun_MissingPath(t *testing.T) {
	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_LoadErrorFailsScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), dir)

	require.Error(t, err)
	assert.Contains(t, out, "FAIL broken")
	assert.Contains(t, out, "failed to load scenario")
}

func TestRun_GoldenUpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mirror.yaml", mirrorScenario)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	golden := filepath.Join(dir, "golden", "mirror.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario":"cli_mirror"`)

	out, err = execute(t, NewRunCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)
	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)
}

func TestRun_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mirror.yaml", mirrorScenario)
	writeFile(t, dir, "golden/mirror.golden", `{"scenario":"stale"}`)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), dir)

	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestRun_TracePrintsSpans(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "mirror.yaml", mirrorScenario)

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(diag)
	cmd.SetArgs([]string{file, "--trace"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, diag.String(), "journal.Drain")
	assert.NotContains(t, out.String(), "journal.Drain", "spans stay off stdout")
}
