package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClasses_Valid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "iface.cue", `class: I_Note: fields: title: string | *""`)
	writeFile(t, dir, "impl.cue", `class: Note: { base: "I_Note", fields: draft: bool | *true }`)

	out, err := execute(t, NewClassesCommand(&RootOptions{Format: "text", Verbose: true}), dir)
	require.NoError(t, err)

	assert.Contains(t, out, "I_Note\n")
	assert.Contains(t, out, "Note : I_Note\n")
	assert.Contains(t, out, "  draft: bool")
	assert.Contains(t, out, "2 class(es) in 2 file(s)")
}

func TestClasses_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "task.cue", `class: Task: fields: done: bool | *false`)

	out, err := execute(t, NewClassesCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ClassesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Classes, 1)
	assert.Equal(t, "Task", resp.Data.Classes[0].Name)
	assert.Equal(t, 1, resp.Data.FileCount)
}

func TestClasses_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"float field", `class: A: fields: x: float`, "float"},
		{"unknown base", `class: B: base: "Missing"`, "UNKNOWN_BASE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "bad.cue", tt.source)

			out, err := execute(t, NewClassesCommand(&RootOptions{Format: "text"}), dir)

			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "Error [E_CLASS]")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestClasses_MissingDirectory(t *testing.T) {
	_, err := execute(t, NewClassesCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "classes directory not found")
}

func TestClasses_WatchStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "task.cue", `class: Task: fields: done: bool | *false`)

	cmd := NewClassesCommand(&RootOptions{Format: "text"})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--watch", dir})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Task\n", "reports once before waiting")
}
