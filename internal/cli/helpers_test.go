package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const mirrorScenario = `
name: cli_mirror
description: "Mirror one note and drain both repositories"
classes: |
  class: I_Note: fields: title: string | *""
  class: Note: base: "I_Note"
repos: [alpha, beta]
steps:
  - create: { repo: alpha, type: Note, as: n, props: { title: hi } }
  - forward: { repo: beta, from: alpha }
  - drain: { repo: alpha }
  - drain: { repo: beta }
assertions:
  - type: objects
    repo: beta
    objects: [n]
  - type: batches
    repo: alpha
    count: 1
`

const failingScenario = `
name: cli_failing
description: "Expects an object that is never created"
classes: |
  class: Note: fields: title: string | *""
repos: [alpha]
steps:
  - clear: { repo: alpha }
    fails: true
assertions:
  - type: objects
    repo: alpha
    objects: [ghost]
`
