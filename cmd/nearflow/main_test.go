package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNodesCommand(t *testing.T) {
	out, err := execute(t, "nodes")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "near_transfer")
	assert.Contains(t, out, "privateKey*")

	out, err = execute(t, "nodes", "--json")
	require.NoError(t, err)
	var defs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &defs))
	assert.NotEmpty(t, defs)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "flow.nf", `
node keys = near_generate_key_pair
node sign = near_sign_message privateKey={{.privateKey}} message={{.note}}
node mark = set signed yes
connect keys -> sign
connect sign -> mark
`)
	items := writeFile(t, dir, "items.json", `[{"note": "first"}, {"note": "second"}]`)
	cfg := writeFile(t, dir, "nearflow.yaml", "log_level: error\nstorage:\n  type: file\n  path: "+filepath.Join(dir, "store.json")+"\n")

	out, err := execute(t, "run", script, "--items", items, "--config", cfg, "--flow-id", "job")
	require.NoError(t, err)

	var result []nearflow.Item
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result, 2)
	for i, note := range []string{"first", "second"} {
		assert.Equal(t, note, result[i].JSON["note"])
		assert.Equal(t, "yes", result[i].JSON["signed"])
		assert.NotEmpty(t, result[i].JSON["signature"])
	}
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "run", filepath.Join(dir, "missing.nf"))
	assert.ErrorContains(t, err, "could not read script")

	script := writeFile(t, dir, "bad.nf", "node a = teleport\n")
	_, err = execute(t, "run", script)
	assert.ErrorContains(t, err, "could not parse script")

	script = writeFile(t, dir, "ok.nf", "node a = set k v\n")
	_, err = execute(t, "run", script, "--items", writeFile(t, dir, "items.json", `{"not": "an array"}`))
	assert.ErrorContains(t, err, "could not decode items")

	_, err = execute(t, "run", script, "--log", "loud")
	assert.ErrorContains(t, err, "could not parse log level")
}
