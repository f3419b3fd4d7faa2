package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func list(n int) string {
	src := "[globals]\nlist = \"list\"\n\n[[object]]\nname = \"list\"\nsize = 64\nfields = [{offset = 0, size = 64, target = \"n1\"}]\n"
	names := []string{"n1", "n2", "n3"}
	for i := 0; i < n; i++ {
		next := `value = "zero"`
		if i+1 < n {
			next = `target = "` + names[i+1] + `"`
		}
		src += "\n[[object]]\nname = \"" + names[i] + "\"\nsize = 64\nfields = [{offset = 0, size = 64, " + next + "}]\n"
	}
	return src
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configDir, dotFlag, verboseFlag = ".", false, false
	// cobra registers --version on the first Execute; its value sticks
	// between runs.
	if f := rootCmd.Flags().Lookup("version"); f != nil {
		require.NoError(t, f.Value.Set("false"))
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestJoinCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.toml":       list(2),
		"b.toml":       list(3),
		"smgjoin.conf": "[join]\nverify = true\n",
	})
	out, err := run(t, "join", "--config", dir, filepath.Join(dir, "a.toml"), filepath.Join(dir, "b.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "status: incomparable")
	assert.Contains(t, out, "folded sll")
	assert.Contains(t, out, "global list = ")

	out, err = run(t, "join", "--dot", "--config", dir, filepath.Join(dir, "a.toml"), filepath.Join(dir, "a.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "digraph{")
	assert.NotContains(t, out, "status:")
}

func TestJoinCommandUndefined(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.toml": list(1),
		"b.toml": "[[object]]\nname = \"x\"\nsize = 64\n\n[globals]\nother = \"x\"\n",
	})
	_, err := run(t, "join", "--config", dir, filepath.Join(dir, "a.toml"), filepath.Join(dir, "b.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not joinable")
}

func TestAbstractCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.toml": list(3)})
	out, err := run(t, "abstract", "--config", dir, filepath.Join(dir, "a.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "folded sll")
	assert.Contains(t, out, "sll/64 min=3")
}

func TestCheckCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"good.toml": list(2),
		"bad.toml":  "[[object]]\nname = \"a\"\nsize = 8\nfields = [{offset = 0, size = 64, value = \"v\"}]\n",
	})
	out, err := run(t, "check", filepath.Join(dir, "good.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "good.toml: ok")

	out, err = run(t, "check", filepath.Join(dir, "good.toml"), filepath.Join(dir, "bad.toml"))
	require.Error(t, err)
	assert.Contains(t, out, "bad.toml:")
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "smgjoin version "+buildVersion()+"\n", out)

	out, err = run(t)
	require.NoError(t, err)
	assert.NotContains(t, out, "smgjoin version")
}

func TestLatticeCommand(t *testing.T) {
	out, err := run(t, "lattice")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph{")
	assert.Contains(t, out, "left-entails")
	assert.Contains(t, out, "incomparable")
}
