package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/dill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsGo = `package stats

func Mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

type Summary struct {
	Mean float64
}
`

func execute(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{
		"--store", config.BackendSQLite,
		"--db", db,
		"--embedder", config.EmbedLocal,
		"--log-level", "error",
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestIngestFindMatchList(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	src := filepath.Join(dir, "stats.go")
	require.NoError(t, os.WriteFile(src, []byte(statsGo), 0o644))

	out, err := execute(t, db, "ingest", src, "-p", "stats", "-v", "1.2.0")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 2 symbols from "+src+"\n")

	out, err = execute(t, db, "find", "Mean", "-p", "stats", "-v", "1.2.0")
	require.NoError(t, err)
	assert.Contains(t, out, "--- Mean (function) @ stats.go:3-9\n")

	out, err = execute(t, db, "find", "Mean")
	require.NoError(t, err)
	assert.Equal(t, "No results for 'Mean'\n", out)

	out, err = execute(t, db, "list", "-p", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary (struct) [stats@1.2.0] stats.go:11-13\n")

	out, err = execute(t, db, "match", "--text", "*", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[sim=1.000] Mean")
	assert.Contains(t, out, "[sim=1.000] Summary")

	out, err = execute(t, db, "match", "--file", src, "-p", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "--- [sim=")
}

func TestMatchNeedsExactlyOneSource(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	_, err := execute(t, db, "match")
	require.Error(t, err)

	_, err = execute(t, db, "match", "--text", "x", "--file", "y.c")
	require.Error(t, err)
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	src := filepath.Join(dir, "stats.go")
	require.NoError(t, os.WriteFile(src, []byte(statsGo), 0o644))

	_, err := execute(t, db, "ingest", src)
	require.NoError(t, err)

	out, err := execute(t, db, "clean")
	require.NoError(t, err)
	assert.Equal(t, "removed "+db+"\n", out)
	_, err = os.Stat(db)
	assert.True(t, os.IsNotExist(err))

	out, err = execute(t, db, "clean")
	require.NoError(t, err)
	assert.Equal(t, "nothing to clean\n", out)

	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	_, err = Clean(cfg)
	require.Error(t, err)
}

func TestClientInProcess(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")

	out, err := execute(t, db, "client", "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "Available MCP tools (4):")
	assert.Contains(t, out, "- name (required): Symbol name")

	out, err = execute(t, db, "client", "call", "ingest_file",
		"content=int twice(int x) { return 2 * x; }",
		"filename=twice.c",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"inserted": 1`)

	out, err = execute(t, db, "client", "call", "find_symbol", "name=twice")
	require.NoError(t, err)
	assert.Contains(t, out, "return 2 * x;")
}

func TestParseToolArgs(t *testing.T) {
	args, err := parseToolArgs([]string{"name=Mean", "limit=3", "exact=true", "text=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Mean", "limit": 3, "exact": true, "text": "a=b"}, args)

	_, err = parseToolArgs([]string{"novalue"})
	require.Error(t, err)
}
