package cmdsfx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/dill/internal/embeddings"
	"github.com/0x5457/dill/internal/indexer/pipeline"
	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/parser/grammar"
	"github.com/0x5457/dill/internal/parser/tsparser"
	"github.com/0x5457/dill/internal/search"
	"github.com/0x5457/dill/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const queueC = `int queue_push(int v) {
    return v;
}

int queue_pop(void) {
    return 0;
}

int queue_pop(void);
`

const dupC = `static int helper(void) { return 1; }
#ifdef ALT
static int helper(void) { return 2; }
#endif
`

func newRunner(t *testing.T) (*CommandRunner, *bytes.Buffer) {
	t.Helper()
	reg, err := grammar.Default()
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	emb := embeddings.NewLocal(16)
	store := memory.New(0)
	out := &bytes.Buffer{}
	return NewCommandRunner(Params{
		Logger:        zap.NewNop(),
		Out:           out,
		SearchService: &search.Service{Embedder: emb, Store: store},
		Ingester:      pipeline.New(tsparser.New(reg), emb, store, zap.NewNop(), pipeline.Options{Workers: 2}),
	}), out
}

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queue.c"), []byte(queueC), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.c"), []byte(dupC), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes\n"), 0o644))
	return dir
}

func TestRunIngestReportsPerFile(t *testing.T) {
	ctx := context.Background()
	r, out := newRunner(t)

	require.NoError(t, r.RunIngest(ctx, []string{writeTree(t)}, "q", "1.0.0"))
	assert.Contains(t, out.String(), "Ingested 2 symbols from ")
	assert.Contains(t, out.String(), "queue.c\n")
	assert.Contains(t, out.String(), "skipped 1 duplicate(s) of helper")
	assert.Contains(t, out.String(), "Ingested 3 symbols from 2 files\n")
}

func TestRunFindAndList(t *testing.T) {
	ctx := context.Background()
	r, out := newRunner(t)
	require.NoError(t, r.RunIngest(ctx, []string{writeTree(t)}, "", ""))

	out.Reset()
	require.NoError(t, r.RunFind(ctx, "queue_push", "", ""))
	assert.Equal(t,
		"--- queue_push (function) @ queue.c:1-3\nint queue_push(int v) {\n    return v;\n}\n",
		out.String(),
	)

	out.Reset()
	require.NoError(t, r.RunFind(ctx, "queue_push", "other", ""))
	assert.Equal(t, "No results for 'queue_push'\n", out.String())

	out.Reset()
	require.NoError(t, r.RunList(ctx, "default", "0.0.0"))
	assert.Contains(t, out.String(), "queue_pop (function) [default@0.0.0] queue.c:5-7\n")
	assert.Contains(t, out.String(), "helper (function) [default@0.0.0] dup.c:1-1\n")
}

func TestRunMatch(t *testing.T) {
	ctx := context.Background()
	r, out := newRunner(t)
	require.NoError(t, r.RunIngest(ctx, []string{writeTree(t)}, "", ""))

	out.Reset()
	require.NoError(t, r.RunMatch(ctx, search.MatchRequest{
		Text:  "int queue_pop(void) {\n    return 0;\n}",
		Limit: 1,
	}, ""))
	assert.Equal(t,
		"--- [sim=1.000] queue_pop (function) @ queue.c:5-7\nint queue_pop(void) {\n    return 0;\n}\n",
		out.String(),
	)

	query := filepath.Join(t.TempDir(), "query.c")
	require.NoError(t, os.WriteFile(query, []byte("int queue_push(int v) {\n    return v;\n}"), 0o644))
	out.Reset()
	require.NoError(t, r.RunMatch(ctx, search.MatchRequest{Limit: 1}, query))
	assert.Contains(t, out.String(), "--- [sim=1.000] queue_push (function)")

	out.Reset()
	require.NoError(t, r.RunMatch(ctx, search.MatchRequest{Text: "anything", Project: "nope"}, ""))
	assert.Equal(t, "no matches\n", out.String())
}

func TestRunEmptyStore(t *testing.T) {
	ctx := context.Background()
	r, out := newRunner(t)

	require.NoError(t, r.RunFind(ctx, "missing", "", ""))
	assert.Equal(t, "No results for 'missing'\n", out.String())

	out.Reset()
	require.NoError(t, r.RunList(ctx, "", ""))
	assert.Equal(t, "No symbols found\n", out.String())
}

func TestRunListPlainText(t *testing.T) {
	ctx := context.Background()
	r, out := newRunner(t)
	id, err := r.ingester.IngestText(ctx, "loose note", models.Metadata{"source": "cli"})
	require.NoError(t, err)

	require.NoError(t, r.RunList(ctx, "", ""))
	assert.Equal(t, id+` "loose note"`+"\n", out.String())
}

func TestRunnerWithoutServices(t *testing.T) {
	ctx := context.Background()
	r := NewCommandRunner(Params{Logger: zap.NewNop()})

	require.Error(t, r.RunFind(ctx, "x", "", ""))
	require.Error(t, r.RunMatch(ctx, search.MatchRequest{Text: "x"}, ""))
	require.Error(t, r.RunIngest(ctx, []string{"."}, "", ""))
	require.Error(t, r.RunList(ctx, "", ""))
	require.Error(t, r.RunServe(ctx, "stdio", "", nil))
}

func TestCommandsModule(t *testing.T) {
	var runner *CommandRunner
	app := fx.New(
		Module,
		fx.Supply(zap.NewNop()),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, runner)
	assert.Equal(t, os.Stdout, runner.out)
}
