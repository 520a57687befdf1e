package appfx

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/dill/cmd/cmdsfx"
	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/storage"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func writeConfig(t *testing.T, dir, backend string) string {
	t.Helper()
	path := filepath.Join(dir, "dill.yaml")
	content := "store:\n  backend: " + backend + "\n  path: " + filepath.Join(dir, "test.db") + `
embed:
  provider: local
  dimension: 16
log:
  level: error
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAppModule(t *testing.T) {
	// Test that all modules can be loaded together
	tmpDir := t.TempDir()
	out := &bytes.Buffer{}

	var runner *cmdsfx.CommandRunner
	app := NewAppWithConfig(writeConfig(t, tmpDir, config.BackendSQLite), nil,
		fx.Provide(fx.Annotate(
			func() io.Writer { return out },
			fx.ResultTags(`name:"stdout"`),
		)),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, runner)

	src := filepath.Join(tmpDir, "greet.go")
	require.NoError(t, os.WriteFile(src, []byte("package greet\n\nfunc Hello() string { return \"hi\" }\n"), 0o644))
	require.NoError(t, runner.RunIngest(ctx, []string{src}, "", ""))
	require.NoError(t, runner.RunFind(ctx, "Hello", "", ""))
	assert.Contains(t, out.String(), "--- Hello (function) @ greet.go:3-3\n")
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("store", "", "")
	require.NoError(t, flags.Parse([]string{"--store", config.BackendMemory}))

	var cfg *config.Config
	var store storage.DocumentStore
	app := NewAppWithConfig(writeConfig(t, tmpDir, config.BackendSQLite), flags,
		fx.Populate(&cfg, &store),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	_, err := os.Stat(filepath.Join(tmpDir, "test.db"))
	assert.True(t, os.IsNotExist(err), "memory backend must not create the database file")
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: floppy\n"), 0o644))

	app := NewAppWithConfig(path, nil)
	require.Error(t, app.Err())
}
