package configfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/constants"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestConfigModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dill.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("embed-url", "", "")
	require.NoError(t, flags.Parse([]string{"--embed-url", "http://embed:9000/embed"}))

	var cfg *config.Config
	app := fx.New(
		Module,
		fx.Supply(
			fx.Annotate(path, fx.ResultTags(`name:"configPath"`)),
			flags,
		),
		fx.Populate(&cfg),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, cfg)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "http://embed:9000/embed", cfg.Embed.URL)
}

func TestConfigDefaults(t *testing.T) {
	var cfg *config.Config
	app := fx.New(
		Module,
		fx.Populate(&cfg),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, cfg)
	assert.Equal(t, constants.DefaultEmbedURL, cfg.Embed.URL) // Default value
	assert.Equal(t, config.BackendSQLVec, cfg.Store.Backend)
}
