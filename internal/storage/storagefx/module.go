package storagefx

import (
	"context"
	"fmt"

	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/storage"
	"github.com/0x5457/dill/internal/storage/memory"
	"github.com/0x5457/dill/internal/storage/qdrant"
	"github.com/0x5457/dill/internal/storage/sqlite"
	"github.com/0x5457/dill/internal/storage/sqlvec"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// Open creates the document store selected by cfg.
func Open(ctx context.Context, cfg *config.Config) (storage.DocumentStore, error) {
	sc := cfg.Store
	switch sc.Backend {
	case config.BackendSQLVec:
		return sqlvec.New(ctx, sc.Path, sc.Collection, sc.Dimension)
	case config.BackendSQLite:
		return sqlite.New(ctx, sc.Path, sc.Collection, sc.Dimension)
	case config.BackendMemory:
		return memory.New(sc.Dimension), nil
	case config.BackendQdrant:
		return qdrant.New(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, sc.Collection, sc.Dimension)
	}
	return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
}

// NewDocumentStore opens the configured store and closes it on stop
func NewDocumentStore(params Params) (storage.DocumentStore, error) {
	store, err := Open(context.Background(), params.Config)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", params.Config.Store.Backend, err)
	}
	params.Logger.Debug("document store opened",
		zap.String("backend", params.Config.Store.Backend),
		zap.String("collection", params.Config.Store.Collection),
	)
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return store.Close() },
	})
	return store, nil
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(NewDocumentStore),
)
