package embeddingsfx

import (
	"context"

	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/embeddings"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for embeddings components
type Params struct {
	fx.In

	Config *config.Config
}

// NewLazy wraps the configured embedder so nothing is contacted until the
// first text is embedded
func NewLazy(params Params) *embeddings.Lazy {
	ec := params.Config.Embed
	if ec.Provider == config.EmbedLocal {
		local := embeddings.NewLocal(ec.Dimension)
		return embeddings.NewLazy(local.ModelName(), func(context.Context) (embeddings.Embedder, error) {
			return local, nil
		})
	}
	return embeddings.NewLazy("api:"+ec.URL, embeddings.ProbedApi(ec.URL))
}

// NewEmbedder exposes the lazy embedder as the Embedder interface
func NewEmbedder(lazy *embeddings.Lazy) embeddings.Embedder {
	return lazy
}

// WarmParams represents dependencies for background warm-up
type WarmParams struct {
	fx.In

	Lazy      *embeddings.Lazy
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// Warm starts embedder initialization in the background on start. A failed
// warm-up is only logged; the next Embed retries it.
func Warm(params WarmParams) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := params.Lazy.Warm(ctx); err != nil {
					params.Logger.Warn("embedder warm-up failed", zap.Error(err))
					return
				}
				params.Logger.Info("embedder ready", zap.String("model", params.Lazy.ModelName()))
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// Module provides embeddings components
var Module = fx.Module("embeddings",
	fx.Provide(NewLazy, NewEmbedder),
)

// WarmModule preloads the embedder when the application starts
var WarmModule = fx.Module("embeddings-warm",
	fx.Invoke(Warm),
)
