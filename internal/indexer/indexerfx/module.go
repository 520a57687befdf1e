package indexerfx

import (
	"github.com/0x5457/dill/internal/config"
	"github.com/0x5457/dill/internal/embeddings"
	"github.com/0x5457/dill/internal/indexer"
	"github.com/0x5457/dill/internal/indexer/pipeline"
	"github.com/0x5457/dill/internal/parser"
	"github.com/0x5457/dill/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for the ingestion pipeline
type Params struct {
	fx.In

	Config    *config.Config
	Extractor parser.Extractor
	Embedder  embeddings.Embedder
	Store     storage.DocumentStore
	Logger    *zap.Logger
}

// NewIngester creates the ingestion pipeline
func NewIngester(params Params) indexer.Ingester {
	return pipeline.New(
		params.Extractor,
		params.Embedder,
		params.Store,
		params.Logger.Named("ingest"),
		pipeline.Options{Workers: params.Config.Ingest.Workers},
	)
}

// Module provides indexer components
var Module = fx.Module("indexer",
	fx.Provide(NewIngester),
)
