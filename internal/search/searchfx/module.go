package searchfx

import (
	"github.com/0x5457/dill/internal/embeddings"
	"github.com/0x5457/dill/internal/search"
	"github.com/0x5457/dill/internal/storage"
	"go.uber.org/fx"
)

// Params represents dependencies for search service
type Params struct {
	fx.In

	Embedder embeddings.Embedder
	Store    storage.DocumentStore
}

// NewSearchService creates the query service over the configured document
// store; exact lookups use only the store, similarity queries also embed
func NewSearchService(params Params) *search.Service {
	return &search.Service{
		Embedder: params.Embedder,
		Store:    params.Store,
	}
}

// Module provides search components
var Module = fx.Module("search",
	fx.Provide(NewSearchService),
)
