// Package embeddings turns text into vectors. How a model does that is
// outside dill; these types only carry text to a model and back.
package embeddings

import "context"

// Embedder maps one text to one vector. Vectors from one embedder share a
// dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
