package embeddings

import (
	"context"
	"crypto/sha1"
	"fmt"
)

// Local derives vectors from a sha1 of the text. Equal texts get equal
// vectors and nothing else is similar; good for tests and offline runs.
type Local struct {
	dim int
}

func NewLocal(dim int) *Local { return &Local{dim: dim} }

func (e *Local) ModelName() string { return fmt.Sprintf("local-sha1-%d", e.dim) }

func (e *Local) Embed(_ context.Context, text string) ([]float32, error) {
	return hashToVector(text, e.dim), nil
}

func hashToVector(s string, dim int) []float32 {
	h := sha1.Sum([]byte(s))
	vec := make([]float32, dim)
	for i := range vec {
		// bytes repeat past the digest length, salted by the round
		b := h[i%len(h)] ^ byte(i/len(h))
		vec[i] = float32(int8(b)) / 127.0
	}
	return vec
}
