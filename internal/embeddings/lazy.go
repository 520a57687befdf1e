package embeddings

import (
	"context"
	"sync"
)

// InitFunc builds the embedder a Lazy wraps.
type InitFunc func(ctx context.Context) (Embedder, error)

// Lazy defers building an expensive embedder until first use. Concurrent
// first callers wait for one init; a failed init is retried by the next call.
type Lazy struct {
	name string
	init InitFunc

	mu    sync.Mutex
	inner Embedder
}

func NewLazy(name string, init InitFunc) *Lazy {
	return &Lazy{name: name, init: init}
}

func (l *Lazy) get(ctx context.Context) (Embedder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner != nil {
		return l.inner, nil
	}
	e, err := l.init(ctx)
	if err != nil {
		return nil, err
	}
	l.inner = e
	return e, nil
}

// Warm runs the init now instead of on the first Embed.
func (l *Lazy) Warm(ctx context.Context) error {
	_, err := l.get(ctx)
	return err
}

// Ready reports whether the init has succeeded.
func (l *Lazy) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner != nil
}

func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, text)
}

func (l *Lazy) ModelName() string { return l.name }
