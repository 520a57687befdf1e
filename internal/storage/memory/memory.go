package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
	"github.com/google/uuid"
)

type item struct {
	doc models.Document
	vec []float32
}

// Store keeps documents in insertion order in process memory.
type Store struct {
	mu        sync.RWMutex
	items     []item
	dimension int
}

// New creates an empty store. dimension 0 lets the first Add decide it.
func New(dimension int) *Store {
	return &Store{dimension: dimension}
}

func (s *Store) Add(
	_ context.Context,
	text string,
	embedding []float32,
	metadata models.Metadata,
) (string, error) {
	meta, err := storage.NormalizeMetadata(metadata)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.CheckEmbedding(s.dimension, embedding); err != nil {
		return "", err
	}
	if s.dimension == 0 {
		s.dimension = len(embedding)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	id := uuid.NewString()
	s.items = append(s.items, item{
		doc: models.Document{ID: id, Text: text, Metadata: meta},
		vec: vec,
	})
	return id, nil
}

func (s *Store) QuerySimilar(
	_ context.Context,
	embedding []float32,
	limit int,
	pred storage.Predicate,
) ([]models.Hit, error) {
	pred, err := pred.Normalize()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || len(s.items) == 0 {
		return nil, nil
	}
	if err := storage.CheckEmbedding(s.dimension, embedding); err != nil {
		return nil, err
	}

	var hits []models.Hit
	for _, it := range s.items {
		if !pred.Matches(it.doc.Metadata) {
			continue
		}
		hits = append(hits, models.Hit{
			Document: cloneDoc(it.doc),
			Distance: storage.CosineDistance(it.vec, embedding),
		})
	}
	// stable keeps insertion order between equal distances
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) GetByPredicate(_ context.Context, pred storage.Predicate) ([]models.Document, error) {
	pred, err := pred.Normalize()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []models.Document
	for _, it := range s.items {
		if pred.Matches(it.doc.Metadata) {
			docs = append(docs, cloneDoc(it.doc))
		}
	}
	return docs, nil
}

func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *Store) Close() error { return nil }

func cloneDoc(d models.Document) models.Document {
	meta := make(models.Metadata, len(d.Metadata))
	for k, v := range d.Metadata {
		meta[k] = v
	}
	d.Metadata = meta
	return d
}

var _ storage.DocumentStore = (*Store)(nil)
