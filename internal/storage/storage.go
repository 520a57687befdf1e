// Package storage defines the document store shared by exact and semantic
// symbol retrieval, plus the predicate and distance helpers its backends use.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/0x5457/dill/internal/models"
)

var (
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
	ErrEmptyEmbedding       = errors.New("empty embedding")
	ErrInvalidMetadata      = errors.New("invalid metadata value")
	ErrUnsupportedPredicate = errors.New("unsupported predicate")
)

// DocumentStore holds immutable documents with an embedding and scalar
// metadata in one collection of fixed dimensionality.
type DocumentStore interface {
	// Add stores a document and returns its generated id.
	Add(ctx context.Context, text string, embedding []float32, metadata models.Metadata) (string, error)
	// QuerySimilar returns up to limit documents matching pred, nearest first
	// by cosine distance. Equal distances keep insertion order.
	QuerySimilar(ctx context.Context, embedding []float32, limit int, pred Predicate) ([]models.Hit, error)
	// GetByPredicate returns every document matching pred in insertion order.
	GetByPredicate(ctx context.Context, pred Predicate) ([]models.Document, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Condition is a single metadata equality test.
type Condition struct {
	Field string
	Value any
}

// Eq builds a condition matching documents whose field equals value.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Value: value}
}

// Predicate is a conjunction of equality conditions. The empty predicate
// matches every document.
type Predicate []Condition

// Where starts a predicate with one condition.
func Where(field string, value any) Predicate {
	return Predicate{Eq(field, value)}
}

// And returns p extended with another condition.
func (p Predicate) And(field string, value any) Predicate {
	out := make(Predicate, 0, len(p)+1)
	out = append(out, p...)
	return append(out, Eq(field, value))
}

// All builds a predicate from conditions.
func All(conds ...Condition) Predicate { return Predicate(conds) }

func (p Predicate) Empty() bool { return len(p) == 0 }

// Normalize checks every condition and converts values to the stored scalar
// types so backends can compare them directly.
func (p Predicate) Normalize() (Predicate, error) {
	if len(p) == 0 {
		return nil, nil
	}
	out := make(Predicate, len(p))
	for i, c := range p {
		if c.Field == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrUnsupportedPredicate)
		}
		v, err := NormalizeValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %T", ErrUnsupportedPredicate, c.Field, c.Value)
		}
		out[i] = Condition{Field: c.Field, Value: v}
	}
	return out, nil
}

// Matches evaluates the predicate against normalized metadata.
func (p Predicate) Matches(m models.Metadata) bool {
	for _, c := range p {
		got, ok := m[c.Field]
		if !ok {
			return false
		}
		want, err := NormalizeValue(c.Value)
		if err != nil || !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

// Numbers compare by value so a stored 3 matches a queried 3.0, the same way
// SQLite compares json_extract results.
func scalarEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// NormalizeValue converts a Go scalar to one of string, int64, float64 or bool.
func NormalizeValue(v any) (any, error) {
	switch n := v.(type) {
	case string, bool, int64, float64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, ErrInvalidMetadata
		}
		return int64(n), nil
	case float32:
		return float64(n), nil
	case models.SymbolKind:
		return string(n), nil
	}
	return nil, ErrInvalidMetadata
}

// NormalizeMetadata returns a copy of m holding only normalized scalars.
func NormalizeMetadata(m models.Metadata) (models.Metadata, error) {
	out := make(models.Metadata, len(m))
	for k, v := range m {
		if k == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidMetadata)
		}
		n, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q holds %T", ErrInvalidMetadata, k, v)
		}
		out[k] = n
	}
	return out, nil
}

// CheckEmbedding validates an embedding against the collection dimension.
// A zero dimension means the collection has not been sized yet.
func CheckEmbedding(dimension int, embedding []float32) error {
	if len(embedding) == 0 {
		return ErrEmptyEmbedding
	}
	if dimension > 0 && len(embedding) != dimension {
		return fmt.Errorf("%w: collection has %d, got %d", ErrDimensionMismatch, dimension, len(embedding))
	}
	return nil
}

// CosineDistance returns 1 - cos(a, b) clamped to [0, 2]. A zero vector is
// treated as orthogonal to everything.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 1
	}
	d := 1 - dot/den
	return math.Min(2, math.Max(0, d))
}
