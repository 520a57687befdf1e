package sqlvec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
	"github.com/0x5457/dill/internal/storage/sqlutil"
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// Store keeps documents in SQLite and ranks them with sqlite-vec's cosine
// distance. Metadata filters run in the same statement, so a filtered query
// never misses matches that an unfiltered top-k would have crowded out.
type Store struct {
	*sqlutil.Base
}

func New(ctx context.Context, path, collection string, dimension int) (*Store, error) {
	// enable sqlite-vec for all future connections
	sqlite_vec.Auto()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	var version string
	if err := db.QueryRowContext(ctx, `SELECT vec_version()`).Scan(&version); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}
	base, err := sqlutil.Open(ctx, db, collection, dimension, sqlite_vec.SerializeFloat32)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Base: base}, nil
}

func (s *Store) QuerySimilar(
	ctx context.Context,
	embedding []float32,
	limit int,
	pred storage.Predicate,
) ([]models.Hit, error) {
	ok, err := s.PrepareQuery(ctx, embedding, limit)
	if err != nil || !ok {
		return nil, err
	}
	where, args, err := sqlutil.WhereClause(s.Collection, pred)
	if err != nil {
		return nil, err
	}
	v, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, err
	}
	// Cosine against a zero-norm vector is NaN, which SQLite reads as NULL;
	// such pairs sit at distance 1 like in storage.CosineDistance.
	query := `SELECT id, text, metadata,
			max(0.0, min(2.0, COALESCE(vec_distance_cosine(embedding, ?), 1.0))) AS distance
		FROM documents
		WHERE ` + where + `
		ORDER BY distance, seq
		LIMIT ?`
	args = append([]any{v}, args...)
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var hits []models.Hit
	for rows.Next() {
		var hit models.Hit
		var meta string
		if err := rows.Scan(&hit.ID, &hit.Text, &meta, &hit.Distance); err != nil {
			return nil, err
		}
		if hit.Metadata, err = sqlutil.DecodeMetadata(meta); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

var _ storage.DocumentStore = (*Store)(nil)
