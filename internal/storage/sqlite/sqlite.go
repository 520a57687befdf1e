package sqlite

import (
	"context"
	"database/sql"
	"sort"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
	"github.com/0x5457/dill/internal/storage/sqlutil"
	_ "modernc.org/sqlite"
)

// Store is the cgo-free SQLite backend. It filters in SQL and ranks the
// matching rows in Go.
type Store struct {
	*sqlutil.Base
}

func New(ctx context.Context, path, collection string, dimension int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	base, err := sqlutil.Open(ctx, db, collection, dimension, sqlutil.EncodeVector)
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
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, text, metadata, embedding FROM documents WHERE `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var hits []models.Hit
	for rows.Next() {
		var hit models.Hit
		var meta string
		var blob []byte
		if err := rows.Scan(&hit.ID, &hit.Text, &meta, &blob); err != nil {
			return nil, err
		}
		if hit.Metadata, err = sqlutil.DecodeMetadata(meta); err != nil {
			return nil, err
		}
		vec, err := sqlutil.DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		hit.Distance = storage.CosineDistance(vec, embedding)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

var _ storage.DocumentStore = (*Store)(nil)
