// Package sqlutil holds the SQLite schema and document access shared by the
// SQLite backends. Backends differ only in how they rank by distance.
package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/0x5457/dill/internal/models"
	"github.com/0x5457/dill/internal/storage"
	"github.com/google/uuid"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		collection TEXT NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT NOT NULL,
		embedding BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, seq)`,
}

// VectorEncoder serializes an embedding into the blob stored per document.
type VectorEncoder func([]float32) ([]byte, error)

// Base implements the DocumentStore operations that need no distance
// function. Writes go through one mutex so the first Add can size the
// collection without racing.
type Base struct {
	DB         *sql.DB
	Collection string
	Encode     VectorEncoder

	mu        sync.Mutex
	dimension int
}

// Open migrates db and loads or creates the collection. A configured
// dimension must agree with the one already persisted.
func Open(ctx context.Context, db *sql.DB, collection string, dimension int, encode VectorEncoder) (*Base, error) {
	if encode == nil {
		encode = EncodeVector
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO collections(name, dimension) VALUES(?, ?) ON CONFLICT(name) DO NOTHING`,
		collection, dimension,
	); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", collection, err)
	}
	var stored int
	if err := db.QueryRowContext(ctx,
		`SELECT dimension FROM collections WHERE name = ?`, collection,
	).Scan(&stored); err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}
	if dimension > 0 && stored > 0 && dimension != stored {
		return nil, fmt.Errorf("%w: collection %s has %d, configured %d",
			storage.ErrDimensionMismatch, collection, stored, dimension)
	}
	if stored == 0 && dimension > 0 {
		if err := setDimension(ctx, db, collection, dimension); err != nil {
			return nil, err
		}
		stored = dimension
	}
	return &Base{DB: db, Collection: collection, Encode: encode, dimension: stored}, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setDimension(ctx context.Context, db execer, collection string, dimension int) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE collections SET dimension = ? WHERE name = ?`, dimension, collection,
	); err != nil {
		return fmt.Errorf("size collection %s: %w", collection, err)
	}
	return nil
}

// Dimension returns the collection dimension, 0 before the first Add.
func (b *Base) Dimension() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dimension
}

func (b *Base) Add(
	ctx context.Context,
	text string,
	embedding []float32,
	metadata models.Metadata,
) (string, error) {
	meta, err := storage.NormalizeMetadata(metadata)
	if err != nil {
		return "", err
	}
	metaJSON, err := EncodeMetadata(meta)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := storage.CheckEmbedding(b.dimension, embedding); err != nil {
		return "", err
	}
	blob, err := b.Encode(embedding)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	sized := b.dimension == 0
	if sized {
		if err := setDimension(ctx, tx, b.Collection, len(embedding)); err != nil {
			_ = tx.Rollback()
			return "", err
		}
	}
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, collection, text, metadata, embedding) VALUES(?, ?, ?, ?, ?)`,
		id, b.Collection, text, metaJSON, blob,
	); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("insert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	if sized {
		b.dimension = len(embedding)
	}
	return id, nil
}

func (b *Base) GetByPredicate(ctx context.Context, pred storage.Predicate) ([]models.Document, error) {
	where, args, err := WhereClause(b.Collection, pred)
	if err != nil {
		return nil, err
	}
	rows, err := b.DB.QueryContext(ctx,
		`SELECT id, text, metadata FROM documents WHERE `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var meta string
		if err := rows.Scan(&doc.ID, &doc.Text, &meta); err != nil {
			return nil, err
		}
		if doc.Metadata, err = DecodeMetadata(meta); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (b *Base) Count(ctx context.Context) (int, error) {
	var n int
	err := b.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, b.Collection,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// PrepareQuery runs the checks shared by every similarity query. ok is false
// when the result is empty without touching the vectors.
func (b *Base) PrepareQuery(ctx context.Context, embedding []float32, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	n, err := b.Count(ctx)
	if err != nil || n == 0 {
		return false, err
	}
	if err := storage.CheckEmbedding(b.Dimension(), embedding); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Base) Close() error { return b.DB.Close() }
