// Package sqlite is a persistent vector store on a local SQLite file. Vectors
// are stored as BLOBs and searched by brute-force cosine similarity, which is
// adequate for corpora of a few thousand lines.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

var (
	// ErrModelMismatch is returned when a collection was built with a
	// different embedding model than the one it is opened with.
	ErrModelMismatch = errors.New("embedding model mismatch")
	// ErrDimensionMismatch is returned when upserted vectors do not match the
	// collection's dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name            TEXT PRIMARY KEY,
    embedding_model TEXT NOT NULL,
    dimension       INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    content    TEXT NOT NULL,
    embedding  BLOB,
    PRIMARY KEY(collection, id)
);
`

// Config locates the database file and collection.
type Config struct {
	// Path is the database file. ":memory:" keeps everything in process.
	Path       string
	Collection string
	// Model names the embedder the collection's vectors come from.
	Model string
}

// Storage implements domain.VectorStore on SQLite.
type Storage struct {
	db         *sqlx.DB
	collection string
	dimension  int
}

type docRow struct {
	ID        string `db:"id"`
	Content   string `db:"content"`
	Embedding []byte `db:"embedding"`
}

// Open opens (creating if needed) the database and registers the collection.
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	s := &Storage{db: db, collection: cfg.Collection}
	if err := s.register(ctx, cfg.Model); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) register(ctx context.Context, model string) error {
	var row struct {
		Model     string `db:"embedding_model"`
		Dimension int    `db:"dimension"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT embedding_model, dimension FROM collections WHERE name = ?`, s.collection)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `INSERT INTO collections(name, embedding_model, dimension) VALUES(?, ?, 0)`, s.collection, model)
		return err
	case err != nil:
		return err
	}
	if model != "" && row.Model != model {
		return fmt.Errorf("%w: collection %q was built with %q, not %q", ErrModelMismatch, s.collection, row.Model, model)
	}
	s.dimension = row.Dimension
	return nil
}

// IDs returns every document id in the collection.
func (s *Storage) IDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM documents WHERE collection = ?`, s.collection); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// Upsert writes all documents in one transaction.
func (s *Storage) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return vectorstore.ErrLengthMismatch
	}
	if len(docs) == 0 {
		return nil
	}
	dim := s.dimension
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: got %d, collection has %d", ErrDimensionMismatch, len(v), dim)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
INSERT INTO documents(collection, id, content, embedding) VALUES(?, ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET content = excluded.content, embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range docs {
		if _, err := stmt.ExecContext(ctx, s.collection, d.ID, d.Text, vectorstore.EncodeEmbedding(vectors[i])); err != nil {
			return err
		}
	}
	if dim != s.dimension {
		if _, err := tx.ExecContext(ctx, `UPDATE collections SET dimension = ? WHERE name = ?`, dim, s.collection); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.dimension = dim
	return nil
}

// Query ranks every stored vector against vector. Ties keep insertion order.
func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	var rows []docRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, content, embedding FROM documents WHERE collection = ? ORDER BY rowid`, s.collection); err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(rows))
	vecs := make([][]float32, len(rows))
	for i, r := range rows {
		v, err := vectorstore.DecodeEmbedding(r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", r.ID, err)
		}
		docs[i] = domain.Document{ID: r.ID, Text: r.Content}
		vecs[i] = v
	}
	return vectorstore.TopK(vector, docs, vecs, topK), nil
}

// Close releases the database handle.
func (s *Storage) Close() error { return s.db.Close() }

var _ domain.VectorStore = (*Storage)(nil)
