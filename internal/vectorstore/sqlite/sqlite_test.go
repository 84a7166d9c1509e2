package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ragchat/internal/domain"
)

func TestStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "vectors.sqlite")

	s, err := Open(ctx, Config{Path: path, Collection: "documents", Model: "m1"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	docs := []domain.Document{{ID: "0", Text: "cats"}, {ID: "1", Text: "sky"}}
	if err := s.Upsert(ctx, docs, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(ctx, Config{Path: path, Collection: "documents", Model: "m1"})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("IDs failed: %v", err)
	}
	if _, ok := ids["1"]; !ok || len(ids) != 2 {
		t.Fatalf("IDs = %v", ids)
	}
	out, err := s.Query(ctx, []float32{0, 1}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(out) != 2 || out[0].Document.Text != "sky" {
		t.Fatalf("Query = %+v", out)
	}
	if err := s.Upsert(ctx, []domain.Document{{ID: "2", Text: "x"}}, [][]float32{{1, 2, 3}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Upsert error = %v, want ErrDimensionMismatch", err)
	}
}

func TestOpen_ModelMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.sqlite")
	s, err := Open(ctx, Config{Path: path, Model: "hashing-384"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = s.Close()

	if _, err := Open(ctx, Config{Path: path, Model: "openai:text-embedding-3-small"}); !errors.Is(err, ErrModelMismatch) {
		t.Fatalf("Open error = %v, want ErrModelMismatch", err)
	}
}

func TestStorage_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.sqlite")
	a, err := Open(ctx, Config{Path: path, Collection: "a", Model: "m"})
	if err != nil {
		t.Fatalf("Open a failed: %v", err)
	}
	if err := a.Upsert(ctx, []domain.Document{{ID: "0", Text: "only in a"}}, [][]float32{{1}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	_ = a.Close()

	b, err := Open(ctx, Config{Path: path, Collection: "b", Model: "m"})
	if err != nil {
		t.Fatalf("Open b failed: %v", err)
	}
	defer b.Close()
	ids, _ := b.IDs(ctx)
	if len(ids) != 0 {
		t.Errorf("collection b IDs = %v, want empty", ids)
	}
}

func TestStorage_UpsertOverwritesAndEmptyQuery(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Path: ":memory:", Model: "m"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	out, err := s.Query(ctx, []float32{1}, 2)
	if err != nil {
		t.Fatalf("Query on empty store failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("Query on empty store = %v", out)
	}

	_ = s.Upsert(ctx, []domain.Document{{ID: "0", Text: "old"}}, [][]float32{{1}})
	_ = s.Upsert(ctx, []domain.Document{{ID: "0", Text: "new"}}, [][]float32{{1}})
	out, _ = s.Query(ctx, []float32{1}, 5)
	if len(out) != 1 || out[0].Document.Text != "new" {
		t.Errorf("Query = %+v", out)
	}
}
