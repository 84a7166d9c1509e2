package memory

import (
	"context"
	"testing"

	"ragchat/internal/domain"
)

func TestStorage_UpsertIDsQuery(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	docs := []domain.Document{{ID: "0", Text: "x axis"}, {ID: "1", Text: "y axis"}}
	if err := s.Upsert(ctx, docs, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("IDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("IDs = %v, want 2 entries", ids)
	}

	out, err := s.Query(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(out) != 1 || out[0].Document.Text != "y axis" {
		t.Errorf("Query = %+v", out)
	}
}

func TestStorage_UpsertReplacesExistingID(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_ = s.Upsert(ctx, []domain.Document{{ID: "0", Text: "old"}}, [][]float32{{1}})
	_ = s.Upsert(ctx, []domain.Document{{ID: "0", Text: "new"}}, [][]float32{{1}})
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	out, _ := s.Query(ctx, []float32{1}, 5)
	if out[0].Document.Text != "new" {
		t.Errorf("text = %q, want new", out[0].Document.Text)
	}
}

func TestStorage_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	if err := s.Upsert(ctx, []domain.Document{{ID: "0"}}, nil); err == nil {
		t.Error("expected length mismatch error")
	}
	_ = s.Upsert(ctx, []domain.Document{{ID: "0"}}, [][]float32{{1, 2}})
	if err := s.Upsert(ctx, []domain.Document{{ID: "1"}}, [][]float32{{1}}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestStorage_RejectsEmptyVectors(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	docs := []domain.Document{{ID: "0"}, {ID: "1"}, {ID: "2"}}
	if err := s.Upsert(ctx, docs, [][]float32{nil, {1, 2}, {1, 2, 3}}); err == nil {
		t.Fatal("expected error for empty leading vector")
	}
	if err := s.Upsert(ctx, docs[1:], [][]float32{{1, 2}, nil}); err == nil {
		t.Fatal("expected error for empty vector")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after rejected batches, want 0", s.Len())
	}
}

func TestStorage_QueryEmpty(t *testing.T) {
	out, err := NewStorage().Query(context.Background(), []float32{1}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Query on empty store = %v", out)
	}
}
