package memory

import (
	"context"
	"errors"
	"sync"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Re-upserting an id replaces its entry in place.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	docs      []domain.Document
	index     map[string]int
}

func NewStorage() *Storage { return &Storage{index: make(map[string]int)} }

func (s *Storage) IDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{}, len(s.docs))
	for _, d := range s.docs {
		ids[d.ID] = struct{}{}
	}
	return ids, nil
}

func (s *Storage) Upsert(_ context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return vectorstore.ErrLengthMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dim := s.dimension
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) == 0 {
			return errors.New("empty vector")
		}
		if len(v) != dim {
			return errors.New("vector dimension mismatch")
		}
	}
	s.dimension = dim
	for i, d := range docs {
		if j, ok := s.index[d.ID]; ok {
			s.docs[j] = d
			s.vectors[j] = vectors[i]
			continue
		}
		s.index[d.ID] = len(s.docs)
		s.docs = append(s.docs, d)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorstore.TopK(vector, s.docs, s.vectors, topK), nil
}

// Len reports the number of stored entries.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Storage) Close() error { return nil }

var _ domain.VectorStore = (*Storage)(nil)
