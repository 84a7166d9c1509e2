package qdrant

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

const (
	textKey       = "text"
	scrollPageLen = 256
)

// Config contains connection details for a Qdrant instance (gRPC port).
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Storage keeps each line as a point whose numeric id is the line index.
// The collection is created with cosine distance on the first upsert.
type Storage struct {
	client     *qdrant.Client
	collection string
	ready      bool
}

// NewStorage dials Qdrant. The connection is lazy, so errors surface on first use.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, err
	}
	return &Storage{client: client, collection: cfg.Collection}, nil
}

func (s *Storage) exists(ctx context.Context) (bool, error) {
	if s.ready {
		return true, nil
	}
	ok, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, err
	}
	s.ready = ok
	return ok, nil
}

func (s *Storage) ensure(ctx context.Context, dimension int) error {
	ok, err := s.exists(ctx)
	if err != nil || ok {
		return err
	}
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}
	s.ready = true
	return nil
}

// IDs scrolls through every point id. A missing collection has no ids.
func (s *Storage) IDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return ids, err
	}
	var offset *qdrant.PointId
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageLen)),
			WithPayload:    qdrant.NewWithPayload(false),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		if err != nil {
			return nil, err
		}
		var last uint64
		for _, p := range points {
			last = p.GetId().GetNum()
			ids[strconv.FormatUint(last, 10)] = struct{}{}
		}
		if len(points) < scrollPageLen {
			return ids, nil
		}
		// Scroll is ordered by id and the offset is inclusive.
		offset = qdrant.NewIDNum(last + 1)
	}
}

func (s *Storage) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return vectorstore.ErrLengthMismatch
	}
	if len(docs) == 0 {
		return nil
	}
	if err := s.ensure(ctx, len(vectors[0])); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		id, err := PointID(d.ID)
		if err != nil {
			return err
		}
		points[i] = &qdrant.PointStruct{
			Id:      id,
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{textKey: d.Text}),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return nil, err
	}
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp))
	for _, p := range resp {
		doc := domain.Document{ID: strconv.FormatUint(p.GetId().GetNum(), 10)}
		if v, ok := p.GetPayload()[textKey]; ok {
			doc.Text = v.GetStringValue()
		}
		results = append(results, domain.SearchResult{Document: doc, Score: float64(p.GetScore())})
	}
	return results, nil
}

func (s *Storage) Close() error { return s.client.Close() }

// PointID converts a line-index document id into a numeric Qdrant point id.
func PointID(id string) (*qdrant.PointId, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("qdrant: document id %q is not a line index: %w", id, err)
	}
	return qdrant.NewIDNum(n), nil
}

var _ domain.VectorStore = (*Storage)(nil)
