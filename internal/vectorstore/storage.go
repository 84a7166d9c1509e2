// Package vectorstore holds the similarity and encoding helpers shared by
// the store implementations in its subpackages.
package vectorstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"ragchat/internal/domain"
)

// ErrLengthMismatch is returned by Upsert when documents and vectors differ in count.
var ErrLengthMismatch = errors.New("documents and vectors length mismatch")

// Cosine returns the cosine similarity of a and b. Vectors of different length
// or with zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2))
}

// TopK scores every candidate against query and returns the best k, highest
// score first. Equal scores keep the candidates' original order.
func TopK(query []float32, docs []domain.Document, vectors [][]float32, k int) []domain.SearchResult {
	if k <= 0 || len(docs) == 0 {
		return nil
	}
	idxs := make([]int, len(docs))
	scores := make([]float64, len(docs))
	for i := range docs {
		idxs[i] = i
		scores[i] = Cosine(query, vectors[i])
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	out := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		out = append(out, domain.SearchResult{Document: docs[j], Score: scores[j]})
	}
	return out
}

// EncodeEmbedding encodes vec as little-endian IEEE 754 float32 values
// without a length prefix.
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vectorstore: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
