package vectorstore

import (
	"math"
	"testing"

	"ragchat/internal/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopK_StableTies(t *testing.T) {
	docs := []domain.Document{{ID: "0"}, {ID: "1"}, {ID: "2"}, {ID: "3"}}
	vecs := [][]float32{{0, 1}, {0, 1}, {1, 0}, {0, 1}}
	out := TopK([]float32{1, 0}, docs, vecs, 3)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	got := []string{out[0].Document.ID, out[1].Document.ID, out[2].Document.ID}
	want := []string{"2", "0", "1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestTopK_Bounds(t *testing.T) {
	if out := TopK([]float32{1}, nil, nil, 2); out != nil {
		t.Errorf("empty candidates should yield nil, got %v", out)
	}
	docs := []domain.Document{{ID: "0"}}
	if out := TopK([]float32{1}, docs, [][]float32{{1}}, 5); len(out) != 1 {
		t.Errorf("k larger than candidates: len = %d, want 1", len(out))
	}
}

func TestEncodeDecodeEmbedding(t *testing.T) {
	orig := []float32{0, 1.5, -2.25, 3.75}
	decoded, err := DecodeEmbedding(EncodeEmbedding(orig))
	if err != nil {
		t.Fatalf("DecodeEmbedding failed: %v", err)
	}
	for i := range orig {
		if decoded[i] != orig[i] {
			t.Fatalf("decoded[%d] = %v, want %v", i, decoded[i], orig[i])
		}
	}
	if _, err := DecodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
