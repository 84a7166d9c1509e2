package domain

import "context"

// Document is a single line of the corpus. ID is the zero-based line index
// rendered as a decimal string.
type Document struct {
	ID   string
	Text string
}

// SearchResult represents a stored document matched by a query, with the
// store's similarity score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Embedder converts free text into a numeric vector representation.
// The same instance must be used for syncing and querying.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists document vectors and supports similarity search.
type VectorStore interface {
	IDs(ctx context.Context) (map[string]struct{}, error)
	Upsert(ctx context.Context, docs []Document, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Close() error
}

// CompletionRequest is a single chat completion call: one system instruction
// followed by one user prompt.
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string
	MaxTokens int
}

// Completer generates text for a prompt using a hosted model.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
