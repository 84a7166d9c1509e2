package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

const (
	DefaultTopK         = 2
	DefaultMaxTokens    = 50
	DefaultModel        = "mixtral-8x7b-32768"
	DefaultSystemPrompt = "You are a helpful assistant."
)

// Deps holds the external service handles. It is built once at startup and
// shared by synchronization and querying.
type Deps struct {
	Embedder  domain.Embedder
	Store     domain.VectorStore
	Completer domain.Completer
}

// Options tunes the query pipeline. Zero values fall back to the defaults.
type Options struct {
	TopK         int
	Model        string
	MaxTokens    int
	SystemPrompt string
	Logger       *slog.Logger
}

// SyncReport describes one reconciliation of the corpus with the store.
type SyncReport struct {
	Lines    int
	Existing int
	Inserted []string
}

// Answer is the outcome of one query.
type Answer struct {
	Text    string
	Context string
	Prompt  string
	Sources []domain.SearchResult
}

type RAGServiceImpl struct {
	deps Deps
	opts Options
	log  *slog.Logger
	mu   sync.RWMutex
}

func NewRAGService(deps Deps, opts Options) *RAGServiceImpl {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &RAGServiceImpl{deps: deps, opts: opts, log: log}
}

// Sync embeds and stores every corpus line whose index is not yet in the
// store, in a single batch. Lines already present are never re-embedded.
func (s *RAGServiceImpl) Sync(ctx context.Context, lines []string) (SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := SyncReport{Lines: len(lines)}
	existing, err := s.deps.Store.IDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list stored ids: %w", err)
	}

	var docs []domain.Document
	var texts []string
	for idx, line := range lines {
		id := strconv.Itoa(idx)
		if _, ok := existing[id]; ok {
			report.Existing++
			continue
		}
		docs = append(docs, domain.Document{ID: id, Text: line})
		texts = append(texts, line)
	}
	if len(docs) == 0 {
		s.log.Info("corpus in sync", "lines", report.Lines, "existing", report.Existing)
		return report, nil
	}

	vectors, err := s.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return report, fmt.Errorf("embed %d documents: %w", len(texts), err)
	}
	if len(vectors) != len(docs) {
		return report, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}
	if err := s.deps.Store.Upsert(ctx, docs, vectors); err != nil {
		return report, fmt.Errorf("upsert %d documents: %w", len(docs), err)
	}

	report.Inserted = make([]string, len(docs))
	for i, d := range docs {
		report.Inserted[i] = d.ID
	}
	s.log.Info("corpus synced", "lines", report.Lines, "existing", report.Existing, "inserted", len(report.Inserted))
	return report, nil
}

// Ask answers query from the top matching documents. Completion failures are
// returned as *completion.Error alongside the partially filled Answer. Other
// errors come from embedding or retrieval.
func (s *RAGServiceImpl) Ask(ctx context.Context, query string) (*Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vec, err := s.deps.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.deps.Store.Query(ctx, vec, s.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	ans := &Answer{Sources: results}
	ans.Context = BuildContext(results)
	ans.Prompt = BuildPrompt(ans.Context, query)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Document.ID
	}
	s.log.Debug("retrieved context", "query_len", len(query), "ids", ids)

	text, err := s.deps.Completer.Complete(ctx, domain.CompletionRequest{
		System:    s.opts.SystemPrompt,
		Prompt:    ans.Prompt,
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
	})
	if err != nil {
		s.log.Warn("completion failed", "error", err)
		return ans, completion.Wrap(completion.ErrKindProvider, err)
	}
	ans.Text = text
	return ans, nil
}

// BuildContext joins the retrieved texts with single spaces, in store order.
func BuildContext(results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Document.Text
	}
	return strings.Join(texts, " ")
}

// BuildPrompt places context and query into the fixed answer template.
func BuildPrompt(contextText, query string) string {
	return fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nAnswer:", contextText, query)
}

// ResponseText converts an Ask result into the string shown to users.
// Completion failures become an inline message; any other error is returned.
func ResponseText(ans *Answer, err error) (string, error) {
	var ce *completion.Error
	if errors.As(err, &ce) {
		return "Error generating response: " + ce.Error(), nil
	}
	if err != nil {
		return "", err
	}
	return ans.Text, nil
}
