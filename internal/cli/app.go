// Package cli wires configuration, external services and the user
// interfaces into the ragchat commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ragchat/internal/completion"
	"ragchat/internal/config"
	"ragchat/internal/corpus"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/hashing"
	"ragchat/internal/embedding/openai"
	"ragchat/internal/service"
	"ragchat/internal/summarizer"
	"ragchat/internal/vectorstore/memory"
	"ragchat/internal/vectorstore/qdrant"
	"ragchat/internal/vectorstore/sqlite"
)

// app is everything a command needs after startup.
type app struct {
	cfg      *config.AppConfig
	log      *slog.Logger
	deps     service.Deps
	svc      *service.RAGServiceImpl
	report   service.SyncReport
	overview string
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig returns the config and, when no file was found, the path its
// defaults should be saved to once the startup checks pass.
func loadConfig(path string) (*config.AppConfig, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, "", err
	}
	cfg, found, err := config.LoadDefault()
	if err != nil || found != "" {
		return cfg, "", err
	}
	userPath, err := config.UserConfigPath()
	if err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// newApp loads configuration, connects the external services and
// synchronizes the corpus. Missing credentials or a missing corpus are
// returned as errors before anything is embedded.
func newApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	log := newLogger(logOut, opts.verbose)

	cfg, savePath, err := loadConfig(opts.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}
	lines, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	if savePath != "" {
		if err := config.Save(savePath, cfg); err != nil {
			log.Warn("write default config", "path", savePath, "error", err)
		} else {
			log.Info("wrote default config", "path", savePath)
		}
	}

	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg, emb)
	if err != nil {
		return nil, err
	}
	llm, err := completion.NewClient(completion.Config{
		BaseURL:           cfg.Completion.BaseURL,
		APIKey:            apiKey,
		Timeout:           time.Duration(cfg.Completion.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Completion.RequestsPerSecond,
		Logger:            log,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{
		cfg:  cfg,
		log:  log,
		deps: service.Deps{Embedder: emb, Store: store, Completer: llm},
	}
	a.svc = service.NewRAGService(a.deps, service.Options{
		TopK:         cfg.Retrieval.TopK,
		Model:        cfg.Completion.Model,
		MaxTokens:    cfg.Completion.MaxTokens,
		SystemPrompt: cfg.Completion.SystemPrompt,
		Logger:       log,
	})

	log.Debug("components ready", "embedder", emb.Name(), "store", cfg.VectorStore.Type, "model", cfg.Completion.Model)
	a.report, err = a.svc.Sync(ctx, lines)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sync corpus: %w", err)
	}
	a.overview = a.summarize(lines)
	return a, nil
}

func (a *app) summarize(lines []string) string {
	var sum domain.Summarizer
	switch a.cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return ""
	}
	overview, err := sum.Summarize(corpus.Text(lines), a.cfg.Summarizer.MaxSentences)
	if err != nil {
		a.log.Warn("summarize corpus", "error", err)
		return ""
	}
	return overview
}

// watch re-syncs the corpus on file changes until ctx is cancelled.
// It is a no-op unless corpus.watch is enabled.
func (a *app) watch(ctx context.Context) {
	if !a.cfg.Corpus.Watch {
		return
	}
	w := &corpus.Watcher{
		Path:   a.cfg.Corpus.Path,
		Logger: a.log,
		OnChange: func(ctx context.Context, lines []string) error {
			_, err := a.svc.Sync(ctx, lines)
			return err
		},
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			a.log.Error("corpus watcher stopped", "error", err)
		}
	}()
}

func (a *app) Close() error {
	return a.deps.Store.Close()
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing", "":
		dim := config.DefaultDimension
		if cfg.Embedder.Hashing != nil && cfg.Embedder.Hashing.Dimension > 0 {
			dim = cfg.Embedder.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildStore(ctx context.Context, cfg *config.AppConfig, emb domain.Embedder) (domain.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		sc := cfg.VectorStore.SQLite
		if sc == nil {
			sc = &config.SQLiteConfig{Path: config.DefaultSQLitePath, Collection: config.DefaultCollection}
		}
		st, err := sqlite.Open(ctx, sqlite.Config{Path: sc.Path, Collection: sc.Collection, Model: emb.Name()})
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
		return st, nil
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		qc := cfg.VectorStore.Qdrant
		if qc == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		st, err := qdrant.NewStorage(qdrant.Config{
			Host:       qc.Host,
			Port:       qc.Port,
			APIKey:     qc.APIKey,
			UseTLS:     qc.UseTLS,
			Collection: qc.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("connect qdrant: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}
