package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retrieval.TopK != 2 {
		t.Errorf("TopK = %d, want 2", cfg.Retrieval.TopK)
	}
	if cfg.Completion.MaxTokens != 50 {
		t.Errorf("MaxTokens = %d, want 50", cfg.Completion.MaxTokens)
	}
	if cfg.Completion.Model != "mixtral-8x7b-32768" {
		t.Errorf("Model = %q", cfg.Completion.Model)
	}
	if cfg.Corpus.Path != "documents.txt" {
		t.Errorf("Corpus.Path = %q", cfg.Corpus.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadDefault_WritesNothing(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty when no config exists", path)
	}
	if cfg.Retrieval.TopK != DefaultTopK {
		t.Errorf("TopK = %d, want default", cfg.Retrieval.TopK)
	}
	userPath, err := UserConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(userPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadDefault wrote %s", userPath)
	}
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("retrieval:\n  top_k: 4\nembedder:\n  type: openai\nvector_store:\n  type: memory\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("TopK = %d, want 4", cfg.Retrieval.TopK)
	}
	if cfg.Embedder.OpenAI == nil || cfg.Embedder.OpenAI.BatchSize != 32 {
		t.Errorf("openai embedder defaults not applied: %+v", cfg.Embedder.OpenAI)
	}
	if cfg.Completion.APIKeyEnv != "GROQ_API_KEY" {
		t.Errorf("APIKeyEnv = %q", cfg.Completion.APIKeyEnv)
	}
	if cfg.VectorStore.SQLite != nil {
		t.Errorf("sqlite section should stay empty for memory store")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("retrieval: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Addr = ":9000"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Server.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", got.Server.Addr)
	}
}

func TestAPIKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Completion.APIKeyEnv = "RAGCHAT_TEST_KEY"

	t.Setenv("RAGCHAT_TEST_KEY", "")
	if _, err := cfg.APIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("APIKey() error = %v, want ErrMissingAPIKey", err)
	}

	t.Setenv("RAGCHAT_TEST_KEY", "secret")
	key, err := cfg.APIKey()
	if err != nil {
		t.Fatalf("APIKey() failed: %v", err)
	}
	if key != "secret" {
		t.Errorf("APIKey() = %q, want secret", key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "bert" }},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Type = "chroma" }},
		{"qdrant without host", func(c *AppConfig) { c.VectorStore.Type = "qdrant" }},
		{"zero top k", func(c *AppConfig) { c.Retrieval.TopK = 0 }},
		{"zero max tokens", func(c *AppConfig) { c.Completion.MaxTokens = 0 }},
		{"unknown summarizer", func(c *AppConfig) { c.Summarizer.Type = "lsa" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
