package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "store:\n  address: localhost:19530\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != ":8080" {
		t.Errorf("expected default port :8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ConcurrentRequestPerWorker != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Server.ConcurrentRequestPerWorker)
	}
	if cfg.Store.EmbeddingDim != 768 {
		t.Errorf("expected default embedding dim 768, got %d", cfg.Store.EmbeddingDim)
	}
	if cfg.Store.MetricType != "IP" {
		t.Errorf("expected default metric IP, got %s", cfg.Store.MetricType)
	}
	if cfg.Preprocessor.SplitBy != "sentence" || cfg.Preprocessor.SplitLength != 50 {
		t.Errorf("expected sentence/50 split defaults, got %s/%d", cfg.Preprocessor.SplitBy, cfg.Preprocessor.SplitLength)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "store:\n  address: localhost:19530\nembedding:\n  provider: ollama\n")

	t.Setenv("DOCINDEX_STORE_ADDRESS", "milvus.internal:19530")
	t.Setenv("DOCINDEX_EMBEDDING_API_KEY", "secret")
	t.Setenv("DOCINDEX_CONCURRENT_REQUEST_PER_WORKER", "8")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Store.Address != "milvus.internal:19530" {
		t.Errorf("expected env address override, got %s", cfg.Store.Address)
	}
	if cfg.Embedding.APIKey != "secret" {
		t.Errorf("expected env api key override, got %s", cfg.Embedding.APIKey)
	}
	if cfg.Server.ConcurrentRequestPerWorker != 8 {
		t.Errorf("expected env concurrency override, got %d", cfg.Server.ConcurrentRequestPerWorker)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
