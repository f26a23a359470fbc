package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port                       string `yaml:"port"`                       // Listen address, e.g. ":8080"
	RootPath                   string `yaml:"rootPath"`                   // Prefix the API group is mounted under
	ConcurrentRequestPerWorker int    `yaml:"concurrentRequestPerWorker"` // Max in-flight indexing requests
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type         string `yaml:"type"`         // "milvus" or "memory"
	Address      string `yaml:"address"`      // Milvus service address
	Username     string `yaml:"username"`     // Milvus username (optional)
	Password     string `yaml:"password"`     // Milvus password (optional)
	EmbeddingDim int    `yaml:"embeddingDim"` // Vector dimension, must match the embedding model
	MetricType   string `yaml:"metricType"`   // Similarity metric, e.g. "IP" for dot product
}

// EmbeddingConfig identifies the embedding model by provider and name.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "google", "openai" or "ollama"
	Model    string `yaml:"model"`    // Model name understood by the provider
	APIKey   string `yaml:"apiKey"`   // API key; DOCINDEX_EMBEDDING_API_KEY overrides
	BaseURL  string `yaml:"baseURL"`  // Service base URL for self-hosted providers
}

// ConverterConfig holds the default file converter parameters.
type ConverterConfig struct {
	RemoveNumericTables bool     `yaml:"removeNumericTables"` // Drop numeric-heavy table lines
	ValidLanguages      []string `yaml:"validLanguages"`      // Expected languages, best-effort check
}

// PreprocessorConfig holds the default text cleaning and splitting parameters.
type PreprocessorConfig struct {
	CleanWhitespace              bool   `yaml:"cleanWhitespace"`              // Collapse repeated spaces and tabs
	CleanEmptyLines              bool   `yaml:"cleanEmptyLines"`              // Collapse runs of blank lines
	CleanHeaderFooter            bool   `yaml:"cleanHeaderFooter"`            // Strip repeated page boilerplate
	SplitBy                      string `yaml:"splitBy"`                      // "sentence", "word", "passage" or "token"
	SplitLength                  int    `yaml:"splitLength"`                  // Max units per passage
	SplitOverlap                 int    `yaml:"splitOverlap"`                 // Units shared between consecutive passages
	SplitRespectSentenceBoundary bool   `yaml:"splitRespectSentenceBoundary"` // Keep sentences whole in word mode
}

// ArchiveConfig configures optional archival of raw uploads to MinIO.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`   // When false, uploads are not archived
	Endpoint  string `yaml:"endpoint"`  // MinIO endpoint
	AccessKey string `yaml:"accessKey"` // Access key
	SecretKey string `yaml:"secretKey"` // Secret key; DOCINDEX_ARCHIVE_SECRET_KEY overrides
	Bucket    string `yaml:"bucket"`    // Target bucket
	Secure    bool   `yaml:"secure"`    // Use HTTPS
}

// AppConfig is the root configuration of the indexing service.
type AppConfig struct {
	Server       ServerConfig       `yaml:"server"`
	UploadPath   string             `yaml:"uploadPath"` // Directory uploaded files are spooled to
	LogLevel     string             `yaml:"logLevel"`
	Store        StoreConfig        `yaml:"store"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Converter    ConverterConfig    `yaml:"converter"`
	Preprocessor PreprocessorConfig `yaml:"preprocessor"`
	Archive      ArchiveConfig      `yaml:"archive"`
}

// LoadConfig reads and parses the YAML configuration file at path, applies
// defaults for unset fields and environment overrides for secrets and hosts.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file '%s': %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.RootPath == "" {
		c.Server.RootPath = "/"
	}
	if c.Server.ConcurrentRequestPerWorker <= 0 {
		c.Server.ConcurrentRequestPerWorker = 4
	}
	if c.UploadPath == "" {
		c.UploadPath = "file-upload"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Type == "" {
		c.Store.Type = "milvus"
	}
	if c.Store.EmbeddingDim <= 0 {
		c.Store.EmbeddingDim = 768
	}
	if c.Store.MetricType == "" {
		c.Store.MetricType = "IP"
	}
	if c.Preprocessor.SplitBy == "" {
		c.Preprocessor.SplitBy = "sentence"
	}
	if c.Preprocessor.SplitLength <= 0 {
		c.Preprocessor.SplitLength = 50
	}
}

// applyEnv overrides file-based settings from the environment so that
// deployments can keep credentials out of the config file.
func (c *AppConfig) applyEnv() {
	if v := os.Getenv("DOCINDEX_STORE_ADDRESS"); v != "" {
		c.Store.Address = v
	}
	if v := os.Getenv("DOCINDEX_STORE_PASSWORD"); v != "" {
		c.Store.Password = v
	}
	if v := os.Getenv("DOCINDEX_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("DOCINDEX_ARCHIVE_SECRET_KEY"); v != "" {
		c.Archive.SecretKey = v
	}
	if v := os.Getenv("DOCINDEX_UPLOAD_PATH"); v != "" {
		c.UploadPath = v
	}
	if v := os.Getenv("DOCINDEX_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DOCINDEX_CONCURRENT_REQUEST_PER_WORKER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.ConcurrentRequestPerWorker = n
		}
	}
}
