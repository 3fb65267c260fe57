package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the running application.
type AppInfo struct {
	Name        string `yaml:"name"`        // Application name
	Version     string `yaml:"version"`     // Application version
	Environment string `yaml:"environment"` // "development" or "production"
}

// LoggerConfig configures the structured logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "gemini" or "openai"
	Model    string `yaml:"model"`    // Model name, e.g. "gemini-2.0-flash"
	APIKey   string `yaml:"apiKey"`   // May be overridden by env, see Load
}

// EmbeddingConfig selects and configures the embedding provider.
// The same provider/model must be used for indexing and querying within
// one deployment, otherwise query vectors are incomparable.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "gemini", "openai" or "ollama"
	Model    string `yaml:"model"`    // Embedding model name
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"` // Only used by the ollama provider
	Dim      int    `yaml:"dim"`     // Vector dimension of the chosen model
}

// MilvusConfig holds the vector store connection settings.
type MilvusConfig struct {
	Address string `yaml:"address"` // Milvus service address
}

// RedisConfig holds the session registry connection settings.
type RedisConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	SessionTTL int    `yaml:"sessionTTL"` // Session lifetime in seconds
}

// MinIOConfig holds the filled-document archive settings. The archive is
// optional; when disabled, filled files are only returned to the caller.
type MinIOConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// SearchConfig configures the web search capability.
type SearchConfig struct {
	Endpoint   string `yaml:"endpoint"`   // Override for tests; default DuckDuckGo
	MaxResults int    `yaml:"maxResults"` // Result snippets fed to the model
	TimeoutSec int    `yaml:"timeoutSec"` // HTTP timeout in seconds
}

// IngestConfig configures document chunking.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunkSize"`    // Tokens per segment
	ChunkOverlap int `yaml:"chunkOverlap"` // Token overlap between segments
}

// ServerConfig configures the HTTP edge.
type ServerConfig struct {
	Address string `yaml:"address"` // Listen address, e.g. ":8080"
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	Redis     RedisConfig     `yaml:"redis"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
}

// Load reads and parses the YAML configuration at path. API keys can be
// kept out of the file and supplied via AUTOFILL_LLM_API_KEY and
// AUTOFILL_EMBEDDING_API_KEY instead.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if v := os.Getenv("AUTOFILL_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AUTOFILL_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 1024
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		c.Ingest.ChunkOverlap = 256
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 5
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 15
	}
	if c.Redis.SessionTTL <= 0 {
		c.Redis.SessionTTL = 3600
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Embedding.Dim <= 0 {
		c.Embedding.Dim = 768
	}
}
