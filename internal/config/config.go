package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable. Values come from an optional YAML file with
// environment variables layered on top.
type Config struct {
	Port     int    `yaml:"port"`
	DBPath   string `yaml:"dbPath"`
	APIKey   string `yaml:"apiKey"`
	LogLevel string `yaml:"logLevel"`

	OllamaBaseURL  string `yaml:"ollamaBaseUrl"`
	EmbeddingModel string `yaml:"embeddingModel"`
	EmbeddingDim   int    `yaml:"embeddingDim"`
	EmbedTimeoutS  int    `yaml:"embedTimeoutSeconds"`

	// IndexBackend is "exact", "chromem", or "auto" (pick by data size).
	IndexBackend string `yaml:"indexBackend"`

	DefaultThreshold float64 `yaml:"defaultThreshold"`
	DefaultLimit     int     `yaml:"defaultLimit"`

	PendingRetryMins int `yaml:"pendingRetryMinutes"`
	ExportHistoryCap int `yaml:"exportHistoryCap"`
}

// Load reads the optional YAML file named by KSTORE_CONFIG, then applies
// env overrides and validates.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             8742,
		DBPath:           "/data/knowledge.db",
		LogLevel:         "info",
		OllamaBaseURL:    "http://localhost:11434",
		EmbeddingModel:   "nomic-embed-text",
		EmbeddingDim:     768,
		EmbedTimeoutS:    10,
		IndexBackend:     "auto",
		DefaultThreshold: 0.3,
		DefaultLimit:     10,
		PendingRetryMins: 5,
		ExportHistoryCap: 100,
	}

	if path := os.Getenv("KSTORE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = envInt("PORT", cfg.Port)
	cfg.DBPath = envStr("KSTORE_DB_PATH", cfg.DBPath)
	cfg.APIKey = envStr("KSTORE_API_KEY", cfg.APIKey)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)
	cfg.OllamaBaseURL = envStr("OLLAMA_BASE_URL", cfg.OllamaBaseURL)
	cfg.EmbeddingModel = envStr("EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingDim = envInt("EMBEDDING_DIM", cfg.EmbeddingDim)
	cfg.EmbedTimeoutS = envInt("EMBED_TIMEOUT_SECONDS", cfg.EmbedTimeoutS)
	cfg.IndexBackend = envStr("INDEX_BACKEND", cfg.IndexBackend)
	cfg.DefaultThreshold = envFloat("DEFAULT_THRESHOLD", cfg.DefaultThreshold)
	cfg.DefaultLimit = envInt("DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.PendingRetryMins = envInt("PENDING_RETRY_MINUTES", cfg.PendingRetryMins)
	cfg.ExportHistoryCap = envInt("EXPORT_HISTORY_CAP", cfg.ExportHistoryCap)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("KSTORE_DB_PATH must not be empty")
	}
	if c.EmbeddingDim < 1 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.EmbedTimeoutS < 1 {
		return fmt.Errorf("EMBED_TIMEOUT_SECONDS must be positive, got %d", c.EmbedTimeoutS)
	}
	switch c.IndexBackend {
	case "exact", "chromem", "auto":
	default:
		return fmt.Errorf("INDEX_BACKEND must be exact, chromem, or auto, got %q", c.IndexBackend)
	}
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 1 {
		return fmt.Errorf("DEFAULT_THRESHOLD must be in [0, 1], got %f", c.DefaultThreshold)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
