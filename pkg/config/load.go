package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from a byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvironmentOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a validated configuration with every default applied,
// for callers that construct the library without a config file.
func Default() *Config {
	var config Config
	applyEnvironmentOverrides(&config)
	// validateConfig only fills defaults when no backend type conflicts exist
	_ = validateConfig(&config)
	return &config
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) {
	if dsn := os.Getenv("ENGRAM_POSTGRES_URL"); dsn != "" {
		config.Store.Postgres.DSN = dsn
	} else if dsn := os.Getenv("POSTGRES_URL"); dsn != "" && config.Store.Postgres.DSN == "" {
		config.Store.Postgres.DSN = dsn
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.OpenAI.APIKey = apiKey
	}

	if level := os.Getenv("ENGRAM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// validateConfig validates the configuration and applies defaults.
func validateConfig(config *Config) error {
	// Store backend
	switch strings.ToLower(config.Store.Type) {
	case "", "boltdb", "kv":
		config.Store.Type = "boltdb"
		if config.Store.BoltDB.Path == "" {
			config.Store.BoltDB.Path = "./data/engram.bolt.db"
		}
	case "sqlite":
		if config.Store.SQLite.Path == "" {
			config.Store.SQLite.Path = "./data/engram.db"
		}
	case "postgres":
		if config.Store.Postgres.DSN == "" {
			return fmt.Errorf("postgres DSN is required for postgres store type")
		}
		// ${POSTGRES_URL} substitution for DSNs kept out of config files
		if strings.Contains(config.Store.Postgres.DSN, "${POSTGRES_URL}") {
			config.Store.Postgres.DSN = strings.Replace(
				config.Store.Postgres.DSN, "${POSTGRES_URL}", os.Getenv("POSTGRES_URL"), 1)
		}
	case "mock":
		// In-memory store needs no further validation
	default:
		return fmt.Errorf("unsupported store type: %s", config.Store.Type)
	}

	if config.Store.CacheSize <= 0 {
		config.Store.CacheSize = 1000
	}
	if config.Store.Vector.Collection == "" {
		config.Store.Vector.Collection = "memories"
	}

	// Embedding provider
	switch strings.ToLower(config.Embedding.Provider) {
	case "", "simple":
		config.Embedding.Provider = "simple"
	case "openai":
		if config.Embedding.OpenAI.Model == "" {
			config.Embedding.OpenAI.Model = "text-embedding-3-small"
		}
	case "none":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", config.Embedding.Provider)
	}

	if config.Embedding.Dimensions <= 0 {
		config.Embedding.Dimensions = 768
	}
	if config.Embedding.TimeoutMs <= 0 {
		config.Embedding.TimeoutMs = 5000
	}

	// Detector thresholds and weights
	if config.Detector.DeclarativeThreshold <= 0 {
		config.Detector.DeclarativeThreshold = 0.3
	}
	if config.Detector.StoreThreshold <= 0 {
		config.Detector.StoreThreshold = 0.3
	}
	if config.Detector.DeclarativeStoreThreshold <= 0 {
		config.Detector.DeclarativeStoreThreshold = 0.2
	}
	w := &config.Detector.Weights
	if w.Number <= 0 {
		w.Number = 0.2
	}
	if w.Date <= 0 {
		w.Date = 0.3
	}
	if w.Name <= 0 {
		w.Name = 0.4
	}
	if w.Place <= 0 {
		w.Place = 0.3
	}
	if w.LongText <= 0 {
		w.LongText = 0.1
	}
	if w.MultipleEntities <= 0 {
		w.MultipleEntities = 0.2
	}

	// Retrieval defaults
	if config.Retrieval.DefaultLimit <= 0 {
		config.Retrieval.DefaultLimit = 10
	}
	if config.Retrieval.RelatedLimit <= 0 {
		config.Retrieval.RelatedLimit = 5
	}
	if config.Retrieval.MinRelatedness <= 0 {
		config.Retrieval.MinRelatedness = 0.3
	}
	if config.Retrieval.RecencyWindowDays <= 0 {
		config.Retrieval.RecencyWindowDays = 30
	}
	b := &config.Retrieval.Weights
	if b.Importance <= 0 {
		b.Importance = 0.3
	}
	if b.Recency <= 0 {
		b.Recency = 0.2
	}
	if b.CategoryMatch <= 0 {
		b.CategoryMatch = 0.3
	}

	return nil
}
