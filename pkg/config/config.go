package config

// Config represents the top-level configuration for the Engram library.
type Config struct {
	// Store configures record and embedding persistence
	Store StoreConfig `yaml:"store"`

	// Embedding configures the embedding provider
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Detector configures the information detector thresholds and weights
	Detector DetectorConfig `yaml:"detector"`

	// Retrieval configures ranking defaults and blend weights
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Scripting configures the Lua hook engine
	Scripting ScriptingConfig `yaml:"scripting"`

	// Logging configures the logging behavior
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	// Type specifies the record store backend ("boltdb", "sqlite", "postgres", "mock")
	Type string `yaml:"type"`

	// BoltDB configures BoltDB record storage
	BoltDB BoltDBConfig `yaml:"boltdb"`

	// SQLite configures SQLite record storage
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures PostgreSQL record storage
	Postgres PostgresConfig `yaml:"postgres"`

	// Vector configures the chromem-go embedding store
	Vector VectorConfig `yaml:"vector"`

	// CacheSize bounds the in-memory read cache (records)
	CacheSize int `yaml:"cache_size"`
}

// BoltDBConfig configures BoltDB record storage.
type BoltDBConfig struct {
	// Path is the database file path
	Path string `yaml:"path"`
}

// SQLiteConfig configures SQLite record storage.
type SQLiteConfig struct {
	// Path is the database file path
	Path string `yaml:"path"`
}

// PostgresConfig configures PostgreSQL record storage.
type PostgresConfig struct {
	// DSN is the connection string; ${POSTGRES_URL} is substituted
	DSN string `yaml:"dsn"`
}

// VectorConfig configures the chromem-go embedding store.
type VectorConfig struct {
	// Collection is the collection name to use
	Collection string `yaml:"collection"`

	// StoragePath is the path for on-disk persistent storage
	// (if empty, in-memory is used)
	StoragePath string `yaml:"storage_path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider selects the embedder ("simple", "openai", "none")
	Provider string `yaml:"provider"`

	// Dimensions is the fixed embedding vector length
	Dimensions int `yaml:"dimensions"`

	// TimeoutMs bounds a single embedding call; on timeout the record is
	// stored without an embedding and search falls back to keyword mode
	TimeoutMs int `yaml:"timeout_ms"`

	// OpenAI configures the OpenAI embedding adapter
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures OpenAI integration.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string `yaml:"api_key"`

	// Model is the embedding model, e.g. "text-embedding-3-small"
	Model string `yaml:"model"`

	// BaseURL overrides the API base URL (for testing)
	BaseURL string `yaml:"base_url"`
}

// DetectorConfig configures the information detector. Zero values mean
// "use the documented default"; the weights are deliberately configuration,
// not hidden constants.
type DetectorConfig struct {
	// DeclarativeThreshold is the fraction of declarative patterns that
	// must match for a text to count as declarative
	DeclarativeThreshold float64 `yaml:"declarative_threshold"`

	// StoreThreshold is the importance floor for storing any text
	StoreThreshold float64 `yaml:"store_threshold"`

	// DeclarativeStoreThreshold is the lower importance floor applied
	// to declarative text
	DeclarativeStoreThreshold float64 `yaml:"declarative_store_threshold"`

	// Weights are the additive importance indicator weights
	Weights ImportanceWeights `yaml:"weights"`
}

// ImportanceWeights are the additive importance scoring factors.
type ImportanceWeights struct {
	Number           float64 `yaml:"number"`
	Date             float64 `yaml:"date"`
	Name             float64 `yaml:"name"`
	Place            float64 `yaml:"place"`
	LongText         float64 `yaml:"long_text"`
	MultipleEntities float64 `yaml:"multiple_entities"`
}

// RetrievalConfig configures ranking behavior.
type RetrievalConfig struct {
	// DefaultLimit caps search results when the caller doesn't say
	DefaultLimit int `yaml:"default_limit"`

	// RelatedLimit caps related-memory results
	RelatedLimit int `yaml:"related_limit"`

	// MinRelatedness drops related-memory candidates below this score
	MinRelatedness float64 `yaml:"min_relatedness"`

	// RecencyWindowDays is the age at which the recency boost reaches zero
	RecencyWindowDays float64 `yaml:"recency_window_days"`

	// Weights are the relevance blend weights. The blend is an inherited
	// heuristic; the weights are exposed rather than hard-coded because
	// no measured objective backs the defaults.
	Weights BlendWeights `yaml:"weights"`
}

// BlendWeights are the relevance blend weights applied on top of the
// similarity score.
type BlendWeights struct {
	Importance    float64 `yaml:"importance"`
	Recency       float64 `yaml:"recency"`
	CategoryMatch float64 `yaml:"category_match"`
}

// ScriptingConfig configures the Lua hook engine.
type ScriptingConfig struct {
	// Enabled turns hook execution on
	Enabled bool `yaml:"enabled"`

	// Paths is a list of directories containing Lua scripts
	Paths []string `yaml:"paths"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is the logging level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the output format ("text", "json")
	Format string `yaml:"format"`
}
