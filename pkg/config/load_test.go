package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "boltdb", cfg.Store.Type)
	assert.Equal(t, "./data/engram.bolt.db", cfg.Store.BoltDB.Path)
	assert.Equal(t, 1000, cfg.Store.CacheSize)
	assert.Equal(t, "memories", cfg.Store.Vector.Collection)
	assert.Equal(t, "simple", cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 5000, cfg.Embedding.TimeoutMs)
	assert.InDelta(t, 0.3, cfg.Detector.StoreThreshold, 1e-9)
	assert.InDelta(t, 0.4, cfg.Detector.Weights.Name, 1e-9)
}

func TestLoadFromBytes_FullConfig(t *testing.T) {
	yaml := `
store:
  type: sqlite
  sqlite:
    path: /tmp/test.db
  cache_size: 50
embedding:
  provider: openai
  dimensions: 1536
  openai:
    api_key: sk-test
retrieval:
  default_limit: 3
scripting:
  enabled: true
  paths:
    - ./scripts
logging:
  level: debug
  format: json
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/tmp/test.db", cfg.Store.SQLite.Path)
	assert.Equal(t, 50, cfg.Store.CacheSize)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.OpenAI.APIKey)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.OpenAI.Model)
	assert.Equal(t, 3, cfg.Retrieval.DefaultLimit)
	assert.True(t, cfg.Scripting.Enabled)
	assert.Equal(t, []string{"./scripts"}, cfg.Scripting.Paths)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromBytes_InvalidStoreType(t *testing.T) {
	_, err := LoadFromBytes([]byte("store:\n  type: cassandra\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store type")
}

func TestLoadFromBytes_PostgresRequiresDSN(t *testing.T) {
	_, err := LoadFromBytes([]byte("store:\n  type: postgres\n"))
	require.Error(t, err)
}

func TestLoadFromBytes_PostgresURLSubstitution(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/engram_test")
	t.Setenv("ENGRAM_POSTGRES_URL", "")

	cfg, err := LoadFromBytes([]byte("store:\n  type: postgres\n  postgres:\n    dsn: ${POSTGRES_URL}\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/engram_test", cfg.Store.Postgres.DSN)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("ENGRAM_LOG_LEVEL", "error")

	cfg, err := LoadFromBytes([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Embedding.OpenAI.APIKey)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile("/no/such/config.yaml")
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "boltdb", cfg.Store.Type)
	assert.Equal(t, "simple", cfg.Embedding.Provider)
}
