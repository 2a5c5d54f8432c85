// Package engram is the main facade for the library: it wires the
// detector, extractor, storage manager, and retrieval engine behind a
// single config-constructed object.
package engram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/engramdev/engram/pkg/config"
	"github.com/engramdev/engram/pkg/consolidator"
	"github.com/engramdev/engram/pkg/detector"
	"github.com/engramdev/engram/pkg/embedding"
	embeddingOpenAI "github.com/engramdev/engram/pkg/embedding/adapters/openai"
	"github.com/engramdev/engram/pkg/embedding/adapters/simple"
	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/extractor"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/memory"
	"github.com/engramdev/engram/pkg/retrieval"
	"github.com/engramdev/engram/pkg/scripting"
	"github.com/engramdev/engram/pkg/store"
	"github.com/engramdev/engram/pkg/store/adapters/kv/boltdb"
	storeMock "github.com/engramdev/engram/pkg/store/adapters/mock"
	"github.com/engramdev/engram/pkg/store/adapters/sqlstore/postgres"
	"github.com/engramdev/engram/pkg/store/adapters/sqlstore/sqlite"
	"github.com/engramdev/engram/pkg/store/adapters/vector/chromem"
)

// IngestResult is the outcome of an Ingest call.
type IngestResult struct {
	// Stored reports whether the text passed the detector gate
	Stored bool `json:"stored"`

	// Record is the stored record when Stored is true
	Record memory.Record `json:"record,omitempty"`

	// Detection carries the detector's verdict either way
	Detection detector.Detection `json:"detection"`
}

// Engram is the implementation of the facade. All operations are safe
// for concurrent use.
type Engram struct {
	detector  *detector.Detector
	extractor extractor.Engine
	manager   *store.Manager
	retrieval *retrieval.Engine
	scripting scripting.Engine
}

// New creates an Engram from pre-built components. Most callers should
// use NewFromConfig; this constructor exists for tests and embedders
// that assemble their own storage.
func New(
	det *detector.Detector,
	ext extractor.Engine,
	manager *store.Manager,
	engine *retrieval.Engine,
	scriptEngine scripting.Engine,
) *Engram {
	return &Engram{
		detector:  det,
		extractor: ext,
		manager:   manager,
		retrieval: engine,
		scripting: scriptEngine,
	}
}

// NewFromConfig builds a fully wired Engram from configuration,
// initializing the record store, embedding store, embedder, and
// optional scripting engine.
func NewFromConfig(cfg *config.Config) (*Engram, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	records, err := initRecordStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize record store: %w", err)
	}

	embeddings, err := initEmbeddingStore(cfg)
	if err != nil {
		records.Close()
		return nil, fmt.Errorf("failed to initialize embedding store: %w", err)
	}

	embedder, err := initEmbedder(cfg)
	if err != nil {
		records.Close()
		embeddings.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	scriptEngine, err := initScriptEngine(cfg)
	if err != nil {
		records.Close()
		embeddings.Close()
		return nil, fmt.Errorf("failed to initialize scripting engine: %w", err)
	}

	embedTimeout := store.DefaultEmbedTimeout
	if cfg.Embedding.TimeoutMs > 0 {
		embedTimeout = time.Duration(cfg.Embedding.TimeoutMs) * time.Millisecond
	}
	manager := store.NewManager(records, embeddings, embedder, store.Config{
		CacheSize:    cfg.Store.CacheSize,
		EmbedTimeout: embedTimeout,
	})
	if err := manager.RebuildIndexes(context.Background()); err != nil {
		log.Warn("failed to rebuild indexes at startup", "error", err)
	}

	engine := retrieval.NewEngine(manager, retrieval.Config{
		DefaultLimit:      cfg.Retrieval.DefaultLimit,
		RelatedLimit:      cfg.Retrieval.RelatedLimit,
		MinRelatedness:    cfg.Retrieval.MinRelatedness,
		RecencyWindowDays: int(cfg.Retrieval.RecencyWindowDays),
		Weights: retrieval.BlendWeights{
			Importance:    cfg.Retrieval.Weights.Importance,
			Recency:       cfg.Retrieval.Weights.Recency,
			CategoryMatch: cfg.Retrieval.Weights.CategoryMatch,
		},
	})

	e := New(
		detector.New(detectorConfig(cfg)),
		extractor.New(),
		manager,
		engine,
		scriptEngine,
	)

	log.Info("engram initialized",
		"store_type", cfg.Store.Type,
		"embedding_provider", cfg.Embedding.Provider,
		"scripting_enabled", cfg.Scripting.Enabled,
	)

	return e, nil
}

// Ingest runs text through the detector gate and, when it is worth
// keeping, extracts structure and stores the resulting record. The
// before_store hook may veto or rewrite the content.
func (e *Engram) Ingest(ctx context.Context, text string) (IngestResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return IngestResult{}, errors.Wrap(errors.ErrValidation, "content cannot be empty")
	}

	det := e.detector.Detect(text)
	result := IngestResult{Detection: det}
	if !det.ShouldStore {
		log.DebugContext(ctx, "text not worth storing",
			"importance", det.ImportanceScore,
			"declarative", det.IsDeclarative,
		)
		return result, nil
	}

	// The scripting hook may veto the store or rewrite the content.
	content, ok := e.runBeforeStore(ctx, text)
	if !ok {
		log.DebugContext(ctx, "before_store hook vetoed store")
		return result, nil
	}

	entities := mergeEntities(det.Entities, e.extractor.Entities(content))

	now := time.Now()
	record := memory.Record{
		ID:              memory.GenerateID(content, now),
		Content:         content,
		Timestamp:       now,
		Categories:      det.Categories,
		IsDeclarative:   det.IsDeclarative,
		ImportanceScore: det.ImportanceScore,
		Confidence:      det.Confidence,
		Entities:        entities,
	}

	stored, err := e.manager.StoreMemory(ctx, record)
	if err != nil {
		return result, err
	}

	e.runAfterStore(ctx, stored)

	result.Stored = true
	result.Record = stored
	return result, nil
}

// Remember stores a caller-constructed record directly, bypassing the
// detector gate. A missing timestamp defaults to now and a missing id
// is derived from content and timestamp; a record without content is
// rejected by the storage layer.
func (e *Engram) Remember(ctx context.Context, record memory.Record) (memory.Record, error) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if record.ID == "" && record.Content != "" {
		record.ID = memory.GenerateID(record.Content, record.Timestamp)
	}
	stored, err := e.manager.StoreMemory(ctx, record)
	if err != nil {
		return memory.Record{}, err
	}
	e.runAfterStore(ctx, stored)
	return stored, nil
}

// Recall fetches a single record by id.
func (e *Engram) Recall(ctx context.Context, id string) (memory.Record, error) {
	return e.manager.RetrieveMemory(ctx, id)
}

// Search ranks stored memories against the query. The before_search
// hook may rewrite the query before ranking.
func (e *Engram) Search(ctx context.Context, query string, opts retrieval.Options) ([]retrieval.Result, error) {
	query = e.runBeforeSearch(ctx, query)

	results, err := e.retrieval.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	e.runAfterSearch(ctx, query, results)
	return results, nil
}

// Related finds memories related to the record with the given id.
func (e *Engram) Related(ctx context.Context, id string, opts retrieval.Options) ([]retrieval.Result, error) {
	return e.retrieval.RelatedMemories(ctx, id, opts)
}

// Forget deletes a record and its embedding. Deleting an unknown id is
// not an error.
func (e *Engram) Forget(ctx context.Context, id string) error {
	return e.manager.DeleteMemory(ctx, id)
}

// Relationships extracts entities and pairwise relationships from text
// without storing anything.
func (e *Engram) Relationships(ctx context.Context, text string) (extractor.Result, error) {
	if strings.TrimSpace(text) == "" {
		return extractor.Result{}, errors.Wrap(errors.ErrValidation, "text cannot be empty")
	}
	return e.extractor.Extract(text), nil
}

// Context retrieves memories relevant to the query and composes them
// into a context block suitable for a downstream generation step.
// Returns an empty string when nothing relevant is stored.
func (e *Engram) Context(ctx context.Context, query string) (string, error) {
	results, err := e.Search(ctx, query, retrieval.Options{Limit: 5})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Context from memory:\n")
	for i, r := range results {
		b.WriteString(fmt.Sprintf("Memory %d: %s\n", i+1, r.Record.Content))
	}
	return b.String(), nil
}

// Consolidate deduplicates the full record set as seen by retrieval.
func (e *Engram) Consolidate(ctx context.Context) ([]memory.Record, error) {
	all, err := e.manager.GetAllMemories(ctx)
	if err != nil {
		return nil, err
	}
	return consolidator.Consolidate(all), nil
}

// Manager exposes the storage manager for adapters that need direct
// access (the HTTP health check reports through it).
func (e *Engram) Manager() *store.Manager {
	return e.manager
}

// Close releases the underlying stores and the scripting engine.
func (e *Engram) Close() error {
	var firstErr error
	if e.scripting != nil {
		if err := e.scripting.Close(); err != nil {
			firstErr = err
		}
	}
	if err := e.manager.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// runBeforeStore executes the before_store hook if present. The hook
// receives the content and may return false (veto) or a replacement
// string. Hook errors are logged and never fail the operation.
func (e *Engram) runBeforeStore(ctx context.Context, content string) (string, bool) {
	if e.scripting == nil || !e.scripting.HasFunction("before_store") {
		return content, true
	}

	result, err := e.scripting.ExecuteFunction(ctx, "before_store", content)
	if err != nil {
		log.WarnContext(ctx, "before_store hook failed", "error", err)
		return content, true
	}

	switch v := result.(type) {
	case bool:
		return content, v
	case string:
		if strings.TrimSpace(v) == "" {
			return content, false
		}
		return v, true
	default:
		return content, true
	}
}

// runAfterStore executes the after_store hook if present.
func (e *Engram) runAfterStore(ctx context.Context, record memory.Record) {
	if e.scripting == nil || !e.scripting.HasFunction("after_store") {
		return
	}
	if _, err := e.scripting.ExecuteFunction(ctx, "after_store", record.ID, record.Content); err != nil {
		log.WarnContext(ctx, "after_store hook failed", "error", err)
	}
}

// runBeforeSearch executes the before_search hook if present; the hook
// may return a rewritten query string.
func (e *Engram) runBeforeSearch(ctx context.Context, query string) string {
	if e.scripting == nil || !e.scripting.HasFunction("before_search") {
		return query
	}

	result, err := e.scripting.ExecuteFunction(ctx, "before_search", query)
	if err != nil {
		log.WarnContext(ctx, "before_search hook failed", "error", err)
		return query
	}

	if rewritten, ok := result.(string); ok && strings.TrimSpace(rewritten) != "" {
		return rewritten
	}
	return query
}

// runAfterSearch executes the after_search hook if present.
func (e *Engram) runAfterSearch(ctx context.Context, query string, results []retrieval.Result) {
	if e.scripting == nil || !e.scripting.HasFunction("after_search") {
		return
	}
	if _, err := e.scripting.ExecuteFunction(ctx, "after_search", query, len(results)); err != nil {
		log.WarnContext(ctx, "after_search hook failed", "error", err)
	}
}

// mergeEntities combines the detector's coarse entities with the
// extractor's, preferring the extractor's richer pass and filling any
// kind it left empty from the detector.
func mergeEntities(coarse, rich memory.Entities) memory.Entities {
	merged := rich
	if len(merged.People) == 0 {
		merged.People = coarse.People
	}
	if len(merged.Places) == 0 {
		merged.Places = coarse.Places
	}
	if len(merged.Organizations) == 0 {
		merged.Organizations = coarse.Organizations
	}
	if len(merged.Dates) == 0 {
		merged.Dates = coarse.Dates
	}
	if len(merged.Money) == 0 {
		merged.Money = coarse.Money
	}
	if len(merged.Numbers) == 0 {
		merged.Numbers = coarse.Numbers
	}
	if len(merged.Percentages) == 0 {
		merged.Percentages = coarse.Percentages
	}
	return merged
}

// detectorConfig maps the library configuration onto the detector's,
// falling back to documented defaults for zero values.
func detectorConfig(cfg *config.Config) detector.Config {
	dc := detector.DefaultConfig()
	if cfg.Detector.DeclarativeThreshold > 0 {
		dc.DeclarativeThreshold = cfg.Detector.DeclarativeThreshold
	}
	if cfg.Detector.StoreThreshold > 0 {
		dc.StoreThreshold = cfg.Detector.StoreThreshold
	}
	if cfg.Detector.DeclarativeStoreThreshold > 0 {
		dc.DeclarativeStoreThreshold = cfg.Detector.DeclarativeStoreThreshold
	}
	w := cfg.Detector.Weights
	if w != (config.ImportanceWeights{}) {
		dc.Weights = detector.Weights{
			Number:           w.Number,
			Date:             w.Date,
			Name:             w.Name,
			Place:            w.Place,
			LongText:         w.LongText,
			MultipleEntities: w.MultipleEntities,
		}
	}
	return dc
}

// initRecordStore initializes the record store backend selected by the
// configuration.
func initRecordStore(cfg *config.Config) (store.RecordStore, error) {
	storeType := strings.ToLower(cfg.Store.Type)
	log.Info("initializing record store", "type", storeType)

	switch storeType {
	case "mock":
		return storeMock.NewRecordStore(), nil

	case "boltdb", "":
		dbPath := cfg.Store.BoltDB.Path
		if dbPath == "" {
			dbPath = "./data/engram.bolt.db"
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for BoltDB: %w", err)
		}
		return boltdb.Open(dbPath)

	case "sqlite":
		dbPath := cfg.Store.SQLite.Path
		if dbPath == "" {
			dbPath = "./data/engram.db"
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for SQLite DB: %w", err)
		}
		return sqlite.Open(dbPath)

	case "postgres":
		dsn := cfg.Store.Postgres.DSN
		if dsn == "" {
			dsn = os.Getenv("POSTGRES_URL")
			if dsn == "" {
				return nil, fmt.Errorf("postgres connection string not provided")
			}
		}
		return postgres.Open(context.Background(), dsn)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}

// initEmbeddingStore initializes the chromem-go embedding store, on
// disk when a storage path is configured and in memory otherwise.
func initEmbeddingStore(cfg *config.Config) (store.EmbeddingStore, error) {
	collection := cfg.Store.Vector.Collection
	if collection == "" {
		collection = chromem.DefaultCollection
	}

	if path := cfg.Store.Vector.StoragePath; path != "" {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for vector store: %w", err)
		}
		log.Info("using persistent embedding store", "path", path, "collection", collection)
		return chromem.NewPersistent(path, collection)
	}

	log.Info("using in-memory embedding store", "collection", collection)
	return chromem.NewInMemory(collection)
}

// initEmbedder initializes the configured embedding provider. A nil
// provider (type "none") means records are stored without embeddings
// and search runs in keyword mode.
func initEmbedder(cfg *config.Config) (embedding.Provider, error) {
	provider := strings.ToLower(cfg.Embedding.Provider)

	switch provider {
	case "simple", "":
		log.Info("using simple embedding provider", "dimensions", cfg.Embedding.Dimensions)
		return simple.New(cfg.Embedding.Dimensions), nil

	case "openai":
		return embeddingOpenAI.New(embeddingOpenAI.Config{
			APIKey:     cfg.Embedding.OpenAI.APIKey,
			Model:      cfg.Embedding.OpenAI.Model,
			BaseURL:    cfg.Embedding.OpenAI.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})

	case "none":
		log.Info("embedding disabled, search will use keyword mode")
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// initScriptEngine initializes the Lua scripting engine and loads hook
// scripts from the configured directories. Returns nil when scripting
// is disabled.
func initScriptEngine(cfg *config.Config) (scripting.Engine, error) {
	if !cfg.Scripting.Enabled {
		return nil, nil
	}

	engine, err := scripting.NewLuaEngine(scripting.DefaultConfig())
	if err != nil {
		return nil, err
	}

	for _, dir := range cfg.Scripting.Paths {
		if err := engine.LoadScriptDir(dir); err != nil {
			log.Warn("failed to load script directory", "dir", dir, "error", err)
		}
	}

	return engine, nil
}
