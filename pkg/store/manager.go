package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/engramdev/engram/pkg/embedding"
	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/memory"
)

// DefaultEmbedTimeout bounds embedding calls during StoreMemory.
const DefaultEmbedTimeout = 5 * time.Second

const lockStripes = 64

// Config contains configuration options for the Manager.
type Config struct {
	// CacheSize bounds the record cache (default 1000).
	CacheSize int
	// EmbedTimeout bounds embedding generation per store operation.
	EmbedTimeout time.Duration
}

// Manager coordinates record persistence, embedding persistence, the
// record cache and the secondary indexes. Writes to the same id are
// serialized through mutex striping; reads run concurrently.
type Manager struct {
	records    RecordStore
	embeddings EmbeddingStore
	embedder   embedding.Provider

	cache   *recordCache
	indexes *indexSet
	locks   [lockStripes]sync.Mutex

	embedTimeout time.Duration
}

// NewManager creates a Manager over the given backends. The embedding
// store and provider may be nil, in which case records are stored
// without embeddings.
func NewManager(records RecordStore, embeddings EmbeddingStore, embedder embedding.Provider, config Config) *Manager {
	timeout := config.EmbedTimeout
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	return &Manager{
		records:      records,
		embeddings:   embeddings,
		embedder:     embedder,
		cache:        newRecordCache(config.CacheSize),
		indexes:      newIndexSet(),
		embedTimeout: timeout,
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &m.locks[h.Sum32()%lockStripes]
}

// StoreMemory validates, normalizes and persists a record. A record
// missing id, content or timestamp is rejected with a validation error;
// callers assemble complete records before storing. Embedding generation
// is time-bounded and best-effort: on failure the record is stored
// without one. Index maintenance failures are logged, never returned.
func (m *Manager) StoreMemory(ctx context.Context, record memory.Record) (memory.Record, error) {
	if err := record.Validate(); err != nil {
		return memory.Record{}, err
	}
	record.Categories = memory.NormalizeCategories(record.Categories)

	lock := m.lockFor(record.ID)
	lock.Lock()
	defer lock.Unlock()

	if record.Embedding == nil && m.embedder != nil {
		embedCtx, cancel := context.WithTimeout(ctx, m.embedTimeout)
		vec, err := m.embedder.Embed(embedCtx, record.Content)
		cancel()
		if err != nil {
			log.WarnContext(ctx, "embedding generation failed, storing without embedding",
				"id", record.ID, "error", err)
		} else {
			record.Embedding = vec
		}
	}

	if err := m.records.Put(ctx, record); err != nil {
		return memory.Record{}, errors.Wrap(errors.ErrStorage, "storing record %s: %v", record.ID, err)
	}

	if record.Embedding != nil && m.embeddings != nil {
		if err := m.embeddings.Put(ctx, record.ID, record.Embedding); err != nil {
			log.WarnContext(ctx, "embedding persistence failed",
				"id", record.ID, "error", err)
		}
	}

	// The cache is filled on read, never on write, so the first
	// retrieve after a store goes to the backend and persists its
	// LastAccessed bump. An overwrite drops any stale cached copy.
	m.cache.Delete(record.ID)
	m.indexes.update(record)

	log.DebugContext(ctx, "stored memory", "id", record.ID, "categories", record.Categories)
	return record, nil
}

// RetrieveMemory returns the record for id, bumping LastAccessed. The
// bump is persisted best-effort.
func (m *Manager) RetrieveMemory(ctx context.Context, id string) (memory.Record, error) {
	now := time.Now()

	if record, ok := m.cache.Get(id); ok {
		record.LastAccessed = now
		m.cache.Put(record)
		return record, nil
	}

	record, err := m.records.Get(ctx, id)
	if err != nil {
		return memory.Record{}, err
	}

	record.LastAccessed = now
	if err := m.records.Put(ctx, record); err != nil {
		log.WarnContext(ctx, "persisting access time failed", "id", id, "error", err)
	}
	m.cache.Put(record)
	return record, nil
}

// GetAllMemories returns every stored record. Corrupt entries are
// skipped by the backend, so a partially damaged store still lists.
func (m *Manager) GetAllMemories(ctx context.Context) ([]memory.Record, error) {
	return m.records.List(ctx)
}

// DeleteMemory removes the record, its embedding, its cache entry and
// its index entries. Deleting an unknown id is a no-op.
func (m *Manager) DeleteMemory(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := m.records.Delete(ctx, id); err != nil {
		return errors.Wrap(errors.ErrStorage, "deleting record %s: %v", id, err)
	}
	if m.embeddings != nil {
		if err := m.embeddings.Delete(ctx, id); err != nil {
			log.WarnContext(ctx, "deleting embedding failed", "id", id, "error", err)
		}
	}
	m.cache.Delete(id)
	m.indexes.remove(id)
	return nil
}

// RebuildIndexes rescans the record set and rebuilds the secondary
// indexes from scratch.
func (m *Manager) RebuildIndexes(ctx context.Context) error {
	records, err := m.records.List(ctx)
	if err != nil {
		return err
	}
	m.indexes.rebuild(records)
	log.DebugContext(ctx, "rebuilt indexes", "records", len(records))
	return nil
}

// Embedding returns the stored embedding for id, or ErrNotFound.
func (m *Manager) Embedding(ctx context.Context, id string) ([]float32, error) {
	if m.embeddings == nil {
		return nil, errors.ErrNotFound
	}
	return m.embeddings.Get(ctx, id)
}

// Embedder exposes the configured embedding provider, nil when none.
func (m *Manager) Embedder() embedding.Provider {
	return m.embedder
}

// CategoryIndex returns a copy of the category index.
func (m *Manager) CategoryIndex() map[string][]string {
	return m.indexes.categoryIndex()
}

// ImportanceOf returns the indexed importance score for id.
func (m *Manager) ImportanceOf(id string) (float64, bool) {
	return m.indexes.importanceOf(id)
}

// Close releases both backends.
func (m *Manager) Close() error {
	var firstErr error
	if m.records != nil {
		if err := m.records.Close(); err != nil {
			firstErr = err
		}
	}
	if m.embeddings != nil {
		if err := m.embeddings.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
