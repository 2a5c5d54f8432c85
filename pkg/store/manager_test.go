package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/embedding/adapters/simple"
	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/memory"
	"github.com/engramdev/engram/pkg/store/adapters/mock"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *mock.RecordStore) {
	t.Helper()
	records := mock.NewRecordStore()
	m := NewManager(records, mock.NewEmbeddingStore(), simple.New(16), cfg)
	return m, records
}

func testRecord(id, content string) memory.Record {
	return memory.Record{
		ID:         id,
		Content:    content,
		Timestamp:  time.Now(),
		Categories: []string{"general"},
	}
}

func TestStoreMemory_PersistsRecordAndEmbedding(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	stored, err := m.StoreMemory(ctx, testRecord("m1", "John works at Google"))
	require.NoError(t, err)
	assert.NotNil(t, stored.Embedding)

	vec, err := m.Embedding(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, vec, 16)

	got, err := m.RetrieveMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "John works at Google", got.Content)
}

func TestStoreMemory_RejectsMissingID(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	_, err := m.StoreMemory(context.Background(), memory.Record{
		Content:   "remember this",
		Timestamp: time.Now(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestStoreMemory_RejectsMissingTimestamp(t *testing.T) {
	m, records := newTestManager(t, Config{})

	_, err := m.StoreMemory(context.Background(), memory.Record{ID: "m1", Content: "test"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	all, err := records.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreMemory_ValidationBeforeWrite(t *testing.T) {
	m, records := newTestManager(t, Config{})

	_, err := m.StoreMemory(context.Background(), memory.Record{ID: "only-id"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	all, err := records.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "invalid record must not reach the store")
}

func TestStoreMemory_NormalizesCategories(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	rec := testRecord("m1", "content")
	rec.Categories = []string{" Work ", "work", "", "Family"}
	stored, err := m.StoreMemory(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "family"}, stored.Categories)
}

func TestStoreMemory_StorageFailure(t *testing.T) {
	records := mock.NewRecordStore()
	records.FailPut = true
	m := NewManager(records, mock.NewEmbeddingStore(), simple.New(16), Config{})

	_, err := m.StoreMemory(context.Background(), testRecord("m1", "content"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorage))
}

func TestStoreMemory_WithoutEmbedder(t *testing.T) {
	m := NewManager(mock.NewRecordStore(), nil, nil, Config{})

	stored, err := m.StoreMemory(context.Background(), testRecord("m1", "content"))
	require.NoError(t, err)
	assert.Nil(t, stored.Embedding)
}

func TestRetrieveMemory_NotFound(t *testing.T) {
	m, _ := newTestManager(t, Config{})

	_, err := m.RetrieveMemory(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRetrieveMemory_BumpsLastAccessed(t *testing.T) {
	m, records := newTestManager(t, Config{})
	ctx := context.Background()

	_, err := m.StoreMemory(ctx, testRecord("m1", "content"))
	require.NoError(t, err)

	before := time.Now()
	got, err := m.RetrieveMemory(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, got.LastAccessed.Before(before))

	// the bump is persisted, not just cached
	persisted, err := records.Get(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, persisted.LastAccessed.IsZero())
}

func TestStoreMemory_OverwriteDropsCachedCopy(t *testing.T) {
	m, records := newTestManager(t, Config{})
	ctx := context.Background()

	_, err := m.StoreMemory(ctx, testRecord("m1", "first draft"))
	require.NoError(t, err)

	// Warm the cache through a read, then overwrite behind it.
	_, err = m.RetrieveMemory(ctx, "m1")
	require.NoError(t, err)
	_, err = m.StoreMemory(ctx, testRecord("m1", "second draft"))
	require.NoError(t, err)

	got, err := m.RetrieveMemory(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "second draft", got.Content)

	persisted, err := records.Get(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, persisted.LastAccessed.IsZero())
}

func TestDeleteMemory_Idempotent(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	_, err := m.StoreMemory(ctx, testRecord("m1", "content"))
	require.NoError(t, err)

	require.NoError(t, m.DeleteMemory(ctx, "m1"))
	require.NoError(t, m.DeleteMemory(ctx, "m1"))

	_, err = m.RetrieveMemory(ctx, "m1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = m.Embedding(ctx, "m1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestIndexes_UpdatedOnStoreAndDelete(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	rec := testRecord("m1", "content")
	rec.Categories = []string{"work"}
	rec.ImportanceScore = 0.7
	_, err := m.StoreMemory(ctx, rec)
	require.NoError(t, err)

	idx := m.CategoryIndex()
	assert.Equal(t, []string{"m1"}, idx["work"])

	score, ok := m.ImportanceOf("m1")
	require.True(t, ok)
	assert.Equal(t, 0.7, score)

	require.NoError(t, m.DeleteMemory(ctx, "m1"))
	assert.Empty(t, m.CategoryIndex())
	_, ok = m.ImportanceOf("m1")
	assert.False(t, ok)
}

func TestRebuildIndexes(t *testing.T) {
	m, records := newTestManager(t, Config{})
	ctx := context.Background()

	// Write behind the manager's back, then rebuild
	rec := testRecord("m1", "content")
	rec.Categories = []string{"travel"}
	rec.ImportanceScore = 0.4
	require.NoError(t, records.Put(ctx, rec))

	assert.Empty(t, m.CategoryIndex())
	require.NoError(t, m.RebuildIndexes(ctx))

	idx := m.CategoryIndex()
	assert.Equal(t, []string{"m1"}, idx["travel"])
}

func TestGetAllMemories(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.StoreMemory(ctx, testRecord(fmt.Sprintf("m%d", i), "content"))
		require.NoError(t, err)
	}

	all, err := m.GetAllMemories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCache_EvictsOldest(t *testing.T) {
	c := newRecordCache(2)

	c.Put(testRecord("a", "a"))
	c.Put(testRecord("b", "b"))
	c.Put(testRecord("c", "c"))

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_UpdateKeepsSlot(t *testing.T) {
	c := newRecordCache(2)

	c.Put(testRecord("a", "a"))
	c.Put(testRecord("b", "b"))
	c.Put(testRecord("a", "a2"))
	c.Put(testRecord("c", "c"))

	// "a" was updated, not re-inserted, so it is still the oldest
	_, ok := c.Get("a")
	assert.False(t, ok)
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", got.Content)
}

func TestConcurrentStores(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	ctx := context.Background()

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			_, err := m.StoreMemory(ctx, testRecord(fmt.Sprintf("m%d", i%5), fmt.Sprintf("content %d", i)))
			done <- err
		}(i)
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	all, err := m.GetAllMemories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
