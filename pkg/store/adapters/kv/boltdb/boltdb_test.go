package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/memory"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "engram.bolt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := memory.Record{
		ID:              "m1",
		Content:         "the dentist appointment is friday",
		Timestamp:       time.Now().UTC().Truncate(time.Second),
		Categories:      []string{"health"},
		IsDeclarative:   true,
		ImportanceScore: 0.5,
		Confidence:      0.8,
	}
	require.NoError(t, store.Put(ctx, record))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, record.Content, got.Content)
	assert.Equal(t, record.Categories, got.Categories)
	assert.True(t, record.Timestamp.Equal(got.Timestamp))
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPut_Overwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := memory.Record{ID: "m1", Content: "v1", Timestamp: time.Now(), Categories: []string{"general"}}
	require.NoError(t, store.Put(ctx, record))
	record.Content = "v2"
	require.NoError(t, store.Put(ctx, record))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDelete_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := memory.Record{ID: "m1", Content: "c", Timestamp: time.Now(), Categories: []string{"general"}}
	require.NoError(t, store.Put(ctx, record))
	require.NoError(t, store.Delete(ctx, "m1"))
	require.NoError(t, store.Delete(ctx, "m1"))

	_, err := store.Get(ctx, "m1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestList_SkipsCorruptEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	good := memory.Record{ID: "good", Content: "c", Timestamp: time.Now(), Categories: []string{"general"}}
	require.NoError(t, store.Put(ctx, good))

	// Plant an entry that is not valid JSON
	err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte("bad"), []byte("{not json"))
	})
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].ID)
}

func TestLegacyCategoryField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Records written by older versions carry a single "category" string
	legacy := []byte(`{"id":"old","content":"c","timestamp":"2024-01-02T03:04:05Z","category":"Personal"}`)
	err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte("old"), legacy)
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, []string{"personal"}, got.Categories)
}
