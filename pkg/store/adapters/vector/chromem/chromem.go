// Package chromem implements the embedding store on chromem-go, either
// in-memory or persisted to disk. Vectors are stored one document per
// record id, which also gives retrieval a nearest-neighbor query.
package chromem

import (
	"context"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/log"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "memories"

// Match is one nearest-neighbor query result.
type Match struct {
	ID         string
	Similarity float64
}

// ChromemStore implements store.EmbeddingStore backed by a chromem-go
// collection.
type ChromemStore struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection
}

// NewChromemStore creates a store over an existing chromem-go instance.
func NewChromemStore(db *chromemgo.DB, collectionName string) (*ChromemStore, error) {
	if collectionName == "" {
		collectionName = DefaultCollection
	}

	// The embedding func is never used: vectors are always supplied by the
	// caller. A stub keeps chromem from reaching for its OpenAI default.
	collection, err := db.GetOrCreateCollection(collectionName, nil,
		func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.Wrap(errors.ErrStorage, "no embedding func configured")
		})
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "creating collection %s: %v", collectionName, err)
	}

	log.Debug("initialized chromem embedding store", "collection", collectionName)
	return &ChromemStore{db: db, collection: collection}, nil
}

// NewInMemory creates a store over a fresh in-memory instance.
func NewInMemory(collectionName string) (*ChromemStore, error) {
	return NewChromemStore(chromemgo.NewDB(), collectionName)
}

// NewPersistent creates a store persisted under path.
func NewPersistent(path, collectionName string) (*ChromemStore, error) {
	db, err := chromemgo.NewPersistentDB(path, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "opening chromem at %s: %v", path, err)
	}
	return NewChromemStore(db, collectionName)
}

// Put stores the vector for id, replacing any existing one.
func (s *ChromemStore) Put(ctx context.Context, id string, vec []float32) error {
	err := s.collection.AddDocument(ctx, chromemgo.Document{
		ID:        id,
		Embedding: vec,
	})
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "storing embedding %s: %v", id, err)
	}
	return nil
}

// Get returns the vector for id or ErrNotFound.
func (s *ChromemStore) Get(ctx context.Context, id string) ([]float32, error) {
	doc, err := s.collection.GetByID(ctx, id)
	if err != nil {
		return nil, errors.ErrNotFound
	}
	return doc.Embedding, nil
}

// Delete removes the vector for id. Unknown ids are a no-op.
func (s *ChromemStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.GetByID(ctx, id); err != nil {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
		return errors.Wrap(errors.ErrStorage, "deleting embedding %s: %v", id, err)
	}
	return nil
}

// Query returns up to n nearest neighbors of vec by cosine similarity.
func (s *ChromemStore) Query(ctx context.Context, vec []float32, n int) ([]Match, error) {
	count := s.collection.Count()
	if count == 0 || n <= 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "querying embeddings: %v", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{ID: r.ID, Similarity: float64(r.Similarity)}
	}
	return matches, nil
}

// Close is a no-op; chromem-go persists on write.
func (s *ChromemStore) Close() error {
	return nil
}
