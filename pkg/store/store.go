// Package store implements the storage manager: pluggable record and
// embedding backends behind a single normalization boundary, with a
// bounded cache and derived secondary indexes.
package store

import (
	"context"

	"github.com/engramdev/engram/pkg/memory"
)

// RecordStore persists memory records keyed by id. Implementations store
// records as JSON and must return errors.ErrNotFound (wrapped or bare)
// from Get when the id is unknown. Delete of a missing id is not an
// error.
type RecordStore interface {
	Put(ctx context.Context, record memory.Record) error
	Get(ctx context.Context, id string) (memory.Record, error)
	Delete(ctx context.Context, id string) error

	// List returns every stored record. Entries that fail to decode are
	// logged and skipped, never abort the listing.
	List(ctx context.Context) ([]memory.Record, error)

	// Close releases backend resources.
	Close() error
}

// EmbeddingStore persists embedding vectors keyed by record id, one
// vector per record. Get returns errors.ErrNotFound for unknown ids.
type EmbeddingStore interface {
	Put(ctx context.Context, id string, vec []float32) error
	Get(ctx context.Context, id string) ([]float32, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
