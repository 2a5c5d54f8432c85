// Package mock provides in-memory store implementations for tests and
// throwaway setups.
package mock

import (
	"context"
	"sync"

	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/memory"
)

// RecordStore is an in-memory store.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]memory.Record

	// FailPut forces Put to fail, for exercising error paths.
	FailPut bool
}

// NewRecordStore creates an empty in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]memory.Record)}
}

func (s *RecordStore) Put(ctx context.Context, record memory.Record) error {
	if s.FailPut {
		return errors.ErrStorage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *RecordStore) Get(ctx context.Context, id string) (memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return memory.Record{}, errors.ErrNotFound
	}
	return record, nil
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *RecordStore) List(ctx context.Context) ([]memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]memory.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *RecordStore) Close() error { return nil }

// EmbeddingStore is an in-memory store.EmbeddingStore.
type EmbeddingStore struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewEmbeddingStore creates an empty in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{vectors: make(map[string][]float32)}
}

func (s *EmbeddingStore) Put(ctx context.Context, id string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[id] = append([]float32(nil), vec...)
	return nil
}

func (s *EmbeddingStore) Get(ctx context.Context, id string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vectors[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return append([]float32(nil), vec...), nil
}

func (s *EmbeddingStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, id)
	return nil
}

func (s *EmbeddingStore) Close() error { return nil }
