// Package boltdb implements the record store on BoltDB. Records are
// stored as JSON in a single bucket keyed by record id.
package boltdb

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/memory"
)

const bucketName = "memories"

// BoltStore implements store.RecordStore using a BoltDB database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a BoltStore over an open database connection and
// ensures the memories bucket exists.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "creating bucket: %v", err)
	}

	log.Debug("initialized boltdb record store", "db_path", db.Path())
	return &BoltStore{db: db}, nil
}

// Open opens the database file at path and wraps it in a BoltStore.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "opening boltdb at %s: %v", path, err)
	}
	return NewBoltStore(db)
}

// Put stores a record, replacing any record with the same id.
func (b *BoltStore) Put(ctx context.Context, record memory.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "encoding record %s: %v", record.ID, err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(record.ID), data)
	})
}

// Get returns the record for id or ErrNotFound.
func (b *BoltStore) Get(ctx context.Context, id string) (memory.Record, error) {
	var record memory.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return errors.ErrNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return memory.Record{}, err
	}
	return record, nil
}

// Delete removes the record for id. Unknown ids are a no-op.
func (b *BoltStore) Delete(ctx context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(id))
	})
}

// List returns all stored records. Entries that fail to decode are
// logged and skipped.
func (b *BoltStore) List(ctx context.Context) ([]memory.Record, error) {
	var records []memory.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var record memory.Record
			if err := json.Unmarshal(v, &record); err != nil {
				log.WarnContext(ctx, "skipping corrupt record", "id", string(k), "error", err)
				return nil
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "listing records: %v", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
