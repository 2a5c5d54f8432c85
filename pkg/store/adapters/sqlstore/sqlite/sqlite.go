// Package sqlite implements the record store on SQLite via sqlx and the
// mattn/go-sqlite3 driver. Records are stored as JSON in a single table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
`

// SQLiteStore implements store.RecordStore using a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a store over an open sqlx connection and
// ensures the schema exists.
func NewSQLiteStore(db *sqlx.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "creating schema: %v", err)
	}
	log.Debug("initialized sqlite record store")
	return &SQLiteStore{db: db}, nil
}

// Open opens the database file at path and wraps it in a SQLiteStore.
func Open(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "opening sqlite at %s: %v", path, err)
	}
	return NewSQLiteStore(db)
}

// Put stores a record, replacing any record with the same id.
func (s *SQLiteStore) Put(ctx context.Context, record memory.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "encoding record %s: %v", record.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content, data = excluded.data`,
		record.ID, record.Content, string(data), record.Timestamp)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "storing record %s: %v", record.ID, err)
	}
	return nil
}

// Get returns the record for id or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (memory.Record, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT data FROM memories WHERE id = ?`, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return memory.Record{}, errors.ErrNotFound
	}
	if err != nil {
		return memory.Record{}, errors.Wrap(errors.ErrStorage, "reading record %s: %v", id, err)
	}

	var record memory.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return memory.Record{}, errors.Wrap(errors.ErrStorage, "decoding record %s: %v", id, err)
	}
	return record, nil
}

// Delete removes the record for id. Unknown ids are a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "deleting record %s: %v", id, err)
	}
	return nil
}

// List returns all stored records ordered by creation time. Rows that
// fail to decode are logged and skipped.
func (s *SQLiteStore) List(ctx context.Context) ([]memory.Record, error) {
	var rows []struct {
		ID   string `db:"id"`
		Data string `db:"data"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, data FROM memories ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "listing records: %v", err)
	}

	records := make([]memory.Record, 0, len(rows))
	for _, row := range rows {
		var record memory.Record
		if err := json.Unmarshal([]byte(row.Data), &record); err != nil {
			log.WarnContext(ctx, "skipping corrupt record", "id", row.ID, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
