// Package postgres implements the record store on PostgreSQL via pgxpool.
// Schema management uses golang-migrate with migrations embedded in the
// binary.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/log"
	"github.com/engramdev/engram/pkg/memory"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.RecordStore using a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing pool. The schema
// must already be in place; Open handles migration for the common case.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	log.Debug("initialized postgres record store")
	return &PostgresStore{pool: pool}
}

// Open runs pending migrations against dsn and returns a connected
// store.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "connecting to postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "pinging postgres: %v", err)
	}
	return NewPostgresStore(pool), nil
}

// Migrate applies the embedded schema migrations to dsn.
func Migrate(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "opening migration connection: %v", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "creating migration driver: %v", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "loading embedded migrations: %v", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "creating migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(errors.ErrStorage, "applying migrations: %v", err)
	}
	return nil
}

// Put stores a record, replacing any record with the same id.
func (s *PostgresStore) Put(ctx context.Context, record memory.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "encoding record %s: %v", record.ID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO memories (id, content, data, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, data = EXCLUDED.data`,
		record.ID, record.Content, data, record.Timestamp)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "storing record %s: %v", record.ID, err)
	}
	return nil
}

// Get returns the record for id or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (memory.Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM memories WHERE id = $1`, id).Scan(&data)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return memory.Record{}, errors.ErrNotFound
	}
	if err != nil {
		return memory.Record{}, errors.Wrap(errors.ErrStorage, "reading record %s: %v", id, err)
	}

	var record memory.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return memory.Record{}, errors.Wrap(errors.ErrStorage, "decoding record %s: %v", id, err)
	}
	return record, nil
}

// Delete removes the record for id. Unknown ids are a no-op.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "deleting record %s: %v", id, err)
	}
	return nil
}

// List returns all stored records ordered by creation time. Rows that
// fail to decode are logged and skipped.
func (s *PostgresStore) List(ctx context.Context) ([]memory.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM memories ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "listing records: %v", err)
	}
	defer rows.Close()

	var records []memory.Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.Wrap(errors.ErrStorage, "scanning record: %v", err)
		}
		var record memory.Record
		if err := json.Unmarshal(data, &record); err != nil {
			log.WarnContext(ctx, "skipping corrupt record", "id", id, "error", err)
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrStorage, "listing records: %v", err)
	}
	return records, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
