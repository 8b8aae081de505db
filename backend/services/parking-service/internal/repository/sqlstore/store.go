// Package sqlstore implements the parking ledger storage on PostgreSQL and SQLite.
// Entry and exit run as explicit transactions so the one-active-session rule
// is decided by the database, never by callers.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	libdb "parkingledger/backend/libs/db"
	"parkingledger/backend/libs/db/migrate"
	"parkingledger/backend/services/parking-service/internal/repository"
	"parkingledger/backend/services/parking-service/internal/repository/sqlstore/migrations"
)

var _ repository.Store = (*Store)(nil)

// Store is a database/sql backed ledger store.
type Store struct {
	db      *sql.DB
	dialect dialect
	loc     *time.Location
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the facility time zone used to group reports by day.
// Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// OpenPostgres connects to PostgreSQL and applies the embedded schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	sqlDB, err := libdb.NewPostgresDB(dsn)
	if err != nil {
		return nil, err
	}
	return open(ctx, sqlDB, postgresDialect{}, opts)
}

// OpenSQLite opens a SQLite database file and applies the embedded schema.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	sqlDB, err := libdb.NewSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	return open(ctx, sqlDB, sqliteDialect{}, opts)
}

func open(ctx context.Context, sqlDB *sql.DB, d dialect, opts []Option) (*Store, error) {
	if err := migrate.Apply(ctx, sqlDB, d.migrations(), migrationFS(d), d.name()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: migrate %s: %w", d.name(), err)
	}
	s := &Store{db: sqlDB, dialect: d, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrationFS(d dialect) fs.FS {
	if d.name() == "postgres" {
		return migrations.Postgres
	}
	return migrations.SQLite
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify(s.dialect, "ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver names the underlying engine.
func (s *Store) Driver() string {
	return s.dialect.name()
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// inTx runs fn inside a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(s.dialect, op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
		return classify(s.dialect, op, err)
	}
	if err := tx.Commit(); err != nil {
		return classify(s.dialect, op, err)
	}
	return nil
}

// GetSetting reads one key from the settings table.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT value FROM settings WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(s.dialect, "get setting", err)
	}
	return value, true, nil
}

// PutSetting inserts or replaces a setting.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, s.q(query), key, value); err != nil {
		return classify(s.dialect, "put setting", err)
	}
	return nil
}
