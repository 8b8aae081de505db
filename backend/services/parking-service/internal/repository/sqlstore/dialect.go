package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"parkingledger/backend/libs/db/migrate"
	"parkingledger/backend/services/parking-service/internal/apperr"
)

// Postgres SQLSTATE codes that map to ledger conflicts.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// dialect isolates the SQL differences between the supported engines.
type dialect interface {
	name() string
	migrations() migrate.Dialect
	rebind(query string) string
	timeArg(t time.Time) any
	lockRow() string
	isUniqueViolation(err error) bool
	isForeignKeyViolation(err error) bool
}

type postgresDialect struct{}

func (postgresDialect) name() string                { return "postgres" }
func (postgresDialect) migrations() migrate.Dialect { return migrate.Postgres }
func (postgresDialect) timeArg(t time.Time) any     { return t.UTC() }
func (postgresDialect) lockRow() string             { return " FOR UPDATE" }

// rebind rewrites ? placeholders into $1..$n.
func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (postgresDialect) isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

type sqliteDialect struct{}

func (sqliteDialect) name() string                { return "sqlite" }
func (sqliteDialect) migrations() migrate.Dialect { return migrate.SQLite }
func (sqliteDialect) rebind(query string) string  { return query }
func (sqliteDialect) timeArg(t time.Time) any     { return t.UTC().UnixMilli() }
func (sqliteDialect) lockRow() string             { return "" }

func (sqliteDialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func (sqliteDialect) isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// classify turns a driver error into a ledger error of the right kind.
func classify(d dialect, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case d.isUniqueViolation(err):
		return apperr.Wrap(apperr.KindConflict, op, err)
	case d.isForeignKeyViolation(err):
		return apperr.Wrap(apperr.KindConflict, op, err)
	default:
		return apperr.Wrap(apperr.KindStorageUnavailable, op, err)
	}
}

// dbTime scans either a native timestamp or unix milliseconds.
type dbTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
	case int64:
		t.Time, t.Valid = time.UnixMilli(v).UTC(), true
	default:
		return fmt.Errorf("sqlstore: unsupported time value %T", src)
	}
	return nil
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
