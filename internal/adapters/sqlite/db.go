// Package sqlite opens the single-file SQLite database used by the sqlite storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS members (
	external_id       TEXT PRIMARY KEY,
	member_number     TEXT NOT NULL UNIQUE,
	last_name         TEXT NOT NULL,
	first_name        TEXT NOT NULL,
	birth_date        TEXT NOT NULL DEFAULT '',
	cohort            TEXT NOT NULL DEFAULT '',
	program           TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	photo_ref         TEXT,
	card_ref          TEXT,
	status            TEXT NOT NULL DEFAULT 'pending'
	                  CHECK (status IN ('pending', 'approved', 'rejected', 'suspended')),
	rejection_reason  TEXT,
	suspension_reason TEXT,
	is_active         INTEGER NOT NULL DEFAULT 1,
	registered_at     INTEGER NOT NULL,
	decided_at        INTEGER
);
CREATE INDEX IF NOT EXISTS members_status_registered_idx ON members (status, registered_at);
CREATE INDEX IF NOT EXISTS members_status_decided_idx ON members (status, decided_at);

CREATE TABLE IF NOT EXISTS sequence_counters (
	scope TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	idempotency_key TEXT NOT NULL,
	method          TEXT NOT NULL,
	route           TEXT NOT NULL,
	body_hash       TEXT NOT NULL,
	status_code     INTEGER NOT NULL,
	content_type    TEXT NOT NULL DEFAULT '',
	body            BLOB NOT NULL,
	created_at      INTEGER NOT NULL,
	PRIMARY KEY (idempotency_key, method, route)
);
`

// FoldFunc is the SQL function that lower-cases text with Unicode rules.
// The built-in lower() only folds ASCII.
const FoldFunc = "fold"

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions installs the Go-side SQL functions. The driver keeps them
// for every connection opened afterwards.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = msqlite.RegisterDeterministicScalarFunction(FoldFunc, 1, fold)
	})
	return registerErr
}

func fold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Open opens (creating when needed) the database at path and applies the schema.
// The pool is limited to one connection so writes are serialized.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("register sql functions: %w", err)
	}
	if path == "" {
		path = "membership.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// IsUniqueViolation reports whether err is a UNIQUE/PRIMARY KEY constraint failure.
// When column is non-empty ("table.column") only failures on that column match.
func IsUniqueViolation(err error, column string) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// Primary and extended result codes share the low byte.
	if se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	msg := se.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return column == "" || strings.Contains(msg, column)
}

// EscapeLike escapes LIKE wildcards; pair with ESCAPE '\'.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
