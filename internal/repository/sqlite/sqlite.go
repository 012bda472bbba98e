// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single
// file. No separate database server to install, configure, or manage. The
// whole durable state of the app (teachers, subjects, decks, cards, sessions)
// is one file, which also makes the out-of-band backup story a file copy.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — works everywhere Go works.
//
// TRANSACTIONS:
// The store's transaction mechanism is the only concurrency-control boundary
// in the system. Two operations here run as explicit transactions:
//   - deck creation (slug assignment + deck insert + initial card insert)
//   - card replacement (delete-all + insert-all)
//
// Everything else is a single statement, which SQLite already makes atomic.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// BLANK IMPORT:
	// The underscore import is a "side-effect only" import. The sqlite
	// package's init() registers itself with database/sql as a driver named
	// "sqlite". After this import, sql.Open("sqlite", ...) knows how to talk
	// to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/deckshare.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes. WAL allows
	// concurrent reads WHILE a write is happening — important for a web
	// server where a public deck fetch shouldn't wait on a card replace.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	// We need them ON: deck deletion cascades to cards, teacher deletion
	// cascades to everything.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
// Wherever you call New(), immediately defer Close() — it flushes the WAL
// and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates all tables. CREATE TABLE IF NOT EXISTS is idempotent, so
// running this on an existing database is safe.
//
// UNIQUENESS CONSTRAINTS AS FINAL AUTHORITY:
// teachers.email, decks.slug and (subjects.name, teacher_id) each carry a
// UNIQUE constraint. Application-level checks (the slug recheck loop, the
// email pre-check) are best-effort fast paths; under concurrent writers the
// constraint is what actually guarantees uniqueness, and a violation is
// translated to a Conflict error.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS teachers (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			email          TEXT NOT NULL UNIQUE,
			password_hash  TEXT NOT NULL,
			email_verified INTEGER NOT NULL DEFAULT 0,
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS subjects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			teacher_id TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			UNIQUE (name, teacher_id)
		);
		CREATE INDEX IF NOT EXISTS idx_subjects_teacher_id ON subjects(teacher_id);

		CREATE TABLE IF NOT EXISTS decks (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			slug         TEXT NOT NULL UNIQUE,
			subject_id   TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
			teacher_id   TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
			exam_board   TEXT NOT NULL DEFAULT '',
			year_group   TEXT NOT NULL DEFAULT '',
			target_grade TEXT NOT NULL DEFAULT '',
			is_public    INTEGER NOT NULL DEFAULT 1,
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_decks_teacher_id ON decks(teacher_id);
		CREATE INDEX IF NOT EXISTS idx_decks_subject_id ON decks(subject_id);

		CREATE TABLE IF NOT EXISTS cards (
			id         TEXT PRIMARY KEY,
			deck_id    TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
			question   TEXT NOT NULL,
			answer     TEXT NOT NULL,
			card_order INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_cards_deck_id ON cards(deck_id);

		CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			teacher_id TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reset_tokens (
			token      TEXT PRIMARY KEY,
			teacher_id TEXT NOT NULL REFERENCES teachers(id) ON DELETE CASCADE,
			expires_at DATETIME NOT NULL,
			used_at    DATETIME
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite doesn't export a typed error for this, so we
// match on the stable message prefix the engine produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
