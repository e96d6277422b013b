package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL flavour behind a DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB is a database handle that knows its dialect.
// Queries are written with '?' placeholders and rebound for Postgres.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// New opens a SQLite database connection at the given path.
// It enables foreign keys on every pooled connection and sets connection pool settings.
func New(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; a small pool avoids lock contention.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

// NewPostgres opens a Postgres connection pool through the pgx stdlib driver.
func NewPostgres(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{DB: db, Dialect: DialectPostgres}, nil
}

// Open opens a database for the given driver name ("postgres" or "sqlite").
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch Dialect(driver) {
	case DialectPostgres:
		return NewPostgres(ctx, dsn)
	case DialectSQLite:
		return New(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders to the dialect's placeholder syntax.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Migrate runs database migrations to create the document and history tables.
// It is idempotent and can be run multiple times safely. Chunk tables belong to
// the SQL vector stores and are created by them.
func Migrate(db *DB) error {
	timestampType := "TIMESTAMP"
	if db.Dialect == DialectPostgres {
		timestampType = "TIMESTAMPTZ"
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			content_text TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			created_at ` + timestampType + ` NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_owner_active ON documents (owner_id, is_active);`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			document_id TEXT,
			share_id TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at ` + timestampType + ` NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_owner ON chat_history (owner_id, created_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	return nil
}
