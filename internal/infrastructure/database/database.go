package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirMode  = 0750
	fileMode = 0600

	// pingTimeout bounds the connectivity check in Open.
	pingTimeout = 5 * time.Second
)

// DB is the application's handle on the SQLite store. It embeds *sql.DB
// so repositories can run queries directly, and adds migration and
// health-check support on top.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of config.yaml.
type Config struct {
	// Path to the SQLite file. Parent directories are created on demand.
	Path string

	// WALMode turns on write-ahead logging so reads don't block the writer.
	WALMode bool

	// BusyTimeout is how long, in seconds, a statement waits on a lock
	// before failing with SQLITE_BUSY.
	BusyTimeout int
}

// Open connects to the SQLite database at cfg.Path, creating the file
// and its directory if needed, and verifies the connection with a ping.
// The pool is pinned to a single connection since SQLite allows only
// one writer at a time.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	handle, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	handle.SetMaxOpenConns(1)
	handle.SetMaxIdleConns(1)
	handle.SetConnMaxLifetime(time.Hour)

	db := &DB{DB: handle, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		handle.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The file holds device history; keep it owner-only. Chmod is ignored
	// when the first write hasn't created the file yet.
	_ = os.Chmod(cfg.Path, fileMode)

	return db, nil
}

// dsn builds the go-sqlite3 connection string from cfg.
// See https://github.com/mattn/go-sqlite3#connection-string for the
// pragma parameters.
func dsn(cfg Config) string {
	s := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		s += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return s
}

// Close releases the underlying connection. Safe to call on a DB whose
// handle was already cleared.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem location of the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to confirm the connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
