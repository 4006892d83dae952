package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteBusyTimeout = 5 * time.Second

	// SQLite WAL mode allows many readers alongside the single writer.
	sqliteReaderConns = 4
)

// OpenSQLite opens a SQLite-backed Pool: one write connection in WAL mode
// plus a small read-only pool.
func OpenSQLite(path string) (*Pool, error) {
	abs := absSQLitePath(path)
	if err := ensureSQLiteFile(abs); err != nil {
		return nil, fmt.Errorf("prepare sqlite file: %w", err)
	}

	busyMs := int(sqliteBusyTimeout / time.Millisecond)

	writerDSN := fmt.Sprintf(
		"file:%s?_foreign_keys=on&mode=rwc&_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL&cache=shared",
		abs, busyMs,
	)
	writer, err := sqlx.Open("sqlite3", writerDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite writer: %w", err)
	}
	// Single writer connection: serializes writes and avoids SQLITE_BUSY.
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)

	readerDSN := fmt.Sprintf(
		"file:%s?_foreign_keys=on&mode=ro&_busy_timeout=%d&cache=shared",
		abs, busyMs,
	)
	reader, err := sqlx.Open("sqlite3", readerDSN)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}
	reader.SetMaxOpenConns(sqliteReaderConns)
	reader.SetMaxIdleConns(sqliteReaderConns)

	return NewPool(writer, reader), nil
}

func ensureSQLiteFile(path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}

func absSQLitePath(path string) string {
	if path == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
