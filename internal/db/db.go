// Package db is the SQLite store behind svault: inventory, projects, the
// links between them, and the operation log.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get lookups for a missing row.
var ErrNotFound = errors.New("not found")

type DB struct {
	path string
	conn *sql.DB
}

func Open() (*DB, error) {
	return OpenAt(DefaultPath())
}

func OpenAt(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}

	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := openAndInit(clean)
	if err == nil {
		return &DB{path: clean, conn: conn}, nil
	}

	// Graceful handling: if the database is corrupt, preserve it and recreate.
	if !isCorruptSQLiteError(err) {
		return nil, err
	}

	if _, statErr := os.Stat(clean); statErr == nil {
		backupPath := clean + ".corrupt." + time.Now().UTC().Format("20060102T150405Z")
		if renameErr := os.Rename(clean, backupPath); renameErr != nil {
			return nil, fmt.Errorf("db appears corrupt (%v), and rename failed: %w", err, renameErr)
		}
	}

	conn, err = openAndInit(clean)
	if err != nil {
		return nil, err
	}
	return &DB{path: clean, conn: conn}, nil
}

func (d *DB) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func (d *DB) Conn() *sql.DB {
	if d == nil {
		return nil
	}
	return d.conn
}

func (d *DB) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// DefaultPath returns $SVAULT_HOME/data/svault.db, or the XDG data location.
func DefaultPath() string {
	if home := os.Getenv("SVAULT_HOME"); home != "" {
		return filepath.Join(home, "data", "svault.db")
	}
	return filepath.Join(xdg.DataHome, "svault", "svault.db")
}

// Queries returns row primitives bound to the shared connection.
func (d *DB) Queries() *Queries {
	return &Queries{q: d.conn}
}

// WithTx runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
func (d *DB) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	if d == nil || d.conn == nil {
		return fmt.Errorf("db is not open")
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&Queries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pragmas are applied to the single shared connection on open.
var pragmas = []string{
	"journal_mode=WAL",
	"foreign_keys=ON",
	"busy_timeout=5000",
	"synchronous=NORMAL",
}

func openAndInit(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// PRAGMAs are per connection, and one connection also serializes
	// WithTx callers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := initConn(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func initConn(conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	for _, p := range pragmas {
		if _, err := conn.Exec("PRAGMA " + p); err != nil {
			return fmt.Errorf("set %s: %w", p, err)
		}
	}
	return RunMigrations(conn)
}

// isCorruptSQLiteError reports errors that mean the file is not a usable
// database, as opposed to I/O or permission problems.
func isCorruptSQLiteError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "file is not a database") ||
		strings.Contains(msg, "malformed")
}
