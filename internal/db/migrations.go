package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migration is one forward schema step.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations are applied in order; each runs once and is recorded in
// schema_version.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
CREATE TABLE IF NOT EXISTS inventory (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    value TEXT NOT NULL DEFAULT '',
    package TEXT NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL DEFAULT 0,
    location TEXT NOT NULL DEFAULT '',
    min_stock INTEGER NOT NULL DEFAULT 10,
    image_paths TEXT NOT NULL DEFAULT '[]',
    datasheet_paths TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_inventory_identity ON inventory(name, package, value);

CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    order_index INTEGER NOT NULL DEFAULT 0,
    files TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);

CREATE TABLE IF NOT EXISTS project_items (
    project_id INTEGER NOT NULL,
    inventory_id INTEGER NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 1,
    FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE,
    FOREIGN KEY(inventory_id) REFERENCES inventory(id)
);

CREATE INDEX IF NOT EXISTS idx_project_items_pair ON project_items(project_id, inventory_id);
`,
	},
	{
		Version: 2,
		Name:    "operation_logs",
		Up: `
CREATE TABLE IF NOT EXISTS operation_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    op_type TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_id INTEGER NOT NULL DEFAULT 0,
    description TEXT,
    old_data TEXT,
    new_data TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operation_logs_created_at ON operation_logs(created_at);
`,
	},
}

// SchemaVersion is the version the last migration brings the store to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations brings conn up to SchemaVersion in a single transaction.
// Applied versions are recorded in schema_version and never rerun.
func RunMigrations(conn *sql.DB) error {
	if conn == nil {
		return fmt.Errorf("db is nil")
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var applied int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&applied); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= applied {
			continue
		}
		if strings.TrimSpace(m.Up) == "" {
			return fmt.Errorf("migration %d (%s) is empty", m.Version, m.Name)
		}
		if _, err := tx.Exec(m.Up); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
