// Package sqlite is the local node's per-machine persistence layer:
// local analyses, annotations, gallery entries, plugins,
// notifications, and streaming session metadata, spec §6.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB wraps a single-file SQLite database handle.
type DB struct {
	*sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// runs pending goose migrations.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", path, err)
	}
	// SQLite serializes writers internally; a single connection avoids
	// "database is locked" errors under concurrent goroutines.
	handle.SetMaxOpenConns(1)

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("sqlite3"); err != nil {
		handle.Close()
		return nil, fmt.Errorf("sqlite: goose dialect: %w", err)
	}
	if err := goose.Up(handle, "migrations"); err != nil {
		handle.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{DB: handle}, nil
}
