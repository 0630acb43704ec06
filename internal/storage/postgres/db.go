// Package postgres is the institutional server's relational
// persistence layer: users, shares (JSONB access policy), teams, team
// members, audit log, and jobs, spec §6.
package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" database/sql driver for goose
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB bundles the async pgx pool (used for hot-path queries) with an
// sqlx handle over the same DSN (used where struct-scanning via
// sqlx.Get/Select is more convenient than manual pgx.Row.Scan calls).
type DB struct {
	Pool *pgxpool.Pool
	SQL  *sqlx.DB
}

// Open connects both handles to dsn and runs pending goose migrations.
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	sqlDB, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: connecting sqlx: %w", err)
	}

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		pool.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("postgres: goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB.DB, "migrations"); err != nil {
		pool.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return &DB{Pool: pool, SQL: sqlDB}, nil
}

// Close releases both handles.
func (db *DB) Close() {
	db.Pool.Close()
	_ = db.SQL.Close()
}

// MigrationStatus prints the goose migration status for the admin
// CLI's "migrate status" subcommand. Open already applies pending
// migrations on every process start; this exists for operator
// visibility into what's been applied.
func (db *DB) MigrationStatus(ctx context.Context) error {
	return goose.Status(db.SQL.DB, "migrations")
}
