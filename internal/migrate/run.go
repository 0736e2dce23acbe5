// Package migrate applies the embedded SQL schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/target/storefront-gate/internal/data/pgxutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const createVersionsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// Versions lists the embedded migration versions in apply order.
func Versions() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			out = append(out, strings.TrimSuffix(e.Name(), ".sql"))
		}
	}
	slices.Sort(out)
	return out, nil
}

// Run applies all pending migrations, each in its own transaction. It is safe to call repeatedly.
func Run(ctx context.Context, db *sql.DB) error {
	pending, err := Pending(ctx, db)
	if err != nil {
		return err
	}
	logger := slog.Default().With("component", "migrations")
	for _, version := range pending {
		logger.InfoContext(ctx, "applying migration", "version", version)
		if err := apply(ctx, db, version); err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the versions not yet recorded in schema_migrations.
func Pending(ctx context.Context, db *sql.DB) ([]string, error) {
	if _, err := db.ExecContext(ctx, createVersionsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations table: %w", err)
	}
	all, err := Versions()
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(all))
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}

	var pending []string
	for _, v := range all {
		if !applied[v] {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

func apply(ctx context.Context, db *sql.DB, version string) error {
	body, err := migrationsFS.ReadFile("migrations/" + version + ".sql")
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}
	return pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("exec migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		return nil
	}})
}
