package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// Migrate applies every embedded migration for the handle's driver that is
// not yet recorded in schema_migrations. Each file runs in its own
// transaction. It returns the versions it applied.
func Migrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	dir, err := migrationDir(db.DriverName())
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("creating schema_migrations: %w", err)
	}

	var done []string
	if err := db.SelectContext(ctx, &done, `SELECT version FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(done))
	for _, v := range done {
		applied[v] = true
	}

	files, err := fs.Glob(migrations, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var ran []string
	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		if applied[version] {
			continue
		}
		body, err := migrations.ReadFile(file)
		if err != nil {
			return ran, err
		}
		if err := apply(ctx, db, version, string(body)); err != nil {
			return ran, err
		}
		ran = append(ran, version)
	}
	return ran, nil
}

func apply(ctx context.Context, db *sqlx.DB, version, body string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx,
		db.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
		version, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording migration %s: %w", version, err)
	}
	return tx.Commit()
}

func migrationDir(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "migrations/postgres", nil
	case DriverSQLite:
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driver)
	}
}
