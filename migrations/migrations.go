// Package migrations embeds the versioned SQL schema and applies it.
package migrations

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.sql
var files embed.FS

// advisoryLockKey serializes concurrent migrators across processes.
const advisoryLockKey = 7462839

// Migration is one NNN_description.sql file.
type Migration struct {
	Version  string
	Filename string
	Checksum string
	SQL      string
}

// Result reports what Apply did with each migration.
type Result struct {
	Applied []string
	Skipped []string
}

// Discover returns the embedded migrations sorted by filename.
func Discover() ([]Migration, error) {
	return discover(files)
}

func discover(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var out []Migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		version, _, ok := strings.Cut(name, "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("invalid migration filename %s: expected NNN_description.sql", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s: %s and %s", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(body)
		out = append(out, Migration{
			Version:  version,
			Filename: name,
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(body),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// Apply runs every pending migration, each in its own transaction, while
// holding a session advisory lock. A migration whose recorded checksum no
// longer matches the embedded file is an error.
func Apply(ctx context.Context, pool *pgxpool.Pool) (*Result, error) {
	migrations, err := Discover()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		return nil, fmt.Errorf("failed to query advisory lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another migrator is currently running")
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", advisoryLockKey)

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	res := &Result{}
	for _, m := range migrations {
		var existing string
		err := conn.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", m.Version).Scan(&existing)
		switch {
		case err == nil:
			if existing != m.Checksum {
				return res, fmt.Errorf("checksum mismatch for %s: recorded %s, embedded %s", m.Filename, existing, m.Checksum)
			}
			res.Skipped = append(res.Skipped, m.Filename)
			continue
		case !errors.Is(err, pgx.ErrNoRows):
			return res, fmt.Errorf("failed to query schema_migrations for %s: %w", m.Filename, err)
		}

		if err := applyOne(ctx, conn.Conn(), m); err != nil {
			return res, err
		}
		res.Applied = append(res.Applied, m.Filename)
	}
	return res, nil
}

func applyOne(ctx context.Context, conn *pgx.Conn, m Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.Filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.Filename, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		m.Version, m.Filename, m.Checksum); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Filename, err)
	}
	return nil
}
