package incremental

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DBFileName is the fingerprint database written inside the docs root.
const DBFileName = ".codesummary-state.db"

const stateSourceRoot = "source_root"
const stateLastScan = "last_scan"

//go:embed migrations/*.sql
var migrationFS embed.FS

// Fingerprint identifies one file version.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
	Hash    string
}

// Store persists fingerprints in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the fingerprint database in docsRoot.
func Open(ctx context.Context, docsRoot string) (*Store, error) {
	dbPath := filepath.Join(docsRoot, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// SourceRoot returns the source root recorded by the last Replace, if any.
func (s *Store) SourceRoot(ctx context.Context) (string, error) {
	return s.stateValue(ctx, stateSourceRoot)
}

// LastScan returns when fingerprints were last replaced.
func (s *Store) LastScan(ctx context.Context) (time.Time, error) {
	value, err := s.stateValue(ctx, stateLastScan)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last scan: %w", err)
	}
	return ts, nil
}

func (s *Store) stateValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read state %s: %w", key, err)
	}
	return value, nil
}

// All returns every stored fingerprint keyed by relative path.
func (s *Store) All(ctx context.Context) (map[string]Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, size, mtime_ns, sha256 FROM fingerprints")
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Fingerprint)
	for rows.Next() {
		var fp Fingerprint
		var mtime int64
		if err := rows.Scan(&fp.Path, &fp.Size, &mtime, &fp.Hash); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		fp.ModTime = time.Unix(0, mtime)
		out[fp.Path] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return out, nil
}

// Replace swaps the stored fingerprints for fps in one transaction and records
// the source root they belong to.
func (s *Store) Replace(ctx context.Context, sourceRoot string, fps []Fingerprint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fingerprints"); err != nil {
		return fmt.Errorf("clear fingerprints: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO fingerprints (path, size, mtime_ns, sha256, recorded_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, fp := range fps {
		if _, err := stmt.ExecContext(ctx, fp.Path, fp.Size, fp.ModTime.UnixNano(), fp.Hash, now); err != nil {
			return fmt.Errorf("insert fingerprint %s: %w", fp.Path, err)
		}
	}
	for key, value := range map[string]string{stateSourceRoot: sourceRoot, stateLastScan: now} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value); err != nil {
			return fmt.Errorf("write state %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fingerprints: %w", err)
	}
	return nil
}
