// Package store persists the study document. Each backend stores opaque
// JSON bytes under a single key.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when no document is stored under a key.
var ErrNotFound = errors.New("document not found")

// Backend loads and saves whole documents.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// DefaultKeepSnapshots is the number of snapshots kept per key.
const DefaultKeepSnapshots = 20

// Store keeps documents in SQLite along with a short snapshot history.
type Store struct {
	db   *sql.DB
	keep int
}

var _ Backend = (*Store)(nil)

// Snapshot describes one saved version of a document.
type Snapshot struct {
	ID      int64
	Key     string
	SavedAt time.Time
	Size    int
}

// Open opens or creates the SQLite database and applies migrations. keep <= 0
// uses DefaultKeepSnapshots.
func Open(path string, keep int) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if keep <= 0 {
		keep = DefaultKeepSnapshots
	}
	store := &Store{db: db, keep: keep}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			key TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY,
			key TEXT NOT NULL,
			body TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_key ON snapshots(key, id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the current document for key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Save replaces the document for key and records a snapshot, pruning old ones.
func (s *Store) Save(ctx context.Context, key string, data []byte) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(data), now); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (key, body, saved_at) VALUES (?, ?, ?)`,
		key, string(data), now); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE key = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE key = ? ORDER BY id DESC LIMIT ?
		)`, key, key, s.keep); err != nil {
		return err
	}
	return tx.Commit()
}

// Snapshots lists saved versions of key, newest first.
func (s *Store) Snapshots(ctx context.Context, key string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, saved_at, length(body) FROM snapshots WHERE key = ? ORDER BY id DESC`, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var savedAt string
		if err := rows.Scan(&snap.ID, &snap.Key, &savedAt, &snap.Size); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, err
		}
		snap.SavedAt = parsed
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadSnapshot returns the body of one snapshot.
func (s *Store) LoadSnapshot(ctx context.Context, id int64) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}
