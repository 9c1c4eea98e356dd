// Package store implements the session store (spec §4.8): durable
// session metadata so named sessions survive daemon restarts. Grounded
// on the lthms-vee knowledge base's modernc.org/sqlite usage
// (internal/kb/kb.go: one long-lived *sql.DB, a migrate step, a DSN with
// WAL + busy_timeout pragmas) generalized from a KNN statement store to
// the daemon's session-metadata schema.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raibid-labs/scarabd/internal/scarabderr"
)

// Meta is one persisted session row, exactly the schema from spec §4.8.
type Meta struct {
	ID             string
	Name           string
	CreatedAt      time.Time
	LastAttachedAt time.Time
	Cols           int
	Rows           int
}

// Store is a session store backed by one long-lived sqlite connection.
// Per spec §4.8 ("must tolerate frequent writes... hold a long-lived
// connection, not reopen per call") and §9's explicit warning against
// the per-call open-close pattern, SetMaxOpenConns(1) serializes every
// write through a single connection; no separate worker goroutine is
// needed on top of that, since the driver itself will queue a second
// caller's query behind the first's.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and runs
// the schema migration.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	created_at        INTEGER NOT NULL,
	last_attached_at  INTEGER NOT NULL,
	cols              INTEGER NOT NULL DEFAULT 80,
	rows              INTEGER NOT NULL DEFAULT 24
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_name ON sessions(name);
`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a session row with the default geometry
// (80x24, spec §4.8). It satisfies mux.Persister.
func (s *Store) Save(id, name string) error {
	return s.SaveSession(Meta{
		ID:             id,
		Name:           name,
		CreatedAt:      time.Now(),
		LastAttachedAt: time.Now(),
		Cols:           80,
		Rows:           24,
	})
}

// SaveSession inserts or replaces a full session row, used by Save when
// a session is created.
func (s *Store) SaveSession(m Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// ON CONFLICT targets the primary key only, so resaving the same
	// session id (restore-reconciliation) upserts in place, while a second
	// distinct id claiming an already-used name still trips the unique
	// index on name as a genuine constraint error instead of silently
	// replacing the existing row.
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, name, created_at, last_attached_at, cols, rows)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			created_at = excluded.created_at,
			last_attached_at = excluded.last_attached_at,
			cols = excluded.cols,
			rows = excluded.rows`,
		m.ID, m.Name, m.CreatedAt.Unix(), m.LastAttachedAt.Unix(), m.Cols, m.Rows,
	)
	if err != nil {
		return fmt.Errorf("%w: save session %s: %v", scarabderr.ErrStore, m.ID, err)
	}
	return nil
}

// LoadAll returns every persisted session, used by SessionManager.Restore
// on daemon start.
func (s *Store) LoadAll() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT id, name, created_at, last_attached_at, cols, rows FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("%w: load all: %v", scarabderr.ErrStore, err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		var created, lastAttached int64
		if err := rows.Scan(&m.ID, &m.Name, &created, &lastAttached, &m.Cols, &m.Rows); err != nil {
			return nil, fmt.Errorf("%w: scan session row: %v", scarabderr.ErrStore, err)
		}
		m.CreatedAt = time.Unix(created, 0).UTC()
		m.LastAttachedAt = time.Unix(lastAttached, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a session row by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete session %s: %v", scarabderr.ErrStore, id, err)
	}
	return nil
}

// Rename updates a session's name.
func (s *Store) Rename(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`UPDATE sessions SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("%w: rename session %s: %v", scarabderr.ErrStore, id, err)
	}
	return nil
}

// Touch updates last_attached_at to now, called on every SessionAttach.
func (s *Store) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`UPDATE sessions SET last_attached_at = ? WHERE id = ?`, time.Now().Unix(), id); err != nil {
		return fmt.Errorf("%w: touch session %s: %v", scarabderr.ErrStore, id, err)
	}
	return nil
}

// Resize persists a session's last-known geometry. No other package
// calls it: mux.Persister has no resize method, so Resize and PaneResize
// requests leave the stored cols/rows at the values written by Save.
func (s *Store) Resize(id string, cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`UPDATE sessions SET cols = ?, rows = ? WHERE id = ?`, cols, rows, id); err != nil {
		return fmt.Errorf("%w: resize session %s: %v", scarabderr.ErrStore, id, err)
	}
	return nil
}
