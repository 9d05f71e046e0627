// Package journal persists config-modification records per working tree, so
// an agent restarted mid-acquisition can scrub credentials it wrote before
// the crash. Rows live from the first config write until a Finalize that
// scrubs credentials; a Finalize that exposes credentials leaves them.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded config write.
type Entry struct {
	TargetPath string
	Key        string
	Value      string
	RecordedAt time.Time
}

// Store is a SQLite-backed journal of config modifications.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the journal database. Use ":memory:" in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS config_modifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_path TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		recorded_at INTEGER NOT NULL,
		UNIQUE(target_path, key)
	);
	CREATE INDEX IF NOT EXISTS idx_target_path ON config_modifications(target_path);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record upserts the last-written value for a key under a target path.
func (s *Store) Record(ctx context.Context, targetPath, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config_modifications (target_path, key, value, recorded_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(target_path, key) DO UPDATE SET value=excluded.value, recorded_at=excluded.recorded_at`,
		targetPath, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record config modification: %w", err)
	}
	return nil
}

// Remove deletes the record for one key.
func (s *Store) Remove(ctx context.Context, targetPath, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM config_modifications WHERE target_path = ? AND key = ?", targetPath, key)
	if err != nil {
		return fmt.Errorf("remove config modification: %w", err)
	}
	return nil
}

// ForTarget returns all recorded writes under a target path, oldest first.
func (s *Store) ForTarget(ctx context.Context, targetPath string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT target_path, key, value, recorded_at FROM config_modifications WHERE target_path = ? ORDER BY id",
		targetPath)
	if err != nil {
		return nil, fmt.Errorf("query config modifications: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Targets lists every target path with outstanding records. A non-empty
// result on startup means a previous run died before Finalize or exposed
// its credentials.
func (s *Store) Targets(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT target_path FROM config_modifications ORDER BY target_path")
	if err != nil {
		return nil, fmt.Errorf("query journal targets: %w", err)
	}
	defer rows.Close()
	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan journal target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// ClearTarget removes every record under a target path after a clean Finalize.
func (s *Store) ClearTarget(ctx context.Context, targetPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM config_modifications WHERE target_path = ?", targetPath)
	if err != nil {
		return fmt.Errorf("clear journal target: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.TargetPath, &e.Key, &e.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan config modification: %w", err)
		}
		e.RecordedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
