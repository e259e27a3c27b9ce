// Package achievements persists celebration dedup records in a local SQLite
// file. The file is client-local state, separate from the authoritative
// Postgres engine: it remembers which celebrations have already been shown
// so a restart or a second tab never replays one.
package achievements

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"study_cycle_bot/internal/domain/achievement"

	_ "modernc.org/sqlite"
)

// Store is a hydrating key set over SQLite. Until Hydrate has completed,
// ShouldCelebrate reports false for every key: under-celebrating while state
// loads beats flashing a duplicate.
type Store struct {
	db *sql.DB

	mu       sync.RWMutex
	records  map[string]bool
	hydrated bool
}

// New opens (or creates) the SQLite database and initializes the schema.
// The store is not usable for gating until Hydrate is called.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open achievements db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, records: make(map[string]bool)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate achievements db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS achievements (
		key              TEXT PRIMARY KEY,
		achievement_type TEXT NOT NULL,
		identifier       TEXT NOT NULL,
		shown_at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_achievements_type ON achievements(achievement_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Hydrate prunes expired weekly-goal records, then loads every remaining key
// into memory and arms the gate.
func (s *Store) Hydrate(ctx context.Context) error {
	if err := s.Prune(ctx, time.Now()); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key FROM achievements`)
	if err != nil {
		return fmt.Errorf("load achievement keys: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("scan achievement key: %w", err)
		}
		loaded[key] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate achievement keys: %w", err)
	}

	s.mu.Lock()
	s.records = loaded
	s.hydrated = true
	s.mu.Unlock()
	return nil
}

// ShouldCelebrate reports whether the celebration keyed by (t, identifier)
// has never been shown. Always false before hydration.
func (s *Store) ShouldCelebrate(t achievement.Type, identifier string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hydrated {
		return false
	}
	return !s.records[achievement.Key(t, identifier)]
}

// MarkCelebrated records the celebration durably and in memory. The memory
// mark happens under the write lock before the call returns, so a concurrent
// ShouldCelebrate for the same key can never observe a half-applied mark.
func (s *Store) MarkCelebrated(ctx context.Context, t achievement.Type, identifier string) error {
	key := achievement.Key(t, identifier)

	s.mu.Lock()
	s.records[key] = true
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (key, achievement_type, identifier, shown_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, string(t), identifier, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("persist achievement %s: %w", key, err)
	}
	return nil
}

// Prune deletes weekly-goal records whose week-start date is more than the
// retention window before now. Cycle-completion records are kept forever:
// their epoch-qualified identifiers are unique and small in count.
func (s *Store) Prune(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-achievement.PruneAfter)

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, identifier FROM achievements WHERE achievement_type = ?`,
		string(achievement.TypeWeeklyGoal))
	if err != nil {
		return fmt.Errorf("query weekly-goal records: %w", err)
	}
	defer rows.Close()

	var expired []string
	for rows.Next() {
		var key, identifier string
		if err := rows.Scan(&key, &identifier); err != nil {
			return fmt.Errorf("scan weekly-goal record: %w", err)
		}
		weekStart, ok := weekStartFromIdentifier(identifier)
		if ok && weekStart.Before(cutoff) {
			expired = append(expired, key)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate weekly-goal records: %w", err)
	}

	for _, key := range expired {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM achievements WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete expired achievement %s: %w", key, err)
		}
		s.mu.Lock()
		delete(s.records, key)
		s.mu.Unlock()
	}
	return nil
}

// weekStartFromIdentifier extracts the date suffix of a weekly-goal
// identifier ("<workspace>:<yyyy-mm-dd>").
func weekStartFromIdentifier(identifier string) (time.Time, bool) {
	idx := strings.LastIndex(identifier, ":")
	if idx < 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse("2006-01-02", identifier[idx+1:])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

var _ achievement.Gate = (*Store)(nil)
