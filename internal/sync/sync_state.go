package sync

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const stateSchema = `
CREATE TABLE IF NOT EXISTS sync_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const keyLastSyncTime = "last_sync_time"

// SyncStateStore persists engine state across restarts in SQLite.
type SyncStateStore struct {
	db     *sqlx.DB
	dbPath string
}

func NewSyncStateStore(dbPath string) (*SyncStateStore, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dbDir, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db at %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(stateSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	return &SyncStateStore{db: db, dbPath: dbPath}, nil
}

func (s *SyncStateStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LastSyncTime returns the persisted time of the last successful sync.
func (s *SyncStateStore) LastSyncTime() (time.Time, bool, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM sync_state WHERE key = ?", keyLastSyncTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to query last sync time: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse stored last sync time %q: %w", value, err)
	}
	return t, true, nil
}

func (s *SyncStateStore) SetLastSyncTime(t time.Time) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO sync_state (key, value) VALUES (?, ?)",
		keyLastSyncTime, t.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to set last sync time: %w", err)
	}
	return nil
}

// SyncState is the engine's process-wide state: the time of the last successful
// sync and the in-flight flag that keeps passes mutually exclusive.
type SyncState struct {
	inProgress atomic.Bool

	mu           sync.RWMutex
	lastSyncTime time.Time
	store        *SyncStateStore
}

// NewSyncState loads the last sync time from store. A nil store keeps state in memory only.
func NewSyncState(store *SyncStateStore) *SyncState {
	st := &SyncState{store: store}
	if store == nil {
		return st
	}

	t, ok, err := store.LastSyncTime()
	if err != nil {
		slog.Warn("sync state load", "error", err)
		return st
	}
	if ok {
		st.lastSyncTime = t
	}
	return st
}

func (s *SyncState) LastSyncTime() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSyncTime, !s.lastSyncTime.IsZero()
}

// MarkSynced records a successful sync at t.
func (s *SyncState) MarkSynced(t time.Time) {
	s.mu.Lock()
	s.lastSyncTime = t
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SetLastSyncTime(t); err != nil {
			slog.Warn("sync state persist", "error", err)
		}
	}
}

func (s *SyncState) InProgress() bool {
	return s.inProgress.Load()
}

// tryBegin claims the in-flight flag. It never blocks.
func (s *SyncState) tryBegin() bool {
	return s.inProgress.CompareAndSwap(false, true)
}

func (s *SyncState) end() {
	s.inProgress.Store(false)
}
