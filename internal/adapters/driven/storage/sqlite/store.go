package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Store is a unified SQLite-based storage that provides access to
// the storage port interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string

	mu  sync.RWMutex
	now func() time.Time
}

// Ensure Store implements the interface.
var _ driven.ExpiryPurger = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-answers/data/answers.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-answers", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "answers.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SetClock replaces the time source used for expiry. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// KVStore returns a KVStore interface backed by this store.
func (s *Store) KVStore() driven.KVStore {
	return &kvStore{store: s}
}

// EventLog returns an EventLog interface backed by this store.
func (s *Store) EventLog() driven.EventLog {
	return &eventLog{store: s}
}

// PurgeExpired deletes expired key-value entries and returns how many were removed.
// Reads already hide expired entries; this only reclaims space.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE expires_at > 0 AND expires_at <= ?", s.clock().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging expired entries: %w", err)
	}
	return res.RowsAffected()
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		logger.Debug("Applied migration %s", name)
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// expiry converts a ttl into the stored expires_at value.
func (s *Store) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.clock().Add(ttl).UnixNano()
}

// ==================== KV Store ====================

// kvStore implements driven.KVStore.
type kvStore struct {
	store *Store
}

var _ driven.KVStore = (*kvStore)(nil)

// Get returns the live value for key.
func (k *kvStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.store.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE key = ? AND (expires_at = 0 OR expires_at > ?)",
		key, k.store.clock().UnixNano(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces value under key.
func (k *kvStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := k.store.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, k.store.expiry(ttl))
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// SetNX stores value only when key is absent or expired.
func (k *kvStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	res, err := k.store.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
		WHERE kv.expires_at > 0 AND kv.expires_at <= ?
	`, key, value, k.store.expiry(ttl), k.store.clock().UnixNano())
	if err != nil {
		return false, fmt.Errorf("setting %s if absent: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting %s if absent: %w", key, err)
	}
	return n == 1, nil
}

// Incr increments the integer under key in a single statement.
// An expired entry restarts at 1 with a fresh ttl.
func (k *kvStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := k.store.clock().UnixNano()
	var n int64
	err := k.store.db.QueryRowContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, '1', ?)
		ON CONFLICT(key) DO UPDATE SET
			value = CASE WHEN kv.expires_at > 0 AND kv.expires_at <= ?
				THEN '1' ELSE CAST(CAST(kv.value AS INTEGER) + 1 AS TEXT) END,
			expires_at = CASE WHEN kv.expires_at > 0 AND kv.expires_at <= ?
				THEN excluded.expires_at ELSE kv.expires_at END
		RETURNING CAST(value AS INTEGER)
	`, key, k.store.expiry(ttl), now, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", key, err)
	}
	return n, nil
}

// Delete removes key.
func (k *kvStore) Delete(ctx context.Context, key string) error {
	if _, err := k.store.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// ==================== Event Log ====================

// eventLog implements driven.EventLog.
type eventLog struct {
	store *Store
}

var _ driven.EventLog = (*eventLog)(nil)

// Record inserts one event, assigning an ID and timestamp when missing.
func (l *eventLog) Record(ctx context.Context, event domain.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.store.clock()
	}

	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO search_events
			(id, query, query_hash, results_count, ai_success, error,
			 cache_hit, response_time_ms, helpful, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.Query,
		event.QueryHash,
		event.ResultsCount,
		event.AISuccess,
		event.Error,
		nullableInt(event.CacheHit),
		nullableInt(event.ResponseTimeMS),
		nullableBool(event.Helpful),
		event.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. A limit of zero or
// less returns every event.
func (l *eventLog) Recent(ctx context.Context, limit int) ([]domain.SearchEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, query, query_hash, results_count, ai_success, error,
		       cache_hit, response_time_ms, helpful, created_at
		FROM search_events
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.SearchEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (domain.SearchEvent, error) {
	var (
		event                           domain.SearchEvent
		cacheHit, responseTime, helpful sql.NullInt64
		createdAt                       int64
	)
	err := rows.Scan(
		&event.ID,
		&event.Query,
		&event.QueryHash,
		&event.ResultsCount,
		&event.AISuccess,
		&event.Error,
		&cacheHit,
		&responseTime,
		&helpful,
		&createdAt,
	)
	if err != nil {
		return domain.SearchEvent{}, fmt.Errorf("scanning event: %w", err)
	}
	if cacheHit.Valid {
		event.CacheHit = domain.IntPtr(int(cacheHit.Int64))
	}
	if responseTime.Valid {
		event.ResponseTimeMS = domain.IntPtr(int(responseTime.Int64))
	}
	if helpful.Valid {
		event.Helpful = domain.BoolPtr(helpful.Int64 != 0)
	}
	event.CreatedAt = time.Unix(0, createdAt)
	return event, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	if *v {
		return 1
	}
	return 0
}
