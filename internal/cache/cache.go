// Package cache persists session snapshots to a local SQLite file so an
// interrupted participant can resume where they left off. It is a
// best-effort side channel: the funnel never blocks on it and callers are
// expected to log, not propagate, its failures.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

// ErrSnapshotNotFound is returned when no usable snapshot exists for a key.
var ErrSnapshotNotFound = errors.New("no session snapshot found")

// SessionCache stores one JSON snapshot per response id with a saved-at
// timestamp. Snapshots older than MaxAge are treated as absent.
type SessionCache struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// Opts configures a SessionCache.
type Opts struct {
	// MaxAge bounds snapshot staleness. Zero means the session default.
	MaxAge time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Open opens or creates the snapshot database at path.
func Open(path string, opts *Opts) (*SessionCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	c := &SessionCache{db: db, maxAge: models.SessionMaxAge, now: time.Now}
	if opts != nil {
		if opts.MaxAge > 0 {
			c.maxAge = opts.MaxAge
		}
		if opts.Now != nil {
			c.now = opts.Now
		}
	}

	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return c, nil
}

func (c *SessionCache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_snapshots (
		response_id TEXT PRIMARY KEY,
		state       TEXT NOT NULL,
		saved_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_saved ON session_snapshots(saved_at DESC);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Save upserts the snapshot for the session's response id.
func (c *SessionCache) Save(state *models.SessionState) error {
	if state == nil || state.ResponseID == "" {
		return errors.New("session snapshot requires a response id")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	_, err = c.db.Exec(`
		INSERT INTO session_snapshots (response_id, state, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(response_id) DO UPDATE SET state = excluded.state, saved_at = excluded.saved_at`,
		state.ResponseID, string(payload), c.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	slog.Debug("SessionCache saved snapshot", "responseID", state.ResponseID)
	return nil
}

// Load returns the snapshot for responseID, or ErrSnapshotNotFound if it is
// missing, stale, or unreadable. Stale and corrupt rows are removed.
func (c *SessionCache) Load(responseID string) (*models.SessionState, error) {
	var payload, savedAt string
	err := c.db.QueryRow(
		`SELECT state, saved_at FROM session_snapshots WHERE response_id = ?`, responseID).
		Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	return c.decode(responseID, payload, savedAt)
}

// LoadLatest returns the most recently saved non-stale snapshot.
func (c *SessionCache) LoadLatest() (*models.SessionState, error) {
	var responseID, payload, savedAt string
	err := c.db.QueryRow(
		`SELECT response_id, state, saved_at FROM session_snapshots ORDER BY saved_at DESC LIMIT 1`).
		Scan(&responseID, &payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest session snapshot: %w", err)
	}
	return c.decode(responseID, payload, savedAt)
}

func (c *SessionCache) decode(responseID, payload, savedAt string) (*models.SessionState, error) {
	saved, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil || c.now().Sub(saved) > c.maxAge {
		slog.Debug("SessionCache discarding stale snapshot", "responseID", responseID, "savedAt", savedAt)
		c.Clear(responseID)
		return nil, ErrSnapshotNotFound
	}
	var state models.SessionState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		slog.Error("SessionCache snapshot corrupt, discarding", "responseID", responseID, "error", err)
		c.Clear(responseID)
		return nil, ErrSnapshotNotFound
	}
	return &state, nil
}

// Clear removes the snapshot for responseID. Missing rows are not an error.
func (c *SessionCache) Clear(responseID string) error {
	_, err := c.db.Exec(`DELETE FROM session_snapshots WHERE response_id = ?`, responseID)
	if err != nil {
		return fmt.Errorf("clear session snapshot: %w", err)
	}
	return nil
}

// PurgeStale deletes every snapshot older than the cache's max age and
// returns the number removed.
func (c *SessionCache) PurgeStale() (int64, error) {
	cutoff := c.now().Add(-c.maxAge).UTC().Format(time.RFC3339Nano)
	res, err := c.db.Exec(`DELETE FROM session_snapshots WHERE saved_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge stale snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Debug("SessionCache purged stale snapshots", "count", n)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *SessionCache) Close() error {
	return c.db.Close()
}
