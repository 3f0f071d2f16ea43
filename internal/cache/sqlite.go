// Package cache keeps fetched pages on disk so repeated searches within the
// expiry window do not hit the marketplace again.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	url        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
)`

// SQLiteCache is a URL-keyed page cache with a fixed time-to-live.
type SQLiteCache struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// Open creates or opens <dir>/pages.db. A non-positive ttl defaults to one hour.
func Open(dir string, ttl time.Duration) (*SQLiteCache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	dbPath := filepath.Join(dir, "pages.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteCache{db: db, path: dbPath, ttl: ttl, now: time.Now}, nil
}

// Path returns the database file path.
func (c *SQLiteCache) Path() string { return c.path }

// Close closes the database connection.
func (c *SQLiteCache) Close() error { return c.db.Close() }

// Get returns the cached body for url if it is younger than the TTL.
func (c *SQLiteCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	var (
		body      []byte
		fetchedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM pages WHERE url = ?`, url,
	).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached page: %w", err)
	}

	if c.now().Sub(time.Unix(0, fetchedAt)) > c.ttl {
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores body for url, replacing any previous entry.
func (c *SQLiteCache) Put(ctx context.Context, url string, body []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO pages (url, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		url, body, c.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cached page: %w", err)
	}
	return nil
}

// Purge deletes expired entries and reports how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).UnixNano()
	res, err := c.db.ExecContext(ctx, `DELETE FROM pages WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}
