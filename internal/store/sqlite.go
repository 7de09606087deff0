// Package store persists crawled pages in a SQLite cache so repeated crawl
// runs skip pages that are still fresh.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/omnidatabase/codex-cli/internal/model"
)

// PageCache is a TTL page cache backed by modernc.org/sqlite.
type PageCache struct {
	db  *sql.DB
	ttl time.Duration
}

const pageCacheMigration = `
CREATE TABLE IF NOT EXISTS page_cache (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	page       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_cache_title ON page_cache(title);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

// OpenPageCache opens (or creates) the cache database at path, configures
// WAL mode, and applies the schema. Entries expire after ttl.
func OpenPageCache(path string, ttl time.Duration) (*PageCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open page cache")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	if _, err := db.Exec(pageCacheMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "store: migrate page cache")
	}
	return &PageCache{db: db, ttl: ttl}, nil
}

func (c *PageCache) Close() error {
	return c.db.Close()
}

// Get returns the freshest unexpired cached page for title, or (nil, nil)
// on a miss.
func (c *PageCache) Get(ctx context.Context, title string) (*model.RawPage, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT page FROM page_cache
		 WHERE title = ? AND expires_at > datetime('now')
		 ORDER BY cached_at DESC LIMIT 1`,
		title,
	)

	var pageJSON string
	err := row.Scan(&pageJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get cached page")
	}
	var page model.RawPage
	if err := json.Unmarshal([]byte(pageJSON), &page); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal cached page")
	}
	return &page, nil
}

// Put caches a page under title with the configured TTL.
func (c *PageCache) Put(ctx context.Context, title string, page *model.RawPage) error {
	pageJSON, err := json.Marshal(page)
	if err != nil {
		return eris.Wrap(err, "store: marshal page")
	}

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO page_cache (id, title, page, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), title, string(pageJSON), now, now.Add(c.ttl),
	)
	return eris.Wrap(err, "store: put cached page")
}

// DeleteExpired removes stale entries and returns how many were deleted.
func (c *PageCache) DeleteExpired(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "store: delete expired pages")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "store: rows affected")
}
