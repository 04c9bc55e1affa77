// Package cache is the local fact cache: per-field content hashes keyed by
// listing URL, and a raw page cache with a time-to-live. Storage errors are
// logged and degrade to cache misses; nothing here is fatal once opened.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"rental-tracker/utils"
)

// Page is a cached raw fetch result.
type Page struct {
	URL        string
	Content    string
	Headers    map[string]string
	StatusCode int
	CachedAt   time.Time
}

// Stats summarizes cache contents.
type Stats struct {
	TotalPages     int
	RecentPages    int
	TotalBytes     int64
	OldestPage     time.Time
	NewestPage     time.Time
	TotalHashes    int
	URLsWithHashes int
}

// FactCache is a SQLite-backed store. A FactCache with no database (see
// Unavailable) answers every lookup with a miss and drops every write.
type FactCache struct {
	db     *sql.DB
	hasher utils.Hasher
	logger *utils.Logger
	now    func() time.Time
}

// Open opens (or creates) the cache database at path and migrates the schema.
func Open(path string, hasher utils.Hasher, logger *utils.Logger) (*FactCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open %q: %w", path, err)
	}
	// One connection: writes are sequential and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: ping %q: %w", path, err)
	}

	c := &FactCache{db: db, hasher: hasher, logger: logger, now: time.Now}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	logger.Debug("[cache] Opened fact cache: %s", path)
	return c, nil
}

// Unavailable returns a FactCache that behaves as permanently empty. Used when
// the database cannot be opened; reconciliation then treats every field as
// unprotected instead of blocking the pipeline.
func Unavailable(hasher utils.Hasher, logger *utils.Logger) *FactCache {
	return &FactCache{hasher: hasher, logger: logger, now: time.Now}
}

// Available reports whether the cache has a working database.
func (c *FactCache) Available() bool {
	return c.db != nil
}

// Hasher returns the hasher used for field values.
func (c *FactCache) Hasher() utils.Hasher {
	return c.hasher
}

func (c *FactCache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS field_hashes (
			url          TEXT    NOT NULL,
			field_name   TEXT    NOT NULL,
			hash         TEXT    NOT NULL,
			last_updated INTEGER NOT NULL,
			PRIMARY KEY (url, field_name)
		);

		CREATE TABLE IF NOT EXISTS page_cache (
			url_hash      TEXT PRIMARY KEY,
			url           TEXT    NOT NULL,
			content       TEXT    NOT NULL,
			headers       TEXT,
			status_code   INTEGER NOT NULL DEFAULT 200,
			cached_at     INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_field_hashes_url ON field_hashes(url);
		CREATE INDEX IF NOT EXISTS idx_page_cache_cached_at ON page_cache(cached_at);
	`)
	return err
}

// Close closes the underlying database.
func (c *FactCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func urlKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// ── Field hashes ────────────────────────────────────────────────────────────

// GetHash returns the stored hash for (url, field).
func (c *FactCache) GetHash(url, field string) (string, bool) {
	if c.db == nil {
		return "", false
	}
	var h string
	err := c.db.QueryRow(
		`SELECT hash FROM field_hashes WHERE url = ? AND field_name = ?`, url, field,
	).Scan(&h)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		c.logger.Error("[cache] get hash %s/%s: %v", url, field, err)
		return "", false
	}
	return h, true
}

// SetHash stores the hash of value for (url, field). An empty value clears
// the entry instead: empty values are never protected.
func (c *FactCache) SetHash(url, field, value string) {
	if c.db == nil {
		return
	}
	if value == "" {
		c.ClearSpecificHashes(url, []string{field})
		return
	}
	_, err := c.db.Exec(`
		INSERT INTO field_hashes (url, field_name, hash, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url, field_name) DO UPDATE SET
			hash = excluded.hash,
			last_updated = excluded.last_updated
	`, url, field, c.hasher.Sum(value), c.now().Unix())
	if err != nil {
		c.logger.Error("[cache] set hash %s/%s: %v", url, field, err)
	}
}

// GetAllHashes returns field -> hash for url. Errors yield an empty map.
func (c *FactCache) GetAllHashes(url string) map[string]string {
	out := make(map[string]string)
	if c.db == nil {
		return out
	}
	rows, err := c.db.Query(`SELECT field_name, hash FROM field_hashes WHERE url = ?`, url)
	if err != nil {
		c.logger.Error("[cache] get hashes %s: %v", url, err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var field, h string
		if err := rows.Scan(&field, &h); err != nil {
			c.logger.Error("[cache] scan hash row %s: %v", url, err)
			return make(map[string]string)
		}
		out[field] = h
	}
	if err := rows.Err(); err != nil {
		c.logger.Error("[cache] iterate hashes %s: %v", url, err)
		return make(map[string]string)
	}
	return out
}

// ReplaceHashes atomically swaps the hash set of url for hashes. Entries with
// an empty hash are skipped.
func (c *FactCache) ReplaceHashes(url string, hashes map[string]string) {
	if c.db == nil {
		return
	}
	tx, err := c.db.Begin()
	if err != nil {
		c.logger.Error("[cache] replace hashes %s: begin: %v", url, err)
		return
	}
	if _, err := tx.Exec(`DELETE FROM field_hashes WHERE url = ?`, url); err != nil {
		_ = tx.Rollback()
		c.logger.Error("[cache] replace hashes %s: delete: %v", url, err)
		return
	}
	now := c.now().Unix()
	for field, h := range hashes {
		if h == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO field_hashes (url, field_name, hash, last_updated) VALUES (?, ?, ?, ?)`,
			url, field, h, now,
		); err != nil {
			_ = tx.Rollback()
			c.logger.Error("[cache] replace hashes %s: insert %s: %v", url, field, err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		c.logger.Error("[cache] replace hashes %s: commit: %v", url, err)
	}
}

// ClearHashes removes every field hash for url.
func (c *FactCache) ClearHashes(url string) {
	if c.db == nil {
		return
	}
	res, err := c.db.Exec(`DELETE FROM field_hashes WHERE url = ?`, url)
	if err != nil {
		c.logger.Error("[cache] clear hashes %s: %v", url, err)
		return
	}
	n, _ := res.RowsAffected()
	c.logger.Debug("[cache] Cleared %d field hashes for %s", n, url)
}

// ClearSpecificHashes removes the hashes of the given fields for url.
func (c *FactCache) ClearSpecificHashes(url string, fields []string) {
	if c.db == nil {
		return
	}
	for _, f := range fields {
		if _, err := c.db.Exec(
			`DELETE FROM field_hashes WHERE url = ? AND field_name = ?`, url, f,
		); err != nil {
			c.logger.Error("[cache] clear hash %s/%s: %v", url, f, err)
		}
	}
}

// ── Page cache ──────────────────────────────────────────────────────────────

// GetPage returns the cached page for url when it is younger than maxAge.
// A non-positive maxAge disables expiry.
func (c *FactCache) GetPage(url string, maxAge time.Duration) (*Page, bool) {
	if c.db == nil {
		return nil, false
	}
	key := urlKey(url)

	var (
		p           = &Page{URL: url}
		headersJSON sql.NullString
		cachedAt    int64
	)
	err := c.db.QueryRow(`
		SELECT content, headers, status_code, cached_at
		FROM page_cache WHERE url_hash = ?
	`, key).Scan(&p.Content, &headersJSON, &p.StatusCode, &cachedAt)
	if err == sql.ErrNoRows {
		c.logger.Debug("[cache] Page miss: %s", url)
		return nil, false
	}
	if err != nil {
		c.logger.Error("[cache] get page %s: %v", url, err)
		return nil, false
	}

	p.CachedAt = time.Unix(0, cachedAt)
	if maxAge > 0 && c.now().Sub(p.CachedAt) > maxAge {
		c.logger.Debug("[cache] Page expired: %s (cached %s)", url, p.CachedAt.Format(time.RFC3339))
		return nil, false
	}

	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &p.Headers); err != nil {
			c.logger.Warn("[cache] Ignoring corrupt headers for %s: %v", url, err)
			p.Headers = nil
		}
	}

	if _, err := c.db.Exec(
		`UPDATE page_cache SET last_accessed = ? WHERE url_hash = ?`, c.now().UnixNano(), key,
	); err != nil {
		c.logger.Warn("[cache] touch page %s: %v", url, err)
	}

	c.logger.Debug("[cache] Page hit: %s", url)
	return p, true
}

// SetPage stores raw content for url, replacing any previous entry.
func (c *FactCache) SetPage(url, content string, headers map[string]string, statusCode int) {
	if c.db == nil {
		return
	}
	var headersJSON sql.NullString
	if len(headers) > 0 {
		b, err := json.Marshal(headers)
		if err == nil {
			headersJSON = sql.NullString{String: string(b), Valid: true}
		}
	}
	now := c.now().UnixNano()
	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO page_cache
			(url_hash, url, content, headers, status_code, cached_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, urlKey(url), url, content, headersJSON, statusCode, now, now)
	if err != nil {
		c.logger.Error("[cache] set page %s: %v", url, err)
		return
	}
	c.logger.Debug("[cache] Cached page: %s (%d bytes)", url, len(content))
}

// ClearExpired deletes pages older than maxAge and returns how many went.
func (c *FactCache) ClearExpired(maxAge time.Duration) int {
	if c.db == nil {
		return 0
	}
	cutoff := c.now().Add(-maxAge).UnixNano()
	res, err := c.db.Exec(`DELETE FROM page_cache WHERE cached_at < ?`, cutoff)
	if err != nil {
		c.logger.Error("[cache] clear expired: %v", err)
		return 0
	}
	n, _ := res.RowsAffected()
	c.logger.Info("[cache] Cleared %d page(s) older than %v", n, maxAge)
	return int(n)
}

// ClearPages deletes every cached page. Field hashes are untouched.
func (c *FactCache) ClearPages() int {
	if c.db == nil {
		return 0
	}
	res, err := c.db.Exec(`DELETE FROM page_cache`)
	if err != nil {
		c.logger.Error("[cache] clear pages: %v", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// Stats reports cache contents. Errors yield zero values.
func (c *FactCache) Stats() Stats {
	var s Stats
	if c.db == nil {
		return s
	}

	var (
		oldest, newest sql.NullInt64
		size           sql.NullInt64
	)
	err := c.db.QueryRow(`
		SELECT COUNT(*), MIN(cached_at), MAX(cached_at), SUM(LENGTH(content))
		FROM page_cache
	`).Scan(&s.TotalPages, &oldest, &newest, &size)
	if err != nil {
		c.logger.Error("[cache] stats pages: %v", err)
		return Stats{}
	}
	if oldest.Valid {
		s.OldestPage = time.Unix(0, oldest.Int64)
	}
	if newest.Valid {
		s.NewestPage = time.Unix(0, newest.Int64)
	}
	s.TotalBytes = size.Int64

	recentCutoff := c.now().Add(-24 * time.Hour).UnixNano()
	if err := c.db.QueryRow(
		`SELECT COUNT(*) FROM page_cache WHERE cached_at >= ?`, recentCutoff,
	).Scan(&s.RecentPages); err != nil {
		c.logger.Error("[cache] stats recent pages: %v", err)
	}

	if err := c.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT url) FROM field_hashes`,
	).Scan(&s.TotalHashes, &s.URLsWithHashes); err != nil {
		c.logger.Error("[cache] stats hashes: %v", err)
	}
	return s
}
