// Package storage exports finished crawls to SQLite.
// Each SaveResult replaces the previous contents, so a database holds one run.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/masahif/linkspider/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Meta keys written by SaveResult
const (
	MetaSeedURL      = "seed_url"
	MetaSiteBase     = "site_base"
	MetaStartedAt    = "started_at"
	MetaDuration     = "duration"
	MetaPagesCrawled = "pages_crawled"
	MetaPagesFailed  = "pages_failed"
	MetaSkipped      = "skipped"
)

// SQLiteStorage stores crawl results in a SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveResult replaces the stored crawl with result in a single transaction
func (s *SQLiteStorage) SaveResult(result *crawler.Result) error {
	if result == nil {
		return errors.New("nil crawl result")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"links", "pages", "crawl_failures", "crawl_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	pageStmt, err := tx.Prepare("INSERT INTO pages (level, url) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = pageStmt.Close() }()

	linkStmt, err := tx.Prepare(`
		INSERT INTO links (level, position, source_url, target_url)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = linkStmt.Close() }()

	for _, level := range result.Levels {
		source := ""
		for _, u := range level.Visited {
			if _, err := pageStmt.Exec(level.Number, u); err != nil {
				return fmt.Errorf("failed to insert page %s: %w", u, err)
			}
			source = u
		}
		for i, target := range level.Links {
			if _, err := linkStmt.Exec(level.Number, i, source, target); err != nil {
				return fmt.Errorf("failed to insert link %s -> %s: %w", source, target, err)
			}
		}
	}

	for _, failure := range result.Failures {
		if _, err := tx.Exec(
			"INSERT INTO crawl_failures (url, reason, occurred_at) VALUES (?, ?, ?)",
			failure.URL, failure.Reason, failure.OccurredAt,
		); err != nil {
			return fmt.Errorf("failed to insert failure %s: %w", failure.URL, err)
		}
	}

	meta := map[string]string{
		MetaSeedURL:      result.SeedURL,
		MetaSiteBase:     result.SiteBase,
		MetaStartedAt:    result.Stats.StartTime.UTC().Format(time.RFC3339),
		MetaDuration:     result.Stats.Duration.String(),
		MetaPagesCrawled: strconv.Itoa(result.Stats.PagesCrawled),
		MetaPagesFailed:  strconv.Itoa(result.Stats.PagesFailed),
		MetaSkipped:      strconv.Itoa(result.Stats.Skipped),
	}
	for key, value := range meta {
		if _, err := tx.Exec("INSERT INTO crawl_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to set meta %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// VisitedURLs returns the stored visited pages in level order
func (s *SQLiteStorage) VisitedURLs() ([]string, error) {
	rows, err := s.db.Query("SELECT url FROM pages ORDER BY level, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// LinkCount returns how many recorded links point at url
func (s *SQLiteStorage) LinkCount(url string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM links WHERE target_url = ?", url).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// LinksToVisited returns the number of links at level that point at a
// visited page, as reported in results.txt
func (s *SQLiteStorage) LinksToVisited(level int) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COALESCE(SUM(links_to_visited), 0) FROM level_summary WHERE level = ?", level,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query level summary: %w", err)
	}
	return count, nil
}

// Failures returns the stored failures in insertion order
func (s *SQLiteStorage) Failures() ([]crawler.PageFailure, error) {
	rows, err := s.db.Query("SELECT url, reason, occurred_at FROM crawl_failures ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var failures []crawler.PageFailure
	for rows.Next() {
		var f crawler.PageFailure
		if err := rows.Scan(&f.URL, &f.Reason, &f.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// GetMeta retrieves a metadata value
func (s *SQLiteStorage) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}
