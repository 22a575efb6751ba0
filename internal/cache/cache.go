// Package cache provides SQLite-backed storage for scan results and file
// state. The database lives in .slop/cache.db; scans accumulate as
// history so reports can show drift, and the file index lets a rescan
// skip work when nothing changed.
package cache

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache manages the .slop/cache.db SQLite database.
type Cache struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the cache database in the specified .slop directory.
// It initializes the schema if the database is new.
func Open(slopDir string) (*Cache, error) {
	dbPath := filepath.Join(slopDir, "cache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	cache := &Cache{db: db, dbPath: dbPath}

	// Initialize schema
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return cache, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Clear removes all cached data.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM findings; DELETE FROM scans; DELETE FROM file_index;")
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// ClearFileIndex removes all file index data, forcing the next scan to
// treat every file as changed.
func (c *Cache) ClearFileIndex() error {
	_, err := c.db.Exec("DELETE FROM file_index")
	if err != nil {
		return fmt.Errorf("clear file index: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.dbPath
}

// DB returns the underlying database connection for advanced operations.
func (c *Cache) DB() *sql.DB {
	return c.db
}

// Stats returns cache statistics.
type Stats struct {
	ScanCount      int64
	FindingCount   int64
	FileIndexCount int64
}

// GetStats returns statistics about the cache contents.
func (c *Cache) GetStats() (*Stats, error) {
	var stats Stats

	err := c.db.QueryRow("SELECT COUNT(*) FROM scans").Scan(&stats.ScanCount)
	if err != nil {
		return nil, fmt.Errorf("count scans: %w", err)
	}

	err = c.db.QueryRow("SELECT COUNT(*) FROM findings").Scan(&stats.FindingCount)
	if err != nil {
		return nil, fmt.Errorf("count findings: %w", err)
	}

	err = c.db.QueryRow("SELECT COUNT(*) FROM file_index").Scan(&stats.FileIndexCount)
	if err != nil {
		return nil, fmt.Errorf("count file index: %w", err)
	}

	return &stats, nil
}
