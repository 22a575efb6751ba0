package cache

// schemaSQL defines the SQLite schema for the cache database.
// Tables:
//   - scans: one row per completed scan with its score
//   - findings: confirmed findings of each scan
//   - file_index: tracks file content hashes for incremental rescans
const schemaSQL = `
CREATE TABLE IF NOT EXISTS scans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    files INTEGER NOT NULL DEFAULT 0,
    total_lines INTEGER NOT NULL DEFAULT 0,
    raw_lines INTEGER NOT NULL DEFAULT 0,
    weighted_lines REAL NOT NULL DEFAULT 0,
    density REAL NOT NULL DEFAULT 0,
    band TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
    scan_id INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    finding_id TEXT NOT NULL,
    pattern TEXT NOT NULL,
    category TEXT NOT NULL,
    file TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    lines_saved INTEGER NOT NULL DEFAULT 0,
    technique TEXT NOT NULL,
    reason TEXT NOT NULL,
    PRIMARY KEY (scan_id, finding_id)
);

CREATE TABLE IF NOT EXISTS file_index (
    file_path TEXT PRIMARY KEY,
    scan_hash TEXT NOT NULL,
    scanned_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_file ON findings(scan_id, file);
CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at DESC);
`

// initSchema creates the database tables and indexes if they don't exist.
func (c *Cache) initSchema() error {
	_, err := c.db.Exec(schemaSQL)
	return err
}
