package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/slopdetect/slop/internal/detect"
	"github.com/slopdetect/slop/internal/score"
)

// ScanRecord is one persisted scan with its score.
type ScanRecord struct {
	ID            int64
	CreatedAt     time.Time
	Files         int
	TotalLines    int
	RawLines      int
	WeightedLines float64
	Density       float64
	Band          string
}

// FindingRecord is one persisted confirmed finding.
type FindingRecord struct {
	FindingID  string
	Pattern    string
	Category   string
	File       string
	StartLine  int
	EndLine    int
	LinesSaved int
	Technique  string
	Reason     string
}

// SaveScan persists a completed scan and its confirmed findings in one
// transaction. Returns the new scan id.
func (c *Cache) SaveScan(s *score.Score, findings []*detect.Finding, files int) (int64, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO scans (created_at, files, total_lines, raw_lines, weighted_lines, density, band)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Format(time.RFC3339), files, s.TotalLines, s.RawLines,
		s.WeightedLines, s.Density, string(s.Band),
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("insert scan: %w", err)
	}
	scanID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("scan id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO findings (scan_id, finding_id, pattern, category, file,
			start_line, end_line, lines_saved, technique, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range findings {
		if !f.Confirmed() {
			continue
		}
		_, err := stmt.Exec(scanID, f.ID, f.Pattern, f.Category.String(), f.File,
			f.StartLine, f.EndLine, f.LinesSaved,
			string(f.Outcome.Technique), f.Outcome.Reason)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("save finding %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return scanID, nil
}

// LatestScan returns the most recent scan record.
// Returns sql.ErrNoRows if no scan has been saved.
func (c *Cache) LatestScan() (*ScanRecord, error) {
	row := c.db.QueryRow(`
		SELECT id, created_at, files, total_lines, raw_lines, weighted_lines, density, band
		FROM scans ORDER BY id DESC LIMIT 1`)
	return scanRecord(row)
}

// History returns up to limit scan records, newest first.
func (c *Cache) History(limit int) ([]ScanRecord, error) {
	rows, err := c.db.Query(`
		SELECT id, created_at, files, total_lines, raw_lines, weighted_lines, density, band
		FROM scans ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var r ScanRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.Files, &r.TotalLines,
			&r.RawLines, &r.WeightedLines, &r.Density, &r.Band); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Findings returns the persisted findings of one scan, ordered by file
// and line.
func (c *Cache) Findings(scanID int64) ([]FindingRecord, error) {
	rows, err := c.db.Query(`
		SELECT finding_id, pattern, category, file, start_line, end_line,
			lines_saved, technique, reason
		FROM findings WHERE scan_id = ?
		ORDER BY file, start_line, finding_id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var records []FindingRecord
	for rows.Next() {
		var r FindingRecord
		if err := rows.Scan(&r.FindingID, &r.Pattern, &r.Category, &r.File,
			&r.StartLine, &r.EndLine, &r.LinesSaved, &r.Technique, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

func scanRecord(row *sql.Row) (*ScanRecord, error) {
	var r ScanRecord
	var createdAt string
	err := row.Scan(&r.ID, &createdAt, &r.Files, &r.TotalLines,
		&r.RawLines, &r.WeightedLines, &r.Density, &r.Band)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}
