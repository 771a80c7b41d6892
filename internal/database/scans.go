package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

const scanColumns = `id, domain, business_type, profile, location, status, overall_score, error, started_at, completed_at`

// CreateScan records a new running scan and returns its ID.
func (db *DB) CreateScan(domain string, profile models.BusinessProfile, loc *models.LocationContext) (string, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encoding profile: %w", err)
	}
	var locJSON *string
	if loc != nil {
		b, err := json.Marshal(loc)
		if err != nil {
			return "", fmt.Errorf("encoding location: %w", err)
		}
		s := string(b)
		locJSON = &s
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(
		`INSERT INTO scans (id, domain, business_type, profile, location, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, domain, profile.BusinessType, string(profileJSON), locJSON, StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("inserting scan: %w", err)
	}
	return id, nil
}

// CompleteScan stores the scores and marks the scan completed.
func (db *DB) CompleteScan(scanID string, score models.ScoreResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE scans SET status = ?, overall_score = ?, completed_at = datetime('now')
		WHERE id = ?`,
		StatusCompleted, score.Overall, scanID,
	)
	if err != nil {
		return fmt.Errorf("updating scan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
	}

	for _, p := range models.Platforms {
		ps := score.ByPlatform[p]
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO platform_scores (scan_id, platform, score, mentioned, total)
			VALUES (?, ?, ?, ?, ?)`,
			scanID, string(p), ps.Score, ps.Mentioned, ps.Total,
		); err != nil {
			return fmt.Errorf("inserting %s score: %w", p, err)
		}
	}
	return tx.Commit()
}

// FailScan marks a scan failed with the given reason.
func (db *DB) FailScan(scanID, reason string) error {
	_, err := db.conn.Exec(
		`UPDATE scans SET status = ?, error = ?, completed_at = datetime('now') WHERE id = ?`,
		StatusFailed, reason, scanID,
	)
	return err
}

// GetScan returns a scan by ID.
func (db *DB) GetScan(scanID string) (*Scan, error) {
	row := db.conn.QueryRow(`SELECT `+scanColumns+` FROM scans WHERE id = ?`, scanID)
	s, err := scanScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
	}
	return s, err
}

// FindScan resolves a full scan ID or a unique prefix of one.
func (db *DB) FindScan(idOrPrefix string) (*Scan, error) {
	if s, err := db.GetScan(idOrPrefix); err == nil || !errors.Is(err, ErrNotFound) {
		return s, err
	}

	scans, err := db.queryScans(
		`SELECT `+scanColumns+` FROM scans WHERE id LIKE ? || '%' LIMIT 2`, idOrPrefix,
	)
	if err != nil {
		return nil, err
	}
	switch len(scans) {
	case 0:
		return nil, fmt.Errorf("scan %s: %w", idOrPrefix, ErrNotFound)
	case 1:
		return &scans[0], nil
	default:
		return nil, fmt.Errorf("scan prefix %q is ambiguous", idOrPrefix)
	}
}

// ListScans returns scans, newest first. An empty domain lists all domains.
// limit <= 0 means no limit.
func (db *DB) ListScans(domain string, limit int) ([]Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans`
	var args []any
	if domain != "" {
		query += " WHERE domain = ?"
		args = append(args, domain)
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return db.queryScans(query, args...)
}

// LatestScan returns the newest completed scan for a domain.
func (db *DB) LatestScan(domain string) (*Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE status = ?`
	args := []any{StatusCompleted}
	if domain != "" {
		query += " AND domain = ?"
		args = append(args, domain)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT 1"

	s, err := scanScan(db.conn.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("completed scan for %q: %w", domain, ErrNotFound)
	}
	return s, err
}

// DeleteScan removes a scan and everything stored under it.
func (db *DB) DeleteScan(scanID string) error {
	_, err := db.conn.Exec("DELETE FROM scans WHERE id = ?", scanID)
	return err
}

func (db *DB) queryScans(query string, args ...any) ([]Scan, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *s)
	}
	return scans, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(row rowScanner) (*Scan, error) {
	var (
		s           Scan
		bizType     *string
		profileJSON string
		locJSON     *string
		overall     sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Domain, &bizType, &profileJSON, &locJSON, &s.Status,
		&overall, &s.Error, &s.StartedAt, &s.CompletedAt); err != nil {
		return nil, err
	}
	if bizType != nil {
		s.BusinessType = *bizType
	}
	if err := json.Unmarshal([]byte(profileJSON), &s.Profile); err != nil {
		return nil, fmt.Errorf("decoding profile of scan %s: %w", s.ID, err)
	}
	if locJSON != nil {
		var loc models.LocationContext
		if err := json.Unmarshal([]byte(*locJSON), &loc); err == nil {
			s.Location = &loc
		}
	}
	if overall.Valid {
		v := int(overall.Int64)
		s.OverallScore = &v
	}
	return &s, nil
}
