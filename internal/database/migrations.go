package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    domain TEXT NOT NULL,
    business_type TEXT,
    profile TEXT NOT NULL,
    location TEXT,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'completed', 'failed')),
    overall_score INTEGER,
    error TEXT,
    started_at TEXT DEFAULT (datetime('now')),
    completed_at TEXT
);

CREATE TABLE IF NOT EXISTS scan_queries (
    scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    query_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    query TEXT NOT NULL,
    category TEXT NOT NULL,
    suggested_by TEXT,
    relevance_score INTEGER DEFAULT 0,
    PRIMARY KEY (scan_id, query_id)
);

CREATE TABLE IF NOT EXISTS scan_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    query_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    query TEXT NOT NULL,
    platform TEXT NOT NULL,
    response TEXT,
    sources TEXT,
    search_enabled INTEGER DEFAULT 0,
    domain_mentioned INTEGER DEFAULT 0,
    mention_position INTEGER,
    competitors TEXT,
    response_time_ms INTEGER DEFAULT 0,
    error TEXT,
    UNIQUE (scan_id, query_id, platform)
);

CREATE TABLE IF NOT EXISTS platform_scores (
    scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    platform TEXT NOT NULL,
    score INTEGER NOT NULL,
    mentioned INTEGER NOT NULL,
    total INTEGER NOT NULL,
    PRIMARY KEY (scan_id, platform)
);

CREATE INDEX IF NOT EXISTS idx_scans_domain ON scans(domain, started_at);
CREATE INDEX IF NOT EXISTS idx_scan_results_scan ON scan_results(scan_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
