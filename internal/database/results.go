package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// SaveQueries stores the shortlisted queries of a scan in order.
func (db *DB) SaveQueries(scanID string, queries []models.ResearchedQuery) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, q := range queries {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO scan_queries
			(scan_id, query_id, position, query, category, suggested_by, relevance_score)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			scanID, q.ID, i, q.Query, string(q.Category), joinPlatforms(q.SuggestedBy), q.RelevanceScore,
		); err != nil {
			return fmt.Errorf("inserting query %q: %w", q.Query, err)
		}
	}
	return tx.Commit()
}

// GetQueries returns a scan's queries in their original order.
func (db *DB) GetQueries(scanID string) ([]models.ResearchedQuery, error) {
	rows, err := db.conn.Query(
		`SELECT query_id, query, category, suggested_by, relevance_score
		FROM scan_queries WHERE scan_id = ? ORDER BY position`, scanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []models.ResearchedQuery
	for rows.Next() {
		var q models.ResearchedQuery
		var category string
		var suggestedBy *string
		if err := rows.Scan(&q.ID, &q.Query, &category, &suggestedBy, &q.RelevanceScore); err != nil {
			return nil, err
		}
		q.Category = models.Category(category)
		if suggestedBy != nil {
			q.SuggestedBy = splitPlatforms(*suggestedBy)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// SaveResults stores every unit result of a dispatch.
func (db *DB) SaveResults(scanID string, results []models.QueryResults) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO scan_results
		(scan_id, query_id, position, query, platform, response, sources, search_enabled,
		 domain_mentioned, mention_position, competitors, response_time_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, qr := range results {
		for _, r := range qr.Results {
			sources, err := json.Marshal(r.Sources)
			if err != nil {
				return fmt.Errorf("encoding sources: %w", err)
			}
			competitors, err := json.Marshal(r.CompetitorsMentioned)
			if err != nil {
				return fmt.Errorf("encoding competitors: %w", err)
			}
			var errText *string
			if r.Error != "" {
				errText = &r.Error
			}
			if _, err := stmt.Exec(
				scanID, qr.QueryID, i, qr.Query, string(r.Platform), r.Response, string(sources),
				boolInt(r.SearchEnabled), boolInt(r.DomainMentioned), r.MentionPosition,
				string(competitors), r.ResponseTimeMs, errText,
			); err != nil {
				return fmt.Errorf("inserting %s result for %q: %w", r.Platform, qr.Query, err)
			}
		}
	}
	return tx.Commit()
}

// GetResults returns a scan's results grouped per query, in query order, with
// each group's results in platform order.
func (db *DB) GetResults(scanID string) ([]models.QueryResults, error) {
	rows, err := db.conn.Query(
		`SELECT query_id, query, platform, response, sources, search_enabled, domain_mentioned,
		mention_position, competitors, response_time_ms, error
		FROM scan_results WHERE scan_id = ? ORDER BY position, id`, scanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.QueryResults
	for rows.Next() {
		var (
			queryID, query, platform       string
			response, sources, competitors *string
			searchEnabled, mentioned       int
			position                       sql.NullInt64
			errText                        *string
			r                              models.SearchQueryResult
		)
		if err := rows.Scan(&queryID, &query, &platform, &response, &sources, &searchEnabled,
			&mentioned, &position, &competitors, &r.ResponseTimeMs, &errText); err != nil {
			return nil, err
		}

		r.Platform = models.Platform(platform)
		r.Query = query
		r.SearchEnabled = searchEnabled != 0
		r.DomainMentioned = mentioned != 0
		if response != nil {
			r.Response = *response
		}
		if errText != nil {
			r.Error = *errText
		}
		if position.Valid {
			p := int(position.Int64)
			r.MentionPosition = &p
		}
		r.Sources = []models.SearchSource{}
		if sources != nil {
			_ = json.Unmarshal([]byte(*sources), &r.Sources)
		}
		r.CompetitorsMentioned = []models.CompetitorMention{}
		if competitors != nil {
			_ = json.Unmarshal([]byte(*competitors), &r.CompetitorsMentioned)
		}

		if n := len(groups); n == 0 || groups[n-1].QueryID != queryID {
			groups = append(groups, models.QueryResults{QueryID: queryID, Query: query})
		}
		last := &groups[len(groups)-1]
		last.Results = append(last.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		res := groups[i].Results
		sort.SliceStable(res, func(a, b int) bool {
			return res[a].Platform.Index() < res[b].Platform.Index()
		})
	}
	return groups, nil
}

// GetScores returns the stored score of a scan.
func (db *DB) GetScores(scanID string) (models.ScoreResult, error) {
	result := models.ScoreResult{ByPlatform: make(map[models.Platform]models.PlatformScore)}

	var overall sql.NullInt64
	if err := db.conn.QueryRow("SELECT overall_score FROM scans WHERE id = ?", scanID).Scan(&overall); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, fmt.Errorf("scan %s: %w", scanID, ErrNotFound)
		}
		return result, err
	}
	result.Overall = int(overall.Int64)

	rows, err := db.conn.Query(
		"SELECT platform, score, mentioned, total FROM platform_scores WHERE scan_id = ?", scanID,
	)
	if err != nil {
		return result, err
	}
	defer rows.Close()

	for rows.Next() {
		var platform string
		var ps models.PlatformScore
		if err := rows.Scan(&platform, &ps.Score, &ps.Mentioned, &ps.Total); err != nil {
			return result, err
		}
		result.ByPlatform[models.Platform(platform)] = ps
	}
	return result, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinPlatforms(ps []models.Platform) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func splitPlatforms(s string) []models.Platform {
	if s == "" {
		return nil
	}
	var out []models.Platform
	for _, part := range strings.Split(s, ",") {
		if p := models.Platform(strings.TrimSpace(part)); p.Valid() {
			out = append(out, p)
		}
	}
	return out
}
