package storage

import (
	"fmt"
	"time"
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date         string `json:"date"`
	TotalPastes  int    `json:"totalPastes"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
}

// KindStats represents statistics grouped by stamp kind
type KindStats struct {
	Kind          string  `json:"kind"`
	TotalPastes   int     `json:"totalPastes"`
	SuccessCount  int     `json:"successCount"`
	FailureCount  int     `json:"failureCount"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalPastes       int     `json:"totalPastes"`
	TotalCharacters   int     `json:"totalCharacters"`
	SuccessCount      int     `json:"successCount"`
	FailureCount      int     `json:"failureCount"`
	ClipboardFailures int     `json:"clipboardFailures"`
	AvgDurationMs     float64 `json:"avgDurationMs"`
}

const successExpr = `(clipboard_ok = 1 AND failed_steps = 0)`

func since(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total_pastes,
			COALESCE(SUM(CASE WHEN ` + successExpr + ` THEN 1 ELSE 0 END), 0) as success_count,
			COALESCE(SUM(CASE WHEN ` + successExpr + ` THEN 0 ELSE 1 END), 0) as failure_count
		FROM pastes
		WHERE timestamp >= ?
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		if err := rows.Scan(&s.Date, &s.TotalPastes, &s.SuccessCount, &s.FailureCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetKindStats retrieves statistics grouped by kind for the last N days
func (db *DB) GetKindStats(days int) ([]KindStats, error) {
	query := `
		SELECT
			kind,
			COUNT(*) as total_pastes,
			COALESCE(SUM(CASE WHEN ` + successExpr + ` THEN 1 ELSE 0 END), 0) as success_count,
			COALESCE(SUM(CASE WHEN ` + successExpr + ` THEN 0 ELSE 1 END), 0) as failure_count,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms
		FROM pastes
		WHERE timestamp >= ?
		GROUP BY kind
		ORDER BY total_pastes DESC, kind
	`

	rows, err := db.conn.Query(query, since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query kind stats: %w", err)
	}
	defer rows.Close()

	var stats []KindStats
	for rows.Next() {
		var s KindStats
		if err := rows.Scan(&s.Kind, &s.TotalPastes, &s.SuccessCount, &s.FailureCount, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan kind stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	return db.GetStatsForDateRange(since(days), time.Now().UTC())
}

// GetStatsForDateRange retrieves overall stats for a custom date range
func (db *DB) GetStatsForDateRange(startTime, endTime time.Time) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as total_pastes,
			COALESCE(SUM(character_count), 0) as total_characters,
			COALESCE(SUM(CASE WHEN ` + successExpr + ` THEN 1 ELSE 0 END), 0) as success_count,
			COALESCE(SUM(CASE WHEN ` + successExpr + ` THEN 0 ELSE 1 END), 0) as failure_count,
			COALESCE(SUM(CASE WHEN clipboard_ok = 0 THEN 1 ELSE 0 END), 0) as clipboard_failures,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms
		FROM pastes
		WHERE timestamp >= ? AND timestamp <= ?
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, startTime.UTC(), endTime.UTC()).Scan(
		&stats.TotalPastes,
		&stats.TotalCharacters,
		&stats.SuccessCount,
		&stats.FailureCount,
		&stats.ClipboardFailures,
		&stats.AvgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query date range stats: %w", err)
	}

	return &stats, nil
}
