package storage

import (
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"
)

// Paste is one accepted paste with its injection outcome
type Paste struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
	Kind           string    `json:"kind"`
	FormatID       string    `json:"formatId"`
	Text           string    `json:"text"`
	CharacterCount int       `json:"characterCount"`
	DurationMs     int64     `json:"durationMs"`
	ClipboardOK    bool      `json:"clipboardOk"`
	FailedSteps    int       `json:"failedSteps"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
}

// Success reports whether every injection step succeeded
func (p *Paste) Success() bool {
	return p.ClipboardOK && p.FailedSteps == 0
}

// SavePaste saves a paste to the database
func (db *DB) SavePaste(p *Paste) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
	p.Timestamp = p.Timestamp.UTC()
	p.CharacterCount = utf8.RuneCountInString(p.Text)

	query := `
		INSERT INTO pastes (
			timestamp, source, kind, format_id, text, character_count,
			duration_ms, clipboard_ok, failed_steps, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errMsg sql.NullString
	if p.ErrorMessage != "" {
		errMsg = sql.NullString{String: p.ErrorMessage, Valid: true}
	}

	result, err := db.conn.Exec(query,
		p.Timestamp, p.Source, p.Kind, p.FormatID, p.Text, p.CharacterCount,
		p.DurationMs, p.ClipboardOK, p.FailedSteps, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to save paste: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	p.ID = id
	return nil
}

// GetPastes retrieves pastes, newest first, with pagination
func (db *DB) GetPastes(limit, offset int) ([]Paste, error) {
	query := `
		SELECT
			id, timestamp, source, kind, format_id, text, character_count,
			duration_ms, clipboard_ok, failed_steps, error_message
		FROM pastes
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query pastes: %w", err)
	}
	defer rows.Close()

	var pastes []Paste
	for rows.Next() {
		var p Paste
		var errorMessage sql.NullString

		err := rows.Scan(
			&p.ID, &p.Timestamp, &p.Source, &p.Kind, &p.FormatID, &p.Text, &p.CharacterCount,
			&p.DurationMs, &p.ClipboardOK, &p.FailedSteps, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paste: %w", err)
		}

		if errorMessage.Valid {
			p.ErrorMessage = errorMessage.String
		}

		pastes = append(pastes, p)
	}

	return pastes, rows.Err()
}

// DeletePaste deletes a paste by ID
func (db *DB) DeletePaste(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM pastes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete paste: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("paste %d: %w", id, ErrNotFound)
	}

	return nil
}

// ClearPastes deletes all history and returns how many rows were removed
func (db *DB) ClearPastes() (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM pastes`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear pastes: %w", err)
	}
	return result.RowsAffected()
}

// GetPasteCount returns the total number of pastes
func (db *DB) GetPasteCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pastes").Scan(&count)
	return count, err
}
