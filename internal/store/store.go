// Package store implements the persistent keyed-collection store on SQLite.
// Collections: jobs, job_alerts, alert_matches, {email,push,sms}_notifications
// and notification_preferences.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer. It satisfies the port
// interfaces declared in the model package.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		company          TEXT NOT NULL,
		location         TEXT,
		salary_min       REAL,
		salary_max       REAL,
		currency         TEXT,
		salary_period    TEXT,
		job_type         TEXT,
		description      TEXT,
		requirements     TEXT,
		source           TEXT,
		source_url       TEXT,
		posted_at        DATETIME,
		category         TEXT,
		industry         TEXT,
		skills_required  TEXT,
		skills_preferred TEXT,
		experience_level TEXT,
		is_remote        INTEGER NOT NULL DEFAULT 0,
		is_hybrid        INTEGER NOT NULL DEFAULT 0,
		fraud_score      INTEGER NOT NULL DEFAULT 0,
		fraud_indicators TEXT,
		created_at       DATETIME NOT NULL,
		updated_at       DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS job_alerts (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		keywords          TEXT,
		locations         TEXT,
		job_types         TEXT,
		experience_levels TEXT,
		salary_min        REAL,
		salary_max        REAL,
		categories        TEXT,
		is_remote         INTEGER,
		frequency         TEXT NOT NULL DEFAULT 'instant',
		is_active         INTEGER NOT NULL DEFAULT 1,
		channels          TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS alert_matches (
		alert_id         TEXT NOT NULL,
		job_id           TEXT NOT NULL,
		score            REAL NOT NULL,
		matched_keywords TEXT,
		sent_at          DATETIME,
		PRIMARY KEY (alert_id, job_id)
	)`,
	`CREATE TABLE IF NOT EXISTS email_notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		recipient  TEXT NOT NULL,
		subject    TEXT,
		body       TEXT,
		text_body  TEXT,
		status     TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		sent_at    DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS push_notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		recipient  TEXT NOT NULL,
		subject    TEXT,
		body       TEXT,
		url        TEXT,
		status     TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		sent_at    DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS sms_notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		recipient  TEXT NOT NULL,
		body       TEXT,
		status     TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		sent_at    DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id TEXT PRIMARY KEY,
		email   TEXT,
		phone   TEXT
	)`,
}

// New opens (or creates) the SQLite database at dbPath and ensures every
// collection exists.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeStrings serializes a string slice into its column form.
func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode string list: %w", err)
	}
	return string(data), nil
}

// decodeStrings is the inverse of encodeStrings; empty columns yield nil.
func decodeStrings(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" || raw.String == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return values, nil
}
