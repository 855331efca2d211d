// Package history keeps finished translations in a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const DefaultFileName = "screen-translate-history.db"

const schema = `
CREATE TABLE IF NOT EXISTS translations (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id        TEXT NOT NULL,
	created_at        INTEGER NOT NULL,
	mode              TEXT NOT NULL,
	detected_language TEXT NOT NULL DEFAULT '',
	original_text     TEXT NOT NULL,
	translated_text   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_translations_created_at ON translations(created_at);
`

// Entry is one stored translation.
type Entry struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	CreatedAt        time.Time `json:"created_at"`
	Mode             string    `json:"mode"`
	DetectedLanguage string    `json:"detected_language,omitempty"`
	OriginalText     string    `json:"original_text"`
	TranslatedText   string    `json:"translated_text"`
}

type Store struct {
	db   *sql.DB
	path string
}

// openDB opens a SQLite database at the given path
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	sqlDB.SetMaxOpenConns(1)
	return sqlDB, nil
}

// DefaultPath places the database next to the binary.
func DefaultPath() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(execPath), DefaultFileName), nil
}

// Open opens or creates the store at path; an empty path selects DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: sqlDB, path: path}
	if err := s.initSchema(); err != nil {
		_ = sqlDB.Close() // Close error less important than schema error
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Record appends e. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO translations (session_id, created_at, mode, detected_language, original_text, translated_text)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.CreatedAt.UnixMilli(), e.Mode, e.DetectedLanguage, e.OriginalText, e.TranslatedText)
	if err != nil {
		return fmt.Errorf("failed to insert translation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, session_id, created_at, mode, detected_language, original_text, translated_text
		FROM translations
		ORDER BY created_at DESC, id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.SessionID, &created, &e.Mode, &e.DetectedLanguage,
			&e.OriginalText, &e.TranslatedText); err != nil {
			return nil, fmt.Errorf("failed to scan translation: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
