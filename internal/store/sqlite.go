package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps responses in a single SQLite database file
type SQLiteStore struct {
	readDB  *sql.DB
	writeDB *sql.DB
	ttl     time.Duration
}

// OpenSQLite opens or creates the response database at dbPath
func OpenSQLite(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	s := &SQLiteStore{writeDB: writeDB, ttl: ttl}
	if err := s.init(); err != nil {
		_ = s.Close()
		return nil, err
	}

	// The read handle is opened after the schema exists
	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	s.readDB = readDB

	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			key        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			stored_at  INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_responses_expires ON responses(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Get retrieves a response; expired rows are reported as missing
func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	var (
		data      []byte
		expiresAt int64
	)
	err := s.readDB.QueryRow(
		"SELECT data, expires_at FROM responses WHERE key = ?", key,
	).Scan(&data, &expiresAt)
	if err != nil {
		return nil, false
	}

	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_ = s.Delete(key)
		return nil, false
	}
	return data, true
}

// Set upserts a response
func (s *SQLiteStore) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}

	now := time.Now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	_, err := s.writeDB.Exec(`
		INSERT INTO responses (key, data, stored_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, key, value, now.UnixNano(), expiresAt)
	if err != nil {
		return fmt.Errorf("upserting response: %w", err)
	}
	return nil
}

// Delete removes a response
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.writeDB.Exec("DELETE FROM responses WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting response: %w", err)
	}
	return nil
}

// Clear removes all responses
func (s *SQLiteStore) Clear() error {
	if _, err := s.writeDB.Exec("DELETE FROM responses"); err != nil {
		return fmt.Errorf("clearing responses: %w", err)
	}
	return nil
}

// Prune removes expired rows and returns how many were deleted
func (s *SQLiteStore) Prune() (int64, error) {
	res, err := s.writeDB.Exec(
		"DELETE FROM responses WHERE expires_at > 0 AND expires_at < ?", time.Now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning responses: %w", err)
	}
	return res.RowsAffected()
}

// Close closes both database handles
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
