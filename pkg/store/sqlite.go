package store

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite"

	"github.com/jllopis/agora/pkg/errors"
)

// SQLiteStore persists records and segments in SQLite. It satisfies the
// same contract as FileStore; replacement of a record is a single
// statement, so readers never observe partial writes.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) a SQLite-backed store at path and
// ensures the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to open sqlite store", err).
			WithContext("path", path)
	}
	if err := ensureStoreSchema(db); err != nil {
		db.Close()
		return nil, errors.New(errors.CodeStorage, "failed to ensure sqlite schema", err).
			WithContext("path", path)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an existing database handle and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureStoreSchema(db); err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to ensure sqlite schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put writes the record under key, replacing any prior value.
func (s *SQLiteStore) Put(ctx context.Context, key string, value any) error {
	if _, err := splitKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.New(errors.CodeInternal, "failed to marshal record", err).
			WithContext("key", key)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(data))
	if err != nil {
		return errors.New(errors.CodeStorage, "failed to write record", err).
			WithContext("key", key)
	}
	return nil
}

// Get reads the record under key into dest.
func (s *SQLiteStore) Get(ctx context.Context, key string, dest any) error {
	if _, err := splitKey(key); err != nil {
		return err
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return errors.New(errors.CodeStorage, "failed to read record", err).
			WithContext("key", key)
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return errors.New(errors.CodeDecode, "failed to parse record", err).
			WithContext("key", key)
	}
	return nil
}

// AppendLine appends one JSON line to the named segment.
func (s *SQLiteStore) AppendLine(ctx context.Context, segment string, value any) error {
	if _, err := splitKey(segment); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.New(errors.CodeInternal, "failed to marshal segment line", err).
			WithContext("segment", segment)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO segment_lines (segment, line) VALUES (?, ?)`,
		segment, string(data))
	if err != nil {
		return errors.New(errors.CodeStorage, "failed to append segment line", err).
			WithContext("segment", segment)
	}
	return nil
}

// ReadLines returns the lines of a segment in append order.
func (s *SQLiteStore) ReadLines(ctx context.Context, segment string) ([][]byte, error) {
	if _, err := splitKey(segment); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT line FROM segment_lines WHERE segment = ? ORDER BY id ASC`, segment)
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to read segment", err).
			WithContext("segment", segment)
	}
	defer rows.Close()

	var lines [][]byte
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, errors.New(errors.CodeStorage, "failed to scan segment line", err).
				WithContext("segment", segment)
		}
		lines = append(lines, []byte(line))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to read segment", err).
			WithContext("segment", segment)
	}
	return lines, nil
}

// List returns the record keys stored under prefix.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM records WHERE key LIKE ? || '%' ORDER BY key ASC`, prefix)
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to list records", err).
			WithContext("prefix", prefix)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.New(errors.CodeStorage, "failed to scan record key", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.CodeStorage, "failed to list records", err).
			WithContext("prefix", prefix)
	}
	return keys, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func ensureStoreSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS segment_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			segment TEXT NOT NULL,
			line TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_segment_lines_segment ON segment_lines(segment);
	`)
	return err
}
