package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists derivatives in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens connectionString (a file path or ":memory:") and
// creates the schema if needed.
func NewSQLiteStore(connectionString string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS derivatives (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		preset TEXT NOT NULL,
		content_type TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		body BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS derivatives_key ON derivatives (key);`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, d *Derivative) (string, error) {
	prepare(d)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO derivatives (id, key, preset, content_type, width, height, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Key, d.Preset, d.ContentType, d.Width, d.Height, d.Body, d.CreatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert derivative: %w", err)
	}
	return d.ID, nil
}

const selectDerivative = `SELECT id, key, preset, content_type, width, height, body, created_at FROM derivatives`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Derivative, error) {
	return s.scan(s.db.QueryRowContext(ctx, selectDerivative+" WHERE id = ?", id))
}

func (s *SQLiteStore) GetByKey(ctx context.Context, key string) (*Derivative, error) {
	return s.scan(s.db.QueryRowContext(ctx, selectDerivative+" WHERE key = ? ORDER BY created_at DESC LIMIT 1", key))
}

func (s *SQLiteStore) scan(row *sql.Row) (*Derivative, error) {
	var d Derivative
	var created int64
	err := row.Scan(&d.ID, &d.Key, &d.Preset, &d.ContentType, &d.Width, &d.Height, &d.Body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read derivative: %w", err)
	}
	d.CreatedAt = time.Unix(0, created).UTC()
	return &d, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM derivatives WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete derivative: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
