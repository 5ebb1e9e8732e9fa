// Package history persists one record per download request in SQLite.
// Records are append-only; the user may delete them individually or in
// bulk.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tubegate/tubegate/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrRecordNotFound = errors.New("history record not found")

// Statuses recorded per download outcome.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is one download history entry.
type Record struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"sourceUrl"`
	Format    string `json:"format"`
	Quality   string `json:"quality"`
	FileSize  string `json:"fileSize"`
	Thumbnail string `json:"thumbnail"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
}

// Store manages download records in SQLite.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// NewStore runs migrations from schema.sql and returns a ready store.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "history"}),
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Add inserts rec with a fresh id and timestamp and returns the stored
// copy. An empty Status defaults to completed.
func (s *Store) Add(ctx context.Context, rec Record) (*Record, error) {
	rec.ID = uuid.New().String()
	rec.CreatedAt = s.now().Unix()
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (id, title, source_url, format, quality, file_size, thumbnail, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.SourceURL, rec.Format, rec.Quality, rec.FileSize, rec.Thumbnail, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert download record: %w", err)
	}
	s.logger.Debug("history record added",
		logging.Field{Key: "id", Value: rec.ID},
		logging.Field{Key: "status", Value: rec.Status})
	return &rec, nil
}

// List returns records newest first, capped at limit (or all when
// limit <= 0).
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, title, source_url, format, quality, file_size, thumbnail, status, created_at
              FROM downloads
              ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list download records: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.SourceURL, &rec.Format, &rec.Quality,
			&rec.FileSize, &rec.Thumbnail, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes one record by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete download record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM downloads`); err != nil {
		return fmt.Errorf("clear download records: %w", err)
	}
	return nil
}
