package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/activity"
)

const selectColumns = "SELECT id, title, kind, location, day, hour, year, published_at FROM activities"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new activity store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts an activity and returns its id.
// PRE: a has been validated
// POST: Row inserted
func (s *SQLiteStore) Create(ctx context.Context, a domain.Activity) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (title, kind, location, day, hour, year, published_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(a.Title), a.Kind, a.Location, a.Day, a.Hour, a.Year, storage.FormatTime(a.PublishedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID retrieves an Activity by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Activity, error) {
	a, err := scan(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Activity{}, fmt.Errorf("activity %d not found: %w", id, err)
	}
	return a, err
}

// Update overwrites the editable fields. PublishedAt is only set through MarkPublished.
// PRE: a has been validated, a.ID > 0
// POST: Row updated or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) Update(ctx context.Context, a domain.Activity) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities SET title = ?, kind = ?, location = ?, day = ?, hour = ?, year = ? WHERE id = ?`,
		strings.TrimSpace(a.Title), a.Kind, a.Location, a.Day, a.Hour, a.Year, a.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, a.ID)
}

// Delete removes an activity with its registrations, diplomas and winners.
// PRE: id > 0
// POST: Row removed or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// MarkPublished stamps the winners publication time.
// PRE: id > 0
// POST: published_at == at or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE activities SET published_at = ? WHERE id = ?`, storage.FormatTime(at), id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// List returns activities ordered by year desc, day, hour, title.
// PRE: none
// POST: Returns matching activities, never nil
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Activity, error) {
	var where []string
	var args []any
	if filter.Year > 0 {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY year DESC, day, hour, title"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (domain.Activity, error) {
	var a domain.Activity
	var publishedAt string
	if err := row.Scan(&a.ID, &a.Title, &a.Kind, &a.Location, &a.Day, &a.Hour, &a.Year, &publishedAt); err != nil {
		return domain.Activity{}, err
	}
	a.PublishedAt = storage.ParseTime(publishedAt)
	return a, nil
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("activity %d not found: %w", id, sql.ErrNoRows)
	}
	return nil
}
