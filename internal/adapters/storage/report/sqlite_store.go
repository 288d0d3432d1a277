// Package report runs the aggregate attendance queries.
package report

import (
	"context"
	"database/sql"
	"strings"

	"conference/internal/adapters/storage"
	domainRegistration "conference/internal/domain/registration"
)

// Filter narrows the report to activities of one year and/or kind.
type Filter struct {
	Year int
	Kind string
}

// Counts pairs registrations with attendances.
type Counts struct {
	Registered int
	Attended   int
}

// KindCounts is Counts grouped by activity kind.
type KindCounts struct {
	Kind string
	Counts
}

// ActivityCounts is Counts for one activity.
type ActivityCounts struct {
	ActivityID int64
	Title      string
	Kind       string
	Year       int
	Counts
}

// attendedExpr is 1 when any of the three attendance signals is present.
const attendedExpr = `CASE WHEN r.status = ? OR r.attended_at <> ''
	OR EXISTS (SELECT 1 FROM attendance_log l WHERE l.registration_id = r.id)
	THEN 1 ELSE 0 END`

// SQLiteStore implements the report queries using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new report store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.Year > 0 {
		clauses = append(clauses, "a.year = ?")
		args = append(args, f.Year)
	}
	if f.Kind != "" {
		clauses = append(clauses, "a.kind = ?")
		args = append(args, f.Kind)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// grouped runs a GROUP BY query and hands every row to scanRow.
func (s *SQLiteStore) grouped(ctx context.Context, selectList, tail string, f Filter, scanRow func(*sql.Rows) error) error {
	where, args := f.where()
	q := "SELECT " + selectList + ", COUNT(r.id), COALESCE(SUM(" + attendedExpr + "), 0)" +
		" FROM registrations r INNER JOIN activities a ON a.id = r.activity_id" + where + tail
	rows, err := s.db.QueryContext(ctx, q, append([]any{domainRegistration.StatusAttended}, args...)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scanRow(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Totals counts registrations and attendances across the filtered activities.
// POST: zero Counts when nothing matches
func (s *SQLiteStore) Totals(ctx context.Context, f Filter) (Counts, error) {
	where, args := f.where()
	var c Counts
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(r.id), COALESCE(SUM("+attendedExpr+"), 0) FROM registrations r INNER JOIN activities a ON a.id = r.activity_id"+where,
		append([]any{domainRegistration.StatusAttended}, args...)...).Scan(&c.Registered, &c.Attended)
	return c, err
}

// ByKind groups the counts by activity kind, ordered by kind.
// POST: never nil
func (s *SQLiteStore) ByKind(ctx context.Context, f Filter) ([]KindCounts, error) {
	out := []KindCounts{}
	err := s.grouped(ctx, "a.kind", " GROUP BY a.kind ORDER BY a.kind", f, func(rows *sql.Rows) error {
		var k KindCounts
		if err := rows.Scan(&k.Kind, &k.Registered, &k.Attended); err != nil {
			return err
		}
		out = append(out, k)
		return nil
	})
	return out, err
}

// ByActivity lists the counts per activity ordered by year desc, kind, title.
// Activities without registrations are omitted.
// POST: never nil
func (s *SQLiteStore) ByActivity(ctx context.Context, f Filter) ([]ActivityCounts, error) {
	out := []ActivityCounts{}
	err := s.grouped(ctx, "a.id, a.title, a.kind, a.year",
		" GROUP BY a.id, a.title, a.kind, a.year ORDER BY a.year DESC, a.kind, a.title", f, func(rows *sql.Rows) error {
		var a ActivityCounts
		if err := rows.Scan(&a.ActivityID, &a.Title, &a.Kind, &a.Year, &a.Registered, &a.Attended); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}
