package diploma

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"conference/internal/adapters/storage"
	"conference/internal/adapters/storage/participant"
	domain "conference/internal/domain/diploma"
)

const selectColumns = "SELECT id, user_id, activity_id, pdf_file, generated_at, emailed, emailed_at FROM diplomas"

const selectDetailed = `SELECT d.id, d.user_id, d.activity_id, d.pdf_file, d.generated_at, d.emailed, d.emailed_at,
	u.full_name, u.email, a.title, a.kind, a.day, a.year
	FROM diplomas d
	INNER JOIN users u ON u.id = d.user_id
	INNER JOIN activities a ON a.id = d.activity_id`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new diploma store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create records an issued diploma.
// PRE: d has been validated
// POST: Row inserted; domain.ErrAlreadyIssued when (participant, activity) already has one
func (s *SQLiteStore) Create(ctx context.Context, d domain.Diploma) (int64, error) {
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO diplomas (user_id, activity_id, pdf_file, generated_at, emailed, emailed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ParticipantID, d.ActivityID, d.FileKey, storage.FormatTime(d.GeneratedAt),
		storage.BoolToInt(d.Emailed), storage.FormatTime(d.EmailedAt))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return 0, domain.ErrAlreadyIssued
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID retrieves a diploma by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Diploma, error) {
	d, err := scan(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Diploma{}, fmt.Errorf("diploma %d not found: %w", id, err)
	}
	return d, err
}

// Exists reports whether a diploma was issued for the pair.
func (s *SQLiteStore) Exists(ctx context.Context, participantID, activityID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM diplomas WHERE user_id = ? AND activity_id = ?`, participantID, activityID).Scan(&n)
	return n > 0, err
}

// MarkEmailed flags a diploma as delivered.
// PRE: id > 0
// POST: emailed = 1, emailed_at = at, or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) MarkEmailed(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE diplomas SET emailed = 1, emailed_at = ? WHERE id = ?`, storage.FormatTime(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("diploma %d not found: %w", id, sql.ErrNoRows)
	}
	return nil
}

// ListUnsent returns stored diplomas that were never delivered, oldest first.
// POST: Returns diplomas with Emailed == false, never nil
func (s *SQLiteStore) ListUnsent(ctx context.Context) ([]domain.Diploma, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE emailed = 0 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Diploma{}
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDetailed returns diplomas joined with participant and activity, newest first.
// POST: Returns matching rows, never nil
func (s *SQLiteStore) ListDetailed(ctx context.Context, filter ListFilter) ([]Listing, error) {
	query := selectDetailed
	var args []any
	if filter.Email != "" {
		query += " WHERE u.email = ?"
		args = append(args, participant.NormalizeEmail(filter.Email))
	}
	query += " ORDER BY d.generated_at DESC, d.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Listing{}
	for rows.Next() {
		l, err := scanDetailed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetDetailed retrieves one diploma joined with its participant and activity.
// POST: Returns the row or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetDetailed(ctx context.Context, id int64) (Listing, error) {
	l, err := scanDetailed(s.db.QueryRowContext(ctx, selectDetailed+" WHERE d.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Listing{}, fmt.Errorf("diploma %d not found: %w", id, err)
	}
	return l, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (domain.Diploma, error) {
	var d domain.Diploma
	var generatedAt, emailedAt string
	if err := row.Scan(&d.ID, &d.ParticipantID, &d.ActivityID, &d.FileKey, &generatedAt, &d.Emailed, &emailedAt); err != nil {
		return domain.Diploma{}, err
	}
	d.GeneratedAt = storage.ParseTime(generatedAt)
	d.EmailedAt = storage.ParseTime(emailedAt)
	return d, nil
}

func scanDetailed(row scanner) (Listing, error) {
	var l Listing
	var generatedAt, emailedAt string
	err := row.Scan(&l.ID, &l.ParticipantID, &l.ActivityID, &l.FileKey, &generatedAt, &l.Emailed, &emailedAt,
		&l.FullName, &l.Email, &l.ActivityTitle, &l.ActivityKind, &l.ActivityDay, &l.ActivityYear)
	if err != nil {
		return Listing{}, err
	}
	l.GeneratedAt = storage.ParseTime(generatedAt)
	l.EmailedAt = storage.ParseTime(emailedAt)
	return l, nil
}
