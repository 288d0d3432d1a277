package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/registration"
)

const selectColumns = "SELECT r.id, r.user_id, r.activity_id, r.qr_token, r.status, r.created_at, r.attended_at FROM registrations r"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new registration store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a registration unless the participant is already registered for the activity.
// PRE: r has been validated
// POST: created is false and id is 0 when (participant, activity) already existed
func (s *SQLiteStore) Create(ctx context.Context, r domain.Registration) (int64, bool, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registrations (user_id, activity_id, qr_token, status, created_at, attended_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, activity_id) DO NOTHING`,
		r.ParticipantID, r.ActivityID, r.Token, r.Status,
		storage.FormatTime(r.CreatedAt), storage.FormatTime(r.AttendedAt))
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	return id, true, err
}

// GetByToken retrieves the registration a QR token was issued for.
// PRE: token is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByToken(ctx context.Context, token string) (domain.Registration, error) {
	r, err := scan(s.db.QueryRowContext(ctx, selectColumns+" WHERE r.qr_token = ?", token))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, fmt.Errorf("registration token not found: %w", err)
	}
	return r, err
}

// Exists reports whether the participant is registered for the activity.
func (s *SQLiteStore) Exists(ctx context.Context, participantID, activityID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE user_id = ? AND activity_id = ?`,
		participantID, activityID).Scan(&n)
	return n > 0, err
}

// MarkAttended persists the attended status and timestamp.
// PRE: r.ID > 0, r.MarkAttended has been applied
// POST: status and attended_at updated or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) MarkAttended(ctx context.Context, r domain.Registration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET status = ?, attended_at = ? WHERE id = ?`,
		r.Status, storage.FormatTime(r.AttendedAt), r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("registration %d not found: %w", r.ID, sql.ErrNoRows)
	}
	return nil
}

// ListAttendedWithoutDiploma returns attended registrations that have no diploma row yet.
// PRE: none
// POST: Returns registrations ordered by id, never nil
func (s *SQLiteStore) ListAttendedWithoutDiploma(ctx context.Context) ([]domain.Registration, error) {
	return s.list(ctx, selectColumns+`
		LEFT JOIN diplomas d ON d.user_id = r.user_id AND d.activity_id = r.activity_id
		WHERE r.status = ? AND d.id IS NULL
		ORDER BY r.id`, domain.StatusAttended)
}

// ListByParticipant returns every registration of one participant.
func (s *SQLiteStore) ListByParticipant(ctx context.Context, participantID int64) ([]domain.Registration, error) {
	return s.list(ctx, selectColumns+" WHERE r.user_id = ? ORDER BY r.id", participantID)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Registration{}
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (domain.Registration, error) {
	var r domain.Registration
	var createdAt, attendedAt string
	if err := row.Scan(&r.ID, &r.ParticipantID, &r.ActivityID, &r.Token, &r.Status, &createdAt, &attendedAt); err != nil {
		return domain.Registration{}, err
	}
	r.CreatedAt = storage.ParseTime(createdAt)
	r.AttendedAt = storage.ParseTime(attendedAt)
	return r, nil
}
