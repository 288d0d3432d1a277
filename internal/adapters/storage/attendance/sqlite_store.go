package attendance

import (
	"context"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/attendance"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance log store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append writes one check-in row.
// PRE: c has been validated
// POST: Row inserted, id returned
func (s *SQLiteStore) Append(ctx context.Context, c domain.CheckIn) (int64, error) {
	if c.Source == "" {
		c.Source = domain.SourceQR
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_log (registration_id, checked_in_at, source) VALUES (?, ?, ?)`,
		c.RegistrationID, storage.FormatTime(c.CheckedInAt), c.Source)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListByRegistration returns check-ins of one registration, oldest first.
// POST: Returns the log entries, never nil
func (s *SQLiteStore) ListByRegistration(ctx context.Context, registrationID int64) ([]domain.CheckIn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, registration_id, checked_in_at, source FROM attendance_log WHERE registration_id = ? ORDER BY checked_in_at, id`,
		registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CheckIn{}
	for rows.Next() {
		var c domain.CheckIn
		var at string
		if err := rows.Scan(&c.ID, &c.RegistrationID, &at, &c.Source); err != nil {
			return nil, err
		}
		c.CheckedInAt = storage.ParseTime(at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByRegistration returns how many times a registration was redeemed.
func (s *SQLiteStore) CountByRegistration(ctx context.Context, registrationID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_log WHERE registration_id = ?`, registrationID).Scan(&n)
	return n, err
}
