package participant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/participant"
)

// ErrDuplicateEmail is returned when another participant already uses the email.
var ErrDuplicateEmail = errors.New("a participant with this email already exists")

const selectColumns = "SELECT id, full_name, email, phone, school, university_id, type, created_at FROM users"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new participant store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a participant and returns its id.
// PRE: p has been validated
// POST: Row inserted, CreatedAt defaulted to now when unset
func (s *SQLiteStore) Create(ctx context.Context, p domain.Participant) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (full_name, email, phone, school, university_id, type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(p.FullName), NormalizeEmail(p.Email), p.Phone, p.School, p.UniversityID, p.Type,
		storage.FormatTime(p.CreatedAt))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID retrieves a Participant by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Participant, error) {
	p, err := scan(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("participant %d not found: %w", id, err)
	}
	return p, err
}

// GetByEmail retrieves a Participant by email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Participant, error) {
	p, err := scan(s.db.QueryRowContext(ctx, selectColumns+" WHERE email = ?", NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("participant not found: %w", err)
	}
	return p, err
}

// FindByNameOrEmail returns the first participant whose full name or email matches.
// PRE: at least one of name, email is non-empty
// POST: Returns the lowest-id match or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) FindByNameOrEmail(ctx context.Context, name, email string) (domain.Participant, error) {
	p, err := scan(s.db.QueryRowContext(ctx,
		selectColumns+" WHERE (? <> '' AND full_name = ?) OR (? <> '' AND email = ?) ORDER BY id LIMIT 1",
		name, strings.TrimSpace(name), email, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("participant not found: %w", err)
	}
	return p, err
}

// Update overwrites the editable fields of a participant.
// PRE: p has been validated, p.ID > 0
// POST: Row updated or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) Update(ctx context.Context, p domain.Participant) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, email = ?, phone = ?, school = ?, university_id = ?, type = ? WHERE id = ?`,
		strings.TrimSpace(p.FullName), NormalizeEmail(p.Email), p.Phone, p.School, p.UniversityID, p.Type, p.ID)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return requireAffected(res, p.ID)
}

// Delete removes a participant; registrations and diplomas cascade.
// PRE: id > 0
// POST: Row removed or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// List returns participants ordered by id, optionally filtered by type.
// PRE: none
// POST: Returns matching participants, never nil
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Participant, error) {
	query := selectColumns
	var args []any
	if filter.Type != "" {
		query += " WHERE type = ?"
		args = append(args, filter.Type)
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Participant{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (domain.Participant, error) {
	var p domain.Participant
	var createdAt string
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.School, &p.UniversityID, &p.Type, &createdAt); err != nil {
		return domain.Participant{}, err
	}
	p.CreatedAt = storage.ParseTime(createdAt)
	return p, nil
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("participant %d not found: %w", id, sql.ErrNoRows)
	}
	return nil
}
