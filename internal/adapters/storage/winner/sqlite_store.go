package winner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/winner"
)

const selectColumns = `SELECT w.id, w.activity_id, COALESCE(w.user_id, 0), w.name, w.project_title, w.description,
	w.photo_url, w.position, w.year, COALESCE(a.title, w.activity_title), COALESCE(a.kind, w.activity_type), w.diploma_file
	FROM winners w LEFT JOIN activities a ON a.id = w.activity_id`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new winner store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a winner and returns its id.
// PRE: w has been validated; ActivityTitle and ActivityKind copied from the activity
// POST: Row inserted
func (s *SQLiteStore) Create(ctx context.Context, w domain.Winner) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO winners (activity_id, user_id, name, project_title, description, photo_url, position, year, activity_title, activity_type, diploma_file)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ActivityID, nullableID(w.ParticipantID), w.Name, w.ProjectTitle, w.Description, w.PhotoURL,
		w.Position, w.Year, w.ActivityTitle, w.ActivityKind, w.DiplomaFile)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID retrieves a winner by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Winner, error) {
	w, err := scan(s.db.QueryRowContext(ctx, selectColumns+" WHERE w.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Winner{}, fmt.Errorf("winner %d not found: %w", id, err)
	}
	return w, err
}

// Delete removes a winner and its history entries.
// PRE: id > 0
// POST: Row removed or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM winners WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// ListAll returns every winner, newest year first, then by position.
// POST: never nil
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Winner, error) {
	return s.list(ctx, selectColumns+" ORDER BY w.year DESC, w.position ASC, w.id")
}

// ListByActivity returns the winners of one activity ordered by position.
// POST: never nil
func (s *SQLiteStore) ListByActivity(ctx context.Context, activityID int64) ([]domain.Winner, error) {
	return s.list(ctx, selectColumns+" WHERE w.activity_id = ? ORDER BY w.position ASC, w.id", activityID)
}

// LinkParticipant records which participant a winner resolved to.
// PRE: id > 0, participantID > 0
// POST: user_id set or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) LinkParticipant(ctx context.Context, id, participantID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE winners SET user_id = ? WHERE id = ?`, participantID, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// SetDiplomaFile stores the key of the rendered winner diploma.
// PRE: id > 0
// POST: diploma_file set or an error wrapping sql.ErrNoRows when absent
func (s *SQLiteStore) SetDiplomaFile(ctx context.Context, id int64, fileKey string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE winners SET diploma_file = ? WHERE id = ?`, fileKey, id)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

// RecordHistory inserts a publication entry unless one exists for (winner, activity).
// PRE: h.WinnerID, h.ParticipantID and h.ActivityID > 0
// POST: Returns true when a row was inserted
func (s *SQLiteStore) RecordHistory(ctx context.Context, h domain.HistoryEntry) (bool, error) {
	if h.PublicationDate.IsZero() {
		h.PublicationDate = time.Now()
	}
	if h.PublicationYear == 0 {
		h.PublicationYear = h.PublicationDate.Year()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO winners_history (winner_id, user_id, activity_id, publication_date, publication_year)
		 SELECT ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM winners_history WHERE winner_id = ? AND activity_id = ?)`,
		h.WinnerID, h.ParticipantID, h.ActivityID, storage.FormatTime(h.PublicationDate), h.PublicationYear,
		h.WinnerID, h.ActivityID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListHistory returns publication entries, newest year first, then by position.
// year <= 0 lists every year.
// POST: never nil
func (s *SQLiteStore) ListHistory(ctx context.Context, year int) ([]HistoryRow, error) {
	query := `SELECT h.id, h.winner_id, h.publication_date, h.publication_year, a.title, u.full_name, u.email, w.position
		FROM winners_history h
		INNER JOIN winners w ON w.id = h.winner_id
		INNER JOIN users u ON u.id = h.user_id
		INNER JOIN activities a ON a.id = h.activity_id`
	var args []any
	if year > 0 {
		query += " WHERE h.publication_year = ?"
		args = append(args, year)
	}
	query += " ORDER BY h.publication_year DESC, w.position ASC, h.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryRow{}
	for rows.Next() {
		var r HistoryRow
		var published string
		if err := rows.Scan(&r.ID, &r.WinnerID, &published, &r.PublicationYear, &r.ActivityTitle, &r.FullName, &r.Email, &r.Position); err != nil {
			return nil, err
		}
		r.PublicationDate = storage.ParseTime(published)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListCandidates returns every registration with its participant, activity and diploma.
// POST: ordered by year desc, activity title, participant name; never nil
func (s *SQLiteStore) ListCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.full_name, u.email, u.phone, u.school,
		       a.id, a.title, a.kind, a.year, r.status,
		       COALESCE(d.pdf_file, ''), COALESCE(d.generated_at, '')
		FROM registrations r
		INNER JOIN users u ON u.id = r.user_id
		INNER JOIN activities a ON a.id = r.activity_id
		LEFT JOIN diplomas d ON d.user_id = u.id AND d.activity_id = a.id
		ORDER BY a.year DESC, a.title, u.full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Candidate{}
	for rows.Next() {
		var c Candidate
		var generated string
		if err := rows.Scan(&c.ParticipantID, &c.Name, &c.Email, &c.Phone, &c.School,
			&c.ActivityID, &c.ActivityTitle, &c.ActivityKind, &c.Year, &c.RegistrationStatus,
			&c.DiplomaFile, &generated); err != nil {
			return nil, err
		}
		c.DiplomaGeneratedAt = storage.ParseTime(generated)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Winner, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Winner{}
	for rows.Next() {
		w, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (domain.Winner, error) {
	var w domain.Winner
	err := row.Scan(&w.ID, &w.ActivityID, &w.ParticipantID, &w.Name, &w.ProjectTitle, &w.Description,
		&w.PhotoURL, &w.Position, &w.Year, &w.ActivityTitle, &w.ActivityKind, &w.DiplomaFile)
	return w, err
}

func nullableID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("winner %d not found: %w", id, sql.ErrNoRows)
	}
	return nil
}
