package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// TimeLayout is the storage format of every timestamp column.
const TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// migration is one forward-only schema step.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

// migrations is the ordered schema history. Append only; never edit a released step.
var migrations = []migration{
	{1, "baseline: users, activities, registrations, diplomas", migrateBaseline},
	{2, "winners and winners_history", migrateWinners},
	{3, "attendance_log and outbox", migrateAttendanceLogAndOutbox},
	{4, "report indexes", migrateReportIndexes},
}

// LatestSchemaVersion returns the version the migration chain ends at.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// OpenSQLite opens a SQLite database with the pragmas the stores rely on.
// PRE: path is a file path or ":memory:"
// POST: Returns an open handle; the schema is not touched
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// SchemaVersion returns the applied schema version, 0 for an untracked database.
// PRE: db is a valid database connection
// POST: Returns the highest recorded version
func SchemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// MigrateDB brings the schema up to LatestSchemaVersion.
// A file-backed database that already holds data is snapshotted next to path before any step runs.
// PRE: db is a valid database connection
// POST: schema_version == LatestSchemaVersion, existing rows preserved
func MigrateDB(db *sql.DB, path string) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if current > 0 {
		if err := backupBeforeMigrate(db, path, current); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
		slog.Info("schema_migrated", "version", m.version, "description", m.description)
	}
	return nil
}

// applyMigration runs one step and records it in the same transaction.
func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version, description) VALUES (?, ?)`, m.version, m.description); err != nil {
		return fmt.Errorf("migration %d: record version: %w", m.version, err)
	}
	return tx.Commit()
}

// backupBeforeMigrate copies a file database to <path>.pre-v<N>.bak.
func backupBeforeMigrate(db *sql.DB, path string, version int) error {
	if path == "" || strings.HasPrefix(path, ":memory:") || strings.HasPrefix(path, "file::memory:") {
		return nil
	}
	target := fmt.Sprintf("%s.pre-v%d.bak", path, version)
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	if _, err := db.Exec(`VACUUM INTO ?`, target); err != nil {
		return fmt.Errorf("backup before migration: %w", err)
	}
	slog.Info("schema_backup_written", "path", target, "from_version", version)
	return nil
}

func execAll(tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateBaseline(tx *sql.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			school TEXT NOT NULL DEFAULT '',
			university_id TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'EXTERNO',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			kind TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			day TEXT NOT NULL DEFAULT '',
			hour TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL,
			published_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			activity_id INTEGER NOT NULL,
			qr_token TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'INSCRITO',
			created_at TEXT NOT NULL,
			attended_at TEXT NOT NULL DEFAULT '',
			UNIQUE (user_id, activity_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS diplomas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			activity_id INTEGER NOT NULL,
			pdf_file TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			emailed INTEGER NOT NULL DEFAULT 0,
			emailed_at TEXT NOT NULL DEFAULT '',
			UNIQUE (user_id, activity_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,
	)
}

func migrateWinners(tx *sql.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS winners (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			activity_id INTEGER NOT NULL,
			user_id INTEGER,
			name TEXT NOT NULL,
			project_title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			year INTEGER NOT NULL,
			activity_title TEXT NOT NULL DEFAULT '',
			activity_type TEXT NOT NULL DEFAULT '',
			diploma_file TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS winners_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			winner_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			activity_id INTEGER NOT NULL,
			publication_date TEXT NOT NULL,
			publication_year INTEGER NOT NULL,
			FOREIGN KEY (winner_id) REFERENCES winners(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,
	)
}

func migrateAttendanceLogAndOutbox(tx *sql.Tx) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS attendance_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			registration_id INTEGER NOT NULL,
			checked_in_at TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'qr',
			FOREIGN KEY (registration_id) REFERENCES registrations(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS outbox (
			id TEXT PRIMARY KEY,
			action_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL DEFAULT 5,
			last_attempted_at TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT ''
		)`,
	)
}

func migrateReportIndexes(tx *sql.Tx) error {
	return execAll(tx,
		`CREATE INDEX IF NOT EXISTS idx_registrations_activity ON registrations(activity_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_log_registration ON attendance_log(registration_id)`,
		`CREATE INDEX IF NOT EXISTS idx_winners_activity ON winners(activity_id, position)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_winners_history_once ON winners_history(winner_id, activity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, created_at)`,
	)
}
