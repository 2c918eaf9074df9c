// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides history/session/report persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			speaker TEXT NOT NULL,
			content TEXT NOT NULL,
			model_id TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_created
			ON messages(created_at);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			persona_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			last_activity TEXT NOT NULL,
			previous_id TEXT
		);

		CREATE TABLE IF NOT EXISTS error_reports (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			severity TEXT NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TEXT NOT NULL,

			CHECK (severity IN ('info', 'warning', 'error'))
		);

		CREATE INDEX IF NOT EXISTS idx_error_reports_created
			ON error_reports(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// SaveMessage inserts a message or replaces the content of an existing one.
// The original position in history is kept on update.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (id, speaker, content, model_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			model_id = excluded.model_id
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.Speaker,
		msg.Content,
		nullString(msg.ModelID),
		formatTime(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving message: %w", err)
	}
	return nil
}

// ListRecentMessages returns up to limit of the newest messages in
// chronological order. A limit <= 0 returns every message.
func (s *SQLiteStore) ListRecentMessages(ctx context.Context, limit int) ([]*Message, error) {
	var query string
	var args []any

	if limit > 0 {
		// Get the N most recent messages, but return them in chronological order
		query = `
			SELECT id, speaker, content, model_id, created_at
			FROM (
				SELECT id, speaker, content, model_id, created_at, rowid AS seq
				FROM messages
				ORDER BY created_at DESC, rowid DESC
				LIMIT ?
			)
			ORDER BY created_at ASC, seq ASC
		`
		args = []any{limit}
	} else {
		query = `
			SELECT id, speaker, content, model_id, created_at
			FROM messages
			ORDER BY created_at ASC, rowid ASC
		`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var modelID sql.NullString
		var createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.Speaker, &msg.Content, &modelID, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.ModelID = modelID.String
		msg.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// DeleteAllMessages removes the whole message history
func (s *SQLiteStore) DeleteAllMessages(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	return nil
}

// SaveSession inserts or updates a session record
func (s *SQLiteStore) SaveSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, persona_id, model_id, started_at, last_activity, previous_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_activity = excluded.last_activity
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.PersonaID,
		session.ModelID,
		formatTime(session.StartedAt),
		formatTime(session.LastActivity),
		nullString(session.PreviousID),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
// Returns ErrNotFound if the session doesn't exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, persona_id, model_id, started_at, last_activity, previous_id
		FROM sessions
		WHERE id = ?
	`

	var session Session
	var startedAt, lastActivity string
	var previousID sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.PersonaID,
		&session.ModelID,
		&startedAt,
		&lastActivity,
		&previousID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.PreviousID = previousID.String
	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if session.LastActivity, err = parseTime(lastActivity); err != nil {
		return nil, fmt.Errorf("parsing last_activity: %w", err)
	}
	return &session, nil
}

// SaveReport persists an error report
func (s *SQLiteStore) SaveReport(ctx context.Context, report *ErrorReport) error {
	query := `
		INSERT INTO error_reports (id, source, severity, kind, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		report.ID,
		report.Source,
		report.Severity,
		report.Kind,
		report.Message,
		formatTime(report.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// ListReports returns up to limit of the newest reports, newest first
func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]*ErrorReport, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, source, severity, kind, message, created_at
		FROM error_reports
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []*ErrorReport
	for rows.Next() {
		var r ErrorReport
		var createdAtStr string
		if err := rows.Scan(&r.ID, &r.Source, &r.Severity, &r.Kind, &r.Message, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		reports = append(reports, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}
	return reports, nil
}

// timeLayout is fixed width so text ordering matches time ordering, with
// nanoseconds so turns created in the same second keep their order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
