package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/glucodiary/internal/diary"
)

var (
	// ErrSubjectNotFound is returned when no subject matches the lookup.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrSubjectExists is returned when a chat already has a subject.
	ErrSubjectExists = errors.New("subject already registered in chat")
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateSubject registers the single subject of a chat.
	CreateSubject(ctx context.Context, subject *Subject) error

	// GetSubject returns the subject identified by chat and name.
	GetSubject(ctx context.Context, chatID int64, name string) (*Subject, error)

	// GetSubjectByChat returns the subject of a chat.
	GetSubjectByChat(ctx context.Context, chatID int64) (*Subject, error)

	// UpdateSubjectRoutine replaces the checkpoint schedule of a subject.
	UpdateSubjectRoutine(ctx context.Context, chatID int64, name string, routine diary.Routine) error

	// RenameSubject renames a subject; measurements follow via ON UPDATE CASCADE.
	RenameSubject(ctx context.Context, chatID int64, oldName, newName string) error

	// SetSubjectActive toggles whether reminders and digests run for a subject.
	SetSubjectActive(ctx context.Context, chatID int64, name string, active bool) error

	// ListActiveSubjects returns every active (chat, name) pair.
	ListActiveSubjects(ctx context.Context) ([]SubjectRef, error)

	// AddMeasurement records a reading.
	AddMeasurement(ctx context.Context, m *Measurement) error

	// GetMeasures returns readings dated on or after asOf-daysBack, ascending by date and time.
	GetMeasures(ctx context.Context, chatID int64, name string, daysBack int, asOf time.Time) ([]Measurement, error)

	// GetMeasuresBetween returns readings within [start, end] by calendar date, ascending.
	GetMeasuresBetween(ctx context.Context, chatID int64, name string, start, end time.Time) ([]Measurement, error)

	// GetMeasuresGroupedByDate groups GetMeasures by calendar date.
	GetMeasuresGroupedByDate(ctx context.Context, chatID int64, name string, daysBack int, asOf time.Time) (map[string][]Measurement, error)

	// GetLastMeasures returns the latest count readings, newest first.
	GetLastMeasures(ctx context.Context, chatID int64, name string, count int) ([]Measurement, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) CreateSubject(ctx context.Context, subject *Subject) error {
	if subject == nil {
		return fmt.Errorf("cannot save nil subject")
	}
	if subject.ChatID == 0 {
		return fmt.Errorf("subject must have a non-zero chat_id")
	}
	if _, err := diary.ParseName(subject.Name); err != nil {
		return err
	}
	if err := subject.Routine().Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for creating subject", "chat_id", subject.ChatID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM subjects WHERE chat_id = ?`, subject.ChatID); err != nil {
		return fmt.Errorf("failed to check existing subject for chat %d: %w", subject.ChatID, err)
	}
	if existing > 0 {
		return ErrSubjectExists
	}

	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	subject.IsActive = true

	query := `
        INSERT INTO subjects (chat_id, user_id, name, is_active, morning_time, peak_hours, evening_time, created_at)
        VALUES (:chat_id, :user_id, :name, :is_active, :morning_time, :peak_hours, :evening_time, :created_at);
    `
	if _, err := tx.NamedExecContext(ctx, query, subject); err != nil {
		s.logger.ErrorContext(ctx, "Error creating subject", "chat_id", subject.ChatID, "name", subject.Name, "error", err)
		return fmt.Errorf("failed to create subject (chat %d): %w", subject.ChatID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit subject creation: %w", err)
	}

	s.logger.InfoContext(ctx, "Subject registered", "chat_id", subject.ChatID, "name", subject.Name)
	return nil
}

func (s *sqlxStore) GetSubject(ctx context.Context, chatID int64, name string) (*Subject, error) {
	var subject Subject
	err := s.db.GetContext(ctx, &subject, `
        SELECT chat_id, user_id, name, is_active, morning_time, peak_hours, evening_time, created_at
        FROM subjects
        WHERE chat_id = ? AND name = ?
        LIMIT 1;
    `, chatID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting subject", "chat_id", chatID, "name", name, "error", err)
		return nil, fmt.Errorf("failed to get subject (chat %d): %w", chatID, err)
	}
	return &subject, nil
}

func (s *sqlxStore) GetSubjectByChat(ctx context.Context, chatID int64) (*Subject, error) {
	var subject Subject
	err := s.db.GetContext(ctx, &subject, `
        SELECT chat_id, user_id, name, is_active, morning_time, peak_hours, evening_time, created_at
        FROM subjects
        WHERE chat_id = ?
        ORDER BY created_at ASC
        LIMIT 1;
    `, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting subject by chat", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get subject for chat %d: %w", chatID, err)
	}
	return &subject, nil
}

func (s *sqlxStore) UpdateSubjectRoutine(ctx context.Context, chatID int64, name string, routine diary.Routine) error {
	if err := routine.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE subjects
        SET morning_time = ?, peak_hours = ?, evening_time = ?
        WHERE chat_id = ? AND name = ?;
    `, routine.MorningTime, routine.PeakHours, routine.EveningTime, chatID, name)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating subject routine", "chat_id", chatID, "name", name, "error", err)
		return fmt.Errorf("failed to update routine (chat %d): %w", chatID, err)
	}
	return requireOneRow(res)
}

func (s *sqlxStore) RenameSubject(ctx context.Context, chatID int64, oldName, newName string) error {
	newName, err := diary.ParseName(newName)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	res, err := tx.ExecContext(ctx, `UPDATE subjects SET name = ? WHERE chat_id = ? AND name = ?;`, newName, chatID, oldName)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error renaming subject", "chat_id", chatID, "old_name", oldName, "error", err)
		return fmt.Errorf("failed to rename subject (chat %d): %w", chatID, err)
	}
	if err := requireOneRow(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rename: %w", err)
	}

	s.logger.InfoContext(ctx, "Subject renamed", "chat_id", chatID, "old_name", oldName, "new_name", newName)
	return nil
}

func (s *sqlxStore) SetSubjectActive(ctx context.Context, chatID int64, name string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE subjects SET is_active = ? WHERE chat_id = ? AND name = ?;`, active, chatID, name)
	if err != nil {
		return fmt.Errorf("failed to set subject active flag (chat %d): %w", chatID, err)
	}
	return requireOneRow(res)
}

func (s *sqlxStore) ListActiveSubjects(ctx context.Context) ([]SubjectRef, error) {
	var refs []SubjectRef
	err := s.db.SelectContext(ctx, &refs, `
        SELECT DISTINCT chat_id, name
        FROM subjects
        WHERE is_active = 1
        ORDER BY chat_id;
    `)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing active subjects", "error", err)
		return nil, fmt.Errorf("failed to list active subjects: %w", err)
	}
	return refs, nil
}

func (s *sqlxStore) AddMeasurement(ctx context.Context, m *Measurement) error {
	if m == nil {
		return fmt.Errorf("cannot save nil measurement")
	}
	if m.Amount < 0 {
		return fmt.Errorf("%w: negative amount", diary.ErrInvalidMeasure)
	}
	if _, err := diary.ParseTag(string(m.Tag)); err != nil {
		return err
	}

	query := `
        INSERT INTO measurements (chat_id, user_id, name, date, time, amount, tag)
        VALUES (:chat_id, :user_id, :name, :date, :time, :amount, :tag);
    `
	res, err := s.db.NamedExecContext(ctx, query, m)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving measurement", "chat_id", m.ChatID, "name", m.Name, "error", err)
		return fmt.Errorf("failed to save measurement (chat %d): %w", m.ChatID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		m.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving measurement", "chat_id", m.ChatID, "error", err)
	}

	s.logger.DebugContext(ctx, "Measurement saved", "chat_id", m.ChatID, "name", m.Name, "tag", m.Tag, "id", m.ID)
	return nil
}

func (s *sqlxStore) GetMeasures(ctx context.Context, chatID int64, name string, daysBack int, asOf time.Time) ([]Measurement, error) {
	from := asOf.AddDate(0, 0, -daysBack)
	return s.selectMeasures(ctx, `
        SELECT id, chat_id, user_id, name, date, time, amount, tag
        FROM measurements
        WHERE chat_id = ? AND name = ? AND date >= ?
        ORDER BY date ASC, time ASC, id ASC;
    `, chatID, name, from.Format(diary.DateLayout))
}

func (s *sqlxStore) GetMeasuresBetween(ctx context.Context, chatID int64, name string, start, end time.Time) ([]Measurement, error) {
	return s.selectMeasures(ctx, `
        SELECT id, chat_id, user_id, name, date, time, amount, tag
        FROM measurements
        WHERE chat_id = ? AND name = ? AND date BETWEEN ? AND ?
        ORDER BY date ASC, time ASC, id ASC;
    `, chatID, name, start.Format(diary.DateLayout), end.Format(diary.DateLayout))
}

func (s *sqlxStore) GetMeasuresGroupedByDate(ctx context.Context, chatID int64, name string, daysBack int, asOf time.Time) (map[string][]Measurement, error) {
	rows, err := s.GetMeasures(ctx, chatID, name, daysBack, asOf)
	if err != nil {
		return nil, err
	}
	return GroupByDate(rows), nil
}

func (s *sqlxStore) GetLastMeasures(ctx context.Context, chatID int64, name string, count int) ([]Measurement, error) {
	if count <= 0 {
		count = 1
	}
	return s.selectMeasures(ctx, `
        SELECT id, chat_id, user_id, name, date, time, amount, tag
        FROM measurements
        WHERE chat_id = ? AND name = ?
        ORDER BY date DESC, time DESC, id DESC
        LIMIT ?;
    `, chatID, name, count)
}

func (s *sqlxStore) selectMeasures(ctx context.Context, query string, args ...any) ([]Measurement, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []Measurement
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching measurements", "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching measurements", "error", err)
		return nil, fmt.Errorf("failed to fetch measurements: %w", err)
	}
	return rows, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

func (s *sqlxStore) rollback(ctx context.Context, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.WarnContext(ctx, "Error rolling back transaction", "error", err)
	}
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// GroupByDate buckets rows by their calendar date, preserving row order within a day.
func GroupByDate(rows []Measurement) map[string][]Measurement {
	byDate := make(map[string][]Measurement)
	for _, row := range rows {
		byDate[row.Date] = append(byDate[row.Date], row)
	}
	return byDate
}
