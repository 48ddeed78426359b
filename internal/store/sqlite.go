// Package store provides storage backends for SurveyPipe response records.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/ctr-research/SurveyPipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path; missing parent directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureRecord(responseID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO response_records (id, survey_status) VALUES (?, ?)`,
		responseID, models.SurveyStatusNotStarted)
	if err != nil {
		slog.Error("SQLiteStore EnsureRecord failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to ensure record %s: %w", responseID, err)
	}
	slog.Debug("SQLiteStore EnsureRecord succeeded", "responseID", responseID)
	return nil
}

func (s *SQLiteStore) GetRecord(responseID string) (*models.ResponseRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, email, name, role, industry, profile_url, eligibility_category,
		       context_statement, commitment, survey_status, termination_reason,
		       questions_answered, booking_scheduled, booking_status, booking_date,
		       booking_time, booking_meeting_url, archetype_name, created_at, updated_at
		FROM response_records WHERE id = ?`, responseID)
	rec, err := scanRecordRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetRecord failed", "error", err, "responseID", responseID)
		return nil, fmt.Errorf("failed to get record %s: %w", responseID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateContact(responseID string, contact models.ContactInfo) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET email = ?, name = ?, role = ?, industry = ?, profile_url = ?,
		    eligibility_category = ?, context_statement = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		contact.Email, contact.Name, contact.Role, nilIfEmpty(contact.Industry),
		nilIfEmpty(contact.ProfileURL), nilIfEmpty(contact.EligibilityCategory),
		nilIfEmpty(contact.ContextStatement), responseID)
	if err != nil {
		slog.Error("SQLiteStore UpdateContact failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to update contact for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("SQLiteStore UpdateContact succeeded", "responseID", responseID)
	return nil
}

func (s *SQLiteStore) UpdateCommitment(responseID string, commitment string) error {
	res, err := s.db.Exec(`
		UPDATE response_records SET commitment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		commitment, responseID)
	if err != nil {
		slog.Error("SQLiteStore UpdateCommitment failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to update commitment for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("SQLiteStore UpdateCommitment succeeded", "responseID", responseID)
	return nil
}

func (s *SQLiteStore) StartSurvey(responseID string, startTime time.Time) error {
	res, err := s.db.Exec(`
		UPDATE response_records SET survey_status = ?, updated_at = ? WHERE id = ?`,
		models.SurveyStatusInProgress, startTime.UTC(), responseID)
	if err != nil {
		slog.Error("SQLiteStore StartSurvey failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to start survey for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("SQLiteStore StartSurvey succeeded", "responseID", responseID)
	return nil
}

func (s *SQLiteStore) SaveAnswer(responseID, questionID string, answer models.Answer, responseTimeMs int64) error {
	payload, err := json.Marshal(answer)
	if err != nil {
		slog.Error("SQLiteStore SaveAnswer JSON marshal failed", "error", err, "responseID", responseID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO survey_answers (response_id, question_id, answer, response_time_ms)
		VALUES (?, ?, ?, ?)`,
		responseID, questionID, string(payload), responseTimeMs)
	if err != nil {
		slog.Error("SQLiteStore SaveAnswer failed", "error", err, "responseID", responseID, "questionID", questionID)
		return fmt.Errorf("failed to save answer %s for %s: %w", questionID, responseID, err)
	}
	_, err = s.db.Exec(`
		UPDATE response_records
		SET questions_answered = (SELECT COUNT(*) FROM survey_answers WHERE response_id = ?),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, responseID, responseID)
	if err != nil {
		slog.Error("SQLiteStore SaveAnswer count update failed", "error", err, "responseID", responseID)
		return err
	}
	slog.Debug("SQLiteStore SaveAnswer succeeded", "responseID", responseID, "questionID", questionID)
	return nil
}

func (s *SQLiteStore) GetAnswers(responseID string) (map[string]models.Answer, error) {
	rows, err := s.db.Query(`SELECT question_id, answer FROM survey_answers WHERE response_id = ?`, responseID)
	if err != nil {
		slog.Error("SQLiteStore GetAnswers query failed", "error", err, "responseID", responseID)
		return nil, fmt.Errorf("failed to query answers for %s: %w", responseID, err)
	}
	defer rows.Close()

	answers := make(map[string]models.Answer)
	for rows.Next() {
		var questionID, payload string
		if err := rows.Scan(&questionID, &payload); err != nil {
			slog.Error("SQLiteStore GetAnswers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		var a models.Answer
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			slog.Error("SQLiteStore GetAnswers unmarshal failed", "error", err, "questionID", questionID)
			return nil, err
		}
		answers[questionID] = a
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetAnswers rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetAnswers succeeded", "responseID", responseID, "count", len(answers))
	return answers, nil
}

func (s *SQLiteStore) TerminateSurvey(responseID, reason string) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET survey_status = ?, termination_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		models.SurveyStatusTerminated, reason, responseID)
	if err != nil {
		slog.Error("SQLiteStore TerminateSurvey failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to terminate survey for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("SQLiteStore TerminateSurvey succeeded", "responseID", responseID, "reason", reason)
	return nil
}

func (s *SQLiteStore) CompleteSurvey(responseID string, data models.CompletionData) error {
	dims, err := json.Marshal(data.DimensionScores)
	if err != nil {
		slog.Error("SQLiteStore CompleteSurvey JSON marshal failed", "error", err, "responseID", responseID)
		return err
	}
	res, err := s.db.Exec(`
		UPDATE response_records
		SET survey_status = ?, questions_answered = ?, questions_skipped = ?,
		    completion_minutes = ?, archetype_name = ?, archetype_desc = ?, archetype_power = ?,
		    trust_score = ?, curator_score = ?, executor_score = ?, curatorial_shift = ?,
		    org_readiness = ?, dimension_scores = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		models.SurveyStatusCompleted, data.QuestionsAnswered, data.QuestionsSkipped,
		data.CompletionTime, data.Archetype.Name, data.Archetype.Desc, data.Archetype.Power,
		data.TrustScore, data.CuratorScore, data.ExecutorScore, data.CuratorialShift,
		data.OrgReadiness, string(dims), responseID)
	if err != nil {
		slog.Error("SQLiteStore CompleteSurvey failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to complete survey for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("SQLiteStore CompleteSurvey succeeded", "responseID", responseID, "archetype", data.Archetype.Name)
	return nil
}

func (s *SQLiteStore) CreateBooking(responseID string, booking models.BookingData) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET booking_scheduled = 1, booking_status = 'confirmed', booking_date = ?, booking_time = ?,
		    booking_datetime = ?, booking_timezone = ?, booking_duration = ?, booking_platform = ?,
		    booking_meeting_url = ?, booking_notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		booking.Date, booking.Time, booking.Datetime, booking.Timezone, booking.Duration,
		booking.Platform, booking.MeetingURL, nilIfEmpty(booking.Notes), responseID)
	if err != nil {
		slog.Error("SQLiteStore CreateBooking failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to create booking for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("SQLiteStore CreateBooking succeeded", "responseID", responseID, "date", booking.Date, "time", booking.Time)
	return nil
}

func (s *SQLiteStore) GetConfirmedBookings() ([]models.BookedSlot, error) {
	rows, err := s.db.Query(`
		SELECT booking_date, booking_time FROM response_records WHERE booking_status = 'confirmed'`)
	if err != nil {
		slog.Error("SQLiteStore GetConfirmedBookings query failed", "error", err)
		return nil, fmt.Errorf("failed to query confirmed bookings: %w", err)
	}
	defer rows.Close()

	var slots []models.BookedSlot
	for rows.Next() {
		var slot models.BookedSlot
		if err := rows.Scan(&slot.Date, &slot.Time); err != nil {
			slog.Error("SQLiteStore GetConfirmedBookings scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetConfirmedBookings rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetConfirmedBookings succeeded", "count", len(slots))
	return slots, nil
}

func (s *SQLiteStore) GetBookingsForDate(date string) ([]BookingRow, error) {
	rows, err := s.db.Query(`
		SELECT id, email, name, booking_date, booking_time, booking_datetime, booking_timezone,
		       booking_duration, booking_platform, booking_meeting_url
		FROM response_records
		WHERE booking_status = 'confirmed' AND booking_date = ?`, date)
	if err != nil {
		slog.Error("SQLiteStore GetBookingsForDate query failed", "error", err, "date", date)
		return nil, fmt.Errorf("failed to query bookings for %s: %w", date, err)
	}
	defer rows.Close()

	out, err := scanBookingRows(rows)
	if err != nil {
		slog.Error("SQLiteStore GetBookingsForDate scan failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetBookingsForDate succeeded", "date", date, "count", len(out))
	return out, nil
}

func (s *SQLiteStore) CancelBooking(responseID string) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET booking_scheduled = 0, booking_status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, responseID)
	if err != nil {
		slog.Error("SQLiteStore CancelBooking failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to cancel booking for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("SQLiteStore CancelBooking succeeded", "responseID", responseID)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
