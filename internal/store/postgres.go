// Package store provides storage backends for SurveyPipe response records.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/ctr-research/SurveyPipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) EnsureRecord(responseID string) error {
	_, err := s.db.Exec(`
		INSERT INTO response_records (id, survey_status) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`,
		responseID, models.SurveyStatusNotStarted)
	if err != nil {
		slog.Error("PostgresStore EnsureRecord failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to ensure record %s: %w", responseID, err)
	}
	slog.Debug("PostgresStore EnsureRecord succeeded", "responseID", responseID)
	return nil
}

func (s *PostgresStore) GetRecord(responseID string) (*models.ResponseRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, email, name, role, industry, profile_url, eligibility_category,
		       context_statement, commitment, survey_status, termination_reason,
		       questions_answered, booking_scheduled, booking_status, booking_date,
		       booking_time, booking_meeting_url, archetype_name, created_at, updated_at
		FROM response_records WHERE id = $1`, responseID)
	rec, err := scanRecordRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetRecord failed", "error", err, "responseID", responseID)
		return nil, fmt.Errorf("failed to get record %s: %w", responseID, err)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateContact(responseID string, contact models.ContactInfo) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET email = $1, name = $2, role = $3, industry = $4, profile_url = $5,
		    eligibility_category = $6, context_statement = $7, updated_at = NOW()
		WHERE id = $8`,
		contact.Email, contact.Name, contact.Role, nilIfEmpty(contact.Industry),
		nilIfEmpty(contact.ProfileURL), nilIfEmpty(contact.EligibilityCategory),
		nilIfEmpty(contact.ContextStatement), responseID)
	if err != nil {
		slog.Error("PostgresStore UpdateContact failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to update contact for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("PostgresStore UpdateContact succeeded", "responseID", responseID)
	return nil
}

func (s *PostgresStore) UpdateCommitment(responseID string, commitment string) error {
	res, err := s.db.Exec(`
		UPDATE response_records SET commitment = $1, updated_at = NOW() WHERE id = $2`,
		commitment, responseID)
	if err != nil {
		slog.Error("PostgresStore UpdateCommitment failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to update commitment for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("PostgresStore UpdateCommitment succeeded", "responseID", responseID)
	return nil
}

func (s *PostgresStore) StartSurvey(responseID string, startTime time.Time) error {
	res, err := s.db.Exec(`
		UPDATE response_records SET survey_status = $1, updated_at = $2 WHERE id = $3`,
		models.SurveyStatusInProgress, startTime.UTC(), responseID)
	if err != nil {
		slog.Error("PostgresStore StartSurvey failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to start survey for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("PostgresStore StartSurvey succeeded", "responseID", responseID)
	return nil
}

func (s *PostgresStore) SaveAnswer(responseID, questionID string, answer models.Answer, responseTimeMs int64) error {
	payload, err := json.Marshal(answer)
	if err != nil {
		slog.Error("PostgresStore SaveAnswer JSON marshal failed", "error", err, "responseID", responseID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO survey_answers (response_id, question_id, answer, response_time_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (response_id, question_id)
		DO UPDATE SET answer = EXCLUDED.answer, response_time_ms = EXCLUDED.response_time_ms, saved_at = NOW()`,
		responseID, questionID, string(payload), responseTimeMs)
	if err != nil {
		slog.Error("PostgresStore SaveAnswer failed", "error", err, "responseID", responseID, "questionID", questionID)
		return fmt.Errorf("failed to save answer %s for %s: %w", questionID, responseID, err)
	}
	_, err = s.db.Exec(`
		UPDATE response_records
		SET questions_answered = (SELECT COUNT(*) FROM survey_answers WHERE response_id = $1),
		    updated_at = NOW()
		WHERE id = $2`, responseID, responseID)
	if err != nil {
		slog.Error("PostgresStore SaveAnswer count update failed", "error", err, "responseID", responseID)
		return err
	}
	slog.Debug("PostgresStore SaveAnswer succeeded", "responseID", responseID, "questionID", questionID)
	return nil
}

func (s *PostgresStore) GetAnswers(responseID string) (map[string]models.Answer, error) {
	rows, err := s.db.Query(`SELECT question_id, answer FROM survey_answers WHERE response_id = $1`, responseID)
	if err != nil {
		slog.Error("PostgresStore GetAnswers query failed", "error", err, "responseID", responseID)
		return nil, fmt.Errorf("failed to query answers for %s: %w", responseID, err)
	}
	defer rows.Close()

	answers := make(map[string]models.Answer)
	for rows.Next() {
		var questionID, payload string
		if err := rows.Scan(&questionID, &payload); err != nil {
			slog.Error("PostgresStore GetAnswers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		var a models.Answer
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			slog.Error("PostgresStore GetAnswers unmarshal failed", "error", err, "questionID", questionID)
			return nil, err
		}
		answers[questionID] = a
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetAnswers rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore GetAnswers succeeded", "responseID", responseID, "count", len(answers))
	return answers, nil
}

func (s *PostgresStore) TerminateSurvey(responseID, reason string) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET survey_status = $1, termination_reason = $2, updated_at = NOW()
		WHERE id = $3`,
		models.SurveyStatusTerminated, reason, responseID)
	if err != nil {
		slog.Error("PostgresStore TerminateSurvey failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to terminate survey for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("PostgresStore TerminateSurvey succeeded", "responseID", responseID, "reason", reason)
	return nil
}

func (s *PostgresStore) CompleteSurvey(responseID string, data models.CompletionData) error {
	dims, err := json.Marshal(data.DimensionScores)
	if err != nil {
		slog.Error("PostgresStore CompleteSurvey JSON marshal failed", "error", err, "responseID", responseID)
		return err
	}
	res, err := s.db.Exec(`
		UPDATE response_records
		SET survey_status = $1, questions_answered = $2, questions_skipped = $3,
		    completion_minutes = $4, archetype_name = $5, archetype_desc = $6, archetype_power = $7,
		    trust_score = $8, curator_score = $9, executor_score = $10, curatorial_shift = $11,
		    org_readiness = $12, dimension_scores = $13, updated_at = NOW()
		WHERE id = $14`,
		models.SurveyStatusCompleted, data.QuestionsAnswered, data.QuestionsSkipped,
		data.CompletionTime, data.Archetype.Name, data.Archetype.Desc, data.Archetype.Power,
		data.TrustScore, data.CuratorScore, data.ExecutorScore, data.CuratorialShift,
		data.OrgReadiness, string(dims), responseID)
	if err != nil {
		slog.Error("PostgresStore CompleteSurvey failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to complete survey for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("PostgresStore CompleteSurvey succeeded", "responseID", responseID, "archetype", data.Archetype.Name)
	return nil
}

func (s *PostgresStore) CreateBooking(responseID string, booking models.BookingData) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET booking_scheduled = TRUE, booking_status = 'confirmed', booking_date = $1, booking_time = $2,
		    booking_datetime = $3, booking_timezone = $4, booking_duration = $5, booking_platform = $6,
		    booking_meeting_url = $7, booking_notes = $8, updated_at = NOW()
		WHERE id = $9`,
		booking.Date, booking.Time, booking.Datetime, booking.Timezone, booking.Duration,
		booking.Platform, booking.MeetingURL, nilIfEmpty(booking.Notes), responseID)
	if err != nil {
		slog.Error("PostgresStore CreateBooking failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to create booking for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("PostgresStore CreateBooking succeeded", "responseID", responseID, "date", booking.Date, "time", booking.Time)
	return nil
}

func (s *PostgresStore) GetConfirmedBookings() ([]models.BookedSlot, error) {
	rows, err := s.db.Query(`
		SELECT booking_date, booking_time FROM response_records WHERE booking_status = 'confirmed'`)
	if err != nil {
		slog.Error("PostgresStore GetConfirmedBookings query failed", "error", err)
		return nil, fmt.Errorf("failed to query confirmed bookings: %w", err)
	}
	defer rows.Close()

	var slots []models.BookedSlot
	for rows.Next() {
		var slot models.BookedSlot
		if err := rows.Scan(&slot.Date, &slot.Time); err != nil {
			slog.Error("PostgresStore GetConfirmedBookings scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetConfirmedBookings rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore GetConfirmedBookings succeeded", "count", len(slots))
	return slots, nil
}

func (s *PostgresStore) GetBookingsForDate(date string) ([]BookingRow, error) {
	rows, err := s.db.Query(`
		SELECT id, email, name, booking_date, booking_time, booking_datetime, booking_timezone,
		       booking_duration, booking_platform, booking_meeting_url
		FROM response_records
		WHERE booking_status = 'confirmed' AND booking_date = $1`, date)
	if err != nil {
		slog.Error("PostgresStore GetBookingsForDate query failed", "error", err, "date", date)
		return nil, fmt.Errorf("failed to query bookings for %s: %w", date, err)
	}
	defer rows.Close()

	out, err := scanBookingRows(rows)
	if err != nil {
		slog.Error("PostgresStore GetBookingsForDate scan failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore GetBookingsForDate succeeded", "date", date, "count", len(out))
	return out, nil
}

func (s *PostgresStore) CancelBooking(responseID string) error {
	res, err := s.db.Exec(`
		UPDATE response_records
		SET booking_scheduled = FALSE, booking_status = 'cancelled', updated_at = NOW()
		WHERE id = $1`, responseID)
	if err != nil {
		slog.Error("PostgresStore CancelBooking failed", "error", err, "responseID", responseID)
		return fmt.Errorf("failed to cancel booking for %s: %w", responseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRecordNotFound
	}
	slog.Debug("PostgresStore CancelBooking succeeded", "responseID", responseID)
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
