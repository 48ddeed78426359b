// Package store provides storage backends for SurveyPipe response records.
//
// The record store is the durable system of record for the intake funnel:
// every session writes through it keyed by response id. An in-memory store
// backs tests and local runs; SQLite and PostgreSQL back deployments.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option configures store creation.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports the driver implied by a DSN: "postgres" for
// PostgreSQL URLs and key/value strings, "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// Store is the record persistence interface shared by all backends.
// Every operation is keyed by the response id minted at session start.
type Store interface {
	// EnsureRecord creates the record row for responseID if it does not
	// exist yet. Repeating the call is a no-op.
	EnsureRecord(responseID string) error
	// GetRecord fetches a record, returning models.ErrRecordNotFound when absent.
	GetRecord(responseID string) (*models.ResponseRecord, error)
	// UpdateContact upserts the contact fields collected at the terms gate.
	UpdateContact(responseID string, contact models.ContactInfo) error
	// UpdateCommitment stores the participation commitment statement.
	UpdateCommitment(responseID string, commitment string) error
	// StartSurvey marks the record in progress with its start time.
	StartSurvey(responseID string, startTime time.Time) error
	// SaveAnswer records a single answer with its response duration.
	SaveAnswer(responseID, questionID string, answer models.Answer, responseTimeMs int64) error
	// GetAnswers returns every saved answer for a record, keyed by question id.
	GetAnswers(responseID string) (map[string]models.Answer, error)
	// TerminateSurvey marks the record terminated with the screening reason.
	TerminateSurvey(responseID, reason string) error
	// CompleteSurvey marks the record completed and stores derived scores.
	CompleteSurvey(responseID string, data models.CompletionData) error
	// CreateBooking stores a confirmed interview booking for the record.
	CreateBooking(responseID string, booking models.BookingData) error
	// GetConfirmedBookings lists every confirmed slot across all records.
	GetConfirmedBookings() ([]models.BookedSlot, error)
	// GetBookingsForDate lists confirmed bookings with record ids for a date.
	GetBookingsForDate(date string) ([]BookingRow, error)
	// CancelBooking marks the record's booking cancelled, freeing its slot.
	CancelBooking(responseID string) error
	// Close releases backend resources.
	Close() error
}

// BookingRow pairs a confirmed booking with its owning record, used by the
// reminder scheduler.
type BookingRow struct {
	ResponseID string
	Email      string
	Name       string
	Booking    models.BookingData
}

// inMemoryRecord is the full in-memory state for one response id.
type inMemoryRecord struct {
	record     models.ResponseRecord
	answers    map[string]models.Answer
	speeds     map[string]int64
	booking    *models.BookingData
	completion *models.CompletionData
}

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*inMemoryRecord
	now     func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*inMemoryRecord), now: time.Now}
}

func (s *InMemoryStore) EnsureRecord(responseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[responseID]; ok {
		return nil
	}
	now := s.now()
	s.records[responseID] = &inMemoryRecord{
		record: models.ResponseRecord{
			ID:           responseID,
			SurveyStatus: models.SurveyStatusNotStarted,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		answers: make(map[string]models.Answer),
		speeds:  make(map[string]int64),
	}
	return nil
}

func (s *InMemoryStore) get(responseID string) (*inMemoryRecord, error) {
	r, ok := s.records[responseID]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return r, nil
}

func (s *InMemoryStore) GetRecord(responseID string) (*models.ResponseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.get(responseID)
	if err != nil {
		return nil, err
	}
	rec := r.record
	return &rec, nil
}

func (s *InMemoryStore) UpdateContact(responseID string, contact models.ContactInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.record.Email = contact.Email
	r.record.Name = contact.Name
	r.record.Role = contact.Role
	r.record.Industry = contact.Industry
	r.record.ProfileURL = contact.ProfileURL
	r.record.EligibilityCategory = contact.EligibilityCategory
	r.record.ContextStatement = contact.ContextStatement
	r.record.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) UpdateCommitment(responseID string, commitment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.record.Commitment = commitment
	r.record.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) StartSurvey(responseID string, startTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.record.SurveyStatus = models.SurveyStatusInProgress
	r.record.UpdatedAt = startTime
	return nil
}

func (s *InMemoryStore) SaveAnswer(responseID, questionID string, answer models.Answer, responseTimeMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.answers[questionID] = answer
	r.speeds[questionID] = responseTimeMs
	r.record.QuestionsAnswered = len(r.answers)
	r.record.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) GetAnswers(responseID string) (map[string]models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.get(responseID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Answer, len(r.answers))
	for k, v := range r.answers {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) TerminateSurvey(responseID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.record.SurveyStatus = models.SurveyStatusTerminated
	r.record.TerminationReason = reason
	r.record.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) CompleteSurvey(responseID string, data models.CompletionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.completion = &data
	r.record.SurveyStatus = models.SurveyStatusCompleted
	r.record.QuestionsAnswered = data.QuestionsAnswered
	r.record.ArchetypeName = data.Archetype.Name
	r.record.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) CreateBooking(responseID string, booking models.BookingData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.booking = &booking
	r.record.BookingScheduled = true
	r.record.BookingStatus = "confirmed"
	r.record.BookingDate = booking.Date
	r.record.BookingTime = booking.Time
	r.record.BookingMeetingURL = booking.MeetingURL
	r.record.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) GetConfirmedBookings() ([]models.BookedSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var slots []models.BookedSlot
	for _, r := range s.records {
		if r.booking != nil && r.record.BookingStatus == "confirmed" {
			slots = append(slots, models.BookedSlot{Date: r.booking.Date, Time: r.booking.Time})
		}
	}
	return slots, nil
}

func (s *InMemoryStore) GetBookingsForDate(date string) ([]BookingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []BookingRow
	for id, r := range s.records {
		if r.booking != nil && r.record.BookingStatus == "confirmed" && r.booking.Date == date {
			rows = append(rows, BookingRow{
				ResponseID: id,
				Email:      r.record.Email,
				Name:       r.record.Name,
				Booking:    *r.booking,
			})
		}
	}
	return rows, nil
}

func (s *InMemoryStore) CancelBooking(responseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(responseID)
	if err != nil {
		return err
	}
	r.record.BookingScheduled = false
	r.record.BookingStatus = "cancelled"
	r.record.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
