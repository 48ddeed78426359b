// Package notify delivers booking confirmations and researcher alerts.
//
// Notifications are a best-effort side channel of the funnel: a confirmed
// booking must never be rolled back because a message failed to send.
package notify

import (
	"context"
	"sync"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

// StudyName appears in every outbound message.
const StudyName = "Calibrated Trust Research Study"

// Booking is the notification payload for a confirmed interview slot.
type Booking struct {
	ResponseID string
	Name       string
	Email      string
	Booking    models.BookingData
}

// Notifier sends participant and researcher messages for booking events.
type Notifier interface {
	// SendBookingConfirmation notifies the participant of their slot.
	SendBookingConfirmation(ctx context.Context, b Booking) error
	// SendResearcherAlert notifies the research team of a new booking.
	SendResearcherAlert(ctx context.Context, b Booking) error
	// SendReminder notifies the participant of an upcoming interview.
	SendReminder(ctx context.Context, b Booking) error
}

// MockNotifier records every notification for test inspection.
type MockNotifier struct {
	mu            sync.Mutex
	Confirmations []Booking
	Alerts        []Booking
	Reminders     []Booking
	// Err, when set, is returned from every send.
	Err error
}

// NewMockNotifier creates an empty recording notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendBookingConfirmation(_ context.Context, b Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Confirmations = append(m.Confirmations, b)
	return nil
}

func (m *MockNotifier) SendResearcherAlert(_ context.Context, b Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Alerts = append(m.Alerts, b)
	return nil
}

func (m *MockNotifier) SendReminder(_ context.Context, b Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Reminders = append(m.Reminders, b)
	return nil
}

// Sent returns the total number of recorded notifications.
func (m *MockNotifier) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Confirmations) + len(m.Alerts) + len(m.Reminders)
}
