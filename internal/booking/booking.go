// Package booking implements the interview scheduler: a month calendar with
// capacity-limited days, per-day time slots filtered against confirmed
// bookings, and the confirm/cancel flow against the record store.
//
// Calendar and slot computation are pure functions of their inputs so the
// rendering surface can stay dumb. Only Confirm and Cancel touch the store.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ctr-research/SurveyPipe/internal/models"
	"github.com/ctr-research/SurveyPipe/internal/notify"
	"github.com/ctr-research/SurveyPipe/internal/store"
)

// DefaultTimeSlots are the daily interview slots, HH:MM, local to the
// researcher's advertised timezone. Four slots bound each day's capacity.
var DefaultTimeSlots = []string{"10:00", "12:00", "14:00", "16:00"}

// MeetingPlatform is the video platform baked into every booking.
const MeetingPlatform = "Jitsi"

// jitsiBaseURL prefixes generated meeting room URLs.
const jitsiBaseURL = "https://meet.jit.si/"

// Day is one calendar cell.
type Day struct {
	Day         int    `json:"day"`
	Date        string `json:"date"` // YYYY-MM-DD
	Past        bool   `json:"past"`
	FullyBooked bool   `json:"fully_booked"`
	Available   bool   `json:"available"`
}

// Calendar is a rendered month.
type Calendar struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
	// LeadingBlanks is the number of empty cells before day 1 in a
	// Monday-first week grid.
	LeadingBlanks int   `json:"leading_blanks"`
	Days          []Day `json:"days"`
}

// TimeSlot is one selectable interview time for a chosen date.
type TimeSlot struct {
	Time   string `json:"time"`
	Booked bool   `json:"booked"`
}

// RenderCalendar computes the month grid for year/month (month 1-12). Days
// before today are past; days with every slot taken are fully booked; the
// rest are available.
func RenderCalendar(year int, month int, booked []models.BookedSlot, today time.Time) Calendar {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	// Monday-first offset: Sunday counts as the sixth blank.
	leading := int(first.Weekday()) - 1
	if leading < 0 {
		leading = 6
	}

	perDay := make(map[string]int, len(booked))
	for _, s := range booked {
		perDay[s.Date]++
	}

	todayMidnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	cal := Calendar{Year: year, Month: month, LeadingBlanks: leading, Days: make([]Day, 0, daysInMonth)}
	for d := 1; d <= daysInMonth; d++ {
		date := fmt.Sprintf("%04d-%02d-%02d", year, month, d)
		day := Day{Day: d, Date: date}
		cellDate := time.Date(year, time.Month(month), d, 0, 0, 0, 0, today.Location())
		switch {
		case cellDate.Before(todayMidnight):
			day.Past = true
		case perDay[date] >= models.SlotsPerDay:
			day.FullyBooked = true
		default:
			day.Available = true
		}
		cal.Days = append(cal.Days, day)
	}
	return cal
}

// SlotsForDate marks each daily slot booked when a confirmed booking matches
// the date and HH:MM time exactly.
func SlotsForDate(date string, booked []models.BookedSlot, slots []string) []TimeSlot {
	if len(slots) == 0 {
		slots = DefaultTimeSlots
	}
	taken := make(map[string]bool)
	for _, s := range booked {
		if s.Date == date {
			taken[hhmm(s.Time)] = true
		}
	}
	out := make([]TimeSlot, 0, len(slots))
	for _, t := range slots {
		out = append(out, TimeSlot{Time: t, Booked: taken[t]})
	}
	return out
}

// hhmm truncates HH:MM:SS to HH:MM; shorter values pass through.
func hhmm(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

// State is the participant-side scheduler selection. SelectDate refilters
// the slot list and drops a selected time that became unavailable.
type State struct {
	Year         int                 `json:"year"`
	Month        int                 `json:"month"` // 1-12
	SelectedDate string              `json:"selected_date,omitempty"`
	SelectedTime string              `json:"selected_time,omitempty"`
	BookedSlots  []models.BookedSlot `json:"booked_slots,omitempty"`
}

// NewState positions the scheduler on the current month.
func NewState(now time.Time, booked []models.BookedSlot) *State {
	return &State{Year: now.Year(), Month: int(now.Month()), BookedSlots: booked}
}

// NextMonth advances the view one month, wrapping the year.
func (s *State) NextMonth() {
	s.Month++
	if s.Month > 12 {
		s.Month = 1
		s.Year++
	}
}

// PrevMonth moves the view back one month, wrapping the year.
func (s *State) PrevMonth() {
	s.Month--
	if s.Month < 1 {
		s.Month = 12
		s.Year--
	}
}

// SelectDate picks a date and returns its slots. A previously selected time
// that is booked on the new date is cleared.
func (s *State) SelectDate(date string, slots []string) []TimeSlot {
	s.SelectedDate = date
	out := SlotsForDate(date, s.BookedSlots, slots)
	for _, slot := range out {
		if slot.Time == s.SelectedTime && slot.Booked {
			s.SelectedTime = ""
		}
	}
	return out
}

// SelectTime picks a slot time for the selected date.
func (s *State) SelectTime(t string) {
	s.SelectedTime = t
}

// ConfirmRequest is the booking form payload.
type ConfirmRequest struct {
	Name       string
	Email      string
	Role       string
	Industry   string
	ProfileURL string
	Notes      string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM
	Timezone   string
}

// Scheduler confirms and cancels bookings against the record store, with
// best-effort notifications.
type Scheduler struct {
	store    store.Store
	notifier notify.Notifier
	now      func() time.Time
	slots    []string
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock overrides the scheduler clock, for tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithTimeSlots overrides the daily slot times.
func WithTimeSlots(slots []string) SchedulerOption {
	return func(s *Scheduler) { s.slots = slots }
}

// NewScheduler creates a scheduler over the given store and notifier.
// The notifier may be nil; notifications are then skipped.
func NewScheduler(st store.Store, n notify.Notifier, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{store: st, notifier: n, now: time.Now, slots: DefaultTimeSlots}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calendar renders the month grid from the store's confirmed bookings.
func (s *Scheduler) Calendar(year, month int) (Calendar, error) {
	booked, err := s.store.GetConfirmedBookings()
	if err != nil {
		return Calendar{}, fmt.Errorf("load confirmed bookings: %w", err)
	}
	return RenderCalendar(year, month, booked, s.now()), nil
}

// Slots returns the slot availability for a date from the store's confirmed
// bookings.
func (s *Scheduler) Slots(date string) ([]TimeSlot, error) {
	booked, err := s.store.GetConfirmedBookings()
	if err != nil {
		return nil, fmt.Errorf("load confirmed bookings: %w", err)
	}
	return SlotsForDate(date, booked, s.slots), nil
}

// Confirm validates the request, re-checks the slot against the store, writes
// contact and booking, and fires notifications. The store writes gate the
// confirmation; notification failures are logged and swallowed.
func (s *Scheduler) Confirm(ctx context.Context, responseID string, req ConfirmRequest) (models.BookingData, error) {
	if req.Date == "" || req.Time == "" || req.Name == "" || req.Email == "" || req.Role == "" {
		return models.BookingData{}, models.ErrMissingBookingFields
	}
	if !strings.Contains(req.Email, "@") {
		return models.BookingData{}, models.ErrInvalidEmail
	}

	booked, err := s.store.GetConfirmedBookings()
	if err != nil {
		return models.BookingData{}, fmt.Errorf("load confirmed bookings: %w", err)
	}
	for _, slot := range booked {
		if slot.Date == req.Date && hhmm(slot.Time) == hhmm(req.Time) {
			slog.Debug("Scheduler slot collision", "responseID", responseID, "date", req.Date, "time", req.Time)
			return models.BookingData{}, models.ErrSlotUnavailable
		}
	}

	if err := s.store.EnsureRecord(responseID); err != nil {
		return models.BookingData{}, err
	}
	contact := models.ContactInfo{
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		Industry:   req.Industry,
		ProfileURL: req.ProfileURL,
	}
	if err := s.store.UpdateContact(responseID, contact); err != nil {
		return models.BookingData{}, fmt.Errorf("save contact before booking: %w", err)
	}

	now := s.now()
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	data := models.BookingData{
		Date:       req.Date,
		Time:       req.Time + ":00",
		Datetime:   req.Date + "T" + req.Time + ":00",
		Timezone:   tz,
		Duration:   models.BookingDurationMinutes,
		Platform:   MeetingPlatform,
		MeetingURL: MeetingURL(responseID, now),
		Notes:      req.Notes,
	}
	if err := s.store.CreateBooking(responseID, data); err != nil {
		return models.BookingData{}, fmt.Errorf("save booking: %w", err)
	}
	slog.Debug("Scheduler booking confirmed", "responseID", responseID, "date", data.Date, "time", data.Time)

	if s.notifier != nil {
		b := notify.Booking{ResponseID: responseID, Name: req.Name, Email: req.Email, Booking: data}
		if err := s.notifier.SendBookingConfirmation(ctx, b); err != nil {
			slog.Error("Scheduler confirmation notification failed", "error", err, "responseID", responseID)
		}
		if err := s.notifier.SendResearcherAlert(ctx, b); err != nil {
			slog.Error("Scheduler researcher alert failed", "error", err, "responseID", responseID)
		}
	}
	return data, nil
}

// Cancel releases the record's confirmed slot.
func (s *Scheduler) Cancel(ctx context.Context, responseID string) error {
	if err := s.store.CancelBooking(responseID); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	slog.Debug("Scheduler booking cancelled", "responseID", responseID)
	return nil
}

// MeetingURL builds the Jitsi room URL for a response id at a point in time.
func MeetingURL(responseID string, now time.Time) string {
	return fmt.Sprintf("%sCTR-%s-%d", jitsiBaseURL, responseID, now.UnixMilli())
}
