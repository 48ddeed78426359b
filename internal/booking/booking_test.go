package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ctr-research/SurveyPipe/internal/models"
	"github.com/ctr-research/SurveyPipe/internal/notify"
	"github.com/ctr-research/SurveyPipe/internal/store"
)

var fixedNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func TestRenderCalendarMarksPastAndAvailable(t *testing.T) {
	cal := RenderCalendar(2026, 3, nil, fixedNow)

	if cal.Year != 2026 || cal.Month != 3 {
		t.Fatalf("calendar = %d-%d", cal.Year, cal.Month)
	}
	if len(cal.Days) != 31 {
		t.Fatalf("days = %d, want 31", len(cal.Days))
	}
	// March 1, 2026 is a Sunday: six leading blanks in a Monday-first grid.
	if cal.LeadingBlanks != 6 {
		t.Errorf("leading blanks = %d, want 6", cal.LeadingBlanks)
	}

	if !cal.Days[8].Past || cal.Days[8].Available {
		t.Errorf("March 9 should be past: %+v", cal.Days[8])
	}
	if cal.Days[9].Past || !cal.Days[9].Available {
		t.Errorf("March 10 (today) should be available: %+v", cal.Days[9])
	}
	if !cal.Days[30].Available {
		t.Errorf("March 31 should be available: %+v", cal.Days[30])
	}
}

func TestRenderCalendarFullyBookedDay(t *testing.T) {
	booked := []models.BookedSlot{
		{Date: "2026-03-12", Time: "10:00:00"},
		{Date: "2026-03-12", Time: "12:00:00"},
		{Date: "2026-03-12", Time: "14:00:00"},
		{Date: "2026-03-12", Time: "16:00:00"},
		{Date: "2026-03-13", Time: "10:00:00"},
	}
	cal := RenderCalendar(2026, 3, booked, fixedNow)

	if !cal.Days[11].FullyBooked || cal.Days[11].Available {
		t.Errorf("March 12 should be fully booked: %+v", cal.Days[11])
	}
	// Three bookings left the day under capacity.
	if !cal.Days[12].Available {
		t.Errorf("March 13 should still be available: %+v", cal.Days[12])
	}
}

func TestSlotsForDateExactTimeMatch(t *testing.T) {
	booked := []models.BookedSlot{
		{Date: "2026-03-12", Time: "10:00:00"},
		{Date: "2026-03-13", Time: "12:00:00"}, // other date, must not leak
	}
	slots := SlotsForDate("2026-03-12", booked, nil)

	if len(slots) != 4 {
		t.Fatalf("slots = %d, want 4", len(slots))
	}
	for _, s := range slots {
		booked := s.Time == "10:00"
		if s.Booked != booked {
			t.Errorf("slot %s booked = %v", s.Time, s.Booked)
		}
	}
}

func TestStateMonthNavigationWrapsYear(t *testing.T) {
	s := &State{Year: 2026, Month: 12}
	s.NextMonth()
	if s.Year != 2027 || s.Month != 1 {
		t.Errorf("after next: %d-%d", s.Year, s.Month)
	}
	s.PrevMonth()
	if s.Year != 2026 || s.Month != 12 {
		t.Errorf("after prev: %d-%d", s.Year, s.Month)
	}
}

func TestStateSelectDateClearsNewlyDisabledTime(t *testing.T) {
	s := NewState(fixedNow, []models.BookedSlot{{Date: "2026-03-12", Time: "14:00:00"}})
	s.SelectTime("14:00")

	// On a free date the selection survives.
	s.SelectDate("2026-03-13", nil)
	if s.SelectedTime != "14:00" {
		t.Errorf("time cleared on free date: %q", s.SelectedTime)
	}

	// On the booked date the same time is dropped.
	slots := s.SelectDate("2026-03-12", nil)
	if s.SelectedTime != "" {
		t.Errorf("time should be cleared, got %q", s.SelectedTime)
	}
	found := false
	for _, slot := range slots {
		if slot.Time == "14:00" && slot.Booked {
			found = true
		}
	}
	if !found {
		t.Errorf("14:00 should be marked booked: %+v", slots)
	}
}

func newTestScheduler(t *testing.T) (*Scheduler, *store.InMemoryStore, *notify.MockNotifier) {
	t.Helper()
	st := store.NewInMemoryStore()
	n := notify.NewMockNotifier()
	sched := NewScheduler(st, n, WithClock(func() time.Time { return fixedNow }))
	return sched, st, n
}

func validRequest() ConfirmRequest {
	return ConfirmRequest{
		Name:  "Ana",
		Email: "ana@example.com",
		Role:  "UX Designer",
		Date:  "2026-03-12",
		Time:  "10:00",
	}
}

func TestConfirmPersistsBookingAndNotifies(t *testing.T) {
	sched, st, n := newTestScheduler(t)
	const id = "CTR-20260310-BOOK01"

	data, err := sched.Confirm(context.Background(), id, validRequest())
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if data.Time != "10:00:00" || data.Datetime != "2026-03-12T10:00:00" {
		t.Errorf("booking time fields = %+v", data)
	}
	if data.Duration != 60 || data.Platform != "Jitsi" {
		t.Errorf("booking defaults = %+v", data)
	}
	if !strings.HasPrefix(data.MeetingURL, "https://meet.jit.si/CTR-"+id+"-") {
		t.Errorf("meeting URL = %q", data.MeetingURL)
	}
	if data.Timezone != "UTC" {
		t.Errorf("timezone default = %q", data.Timezone)
	}

	rec, err := st.GetRecord(id)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if !rec.BookingScheduled || rec.BookingStatus != "confirmed" {
		t.Errorf("record booking state = %+v", rec)
	}
	if rec.Email != "ana@example.com" {
		t.Errorf("contact not saved before booking: %+v", rec)
	}

	if len(n.Confirmations) != 1 || len(n.Alerts) != 1 {
		t.Errorf("notifications = %d confirmations, %d alerts", len(n.Confirmations), len(n.Alerts))
	}
}

func TestConfirmValidation(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*ConfirmRequest)
		wantErr error
	}{
		{"missing date", func(r *ConfirmRequest) { r.Date = "" }, models.ErrMissingBookingFields},
		{"missing time", func(r *ConfirmRequest) { r.Time = "" }, models.ErrMissingBookingFields},
		{"missing name", func(r *ConfirmRequest) { r.Name = "" }, models.ErrMissingBookingFields},
		{"missing email", func(r *ConfirmRequest) { r.Email = "" }, models.ErrMissingBookingFields},
		{"missing role", func(r *ConfirmRequest) { r.Role = "" }, models.ErrMissingBookingFields},
		{"invalid email", func(r *ConfirmRequest) { r.Email = "not-an-email" }, models.ErrInvalidEmail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			if _, err := sched.Confirm(ctx, "CTR-20260310-VAL001", req); !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfirmRejectsTakenSlot(t *testing.T) {
	sched, _, n := newTestScheduler(t)
	ctx := context.Background()

	if _, err := sched.Confirm(ctx, "CTR-20260310-FIRST1", validRequest()); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	sent := n.Sent()

	req := validRequest()
	req.Email = "ben@example.com"
	req.Name = "Ben"
	if _, err := sched.Confirm(ctx, "CTR-20260310-SECOND", req); !errors.Is(err, models.ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}
	if n.Sent() != sent {
		t.Error("failed booking must not notify")
	}

	// A different slot on the same day goes through.
	req.Time = "12:00"
	if _, err := sched.Confirm(ctx, "CTR-20260310-SECOND", req); err != nil {
		t.Fatalf("different slot failed: %v", err)
	}
}

func TestConfirmSucceedsWhenNotifierFails(t *testing.T) {
	sched, st, n := newTestScheduler(t)
	n.Err = errors.New("smtp down")

	const id = "CTR-20260310-NOTIF1"
	if _, err := sched.Confirm(context.Background(), id, validRequest()); err != nil {
		t.Fatalf("Confirm should survive notifier failure: %v", err)
	}
	rec, err := st.GetRecord(id)
	if err != nil || rec.BookingStatus != "confirmed" {
		t.Errorf("booking not persisted: %+v err=%v", rec, err)
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	sched, st, _ := newTestScheduler(t)
	ctx := context.Background()
	const id = "CTR-20260310-CANCL1"

	if _, err := sched.Confirm(ctx, id, validRequest()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if err := sched.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	slots, err := st.GetConfirmedBookings()
	if err != nil {
		t.Fatalf("GetConfirmedBookings failed: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("slot not released: %+v", slots)
	}

	// The freed slot is bookable again.
	if _, err := sched.Confirm(ctx, "CTR-20260310-REBOOK", validRequest()); err != nil {
		t.Fatalf("rebooking freed slot failed: %v", err)
	}
}
