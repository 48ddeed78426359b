// Package testutil provides common test utilities and helpers for SurveyPipe tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ctr-research/SurveyPipe/internal/api"
	"github.com/ctr-research/SurveyPipe/internal/booking"
	"github.com/ctr-research/SurveyPipe/internal/models"
	"github.com/ctr-research/SurveyPipe/internal/notify"
	"github.com/ctr-research/SurveyPipe/internal/store"
)

// TB is the subset of testing.T the assertion helpers need. It lets tests
// exercise the helpers with a recording fake.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer() (*api.Server, *store.InMemoryStore, *notify.MockNotifier) {
	st := store.NewInMemoryStore()
	n := notify.NewMockNotifier()
	sched := booking.NewScheduler(st, n)
	return api.NewServer(st, "", api.WithScheduler(sched)), st, n
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// AssertRecordStatus validates a response record's survey status.
func AssertRecordStatus(t TB, st store.Store, responseID string, expected models.SurveyStatus, context string) {
	t.Helper()
	rec, err := st.GetRecord(responseID)
	if err != nil {
		t.Fatalf("%s: failed to get record %s: %v", context, responseID, err)
	}
	if rec.SurveyStatus != expected {
		t.Errorf("%s: expected survey status %q, got %q", context, expected, rec.SurveyStatus)
	}
}

// SeedTestData adds sample response records and a confirmed booking to the store.
func SeedTestData(t *testing.T, st store.Store) {
	t.Helper()

	records := []struct {
		id      string
		contact models.ContactInfo
	}{
		{"CTR-20260310-SEED01", models.ContactInfo{Name: "Ada Calder", Email: "ada@example.com", Role: "Art Director"}},
		{"CTR-20260310-SEED02", models.ContactInfo{Name: "Ben Ito", Email: "ben@example.com", Role: "Photographer"}},
	}
	for _, r := range records {
		if err := st.EnsureRecord(r.id); err != nil {
			t.Fatalf("failed to seed record %s: %v", r.id, err)
		}
		if err := st.UpdateContact(r.id, r.contact); err != nil {
			t.Fatalf("failed to seed contact for %s: %v", r.id, err)
		}
	}

	if err := st.StartSurvey("CTR-20260310-SEED01", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("failed to seed survey start: %v", err)
	}

	booked := models.BookingData{
		Date: "2026-03-11", Time: "10:00:00", Timezone: "UTC",
		Duration: models.BookingDurationMinutes, Platform: booking.MeetingPlatform,
		MeetingURL: "https://meet.jit.si/CTR-20260310-SEED02-1773000000000",
	}
	if err := st.CreateBooking("CTR-20260310-SEED02", booked); err != nil {
		t.Fatalf("failed to seed booking: %v", err)
	}
}
