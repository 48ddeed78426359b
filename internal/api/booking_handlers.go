// Package api provides HTTP handlers for SurveyPipe scheduling endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ctr-research/SurveyPipe/internal/booking"
	"github.com/ctr-research/SurveyPipe/internal/models"
)

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Scheduler not configured"))
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid year"))
			return
		}
		year = parsed
	}
	if v := q.Get("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid month"))
			return
		}
		month = parsed
	}

	cal, err := s.scheduler.Calendar(year, month)
	if err != nil {
		slog.Error("Server.calendarHandler: calendar render failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load calendar"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(cal))
}

func (s *Server) slotsHandler(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Scheduler not configured"))
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: date"))
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid date, expected YYYY-MM-DD"))
		return
	}

	slots, err := s.scheduler.Slots(date)
	if err != nil {
		slog.Error("Server.slotsHandler: slot lookup failed", "error", err, "date", date)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load time slots"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(slots))
}

// createBookingRequest is the interview booking form payload.
type createBookingRequest struct {
	ResponseID string `json:"response_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Industry   string `json:"industry,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Timezone   string `json:"timezone,omitempty"`
}

func (s *Server) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if s.scheduler == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Scheduler not configured"))
		return
	}
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createBookingHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ResponseID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: response_id"))
		return
	}

	data, err := s.scheduler.Confirm(r.Context(), req.ResponseID, booking.ConfirmRequest{
		Name:       req.Name,
		Email:      req.Email,
		Role:       req.Role,
		Industry:   req.Industry,
		ProfileURL: req.ProfileURL,
		Notes:      req.Notes,
		Date:       req.Date,
		Time:       req.Time,
		Timezone:   req.Timezone,
	})
	if err != nil {
		slog.Warn("Server.createBookingHandler: booking rejected", "error", err, "responseID", req.ResponseID)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	slog.Info("Server.createBookingHandler: booking confirmed", "responseID", req.ResponseID, "date", data.Date, "time", data.Time)
	writeJSONResponse(w, http.StatusCreated, models.Success(data))
}

func (s *Server) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Scheduler not configured"))
		return
	}
	responseID := r.PathValue("id")
	if err := s.scheduler.Cancel(r.Context(), responseID); err != nil {
		slog.Warn("Server.cancelBookingHandler: cancel failed", "error", err, "responseID", responseID)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	slog.Info("Server.cancelBookingHandler: booking cancelled", "responseID", responseID)
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

func (s *Server) getRecordHandler(w http.ResponseWriter, r *http.Request) {
	responseID := r.PathValue("id")
	rec, err := s.st.GetRecord(responseID)
	if err != nil {
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}
