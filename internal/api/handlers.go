// Package api provides HTTP handlers for SurveyPipe funnel endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ctr-research/SurveyPipe/internal/cache"
	"github.com/ctr-research/SurveyPipe/internal/funnel"
	"github.com/ctr-research/SurveyPipe/internal/models"
)

// sessionView is the state summary returned by session endpoints.
type sessionView struct {
	SessionID         string      `json:"session_id"`
	ResponseID        string      `json:"response_id,omitempty"`
	Page              models.Page `json:"page"`
	QuestionIndex     int         `json:"question_index"`
	QuestionCount     int         `json:"question_count"`
	QuestionsAnswered int         `json:"questions_answered"`
	QuestionsSkipped  int         `json:"questions_skipped"`
	Terminated        bool        `json:"terminated,omitempty"`
	TerminationReason string      `json:"termination_reason,omitempty"`
	Resumed           bool        `json:"resumed,omitempty"`
}

func viewOf(sessionID string, e *funnel.Engine) sessionView {
	s := e.State()
	return sessionView{
		SessionID:         sessionID,
		ResponseID:        s.ResponseID,
		Page:              s.CurrentPage,
		QuestionIndex:     s.CurrentQuestionIndex,
		QuestionCount:     e.QuestionCount(),
		QuestionsAnswered: s.QuestionsAnswered,
		QuestionsSkipped:  s.QuestionsSkipped,
		Terminated:        s.Terminated,
		TerminationReason: s.TerminationReason,
	}
}

// statusFor maps funnel errors to HTTP status codes. Unknown errors are
// treated as internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrTransitionInFlight):
		return http.StatusConflict
	case errors.Is(err, models.ErrSurveyNotStarted):
		return http.StatusConflict
	case errors.Is(err, models.ErrSessionTerminated):
		return http.StatusGone
	case errors.Is(err, models.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidPage),
		errors.Is(err, models.ErrMissingContactFields),
		errors.Is(err, models.ErrInvalidEmail),
		errors.Is(err, models.ErrConsentRequired),
		errors.Is(err, models.ErrCommitmentTooShort),
		errors.Is(err, models.ErrAnswerRequired),
		errors.Is(err, models.ErrMissingBookingFields):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// createSessionRequest optionally resumes a previously cached session.
type createSessionRequest struct {
	ResumeResponseID string `json:"resume_response_id,omitempty"`
	ResumeLatest     bool   `json:"resume_latest,omitempty"`
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req createSessionRequest
	// The body is optional; an empty body starts a fresh session.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	id, engine := s.newSession()
	view := viewOf(id, engine)

	// Resume is best-effort: a stale or missing snapshot starts fresh.
	if req.ResumeResponseID != "" || req.ResumeLatest {
		var err error
		if req.ResumeResponseID != "" {
			err = engine.Resume(req.ResumeResponseID)
		} else {
			err = engine.ResumeLatest()
		}
		if err != nil {
			if !errors.Is(err, cache.ErrSnapshotNotFound) {
				slog.Warn("Server.createSessionHandler: resume failed", "error", err, "sessionID", id)
			}
		} else {
			view = viewOf(id, engine)
			view.Resumed = true
		}
	}

	slog.Info("Server.createSessionHandler: session started", "sessionID", id, "resumed", view.Resumed)
	writeJSONResponse(w, http.StatusCreated, models.Success(view))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(id, engine)))
}

type transitionRequest struct {
	Page models.Page `json:"page"`
}

func (s *Server) transitionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.transitionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := engine.TransitionTo(r.Context(), req.Page); err != nil {
		slog.Warn("Server.transitionHandler: transition rejected", "error", err, "page", req.Page, "sessionID", id)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(id, engine)))
}

type eligibilityRequest struct {
	Category string `json:"category"`
}

func (s *Server) eligibilityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	var req eligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.eligibilityHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Category == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: category"))
		return
	}
	if err := engine.SelectEligibility(r.Context(), req.Category); err != nil {
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(id, engine)))
}

type commitmentRequest struct {
	Statement string `json:"statement"`
}

func (s *Server) commitmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	var req commitmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.commitmentHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := engine.SubmitCommitment(r.Context(), req.Statement); err != nil {
		slog.Warn("Server.commitmentHandler: commitment rejected", "error", err, "sessionID", id)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(id, engine)))
}

func (s *Server) contactHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	var contact models.ContactInfo
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		slog.Warn("Server.contactHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := engine.SubmitContact(r.Context(), contact); err != nil {
		slog.Warn("Server.contactHandler: contact rejected", "error", err, "sessionID", id)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(id, engine)))
}

type consentRequest struct {
	Agreed bool `json:"agreed"`
}

func (s *Server) consentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.consentHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := engine.AcceptConsent(r.Context(), req.Agreed); err != nil {
		slog.Warn("Server.consentHandler: consent rejected", "error", err, "sessionID", id)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	slog.Info("Server.consentHandler: survey started", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(id, engine)))
}

// questionView is the current question with its resolved scenario context.
type questionView struct {
	Question models.Question `json:"question"`
	Context  string          `json:"context,omitempty"`
	Index    int             `json:"index"`
	Total    int             `json:"total"`
}

func (s *Server) questionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	q, scenarioCtx, err := engine.CurrentQuestion()
	if err != nil {
		if errors.Is(err, models.ErrSessionTerminated) {
			writeJSONResponse(w, http.StatusGone, models.Terminated(engine.State().TerminationReason))
			return
		}
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(questionView{
		Question: q,
		Context:  scenarioCtx,
		Index:    engine.State().CurrentQuestionIndex,
		Total:    engine.QuestionCount(),
	}))
}

// completionView is the archetype reveal returned on the final answer.
type completionView struct {
	Archetype       models.Archetype       `json:"archetype"`
	DimensionScores models.DimensionScores `json:"dimension_scores"`
	TrustScore      float64                `json:"trust_score"`
	OrgReadiness    float64                `json:"org_readiness"`
	Debrief         string                 `json:"debrief,omitempty"`
	OfferScheduler  bool                   `json:"offer_scheduler"`
}

func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	var answer models.Answer
	if err := json.NewDecoder(r.Body).Decode(&answer); err != nil {
		slog.Warn("Server.answerHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := engine.NextQuestion(r.Context(), answer)
	if err != nil {
		slog.Warn("Server.answerHandler: answer rejected", "error", err, "sessionID", id)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}

	if state := engine.State(); state.Terminated {
		slog.Info("Server.answerHandler: session screened out", "sessionID", id, "reason", state.TerminationReason)
		writeJSONResponse(w, http.StatusOK, models.Terminated(state.TerminationReason))
		return
	}
	if result != nil {
		slog.Info("Server.answerHandler: survey completed", "sessionID", id, "archetype", result.Archetype.Name)
		writeJSONResponse(w, http.StatusOK, models.Success(completionView{
			Archetype:       result.Archetype,
			DimensionScores: result.DimensionScores,
			TrustScore:      result.TrustScore,
			OrgReadiness:    result.OrgReadiness,
			Debrief:         result.Debrief,
			OfferScheduler:  result.OfferScheduler,
		}))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Recorded(viewOf(id, engine)))
}

func (s *Server) backHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, ok := s.session(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err := engine.PreviousQuestion(); err != nil {
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(viewOf(id, engine)))
}
