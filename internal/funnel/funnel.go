// Package funnel implements the participant intake funnel: the page state
// machine from landing through eligibility, commitment, contact, terms, and
// consent into the survey, ending at completion or termination.
//
// The Engine owns one session. All dependencies are injected at construction
// and every side channel (record store writes mid-survey, snapshot cache,
// events) is best-effort: the participant's forward progress never blocks on
// them. Only the gates consult their inputs synchronously.
package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ctr-research/SurveyPipe/internal/models"
	"github.com/ctr-research/SurveyPipe/internal/questionbank"
	"github.com/ctr-research/SurveyPipe/internal/scoring"
	"github.com/ctr-research/SurveyPipe/internal/store"
	"github.com/ctr-research/SurveyPipe/internal/util"
)

// Screening termination messages shown on the terminate page.
const (
	TerminationInsufficientExposure   = "Insufficient Generative AI exposure (min 3 months required)."
	TerminationInsufficientExperience = "Study requires minimum 2 years of professional creative experience."
)

// EventKind labels an engine event.
type EventKind string

const (
	EventPageChanged      EventKind = "page_changed"
	EventAnswerRecorded   EventKind = "answer_recorded"
	EventSurveyStarted    EventKind = "survey_started"
	EventSurveyTerminated EventKind = "survey_terminated"
	EventSurveyCompleted  EventKind = "survey_completed"
	EventSideChannelError EventKind = "side_channel_error"
)

// Event is an observable engine occurrence. Events are a best-effort side
// channel: a slow or absent sink never affects the funnel.
type Event struct {
	Kind       EventKind
	ResponseID string
	Page       models.Page
	QuestionID string
	Err        error
}

// SnapshotCache is the resume-snapshot dependency. Implemented by
// cache.SessionCache.
type SnapshotCache interface {
	Save(state *models.SessionState) error
	Load(responseID string) (*models.SessionState, error)
	LoadLatest() (*models.SessionState, error)
	Clear(responseID string) error
}

// DebriefGenerator produces the optional completion paragraph. Implemented
// by genai.Client.
type DebriefGenerator interface {
	GenerateDebrief(ctx context.Context, archetype models.Archetype, data models.CompletionData) (string, error)
}

// Engine drives one participant session through the funnel.
type Engine struct {
	store   store.Store
	cache   SnapshotCache
	debrief DebriefGenerator
	flow    []models.Question
	now     func() time.Time
	newID   func(time.Time) string
	sink    func(Event)

	mu            sync.Mutex
	state         *models.SessionState
	transitioning bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache attaches a resume-snapshot cache.
func WithCache(c SnapshotCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithDebrief attaches the optional completion-paragraph generator.
func WithDebrief(d DebriefGenerator) Option {
	return func(e *Engine) { e.debrief = d }
}

// WithClock overrides the engine clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides response id minting, for tests.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithEventSink registers an event observer. The sink is called inline;
// it must not block.
func WithEventSink(sink func(Event)) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithQuestionFlow overrides the instrument, for tests.
func WithQuestionFlow(flow []models.Question) Option {
	return func(e *Engine) { e.flow = flow }
}

// NewEngine creates an engine for a fresh session on the landing page.
func NewEngine(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: st,
		flow:  questionbank.Survey(),
		now:   time.Now,
		newID: util.GenerateResponseID,
		state: models.NewSessionState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// QuestionCount returns the number of questions in the instrument.
func (e *Engine) QuestionCount() int {
	return len(e.flow)
}

// State returns a copy of the session state.
func (e *Engine) State() models.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() models.SessionState {
	s := *e.state
	s.Answers = make(map[string]models.Answer, len(e.state.Answers))
	for k, v := range e.state.Answers {
		s.Answers[k] = v
	}
	s.ResponseSpeeds = append([]int64(nil), e.state.ResponseSpeeds...)
	return s
}

// emit delivers an event to the sink, if any.
func (e *Engine) emit(ev Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

// sideChannelErr logs a best-effort failure and surfaces it as an event.
func (e *Engine) sideChannelErr(op string, err error) {
	if err == nil {
		return
	}
	slog.Error("Funnel side channel failed", "op", op, "error", err, "responseID", e.state.ResponseID)
	e.emit(Event{Kind: EventSideChannelError, ResponseID: e.state.ResponseID, Err: fmt.Errorf("%s: %w", op, err)})
}

// saveSnapshot persists the session to the cache, best-effort.
func (e *Engine) saveSnapshotLocked() {
	if e.cache == nil || e.state.ResponseID == "" {
		return
	}
	snap := e.snapshotLocked()
	e.sideChannelErr("cache save", e.cache.Save(&snap))
}

// ensureResponseIDLocked mints a response id on first use. Sessions restored
// through Resume keep their cached id instead.
func (e *Engine) ensureResponseIDLocked() {
	if e.state.ResponseID != "" {
		return
	}
	e.state.ResponseID = e.newID(e.now())
	slog.Debug("Funnel generated response id", "responseID", e.state.ResponseID)
}

// Resume hydrates the session from a cached snapshot. Resuming an unknown or
// stale snapshot leaves the session unchanged and returns the cache error.
func (e *Engine) Resume(responseID string) error {
	if e.cache == nil {
		return fmt.Errorf("no snapshot cache configured")
	}
	saved, err := e.cache.Load(responseID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adoptLocked(saved)
	slog.Debug("Funnel resumed session", "responseID", e.state.ResponseID, "page", e.state.CurrentPage)
	return nil
}

// ResumeLatest hydrates the most recently cached session.
func (e *Engine) ResumeLatest() error {
	if e.cache == nil {
		return fmt.Errorf("no snapshot cache configured")
	}
	saved, err := e.cache.LoadLatest()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adoptLocked(saved)
	slog.Debug("Funnel resumed latest session", "responseID", e.state.ResponseID, "page", e.state.CurrentPage)
	return nil
}

func (e *Engine) adoptLocked(saved *models.SessionState) {
	if saved.Answers == nil {
		saved.Answers = make(map[string]models.Answer)
	}
	e.state = saved
}

// TransitionTo moves the session to the given page. Re-entrant calls made
// while a transition is in flight fail with ErrTransitionInFlight. The terms
// page is gated on complete contact details.
func (e *Engine) TransitionTo(ctx context.Context, page models.Page) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transitionLocked(ctx, page)
}

func (e *Engine) transitionLocked(ctx context.Context, page models.Page) error {
	if e.transitioning {
		slog.Warn("Funnel transition in progress, ignoring request", "page", page)
		return models.ErrTransitionInFlight
	}
	if !models.IsValidPage(page) {
		return fmt.Errorf("%w: %q", models.ErrInvalidPage, page)
	}
	e.transitioning = true
	defer func() { e.transitioning = false }()

	if page == models.PageTerms {
		contact := models.ContactInfo{
			Email: e.state.ParticipantEmail,
			Name:  e.state.ParticipantName,
			Role:  e.state.ParticipantRole,
		}
		if err := contact.Validate(); err != nil {
			return err
		}
		// Contact reaches the record store even when the scheduler was
		// skipped. Fire-and-forget, like every mid-funnel store write.
		if !e.state.BookingConfirmed {
			contact.EligibilityCategory = e.state.EligibilityCategory
			contact.ContextStatement = e.state.ContextStatement
			responseID := e.state.ResponseID
			go func() {
				if err := e.store.EnsureRecord(responseID); err != nil {
					slog.Error("Funnel background contact save failed", "error", err, "responseID", responseID)
					return
				}
				if err := e.store.UpdateContact(responseID, contact); err != nil {
					slog.Error("Funnel background contact save failed", "error", err, "responseID", responseID)
				}
			}()
		}
	}

	e.state.CurrentPage = page
	e.emit(Event{Kind: EventPageChanged, ResponseID: e.state.ResponseID, Page: page})
	e.saveSnapshotLocked()
	return nil
}

// SelectEligibility records the participant's eligibility category and
// advances to the commitment page. The response id is minted here if the
// session does not have one yet.
func (e *Engine) SelectEligibility(ctx context.Context, category string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureResponseIDLocked()
	e.state.EligibilityCategory = category
	slog.Debug("Funnel eligibility selected", "responseID", e.state.ResponseID, "category", category)
	return e.transitionLocked(ctx, models.PageCommitment)
}

// SubmitCommitment records the micro-commitment statement and advances to
// the contact page. Statements under the minimum length are rejected.
func (e *Engine) SubmitCommitment(ctx context.Context, statement string) error {
	statement = strings.TrimSpace(statement)
	if len(statement) < models.MinCommitmentLength {
		return models.ErrCommitmentTooShort
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureResponseIDLocked()
	e.state.ContextStatement = statement

	// Best-effort: the record may not exist yet and that is fine.
	responseID := e.state.ResponseID
	go func() {
		if err := e.store.UpdateCommitment(responseID, statement); err != nil {
			slog.Warn("Funnel commitment store update failed", "error", err, "responseID", responseID)
		}
	}()

	return e.transitionLocked(ctx, models.PageContact)
}

// SubmitContact validates and records contact details, writes them through
// to the record store, and advances to the terms page.
func (e *Engine) SubmitContact(ctx context.Context, contact models.ContactInfo) error {
	if err := contact.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensureResponseIDLocked()
	e.state.ParticipantEmail = contact.Email
	e.state.ParticipantName = contact.Name
	e.state.ParticipantRole = contact.Role

	contact.EligibilityCategory = e.state.EligibilityCategory
	contact.ContextStatement = e.state.ContextStatement
	if err := e.store.EnsureRecord(e.state.ResponseID); err != nil {
		e.sideChannelErr("ensure record", err)
	} else if err := e.store.UpdateContact(e.state.ResponseID, contact); err != nil {
		e.sideChannelErr("update contact", err)
	}

	return e.transitionLocked(ctx, models.PageTerms)
}

// AcceptConsent starts the survey once the participant has agreed. The start
// is the one mid-funnel store write that gates progress: a session without a
// started record would lose every answer that follows.
func (e *Engine) AcceptConsent(ctx context.Context, agreed bool) error {
	if !agreed {
		return models.ErrConsentRequired
	}

	e.mu.Lock()
	if e.transitioning {
		e.mu.Unlock()
		slog.Warn("Funnel transition in progress, ignoring consent")
		return models.ErrTransitionInFlight
	}
	e.transitioning = true
	e.ensureResponseIDLocked()
	now := e.now()
	responseID := e.state.ResponseID
	e.mu.Unlock()

	// The start write is awaited without the lock so that concurrent
	// transition attempts are dropped instead of queued behind it.
	err := e.store.EnsureRecord(responseID)
	if err == nil {
		err = e.store.StartSurvey(responseID, now)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitioning = false
	if err != nil {
		return fmt.Errorf("start survey: %w", err)
	}
	e.state.StartTime = now
	e.state.LastInteractionTime = now
	e.state.CurrentQuestionIndex = 0
	e.emit(Event{Kind: EventSurveyStarted, ResponseID: e.state.ResponseID})
	return e.transitionLocked(ctx, models.PageSurvey)
}

// CurrentQuestion returns the active question and its resolved scenario
// context, with the decision-sequence substitution applied.
func (e *Engine) CurrentQuestion() (models.Question, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Terminated {
		return models.Question{}, "", models.ErrSessionTerminated
	}
	if e.state.StartTime.IsZero() {
		return models.Question{}, "", models.ErrSurveyNotStarted
	}
	if e.state.CurrentQuestionIndex >= len(e.flow) {
		return models.Question{}, "", fmt.Errorf("no question at index %d", e.state.CurrentQuestionIndex)
	}
	q := e.flow[e.state.CurrentQuestionIndex]
	return q, questionbank.ScenarioContext(q, e.state.Answers), nil
}

// CompletionResult is returned when the final question is answered.
type CompletionResult struct {
	Archetype       models.Archetype
	DimensionScores models.DimensionScores
	TrustScore      float64
	OrgReadiness    float64
	Debrief         string
	// OfferScheduler is set when the participant expressed follow-up
	// interest and should be redirected to the interview scheduler.
	OfferScheduler bool
}

// NextQuestion records the answer for the current question and advances.
// Required questions reject empty answers. Every forward step lands the
// question in exactly one of the answered or skipped buckets. Screening
// failures terminate the session. Completing the last question finishes the
// survey and returns a non-nil CompletionResult.
func (e *Engine) NextQuestion(ctx context.Context, answer models.Answer) (*CompletionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Terminated {
		return nil, models.ErrSessionTerminated
	}
	if e.state.StartTime.IsZero() {
		return nil, models.ErrSurveyNotStarted
	}
	if e.state.CurrentQuestionIndex >= len(e.flow) {
		return nil, fmt.Errorf("no question at index %d", e.state.CurrentQuestionIndex)
	}

	current := e.flow[e.state.CurrentQuestionIndex]
	if err := questionbank.ValidateAnswer(current, answer); err != nil {
		return nil, err
	}

	if answer.IsEmpty() {
		e.state.QuestionsSkipped++
	} else {
		e.state.QuestionsAnswered++
	}
	e.state.Answers[current.ID] = answer

	now := e.now()
	duration := now.Sub(e.state.LastInteractionTime).Milliseconds()
	e.state.ResponseSpeeds = append(e.state.ResponseSpeeds, duration)
	e.state.LastInteractionTime = now

	// Best-effort: the snapshot cache still holds the answer if this fails.
	e.sideChannelErr("save answer", e.store.SaveAnswer(e.state.ResponseID, current.ID, answer, duration))
	e.emit(Event{Kind: EventAnswerRecorded, ResponseID: e.state.ResponseID, QuestionID: current.ID})

	if current.ID == "Q2" && answer.Text == "no" {
		return nil, e.terminateLocked(ctx, TerminationInsufficientExposure)
	}
	if current.ID == "Q3" && answer.Text == "lt2" {
		return nil, e.terminateLocked(ctx, TerminationInsufficientExperience)
	}

	e.state.CurrentQuestionIndex++
	if e.state.CurrentQuestionIndex < len(e.flow) {
		e.saveSnapshotLocked()
		return nil, nil
	}
	return e.completeLocked(ctx)
}

// PreviousQuestion steps back one question. At the first question it is a
// no-op. Revisiting never touches the answered/skipped counts.
func (e *Engine) PreviousQuestion() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Terminated {
		return models.ErrSessionTerminated
	}
	if e.state.StartTime.IsZero() {
		return models.ErrSurveyNotStarted
	}
	if e.state.CurrentQuestionIndex > 0 {
		e.state.CurrentQuestionIndex--
		e.saveSnapshotLocked()
	}
	return nil
}

func (e *Engine) terminateLocked(ctx context.Context, reason string) error {
	e.state.Terminated = true
	e.state.TerminationReason = reason
	e.state.CurrentPage = models.PageTerminate

	e.sideChannelErr("terminate survey", e.store.TerminateSurvey(e.state.ResponseID, reason))
	e.emit(Event{Kind: EventSurveyTerminated, ResponseID: e.state.ResponseID, Page: models.PageTerminate})
	slog.Debug("Funnel session terminated", "responseID", e.state.ResponseID, "reason", reason)
	e.saveSnapshotLocked()
	return nil
}

func (e *Engine) completeLocked(ctx context.Context) (*CompletionResult, error) {
	minutes := int(e.now().Sub(e.state.StartTime).Round(time.Minute).Minutes())
	result := scoring.Score(e.state.Answers)

	data := models.CompletionData{
		CompletionTime:    minutes,
		QuestionsAnswered: e.state.QuestionsAnswered,
		QuestionsSkipped:  e.state.QuestionsSkipped,
		Archetype:         result.Archetype,
		DimensionScores:   result.Dimensions,
		TrustScore:        result.TrustScore,
		CuratorScore:      result.CuratorScore,
		ExecutorScore:     result.ExecutorScore,
		CuratorialShift:   result.CuratorialShift,
		OrgReadiness:      result.OrgReadiness,
	}
	e.sideChannelErr("complete survey", e.store.CompleteSurvey(e.state.ResponseID, data))

	e.state.CurrentPage = models.PageCompletion
	e.emit(Event{Kind: EventSurveyCompleted, ResponseID: e.state.ResponseID, Page: models.PageCompletion})
	slog.Debug("Funnel survey completed", "responseID", e.state.ResponseID, "archetype", result.Archetype.Name)

	if e.cache != nil {
		e.sideChannelErr("cache clear", e.cache.Clear(e.state.ResponseID))
	}

	out := &CompletionResult{
		Archetype:       result.Archetype,
		DimensionScores: result.Dimensions,
		TrustScore:      result.TrustScore,
		OrgReadiness:    result.OrgReadiness,
		OfferScheduler:  offersScheduler(e.state.Answers),
	}
	if e.debrief != nil {
		if text, err := e.debrief.GenerateDebrief(ctx, result.Archetype, data); err != nil {
			slog.Warn("Funnel debrief generation failed, using static description", "error", err, "responseID", e.state.ResponseID)
			out.Debrief = result.Archetype.Desc
		} else {
			out.Debrief = text
		}
	} else {
		out.Debrief = result.Archetype.Desc
	}
	return out, nil
}

// offersScheduler reports follow-up interview interest.
func offersScheduler(answers map[string]models.Answer) bool {
	interest := answers["follow-up-interest"].Text
	return interest == "yes" || interest == "maybe"
}
