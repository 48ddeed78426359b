package funnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ctr-research/SurveyPipe/internal/cache"
	"github.com/ctr-research/SurveyPipe/internal/models"
	"github.com/ctr-research/SurveyPipe/internal/questionbank"
	"github.com/ctr-research/SurveyPipe/internal/store"
)

// fakeCache is an in-memory SnapshotCache for engine tests.
type fakeCache struct {
	saves   map[string]models.SessionState
	latest  string
	cleared []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{saves: make(map[string]models.SessionState)}
}

func (c *fakeCache) Save(state *models.SessionState) error {
	c.saves[state.ResponseID] = *state
	c.latest = state.ResponseID
	return nil
}

func (c *fakeCache) Load(responseID string) (*models.SessionState, error) {
	s, ok := c.saves[responseID]
	if !ok {
		return nil, cache.ErrSnapshotNotFound
	}
	cp := s
	return &cp, nil
}

func (c *fakeCache) LoadLatest() (*models.SessionState, error) {
	return c.Load(c.latest)
}

func (c *fakeCache) Clear(responseID string) error {
	delete(c.saves, responseID)
	c.cleared = append(c.cleared, responseID)
	if c.latest == responseID {
		c.latest = ""
	}
	return nil
}

// blockingStartStore wraps a Store and parks StartSurvey until released.
type blockingStartStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStartStore) StartSurvey(responseID string, startTime time.Time) error {
	close(s.entered)
	<-s.release
	return s.Store.StartSurvey(responseID, startTime)
}

// failingAnswerStore wraps a Store and fails every SaveAnswer call.
type failingAnswerStore struct {
	store.Store
}

func (s *failingAnswerStore) SaveAnswer(responseID, questionID string, answer models.Answer, responseTimeMs int64) error {
	return errors.New("backend unavailable")
}

type fakeDebrief struct {
	text string
	err  error
}

func (d *fakeDebrief) GenerateDebrief(ctx context.Context, archetype models.Archetype, data models.CompletionData) (string, error) {
	return d.text, d.err
}

func newTestClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

var testStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	base := []Option{
		WithClock(func() time.Time { return testStart }),
		WithIDGenerator(func(time.Time) string { return "CTR-20260310-TEST01" }),
	}
	return NewEngine(st, append(base, opts...)...), st
}

// validAnswerFor builds a passing answer for any question in the instrument.
func validAnswerFor(q models.Question) models.Answer {
	switch q.ID {
	case "Q2":
		return models.TextAnswer("yes")
	case "Q3":
		return models.TextAnswer("2-5")
	case "follow-up-interest":
		return models.TextAnswer("yes")
	}
	switch q.Type {
	case models.QuestionTypeScale:
		return models.NumberAnswer(5)
	case models.QuestionTypeNumber:
		return models.NumberAnswer(30)
	case models.QuestionTypeRadio, models.QuestionTypeSelect:
		return models.TextAnswer(q.Options[0].Value)
	case models.QuestionTypeCheckbox:
		return models.MultiAnswer(q.Options[0].Value)
	case models.QuestionTypeEmail:
		return models.TextAnswer("participant@example.com")
	default:
		return models.TextAnswer("a considered written response")
	}
}

func advanceToSurvey(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	if err := e.SelectEligibility(ctx, "photographer"); err != nil {
		t.Fatalf("SelectEligibility: %v", err)
	}
	if err := e.SubmitCommitment(ctx, "I commit to answering honestly and completely"); err != nil {
		t.Fatalf("SubmitCommitment: %v", err)
	}
	contact := models.ContactInfo{Name: "Ada Calder", Email: "ada@example.com", Role: "Art Director"}
	if err := e.SubmitContact(ctx, contact); err != nil {
		t.Fatalf("SubmitContact: %v", err)
	}
	if err := e.AcceptConsent(ctx, true); err != nil {
		t.Fatalf("AcceptConsent: %v", err)
	}
}

func TestFunnelHappyPath(t *testing.T) {
	fc := newFakeCache()
	e, st := newTestEngine(t, WithCache(fc))
	ctx := context.Background()

	if got := e.State().CurrentPage; got != models.PageLanding {
		t.Fatalf("initial page = %q, want landing", got)
	}

	advanceToSurvey(t, e)

	s := e.State()
	if s.CurrentPage != models.PageSurvey {
		t.Fatalf("page after consent = %q, want survey", s.CurrentPage)
	}
	if s.ResponseID != "CTR-20260310-TEST01" {
		t.Fatalf("responseID = %q", s.ResponseID)
	}
	if s.StartTime.IsZero() {
		t.Fatal("start time not set")
	}

	rec, err := st.GetRecord(s.ResponseID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.SurveyStatus != models.SurveyStatusInProgress {
		t.Fatalf("record status = %q, want in_progress", rec.SurveyStatus)
	}
	if rec.Email != "ada@example.com" || rec.Name != "Ada Calder" {
		t.Fatalf("contact not persisted: %+v", rec)
	}

	flow := questionbank.Survey()
	var result *CompletionResult
	for i, q := range flow {
		result, err = e.NextQuestion(ctx, validAnswerFor(q))
		if err != nil {
			t.Fatalf("NextQuestion %s: %v", q.ID, err)
		}
		if i < len(flow)-1 && result != nil {
			t.Fatalf("completion returned early at %s", q.ID)
		}
	}

	if result == nil {
		t.Fatal("no completion result after last question")
	}
	if result.Archetype.Name == "" {
		t.Fatal("empty archetype")
	}
	if !result.OfferScheduler {
		t.Fatal("follow-up interest yes should offer the scheduler")
	}

	s = e.State()
	if s.CurrentPage != models.PageCompletion {
		t.Fatalf("final page = %q, want completion", s.CurrentPage)
	}
	if s.QuestionsAnswered != len(flow) || s.QuestionsSkipped != 0 {
		t.Fatalf("counts = %d answered, %d skipped, want %d/0", s.QuestionsAnswered, s.QuestionsSkipped, len(flow))
	}

	rec, err = st.GetRecord(s.ResponseID)
	if err != nil {
		t.Fatalf("GetRecord after completion: %v", err)
	}
	if rec.SurveyStatus != models.SurveyStatusCompleted {
		t.Fatalf("record status = %q, want completed", rec.SurveyStatus)
	}
	if rec.ArchetypeName != result.Archetype.Name {
		t.Fatalf("archetype in record = %q, want %q", rec.ArchetypeName, result.Archetype.Name)
	}

	if len(fc.cleared) != 1 || fc.cleared[0] != s.ResponseID {
		t.Fatalf("cache not cleared on completion: %v", fc.cleared)
	}
}

func TestScreeningTerminations(t *testing.T) {
	tests := []struct {
		name       string
		answers    []models.Answer
		wantReason string
	}{
		{
			name: "no generative AI exposure",
			answers: []models.Answer{
				models.TextAnswer("photo"),
				models.TextAnswer("no"),
			},
			wantReason: TerminationInsufficientExposure,
		},
		{
			name: "under two years experience",
			answers: []models.Answer{
				models.TextAnswer("photo"),
				models.TextAnswer("yes"),
				models.TextAnswer("lt2"),
			},
			wantReason: TerminationInsufficientExperience,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := []models.Question{
				{ID: "Q1", Type: models.QuestionTypeRadio, Required: true,
					Options: []models.Option{{Value: "photo", Label: "Photography"}}},
				{ID: "Q2", Type: models.QuestionTypeRadio, Required: true,
					Options: []models.Option{{Value: "yes"}, {Value: "no"}}},
				{ID: "Q3", Type: models.QuestionTypeRadio, Required: true,
					Options: []models.Option{{Value: "lt2"}, {Value: "2-5"}}},
			}
			e, st := newTestEngine(t, WithQuestionFlow(flow))
			advanceToSurvey(t, e)
			ctx := context.Background()

			for _, a := range tt.answers {
				if _, err := e.NextQuestion(ctx, a); err != nil {
					t.Fatalf("NextQuestion: %v", err)
				}
			}

			s := e.State()
			if !s.Terminated {
				t.Fatal("session not terminated")
			}
			if s.TerminationReason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", s.TerminationReason, tt.wantReason)
			}
			if s.CurrentPage != models.PageTerminate {
				t.Fatalf("page = %q, want terminate", s.CurrentPage)
			}

			rec, err := st.GetRecord(s.ResponseID)
			if err != nil {
				t.Fatalf("GetRecord: %v", err)
			}
			if rec.SurveyStatus != models.SurveyStatusTerminated || rec.TerminationReason != tt.wantReason {
				t.Fatalf("record = %q / %q", rec.SurveyStatus, rec.TerminationReason)
			}

			if _, err := e.NextQuestion(ctx, models.TextAnswer("2-5")); !errors.Is(err, models.ErrSessionTerminated) {
				t.Fatalf("NextQuestion after termination = %v, want ErrSessionTerminated", err)
			}
		})
	}
}

func TestValidAnswerForCoversInstrument(t *testing.T) {
	for _, q := range questionbank.Survey() {
		a := validAnswerFor(q)
		if err := questionbank.ValidateAnswer(q, a); err != nil {
			t.Errorf("validAnswerFor(%s): %v", q.ID, err)
		}
	}
}

func TestNextQuestionRequiresAnswer(t *testing.T) {
	flow := []models.Question{
		{ID: "R1", Type: models.QuestionTypeText, Required: true},
		{ID: "R2", Type: models.QuestionTypeText, Required: false},
	}
	e, _ := newTestEngine(t, WithQuestionFlow(flow))
	advanceToSurvey(t, e)
	ctx := context.Background()

	if _, err := e.NextQuestion(ctx, models.Answer{}); !errors.Is(err, models.ErrAnswerRequired) {
		t.Fatalf("empty required answer = %v, want ErrAnswerRequired", err)
	}
	s := e.State()
	if s.CurrentQuestionIndex != 0 || s.QuestionsAnswered != 0 || s.QuestionsSkipped != 0 {
		t.Fatalf("rejected answer mutated state: %+v", s)
	}
}

func TestAnsweredSkippedBuckets(t *testing.T) {
	flow := []models.Question{
		{ID: "O1", Type: models.QuestionTypeText},
		{ID: "O2", Type: models.QuestionTypeText},
		{ID: "O3", Type: models.QuestionTypeText},
	}
	e, _ := newTestEngine(t, WithQuestionFlow(flow))
	advanceToSurvey(t, e)
	ctx := context.Background()

	if _, err := e.NextQuestion(ctx, models.TextAnswer("answered")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.NextQuestion(ctx, models.Answer{}); err != nil {
		t.Fatal(err)
	}
	if result, err := e.NextQuestion(ctx, models.TextAnswer("also answered")); err != nil || result == nil {
		t.Fatalf("final step: result=%v err=%v", result, err)
	}

	s := e.State()
	if s.QuestionsAnswered != 2 || s.QuestionsSkipped != 1 {
		t.Fatalf("counts = %d/%d, want 2 answered 1 skipped", s.QuestionsAnswered, s.QuestionsSkipped)
	}
}

func TestPreviousQuestion(t *testing.T) {
	flow := []models.Question{
		{ID: "P1", Type: models.QuestionTypeText},
		{ID: "P2", Type: models.QuestionTypeText},
	}
	e, _ := newTestEngine(t, WithQuestionFlow(flow))
	advanceToSurvey(t, e)
	ctx := context.Background()

	// At the first question stepping back is a no-op.
	if err := e.PreviousQuestion(); err != nil {
		t.Fatal(err)
	}
	if got := e.State().CurrentQuestionIndex; got != 0 {
		t.Fatalf("index = %d after no-op back, want 0", got)
	}

	if _, err := e.NextQuestion(ctx, models.TextAnswer("first")); err != nil {
		t.Fatal(err)
	}
	if err := e.PreviousQuestion(); err != nil {
		t.Fatal(err)
	}
	s := e.State()
	if s.CurrentQuestionIndex != 0 {
		t.Fatalf("index = %d after back, want 0", s.CurrentQuestionIndex)
	}
	if s.QuestionsAnswered != 1 {
		t.Fatalf("revisiting changed answered count: %d", s.QuestionsAnswered)
	}
}

func TestTermsGateRequiresContact(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.TransitionTo(ctx, models.PageTerms); !errors.Is(err, models.ErrMissingContactFields) {
		t.Fatalf("terms without contact = %v, want ErrMissingContactFields", err)
	}

	e.state.ParticipantName = "Ada Calder"
	e.state.ParticipantEmail = "not-an-email"
	e.state.ParticipantRole = "Art Director"
	if err := e.TransitionTo(ctx, models.PageTerms); !errors.Is(err, models.ErrInvalidEmail) {
		t.Fatalf("terms with bad email = %v, want ErrInvalidEmail", err)
	}

	e.state.ParticipantEmail = "ada@example.com"
	if err := e.TransitionTo(ctx, models.PageTerms); err != nil {
		t.Fatalf("terms with full contact: %v", err)
	}
}

func TestTransitionGuards(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.TransitionTo(ctx, models.Page("results")); !errors.Is(err, models.ErrInvalidPage) {
		t.Fatalf("unknown page = %v, want ErrInvalidPage", err)
	}

	e.transitioning = true
	if err := e.TransitionTo(ctx, models.PageEligibility); !errors.Is(err, models.ErrTransitionInFlight) {
		t.Fatalf("in-flight transition = %v, want ErrTransitionInFlight", err)
	}
	e.transitioning = false
	if err := e.TransitionTo(ctx, models.PageEligibility); err != nil {
		t.Fatalf("transition after release: %v", err)
	}
}

func TestConcurrentTransitionDroppedDuringConsent(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	if err := e.SelectEligibility(ctx, "photographer"); err != nil {
		t.Fatalf("SelectEligibility: %v", err)
	}
	if err := e.SubmitCommitment(ctx, "I commit to answering honestly and completely"); err != nil {
		t.Fatalf("SubmitCommitment: %v", err)
	}
	contact := models.ContactInfo{Name: "Ada Calder", Email: "ada@example.com", Role: "Art Director"}
	if err := e.SubmitContact(ctx, contact); err != nil {
		t.Fatalf("SubmitContact: %v", err)
	}

	bs := &blockingStartStore{Store: st, entered: make(chan struct{}), release: make(chan struct{})}
	e.store = bs

	done := make(chan error, 1)
	go func() { done <- e.AcceptConsent(ctx, true) }()
	<-bs.entered

	if err := e.TransitionTo(ctx, models.PageContact); !errors.Is(err, models.ErrTransitionInFlight) {
		t.Errorf("transition during consent = %v, want ErrTransitionInFlight", err)
	}
	if err := e.AcceptConsent(ctx, true); !errors.Is(err, models.ErrTransitionInFlight) {
		t.Errorf("second consent during consent = %v, want ErrTransitionInFlight", err)
	}

	close(bs.release)
	if err := <-done; err != nil {
		t.Fatalf("AcceptConsent: %v", err)
	}
	if got := e.State().CurrentPage; got != models.PageSurvey {
		t.Errorf("page after consent = %q, want %q", got, models.PageSurvey)
	}
}

func TestCommitmentValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.SubmitCommitment(ctx, "too short"); !errors.Is(err, models.ErrCommitmentTooShort) {
		t.Fatalf("short commitment = %v, want ErrCommitmentTooShort", err)
	}
	if err := e.SubmitCommitment(ctx, "   brief answer   "); !errors.Is(err, models.ErrCommitmentTooShort) {
		t.Fatalf("padding should not satisfy the minimum, got %v", err)
	}
	if err := e.SubmitCommitment(ctx, "I will answer each question honestly"); err != nil {
		t.Fatalf("valid commitment rejected: %v", err)
	}
}

func TestConsentRequired(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.AcceptConsent(context.Background(), false); !errors.Is(err, models.ErrConsentRequired) {
		t.Fatalf("unchecked consent = %v, want ErrConsentRequired", err)
	}
}

func TestResumedSessionKeepsCachedResponseID(t *testing.T) {
	fc := newFakeCache()
	prior := models.NewSessionState()
	prior.ResponseID = "CTR-20260301-PRIOR1"
	prior.CurrentPage = models.PageCommitment
	prior.EligibilityCategory = "designer"
	if err := fc.Save(prior); err != nil {
		t.Fatal(err)
	}

	e, _ := newTestEngine(t, WithCache(fc))
	if err := e.ResumeLatest(); err != nil {
		t.Fatal(err)
	}
	if err := e.SelectEligibility(context.Background(), "designer"); err != nil {
		t.Fatal(err)
	}
	if got := e.State().ResponseID; got != "CTR-20260301-PRIOR1" {
		t.Fatalf("responseID = %q, want cached id", got)
	}
}

func TestResumeFromCache(t *testing.T) {
	fc := newFakeCache()
	saved := models.NewSessionState()
	saved.ResponseID = "CTR-20260309-RESUME"
	saved.CurrentPage = models.PageSurvey
	saved.CurrentQuestionIndex = 5
	saved.StartTime = testStart.Add(-10 * time.Minute)
	saved.Answers["Q2"] = models.TextAnswer("yes")
	saved.QuestionsAnswered = 5
	if err := fc.Save(saved); err != nil {
		t.Fatal(err)
	}

	e, _ := newTestEngine(t, WithCache(fc))
	if err := e.Resume("CTR-20260309-RESUME"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	s := e.State()
	if s.CurrentQuestionIndex != 5 || s.CurrentPage != models.PageSurvey {
		t.Fatalf("resumed state = index %d page %q", s.CurrentQuestionIndex, s.CurrentPage)
	}
	if s.Answers["Q2"].Text != "yes" {
		t.Fatal("answers not restored")
	}

	if err := e.Resume("CTR-00000000-NONE00"); !errors.Is(err, cache.ErrSnapshotNotFound) {
		t.Fatalf("resume miss = %v, want ErrSnapshotNotFound", err)
	}
	if got := e.State().CurrentQuestionIndex; got != 5 {
		t.Fatalf("failed resume mutated state: index %d", got)
	}

	e2, _ := newTestEngine(t, WithCache(fc))
	if err := e2.ResumeLatest(); err != nil {
		t.Fatalf("ResumeLatest: %v", err)
	}
	if got := e2.State().ResponseID; got != "CTR-20260309-RESUME" {
		t.Fatalf("ResumeLatest id = %q", got)
	}
}

func TestAnswerStoreFailureDoesNotBlock(t *testing.T) {
	flow := []models.Question{
		{ID: "F1", Type: models.QuestionTypeText},
		{ID: "F2", Type: models.QuestionTypeText},
	}
	var events []Event
	e, _ := newTestEngine(t, WithQuestionFlow(flow), WithEventSink(func(ev Event) {
		events = append(events, ev)
	}))
	advanceToSurvey(t, e)
	e.store = &failingAnswerStore{Store: e.store}

	if _, err := e.NextQuestion(context.Background(), models.TextAnswer("kept locally")); err != nil {
		t.Fatalf("NextQuestion with failing store: %v", err)
	}
	s := e.State()
	if s.CurrentQuestionIndex != 1 {
		t.Fatalf("index = %d, want 1", s.CurrentQuestionIndex)
	}
	if s.Answers["F1"].Text != "kept locally" {
		t.Fatal("answer lost from session state")
	}

	var sawErr bool
	for _, ev := range events {
		if ev.Kind == EventSideChannelError {
			sawErr = true
		}
	}
	if !sawErr {
		t.Fatal("store failure not surfaced as side channel event")
	}
}

func TestResponseSpeedsRecorded(t *testing.T) {
	flow := []models.Question{
		{ID: "S1", Type: models.QuestionTypeText},
		{ID: "S2", Type: models.QuestionTypeText},
	}
	now, advance := newTestClock(testStart)
	e, _ := newTestEngine(t, WithQuestionFlow(flow), WithClock(now))
	advanceToSurvey(t, e)
	ctx := context.Background()

	advance(7 * time.Second)
	if _, err := e.NextQuestion(ctx, models.TextAnswer("one")); err != nil {
		t.Fatal(err)
	}
	advance(3 * time.Second)
	if _, err := e.NextQuestion(ctx, models.TextAnswer("two")); err != nil {
		t.Fatal(err)
	}

	speeds := e.State().ResponseSpeeds
	if len(speeds) != 2 {
		t.Fatalf("speeds = %v, want 2 entries", speeds)
	}
	if speeds[0] != 7000 || speeds[1] != 3000 {
		t.Fatalf("speeds = %v, want [7000 3000]", speeds)
	}
}

func TestDebriefFallsBackToStaticDescription(t *testing.T) {
	flow := []models.Question{{ID: "D1", Type: models.QuestionTypeText}}

	e, _ := newTestEngine(t, WithQuestionFlow(flow),
		WithDebrief(&fakeDebrief{err: errors.New("model offline")}))
	advanceToSurvey(t, e)
	result, err := e.NextQuestion(context.Background(), models.TextAnswer("done"))
	if err != nil || result == nil {
		t.Fatalf("completion: result=%v err=%v", result, err)
	}
	if result.Debrief != result.Archetype.Desc {
		t.Fatalf("debrief = %q, want static archetype description", result.Debrief)
	}

	e2, _ := newTestEngine(t, WithQuestionFlow(flow),
		WithDebrief(&fakeDebrief{text: "A personalised reflection."}))
	advanceToSurvey(t, e2)
	result, err = e2.NextQuestion(context.Background(), models.TextAnswer("done"))
	if err != nil || result == nil {
		t.Fatalf("completion: result=%v err=%v", result, err)
	}
	if result.Debrief != "A personalised reflection." {
		t.Fatalf("debrief = %q", result.Debrief)
	}
}

func TestFollowUpInterestGatesScheduler(t *testing.T) {
	tests := []struct {
		interest string
		want     bool
	}{
		{"yes", true},
		{"maybe", true},
		{"no", false},
	}
	for _, tt := range tests {
		t.Run(tt.interest, func(t *testing.T) {
			flow := []models.Question{
				{ID: "follow-up-interest", Type: models.QuestionTypeRadio, Required: true,
					Options: []models.Option{{Value: "yes"}, {Value: "maybe"}, {Value: "no"}}},
			}
			e, _ := newTestEngine(t, WithQuestionFlow(flow))
			advanceToSurvey(t, e)
			result, err := e.NextQuestion(context.Background(), models.TextAnswer(tt.interest))
			if err != nil || result == nil {
				t.Fatalf("completion: result=%v err=%v", result, err)
			}
			if result.OfferScheduler != tt.want {
				t.Fatalf("OfferScheduler = %v, want %v", result.OfferScheduler, tt.want)
			}
		})
	}
}

func TestSurveyNotStartedGuards(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.NextQuestion(context.Background(), models.TextAnswer("x")); !errors.Is(err, models.ErrSurveyNotStarted) {
		t.Fatalf("NextQuestion before consent = %v, want ErrSurveyNotStarted", err)
	}
	if err := e.PreviousQuestion(); !errors.Is(err, models.ErrSurveyNotStarted) {
		t.Fatalf("PreviousQuestion before consent = %v, want ErrSurveyNotStarted", err)
	}
	if _, _, err := e.CurrentQuestion(); !errors.Is(err, models.ErrSurveyNotStarted) {
		t.Fatalf("CurrentQuestion before consent = %v, want ErrSurveyNotStarted", err)
	}
}
