// Package models defines the core data structures for SurveyPipe.
//
// It includes the funnel page enum, question definitions, session state,
// booking types, and the shared API response envelope used across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Page identifies a stage of the participant funnel.
type Page string

const (
	// PageLanding is the entry page shown before any interaction.
	PageLanding Page = "landing"
	// PageEligibility is the single-select experience screen.
	PageEligibility Page = "eligibility"
	// PageCommitment is the micro-commitment free-text screen.
	PageCommitment Page = "commitment"
	// PageContact collects name, email, and role.
	PageContact Page = "contact"
	// PageScheduler is the interview calendar booking screen.
	PageScheduler Page = "scheduler"
	// PageTerms is the consent agreement screen.
	PageTerms Page = "terms"
	// PageSurvey is the linear questionnaire.
	PageSurvey Page = "survey"
	// PageTerminate is the screening-termination terminal page.
	PageTerminate Page = "terminate"
	// PageCompletion is the archetype reveal shown after the survey.
	PageCompletion Page = "completion"
)

// IsValidPage checks if the given page is a known funnel stage.
func IsValidPage(p Page) bool {
	switch p {
	case PageLanding, PageEligibility, PageCommitment, PageContact,
		PageScheduler, PageTerms, PageSurvey, PageTerminate, PageCompletion:
		return true
	default:
		return false
	}
}

// QuestionType defines how a question is rendered and validated.
type QuestionType string

const (
	QuestionTypeRadio    QuestionType = "radio"
	QuestionTypeCheckbox QuestionType = "checkbox"
	QuestionTypeText     QuestionType = "text"
	QuestionTypeNumber   QuestionType = "number"
	QuestionTypeEmail    QuestionType = "email"
	QuestionTypeTextarea QuestionType = "textarea"
	QuestionTypeSelect   QuestionType = "select"
	QuestionTypeScale    QuestionType = "scale"
)

// IsValidQuestionType checks if the given question type is supported.
func IsValidQuestionType(qt QuestionType) bool {
	switch qt {
	case QuestionTypeRadio, QuestionTypeCheckbox, QuestionTypeText, QuestionTypeNumber,
		QuestionTypeEmail, QuestionTypeTextarea, QuestionTypeSelect, QuestionTypeScale:
		return true
	default:
		return false
	}
}

// Validation constants shared by the funnel and question bank.
const (
	// MinCommitmentLength is the minimum length of the micro-commitment statement.
	MinCommitmentLength = 15
	// MaxTextAnswerLength bounds free-text answers.
	MaxTextAnswerLength = 500
	// ScaleNeutralMidpoint is the default value for unanswered 1-7 scale items.
	ScaleNeutralMidpoint = 4
	// SessionMaxAge is the staleness bound for locally cached sessions.
	SessionMaxAge = 30 * 24 * time.Hour
	// SlotsPerDay is the fixed interview capacity per calendar day.
	SlotsPerDay = 4
	// BookingDurationMinutes is the interview slot length.
	BookingDurationMinutes = 60
)

// Error variables for better error handling and testability.
var (
	ErrTransitionInFlight   = errors.New("page transition already in flight")
	ErrInvalidPage          = errors.New("invalid funnel page")
	ErrMissingContactFields = errors.New("name, email, and role are required")
	ErrInvalidEmail         = errors.New("email address is not valid")
	ErrConsentRequired      = errors.New("all required consent boxes must be checked")
	ErrCommitmentTooShort   = errors.New("commitment statement is too short")
	ErrAnswerRequired       = errors.New("an answer is required for this question")
	ErrSurveyNotStarted     = errors.New("survey has not been started")
	ErrSessionTerminated    = errors.New("session has been terminated by screening")
	ErrMissingBookingFields = errors.New("date, time, name, and email are required to confirm a booking")
	ErrSlotUnavailable      = errors.New("the selected time slot is no longer available")
	ErrRecordNotFound       = errors.New("response record not found")
)

// Option represents one selectable choice of a radio/checkbox/select question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	// Expand marks an "Other" option that reveals a free-text expansion field.
	Expand bool `json:"expand,omitempty"`
}

// Scenario is a narrative context block shown above a question.
type Scenario struct {
	Image   string `json:"image,omitempty"`
	Context string `json:"context"`
}

// Question is one immutable entry of the question bank.
type Question struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Section        string       `json:"section"`
	Text           string       `json:"text"`
	Subtext        string       `json:"subtext,omitempty"`
	Required       bool         `json:"required"`
	Options        []Option     `json:"options,omitempty"`
	Min            int          `json:"min,omitempty"`
	Max            int          `json:"max,omitempty"`
	MinLabel       string       `json:"min_label,omitempty"`
	MaxLabel       string       `json:"max_label,omitempty"`
	Default        int          `json:"default,omitempty"`
	Reverse        bool         `json:"reverse,omitempty"`
	MaxChars       int          `json:"max_chars,omitempty"`
	Scenario       *Scenario    `json:"scenario,omitempty"`
	Infographic    string       `json:"infographic,omitempty"`
	ExpansionLabel string       `json:"expansion_label,omitempty"`
}

// Answer is a recorded answer value: string, []string, or float64.
// The zero value (nil) means the question was passed without answering.
type Answer struct {
	Text   string   `json:"text,omitempty"`
	Multi  []string `json:"multi,omitempty"`
	Number *float64 `json:"number,omitempty"`
}

// IsEmpty reports whether the answer carries no value. An empty string or
// empty slice counts as empty, matching required-field validation.
func (a *Answer) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.Text == "" && len(a.Multi) == 0 && a.Number == nil
}

// TextAnswer builds a string-valued answer.
func TextAnswer(v string) Answer { return Answer{Text: v} }

// MultiAnswer builds a multi-select answer.
func MultiAnswer(vs ...string) Answer { return Answer{Multi: vs} }

// NumberAnswer builds a numeric answer.
func NumberAnswer(v float64) Answer { return Answer{Number: &v} }

// SessionState is the single mutable aggregate owned by the funnel engine.
// It lives for one participant session and is snapshotted to the local cache.
type SessionState struct {
	ResponseID           string             `json:"response_id"`
	CurrentPage          Page               `json:"current_page"`
	CurrentQuestionIndex int                `json:"current_question_index"`
	Answers              map[string]Answer  `json:"answers"`
	EligibilityCategory  string             `json:"eligibility_category,omitempty"`
	ContextStatement     string             `json:"context_statement,omitempty"`
	ParticipantEmail     string             `json:"participant_email,omitempty"`
	ParticipantName      string             `json:"participant_name,omitempty"`
	ParticipantRole      string             `json:"participant_role,omitempty"`
	StartTime            time.Time          `json:"start_time,omitempty"`
	LastInteractionTime  time.Time          `json:"last_interaction_time,omitempty"`
	ResponseSpeeds       []int64            `json:"response_speeds,omitempty"` // per-question durations, ms
	QuestionsAnswered    int                `json:"questions_answered"`
	QuestionsSkipped     int                `json:"questions_skipped"`
	BookingConfirmed     bool               `json:"booking_confirmed,omitempty"`
	Terminated           bool               `json:"terminated,omitempty"`
	TerminationReason    string             `json:"termination_reason,omitempty"`
}

// NewSessionState creates an empty session positioned on the landing page.
func NewSessionState() *SessionState {
	return &SessionState{
		CurrentPage: PageLanding,
		Answers:     make(map[string]Answer),
	}
}

// ContactInfo is the contact payload upserted to the record store.
type ContactInfo struct {
	Email               string `json:"email"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	Industry            string `json:"industry,omitempty"`
	ProfileURL          string `json:"profile_url,omitempty"`
	EligibilityCategory string `json:"eligibility_category,omitempty"`
	ContextStatement    string `json:"context_statement,omitempty"`
}

// Validate checks the gating contact requirements: non-empty name and role,
// and an email containing "@".
func (c *ContactInfo) Validate() error {
	if c.Name == "" || c.Email == "" || c.Role == "" {
		return ErrMissingContactFields
	}
	if !strings.Contains(c.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// BookedSlot is one confirmed interview slot, date + time at HH:MM granularity.
type BookedSlot struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM
}

// BookingData is the booking payload written to the record store on confirm.
type BookingData struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Datetime   string `json:"datetime"`
	Timezone   string `json:"timezone"`
	Duration   int    `json:"duration"`
	Platform   string `json:"platform"`
	MeetingURL string `json:"meeting_url"`
	Notes      string `json:"notes,omitempty"`
}

// Archetype is the categorical classification revealed at completion.
type Archetype struct {
	Name  string `json:"name"`
	Desc  string `json:"desc"`
	Power string `json:"power"`
}

// DimensionScores maps a trust dimension name to its 1-7 average.
type DimensionScores map[string]float64

// CompletionData is the terminal payload pushed to the record store.
type CompletionData struct {
	CompletionTime    int             `json:"completion_time_minutes"`
	QuestionsAnswered int             `json:"questions_answered"`
	QuestionsSkipped  int             `json:"questions_skipped"`
	Archetype         Archetype       `json:"archetype"`
	DimensionScores   DimensionScores `json:"dimension_scores"`
	TrustScore        float64         `json:"trust_score"`
	CuratorScore      float64         `json:"curator_score"`
	ExecutorScore     float64         `json:"executor_score"`
	CuratorialShift   float64         `json:"curatorial_shift"`
	OrgReadiness      float64         `json:"org_readiness"`
}

// SurveyStatus tracks the lifecycle of a response record.
type SurveyStatus string

const (
	SurveyStatusNotStarted SurveyStatus = "not_started"
	SurveyStatusInProgress SurveyStatus = "in_progress"
	SurveyStatusCompleted  SurveyStatus = "completed"
	SurveyStatusTerminated SurveyStatus = "terminated"
)

// ResponseRecord is the durable backend row correlated to one responseId.
// The record store is the system of record; session state is a working copy.
type ResponseRecord struct {
	ID                  string       `json:"id"`
	Email               string       `json:"email,omitempty"`
	Name                string       `json:"name,omitempty"`
	Role                string       `json:"role,omitempty"`
	Industry            string       `json:"industry,omitempty"`
	ProfileURL          string       `json:"profile_url,omitempty"`
	EligibilityCategory string       `json:"eligibility_category,omitempty"`
	ContextStatement    string       `json:"context_statement,omitempty"`
	Commitment          string       `json:"commitment,omitempty"`
	SurveyStatus        SurveyStatus `json:"survey_status"`
	TerminationReason   string       `json:"termination_reason,omitempty"`
	QuestionsAnswered   int          `json:"questions_answered"`
	BookingScheduled    bool         `json:"booking_scheduled"`
	BookingStatus       string       `json:"booking_status,omitempty"`
	BookingDate         string       `json:"booking_date,omitempty"`
	BookingTime         string       `json:"booking_time,omitempty"`
	BookingMeetingURL   string       `json:"booking_meeting_url,omitempty"`
	ArchetypeName       string       `json:"archetype_name,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}
