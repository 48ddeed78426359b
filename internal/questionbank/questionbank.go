// Package questionbank holds the static, ordered definition of the survey
// instrument: sections, question types, validation rules, and the single
// conditional scenario substitution used by the decision-sequence pair.
//
// The bank is immutable after init; the funnel engine loads the full flow
// once at survey start and never reorders it.
package questionbank

import (
	"fmt"
	"strconv"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

// likertOpts carries the optional knobs of a 1-7 scale item.
type likertOpts struct {
	subtext     string
	reverse     bool
	optional    bool
	infographic string
}

func likert7(id, section, text, minLabel, maxLabel string, o likertOpts) models.Question {
	return models.Question{
		ID:          id,
		Type:        models.QuestionTypeScale,
		Section:     section,
		Text:        text,
		Subtext:     o.subtext,
		Required:    !o.optional,
		Min:         1,
		Max:         7,
		Default:     models.ScaleNeutralMidpoint,
		MinLabel:    minLabel,
		MaxLabel:    maxLabel,
		Reverse:     o.reverse,
		Infographic: o.infographic,
	}
}

func likertAgree7(id, section, text string, o likertOpts) models.Question {
	return likert7(id, section, text, "Strongly Disagree", "Strongly Agree", o)
}

func likertExtent7(id, section, text string, o likertOpts) models.Question {
	return likert7(id, section, text, "Not at all", "To a great extent", o)
}

func likertAccurate7(id, section, text string, o likertOpts) models.Question {
	return likert7(id, section, text, "Not at all accurate", "Extremely accurate", o)
}

var reverseSubtext = "Reverse-scored item to ensure response consistency."

// survey is the full linear instrument, built once at package init.
var survey = buildSurvey()

// Survey returns the ordered question flow. The returned slice is shared;
// callers must not mutate it.
func Survey() []models.Question {
	return survey
}

// Len returns the number of questions in the instrument.
func Len() int { return len(survey) }

// ByID returns the question with the given id, or false if absent.
func ByID(id string) (models.Question, bool) {
	for _, q := range survey {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

// scC2ContextByFirstAction rewrites the SC-C2 scenario narrative based on the
// SC-C1 answer. This is the only dynamic content rule in the flow.
var scC2ContextByFirstAction = map[string]string{
	"test":     "Since you accepted the AI suggestion, a key stakeholder has now responded with concerns about the resulting layout.",
	"compare":  "While you were comparing the suggestion with goals, a key stakeholder flagged concerns about the AI approach.",
	"feedback": "After you asked for feedback, a key stakeholder responded with specific concerns about the AI suggestion.",
	"reject":   "Even though you rejected the suggestion, a key stakeholder is now asking why that AI capability wasn't utilized.",
}

// scC2DefaultContext is the fallback narrative when the SC-C1 answer misses the table.
const scC2DefaultContext = "A key stakeholder responds with concerns about the AI suggestion."

// ScenarioContext resolves the scenario narrative for a question, applying
// the SC-C2 substitution from the SC-C1 answer when applicable.
func ScenarioContext(q models.Question, answers map[string]models.Answer) string {
	if q.Scenario == nil {
		return ""
	}
	if q.ID == "SC-C2" {
		if prior, ok := answers["SC-C1"]; ok {
			if ctx, found := scC2ContextByFirstAction[prior.Text]; found {
				return ctx
			}
		}
	}
	return q.Scenario.Context
}

// ValidateAnswer checks an answer against the question's type-specific rules.
// A nil/empty answer is only rejected for required questions.
func ValidateAnswer(q models.Question, a models.Answer) error {
	if a.IsEmpty() {
		if q.Required {
			return models.ErrAnswerRequired
		}
		return nil
	}

	switch q.Type {
	case models.QuestionTypeRadio, models.QuestionTypeSelect:
		if !optionExists(q.Options, a.Text) {
			return fmt.Errorf("answer %q is not an option of question %s", a.Text, q.ID)
		}
	case models.QuestionTypeCheckbox:
		for _, v := range a.Multi {
			if !optionExists(q.Options, v) {
				return fmt.Errorf("answer %q is not an option of question %s", v, q.ID)
			}
		}
	case models.QuestionTypeNumber:
		n, err := answerNumber(a)
		if err != nil {
			return fmt.Errorf("question %s expects a number: %w", q.ID, err)
		}
		if q.Max > q.Min && (n < float64(q.Min) || n > float64(q.Max)) {
			return fmt.Errorf("question %s expects a value between %d and %d", q.ID, q.Min, q.Max)
		}
	case models.QuestionTypeScale:
		n, err := answerNumber(a)
		if err != nil {
			return fmt.Errorf("question %s expects a scale value: %w", q.ID, err)
		}
		if n < float64(q.Min) || n > float64(q.Max) {
			return fmt.Errorf("question %s expects a value between %d and %d", q.ID, q.Min, q.Max)
		}
	case models.QuestionTypeTextarea:
		if q.MaxChars > 0 && len(a.Text) > q.MaxChars {
			return fmt.Errorf("question %s answer exceeds %d characters", q.ID, q.MaxChars)
		}
	}
	return nil
}

func optionExists(opts []models.Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

func answerNumber(a models.Answer) (float64, error) {
	if a.Number != nil {
		return *a.Number, nil
	}
	return strconv.ParseFloat(a.Text, 64)
}

func radio(id, section, text string, opts ...models.Option) models.Question {
	return models.Question{ID: id, Type: models.QuestionTypeRadio, Section: section, Text: text, Required: true, Options: opts}
}

func opt(value, label string) models.Option { return models.Option{Value: value, Label: label} }

func otherOpt(label string) models.Option { return models.Option{Value: "other", Label: label, Expand: true} }

func buildSurvey() []models.Question {
	var qs []models.Question

	// Section 1: Screening
	q1 := radio("Q1", "Screening", "Which core AI tool do you use most frequently?",
		opt("midjourney", "Midjourney"), opt("dalle", "DALL-E"), opt("stable", "Stable Diffusion"), otherOpt("Other Tool"))
	q1.Infographic = "research-framework"
	q1.ExpansionLabel = "Please name the custom or niche tool..."
	qs = append(qs, q1,
		radio("Q2", "Screening", "Have you used generative AI tools in your professional work for at least 3 months?",
			opt("yes", "Yes"), opt("no", "No")),
		radio("Q3", "Screening", "How many years of professional experience do you have in your creative field?",
			opt("lt2", "Less than 2 years"), opt("2-5", "2-5 years"), opt("5-10", "5-10 years"),
			opt("10-20", "10-20 years"), opt("gt20", "More than 20 years")),
	)

	// Section 2: Demographics & background
	qs = append(qs,
		models.Question{
			ID: "Q4", Type: models.QuestionTypeNumber, Section: "Demographics", Text: "Age",
			Subtext: "Enter your age in years (18-100).", Required: true, Min: 18, Max: 100,
		},
		radio("Q5", "Demographics", "Gender",
			opt("female", "Female"), opt("male", "Male"), opt("nonbinary", "Non-binary"), opt("no-say", "Prefer not to say")),
		radio("Q6", "Demographics", "Country of residence",
			opt("us", "United States"), opt("germany", "Germany"), opt("india", "India"), opt("singapore", "Singapore"),
			opt("uk", "United Kingdom"), opt("canada", "Canada"), opt("australia", "Australia"),
			opt("netherlands", "Netherlands"), opt("france", "France"), opt("spain", "Spain"), opt("italy", "Italy"),
			otherOpt("Other")),
		radio("Q7", "Demographics", "Primary creative field",
			opt("graphic-design", "Graphic/visual design"), opt("ux-ui", "UX/UI design"),
			opt("content-writing", "Content writing/copywriting"), opt("marketing", "Marketing/advertising"),
			opt("architecture", "Architecture"), opt("product-design", "Product design"),
			opt("illustration", "Illustration/art"), opt("video", "Video/motion graphics"), otherOpt("Other")),
		radio("Q8", "Demographics", "Employment type",
			opt("agency", "Employed in agency"), opt("in-house", "Employed in-house (corporate)"),
			opt("freelance", "Freelance/independent"), opt("academic", "Academic/educator"), otherOpt("Other")),
		radio("Q9", "Demographics", "Organization size (if applicable)",
			opt("solo", "Solo/freelance"), opt("2-10", "2-10 employees"), opt("11-50", "11-50 employees"),
			opt("51-200", "51-200 employees"), opt("201-1000", "201-1,000 employees"), opt("gt1000", "More than 1,000 employees")),
		models.Question{
			ID: "Q10", Type: models.QuestionTypeCheckbox, Section: "Demographics",
			Text: "Which generative AI tools do you use?", Subtext: "Select all that apply.", Required: true,
			Options: []models.Option{
				opt("midjourney", "Midjourney"), opt("dalle", "DALL-E"), opt("stable-diffusion", "Stable Diffusion"),
				opt("chatgpt", "ChatGPT"), opt("claude", "Claude"), opt("jasper", "Jasper"), opt("copyai", "Copy.ai"),
				opt("runway", "Runway"), opt("firefly", "Adobe Firefly"), opt("canva-ai", "Canva AI"), otherOpt("Other"),
			},
		},
		radio("Q11", "Demographics", "How long have you been using generative AI professionally?",
			opt("3-6m", "3-6 months"), opt("6-12m", "6-12 months"), opt("1-2y", "1-2 years"), opt("gt2y", "More than 2 years")),
		radio("Q12", "Demographics", "Approximately how many projects have you completed using AI tools?",
			opt("1-5", "1-5 projects"), opt("6-15", "6-15 projects"), opt("16-30", "16-30 projects"),
			opt("31-50", "31-50 projects"), opt("gt50", "More than 50 projects")),
	)

	// Section 3: Scenario-based situated judgment
	scA := radio("SC-A", "Scenario: AI Suggestion", "In this situation, what would you most likely do?",
		opt("accept", "Accept the AI suggestion and refine it"), opt("modify", "Modify and override parts of the AI suggestion"),
		opt("reject", "Reject the AI suggestion and stay with my current version"), opt("consult", "Ask a colleague or stakeholder before deciding"))
	scA.Scenario = &models.Scenario{
		Image:   "scenario-ai-suggestion",
		Context: "You are reviewing a layout suggestion generated by an AI design tool during an ongoing client project. The suggestion appears in your main workspace alongside your current draft.",
	}
	scB1 := radio("SC-B1", "Scenario: Time Pressure", "In this scenario, how would you assess your trust in the AI suggestion?",
		opt("trust", "I trust the AI suggestion and would proceed with it"), opt("check", "I would check it carefully before using it"),
		opt("judgment", "I would rely more on my judgment than AI"), opt("avoid", "I would avoid using AI under tight deadlines"))
	scB1.Scenario = &models.Scenario{
		Image:   "scenario-deadline",
		Context: "Deadline Alert — You have 1 hour left before a scheduled client presentation. Your AI tool has generated a design suggestion that you could incorporate.",
	}
	scB2 := radio("SC-B2", "Scenario: High Stakes", "In this scenario, how would you assess your trust in the AI output?",
		opt("trust", "I trust the AI suggestion and would proceed with it"), opt("check", "I would check it carefully before using it"),
		opt("judgment", "I would rely more on my judgment than AI"), opt("avoid", "I would avoid using AI under such scrutiny"))
	scB2.Scenario = &models.Scenario{
		Image:   "scenario-stakeholder",
		Context: "High-Stakes Review — Senior leadership is now evaluating your design with the AI output visible.",
	}
	qs = append(qs, scA, scB1, scB2)

	// Section 3: CAT scale (1-7 agree)
	qs = append(qs,
		likertAgree7("CAT1", "CAT: Strategic Appropriateness", "I can reliably judge whether AI-generated output aligns with project strategic goals.", likertOpts{infographic: "ctcp-dimensions"}),
		likertAgree7("CAT2", "CAT: Strategic Appropriateness", "I trust my ability to evaluate if AI output serves the intended business objectives.", likertOpts{}),
		likertAgree7("CAT3", "CAT: Strategic Appropriateness", "I am confident assessing whether AI-generated work fits the strategic context.", likertOpts{}),
		likertAgree7("CAT4", "CAT: Strategic Appropriateness", "I can accurately determine if AI output supports broader strategic aims.", likertOpts{}),
		likertAgree7("CAT5", "CAT: Strategic Appropriateness", "I find it challenging to judge the strategic fit of AI-generated content.", likertOpts{reverse: true, subtext: reverseSubtext}),

		likertAgree7("CAT6", "CAT: Cultural Resonance", "I can effectively judge whether AI output will resonate with the target cultural audience.", likertOpts{}),
		likertAgree7("CAT7", "CAT: Cultural Resonance", "I trust my ability to assess cultural appropriateness of AI-generated content.", likertOpts{}),
		likertAgree7("CAT8", "CAT: Cultural Resonance", "I am confident evaluating if AI output aligns with cultural values and norms.", likertOpts{}),
		likertAgree7("CAT9", "CAT: Cultural Resonance", "I can reliably determine whether AI-generated work will be culturally meaningful.", likertOpts{}),
		likertAgree7("CAT10", "CAT: Cultural Resonance", "I struggle to assess the cultural relevance of AI-generated outputs.", likertOpts{reverse: true, subtext: reverseSubtext}),

		likertAgree7("CAT11", "CAT: Brand Alignment", "I can accurately judge whether AI output aligns with brand identity.", likertOpts{}),
		likertAgree7("CAT12", "CAT: Brand Alignment", "I trust my ability to evaluate brand consistency in AI-generated content.", likertOpts{}),
		likertAgree7("CAT13", "CAT: Brand Alignment", "I am confident assessing if AI output matches the brand voice and values.", likertOpts{}),
		likertAgree7("CAT14", "CAT: Brand Alignment", "I can reliably determine whether AI-generated work fits the brand personality.", likertOpts{}),
		likertAgree7("CAT15", "CAT: Brand Alignment", "I find it difficult to maintain brand consistency when using AI tools.", likertOpts{reverse: true, subtext: reverseSubtext}),

		likertAgree7("CAT16", "CAT: Aesthetic Quality", "I can effectively distinguish high-quality vs. low-quality AI outputs aesthetically.", likertOpts{}),
		likertAgree7("CAT17", "CAT: Aesthetic Quality", "I trust my ability to evaluate aesthetic excellence in AI-generated work.", likertOpts{}),
		likertAgree7("CAT18", "CAT: Aesthetic Quality", "I am confident judging the aesthetic value of AI outputs for professional use.", likertOpts{}),
		likertAgree7("CAT19", "CAT: Aesthetic Quality", "I can reliably assess whether AI-generated aesthetics meet professional standards.", likertOpts{}),

		likertAgree7("CAT20", "CAT: Stakeholder Acceptance", "I can accurately predict whether stakeholders will accept AI-generated outputs.", likertOpts{}),
		likertAgree7("CAT21", "CAT: Stakeholder Acceptance", "I trust my ability to anticipate stakeholder reactions to AI-generated work.", likertOpts{}),
		likertAgree7("CAT22", "CAT: Stakeholder Acceptance", "I am confident assessing whether AI output will satisfy client/stakeholder expectations.", likertOpts{}),
		likertAgree7("CAT23", "CAT: Stakeholder Acceptance", "I can reliably judge if stakeholders will view AI-generated content as appropriate.", likertOpts{}),

		likertAgree7("CAT24", "CAT: Overall Calibration", "My trust in AI tools is well-calibrated to their actual capabilities.", likertOpts{}),
		likertAgree7("CAT25", "CAT: Overall Calibration", "I neither over-trust nor under-trust AI tools in my professional work.", likertOpts{}),
		likertAgree7("CAT26", "CAT: Overall Calibration", "I have an accurate understanding of when to rely on vs. override AI outputs.", likertOpts{}),
	)

	// Section 4: Professional identity transformation (1-7 accurate)
	qs = append(qs,
		likertAccurate7("ID1", "Identity: Executor", "I see myself primarily as someone who creates content from scratch.", likertOpts{reverse: true, infographic: "identity-spectrum"}),
		likertAccurate7("ID2", "Identity: Executor", "My professional value lies in hands-on execution and production.", likertOpts{reverse: true}),
		likertAccurate7("ID3", "Identity: Executor", "I define my expertise by my ability to make/produce creative work.", likertOpts{reverse: true}),
		likertAccurate7("ID4", "Identity: Executor", "I am fundamentally a maker/creator in my professional role.", likertOpts{reverse: true}),

		likertAccurate7("ID5", "Identity: Curator", "I see myself increasingly as a curator of AI-generated options.", likertOpts{}),
		likertAccurate7("ID6", "Identity: Curator", "My professional value now lies more in selection and refinement than creation.", likertOpts{}),
		likertAccurate7("ID7", "Identity: Curator", "I define my expertise by my judgment and evaluation capabilities.", likertOpts{}),
		likertAccurate7("ID8", "Identity: Curator", "I am fundamentally a strategic curator in my professional role.", likertOpts{}),
		likertAccurate7("ID9", "Identity: Curator", "My work involves more evaluating appropriateness than generating from scratch.", likertOpts{}),

		likertAccurate7("EXP1", "Expertise: Pillars", "My expertise is defined by my Strategic Vision (predicting long-term impact).", likertOpts{}),
		likertAccurate7("EXP2", "Expertise: Pillars", "My expertise is defined by my Cultural Intelligence (nuanced audience understanding).", likertOpts{}),
		likertAccurate7("EXP3", "Expertise: Pillars", "My expertise is defined by my Contextual Judgment (judging situational fit).", likertOpts{}),
		likertAccurate7("EXP4", "Expertise: Pillars", "My expertise is defined by my AI Collaboration (orchestrating technological tools).", likertOpts{}),

		likertAccurate7("ID10", "Identity: Uncertainty", "I feel uncertain about what my professional identity means anymore.", likertOpts{}),
		likertAccurate7("ID11", "Identity: Uncertainty", "I'm unclear about what defines expertise in my field now.", likertOpts{}),
		likertAccurate7("ID12", "Identity: Uncertainty", "I struggle to articulate my professional value proposition with AI involved.", likertOpts{}),
	)

	// Section 5: Trust-identity spirals (1-7 agree)
	qs = append(qs,
		likertAgree7("SP1", "Spirals: Virtuous", "As my trust in AI tools has grown, my confidence as a professional curator has increased.", likertOpts{}),
		likertAgree7("SP2", "Spirals: Virtuous", "My stronger curatorial identity makes me trust AI outputs more appropriately.", likertOpts{}),
		likertAgree7("SP3", "Spirals: Virtuous", "Increased trust and stronger identity reinforce each other positively in my work.", likertOpts{}),
		likertAgree7("SP4", "Spirals: Virtuous", "I'm in a positive cycle where trust and identity support each other.", likertOpts{}),

		likertAgree7("SP5", "Spirals: Vicious", "Difficulty trusting AI appropriately has undermined my professional confidence.", likertOpts{}),
		likertAgree7("SP6", "Spirals: Vicious", "My identity uncertainty makes it harder to calibrate trust in AI.", likertOpts{}),
		likertAgree7("SP7", "Spirals: Vicious", "I'm stuck in a negative cycle where trust issues and identity concerns reinforce each other.", likertOpts{}),
		likertAgree7("SP8", "Spirals: Vicious", "Mistrust of AI and professional insecurity feed into each other in my experience.", likertOpts{}),
	)

	// Section 6: Organizational capabilities (1-7 extent)
	qs = append(qs,
		likertExtent7("OC1", "Org Capabilities: Complementary Investment", "My organization invests in AI tools AND in training humans to use them well.", likertOpts{infographic: "org-pillars"}),
		likertExtent7("OC2", "Org Capabilities: Complementary Investment", "Resources are allocated both to technology and to developing human judgment.", likertOpts{}),
		likertExtent7("OC3", "Org Capabilities: Complementary Investment", "The organization treats AI and human capabilities as complementary, not substitutes.", likertOpts{}),
		likertExtent7("OC4", "Org Capabilities: Complementary Investment", "Investment decisions balance AI tools with support for professional development.", likertOpts{}),

		likertExtent7("OC5", "Org Capabilities: Evaluation Systems", "My organization has clear criteria for evaluating AI-assisted creative work.", likertOpts{}),
		likertExtent7("OC6", "Org Capabilities: Evaluation Systems", "We have systems to assess contextual appropriateness, not just technical quality.", likertOpts{}),
		likertExtent7("OC7", "Org Capabilities: Evaluation Systems", "Quality standards account for the unique challenges of AI-generated content.", likertOpts{}),
		likertExtent7("OC8", "Org Capabilities: Evaluation Systems", "Evaluation frameworks help professionals make appropriate trust decisions.", likertOpts{}),

		likertExtent7("OC9", "Org Capabilities: Learning Infrastructure", "My organization provides structured opportunities to learn AI tool capabilities.", likertOpts{}),
		likertExtent7("OC10", "Org Capabilities: Learning Infrastructure", "There's time and space to experiment and calibrate understanding of AI.", likertOpts{}),
		likertExtent7("OC11", "Org Capabilities: Learning Infrastructure", "Knowledge about effective AI use is shared systematically across the organization.", likertOpts{}),
		likertExtent7("OC12", "Org Capabilities: Learning Infrastructure", "We have processes for documenting and disseminating AI usage learnings.", likertOpts{}),

		likertExtent7("OC13", "Org Capabilities: Cultural Support", "My organization's culture supports thoughtful experimentation with AI.", likertOpts{}),
		likertExtent7("OC14", "Org Capabilities: Cultural Support", "It's safe to discuss both successes and failures with AI tools.", likertOpts{}),
		likertExtent7("OC15", "Org Capabilities: Cultural Support", "Leadership actively encourages calibrated, appropriate use of AI.", likertOpts{}),
		likertExtent7("OC16", "Org Capabilities: Cultural Support", "The organizational culture values human judgment alongside AI capabilities.", likertOpts{}),

		likertExtent7("OC17", "Org Capabilities: Strategic-Operational Bridging", "Strategic AI goals are clearly connected to operational workflows.", likertOpts{}),
		likertExtent7("OC18", "Org Capabilities: Strategic-Operational Bridging", "There's alignment between AI strategy and day-to-day implementation.", likertOpts{}),
		likertExtent7("OC19", "Org Capabilities: Strategic-Operational Bridging", "Leadership and practitioners have shared understanding of AI's role.", likertOpts{}),
		likertExtent7("OC20", "Org Capabilities: Strategic-Operational Bridging", "Strategic vision translates into practical guidance for AI use.", likertOpts{}),

		likertExtent7("OC21", "Org Capabilities: Dynamic Adaptation", "My organization adapts AI strategies based on learning and experience.", likertOpts{}),
		likertExtent7("OC22", "Org Capabilities: Dynamic Adaptation", "We regularly update our approach to AI as tools and understanding evolve.", likertOpts{}),
		likertExtent7("OC23", "Org Capabilities: Dynamic Adaptation", "The organization is agile in responding to AI-related challenges and opportunities.", likertOpts{}),
		likertExtent7("OC24", "Org Capabilities: Dynamic Adaptation", "Our organizational workflows are rigid and slow to adapt to AI developments.", likertOpts{reverse: true, subtext: reverseSubtext}),
	)

	// Section 7: Calibration process & outcomes
	qs = append(qs,
		radio("Q13", "Calibration", "Approximately how many projects or iterations did it take before you felt your trust in AI was well-calibrated?",
			opt("1-5", "1-5 iterations"), opt("6-10", "6-10 iterations"), opt("11-20", "11-20 iterations"),
			opt("21-30", "21-30 iterations"), opt("gt30", "More than 30 iterations"), opt("not-calibrated", "Still not calibrated")),
		radio("Q14", "Calibration", "How long (time period) did it take you to feel calibrated?",
			opt("lt1m", "Less than 1 month"), opt("1-3m", "1-3 months"), opt("3-6m", "3-6 months"),
			opt("6-12m", "6-12 months"), opt("12-18m", "12-18 months"), opt("gt18m", "More than 18 months"),
			opt("not-calibrated", "Still not calibrated")),
		radio("Q15", "Calibration", "How would you describe your current trust calibration?",
			opt("strong-under", "Strongly under-trust (overly skeptical)"), opt("moderate-under", "Moderately under-trust"),
			opt("well", "Well-calibrated"), opt("moderate-over", "Moderately over-trust"),
			opt("strong-over", "Strongly over-trust (overly reliant)")),

		likertAgree7("CAL1", "Calibration: Scale", "I have a clear sense of what AI tools can and cannot do well.", likertOpts{}),
		likertAgree7("CAL2", "Calibration: Scale", "My expectations of AI capabilities match reality.", likertOpts{}),
		likertAgree7("CAL3", "Calibration: Scale", "I trust AI outputs when appropriate and skeptical when appropriate.", likertOpts{}),
		likertAgree7("CAL4", "Calibration: Scale", "I've learned through experience what contexts AI works best/worst in.", likertOpts{}),

		likertAgree7("STR1", "Strategy: Refinement", "I use iterative prompt refinement as my primary method for trust calibration.", likertOpts{}),
		likertAgree7("STR2", "Strategy: Refinement", "I rely on complex constraints in my prompts to ensure contextual alignment.", likertOpts{}),
		likertAgree7("STR3", "Strategy: Refinement", "I systematically test AI boundary cases to understand system limitations.", likertOpts{}),
	)

	// Section 8: Cultural context
	q16 := radio("Q16", "Cultural Context", "Have you worked on projects for different cultural markets using AI?",
		opt("yes", "Yes"), opt("no", "No"))
	q16.Infographic = "cultural-moderator"
	scD := models.Question{
		ID: "SC-D", Type: models.QuestionTypeScale, Section: "Scenario: Cultural Context",
		Text:     "How confident are you in judging whether the AI output will be appropriate for both audiences?",
		Required: true, Min: 1, Max: 7,
		MinLabel: "Not at all confident", MaxLabel: "Extremely confident",
		Scenario: &models.Scenario{
			Image:   "scenario-cross-cultural",
			Context: "You are preparing a design that should resonate with audiences in two culturally different markets. The AI tool has generated outputs for each audience.",
		},
	}
	qs = append(qs,
		q16,
		radio("Q17", "Cultural Context", "Working across cultural contexts with AI is:",
			opt("much-easier", "Much easier than within a single culture"), opt("somewhat-easier", "Somewhat easier"),
			opt("same", "About the same"), opt("somewhat-harder", "Somewhat harder"), opt("much-harder", "Much harder")),
		radio("Q18", "Cultural Context", "Approximately how much more effort does cross-cultural AI work require compared to single-culture work?",
			opt("same", "About the same"), opt("1.5x", "1.5X more effort"), opt("2x", "2X more effort"),
			opt("2.5x", "2.5X more effort"), opt("3xplus", "3X or more effort")),
		scD,
		likertAgree7("CUL1", "Cultural Context: Scale", "Evaluating AI output appropriateness is harder across cultural contexts.", likertOpts{}),
		likertAgree7("CUL2", "Cultural Context: Scale", "Cultural differences significantly complicate AI trust calibration.", likertOpts{}),
		likertAgree7("CUL3", "Cultural Context: Scale", "I'm less confident judging AI output for cultures I'm less familiar with.", likertOpts{}),
	)

	// Section 9: Outcomes & performance (1-7 agree)
	qs = append(qs,
		likertAgree7("OUT1", "Outcomes: Work Quality", "Using AI has improved the quality of my creative output.", likertOpts{}),
		likertAgree7("OUT2", "Outcomes: Work Quality", "AI-assisted work meets or exceeds the quality of my pre-AI work.", likertOpts{}),
		likertAgree7("OUT3", "Outcomes: Work Quality", "I produce better outcomes when I use AI appropriately.", likertOpts{}),

		likertAgree7("OUT4", "Outcomes: Efficiency", "AI tools have made me significantly more efficient in my work.", likertOpts{}),
		likertAgree7("OUT5", "Outcomes: Efficiency", "I can complete projects faster with AI than without.", likertOpts{}),
		likertAgree7("OUT6", "Outcomes: Efficiency", "Time saved with AI allows me to focus on higher-value activities.", likertOpts{}),

		likertAgree7("OUT7", "Outcomes: Professional Satisfaction", "I find my work more satisfying since integrating AI.", likertOpts{}),
		likertAgree7("OUT8", "Outcomes: Professional Satisfaction", "AI has made my professional role more interesting and strategic.", likertOpts{}),
		likertAgree7("OUT9", "Outcomes: Professional Satisfaction", "I feel more valuable as a professional with AI as part of my toolkit.", likertOpts{}),

		likertAgree7("OUT10", "Outcomes: Confidence", "I feel confident in my ability to work effectively with AI.", likertOpts{}),
		likertAgree7("OUT11", "Outcomes: Confidence", "I trust my judgment about when and how to use AI.", likertOpts{}),
		likertAgree7("OUT12", "Outcomes: Confidence", "I'm secure in my professional identity despite AI disruption.", likertOpts{}),
		likertAgree7("OUT13", "Outcomes: Confidence", "I feel professional anxiety about my long-term relevance in an AI-driven field.", likertOpts{reverse: true, subtext: reverseSubtext}),
	)

	// Section 10: Decision sequences
	scC1 := radio("SC-C1", "Scenario: Decision Sequence", "What do you do first?",
		opt("test", "Accept suggestion and test it out"), opt("compare", "Compare suggestion with project goals"),
		opt("feedback", "Ask a team member for feedback"), opt("reject", "Reject suggestion and continue"))
	scC1.Scenario = &models.Scenario{
		Image:   "scenario-decision-1",
		Context: "An AI tool suggests a layout update midway through a project.",
	}
	scC2 := radio("SC-C2", "Scenario: Decision Sequence", "What do you do next?",
		opt("revise", "Revise based on stakeholder + AI suggestion"), opt("explain", "Keep my version and explain reasoning"),
		opt("discuss", "Schedule a discussion with the stakeholder"), opt("ask-ai", "Ask the AI for another suggestion"))
	scC2.Scenario = &models.Scenario{
		Image:   "scenario-decision-2",
		Context: scC2DefaultContext,
	}
	qs = append(qs, scC1, scC2)

	// Section 10: Open-ended reflections
	openEnded := func(id, text string) models.Question {
		return models.Question{
			ID: id, Type: models.QuestionTypeTextarea, Section: "Open Reflections", Text: text,
			Subtext: "Optional. Up to ~500 characters.", Required: false, MaxChars: models.MaxTextAnswerLength,
		}
	}
	qs = append(qs,
		openEnded("Q19", "What was the most significant challenge you faced in learning to trust AI appropriately?"),
		openEnded("Q20", "What organizational support would have helped (or did help) you calibrate trust faster?"),
		openEnded("Q21", "What advice would you give to someone just starting to use AI in creative work?"),
	)

	// Section 11: Follow-up
	qs = append(qs,
		radio("follow-up-interest", "Follow-up", "Would you be willing to participate in a brief follow-up interview (60 minutes)?",
			opt("yes", "Yes, I'm interested"), opt("maybe", "Maybe, contact me with details"), opt("no", "No, thank you")),
		models.Question{
			ID: "email", Type: models.QuestionTypeEmail, Section: "Follow-up", Text: "Email (optional)",
			Subtext: "Only provide if you want follow-up contact or study updates.", Required: false,
		},
		radio("Q23_findings", "Follow-up", "Would you like to receive a summary of research findings when available?",
			opt("yes", "Yes"), opt("no", "No")),
	)

	return qs
}
