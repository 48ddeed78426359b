// Package genai generates the optional archetype debrief paragraph shown on
// the completion page, using the OpenAI API. The funnel treats it as a
// best-effort enrichment: a failed or absent client falls back to the static
// archetype description.
package genai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ctr-research/SurveyPipe/internal/models"
)

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service for debrief generation.
type Client struct {
	chat chatService
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	// APIKey is the OpenAI API key. Falls back to OPENAI_API_KEY.
	APIKey string
}

// Option configures GenAI client options.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// NewClient initializes a GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var o Opts
	for _, opt := range opts {
		opt(&o)
	}
	if o.APIKey == "" {
		o.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if o.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(o.APIKey))
	return &Client{chat: &cli.Chat.Completions}, nil
}

const debriefSystemPrompt = "You write short, warm debrief paragraphs for participants of an academic study " +
	"on trust calibration in AI-assisted creative work. Two to three sentences, second person, " +
	"no headings, no emoji, no mention of scores or numbers."

// GenerateDebrief produces a personalised paragraph for the completion page
// from the participant's archetype and derived scores.
func (c *Client) GenerateDebrief(ctx context.Context, archetype models.Archetype, data models.CompletionData) (string, error) {
	userPrompt := fmt.Sprintf(
		"Archetype: %s. Signature strength: %s. Baseline description: %s. "+
			"Trust calibration average %.1f of 7, organizational readiness %.1f of 7.",
		archetype.Name, archetype.Power, archetype.Desc, data.TrustScore, data.OrgReadiness)

	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(debriefSystemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
