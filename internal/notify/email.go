// Package notify delivers booking confirmations and researcher alerts.
//
// This file implements the EmailJS-backed email notifier.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// EmailJS API defaults.
const (
	DefaultEmailEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	defaultHTTPTimeout   = 10 * time.Second

	confirmationTemplate = "template_booking"
	researcherTemplate   = "template_researcher_aler"
	reminderTemplate     = "template_reminder"
)

// EmailOpts holds configuration options for the email notifier.
type EmailOpts struct {
	ServiceID       string
	PublicKey       string
	ResearcherEmail string
	Endpoint        string
	HTTPClient      *http.Client
}

// EmailOption defines a configuration option for the email notifier.
type EmailOption func(*EmailOpts)

func WithServiceID(id string) EmailOption {
	return func(o *EmailOpts) { o.ServiceID = id }
}

func WithPublicKey(key string) EmailOption {
	return func(o *EmailOpts) { o.PublicKey = key }
}

func WithResearcherEmail(email string) EmailOption {
	return func(o *EmailOpts) { o.ResearcherEmail = email }
}

// WithEndpoint overrides the EmailJS API endpoint, for tests.
func WithEndpoint(url string) EmailOption {
	return func(o *EmailOpts) { o.Endpoint = url }
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(c *http.Client) EmailOption {
	return func(o *EmailOpts) { o.HTTPClient = c }
}

// EmailNotifier sends templated emails through the EmailJS REST API.
type EmailNotifier struct {
	serviceID       string
	publicKey       string
	researcherEmail string
	endpoint        string
	client          *http.Client
}

// NewEmailNotifier creates an email notifier, falling back to environment
// variables for unset options.
func NewEmailNotifier(opts ...EmailOption) (*EmailNotifier, error) {
	var cfg EmailOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ServiceID == "" {
		cfg.ServiceID = os.Getenv("EMAILJS_SERVICE_ID")
	}
	if cfg.PublicKey == "" {
		cfg.PublicKey = os.Getenv("EMAILJS_PUBLIC_KEY")
	}
	if cfg.ResearcherEmail == "" {
		cfg.ResearcherEmail = os.Getenv("RESEARCHER_EMAIL")
	}
	slog.Debug("Email notifier config loaded",
		"serviceID_set", cfg.ServiceID != "",
		"publicKey_set", cfg.PublicKey != "",
		"researcherEmail_set", cfg.ResearcherEmail != "")

	if cfg.ServiceID == "" || cfg.PublicKey == "" {
		return nil, fmt.Errorf("email service ID and public key must be provided")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEmailEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &EmailNotifier{
		serviceID:       cfg.ServiceID,
		publicKey:       cfg.PublicKey,
		researcherEmail: cfg.ResearcherEmail,
		endpoint:        cfg.Endpoint,
		client:          cfg.HTTPClient,
	}, nil
}

func (n *EmailNotifier) SendBookingConfirmation(ctx context.Context, b Booking) error {
	params := map[string]string{
		"to_email":         b.Email,
		"to_name":          b.Name,
		"booking_date":     b.Booking.Date,
		"booking_time":     b.Booking.Time,
		"meeting_url":      b.Booking.MeetingURL,
		"notes":            notesOrNone(b.Booking.Notes),
		"study_name":       StudyName,
		"researcher_email": n.researcherEmail,
	}
	return n.send(ctx, confirmationTemplate, params, b.ResponseID)
}

func (n *EmailNotifier) SendResearcherAlert(ctx context.Context, b Booking) error {
	params := map[string]string{
		"participant_name":  b.Name,
		"participant_email": b.Email,
		"booking_date":      b.Booking.Date,
		"booking_time":      b.Booking.Time,
		"meeting_url":       b.Booking.MeetingURL,
		"notes":             notesOrNone(b.Booking.Notes),
		"study_name":        StudyName,
		"researcher_email":  n.researcherEmail,
	}
	return n.send(ctx, researcherTemplate, params, b.ResponseID)
}

func (n *EmailNotifier) SendReminder(ctx context.Context, b Booking) error {
	params := map[string]string{
		"to_email":     b.Email,
		"to_name":      b.Name,
		"booking_date": b.Booking.Date,
		"booking_time": b.Booking.Time,
		"meeting_url":  b.Booking.MeetingURL,
		"study_name":   StudyName,
	}
	return n.send(ctx, reminderTemplate, params, b.ResponseID)
}

func (n *EmailNotifier) send(ctx context.Context, template string, params map[string]string, responseID string) error {
	body, err := json.Marshal(map[string]interface{}{
		"service_id":      n.serviceID,
		"template_id":     template,
		"user_id":         n.publicKey,
		"template_params": params,
	})
	if err != nil {
		return fmt.Errorf("encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Error("EmailNotifier send failed", "error", err, "template", template, "responseID", responseID)
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("EmailNotifier unexpected status", "status", resp.StatusCode, "template", template, "responseID", responseID, "body", string(detail))
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}
	slog.Debug("EmailNotifier send succeeded", "template", template, "responseID", responseID)
	return nil
}

func notesOrNone(notes string) string {
	if notes == "" {
		return "None"
	}
	return notes
}
