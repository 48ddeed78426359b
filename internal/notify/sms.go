// Package notify delivers booking confirmations and researcher alerts.
//
// This file implements the Twilio SMS notifier used for researcher alerts
// when an email channel is not enough.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSOpts holds configuration options for the Twilio SMS notifier.
type SMSOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	ToNumber   string
}

// SMSOption defines a configuration option for the Twilio SMS notifier.
type SMSOption func(*SMSOpts)

func WithAccountSID(sid string) SMSOption {
	return func(o *SMSOpts) { o.AccountSID = sid }
}

func WithAuthToken(token string) SMSOption {
	return func(o *SMSOpts) { o.AuthToken = token }
}

func WithFromNumber(from string) SMSOption {
	return func(o *SMSOpts) { o.FromNumber = from }
}

// WithToNumber sets the researcher phone number that receives alerts.
func WithToNumber(to string) SMSOption {
	return func(o *SMSOpts) { o.ToNumber = to }
}

// SMSNotifier sends researcher alerts over Twilio SMS. Participant-facing
// sends are no-ops: participants only share an email address.
type SMSNotifier struct {
	client     *twilio.RestClient
	fromNumber string
	toNumber   string
}

// NewSMSNotifier creates a Twilio SMS notifier, falling back to environment
// variables for unset options.
func NewSMSNotifier(opts ...SMSOption) (*SMSNotifier, error) {
	var cfg SMSOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.ToNumber == "" {
		cfg.ToNumber = os.Getenv("RESEARCHER_PHONE")
	}
	slog.Debug("Twilio SMS notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "",
		"ToNumber_set", cfg.ToNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" || cfg.ToNumber == "" {
		return nil, fmt.Errorf("from and to numbers must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &SMSNotifier{client: client, fromNumber: cfg.FromNumber, toNumber: cfg.ToNumber}, nil
}

// SendBookingConfirmation is a no-op: participants are reached by email.
func (n *SMSNotifier) SendBookingConfirmation(_ context.Context, b Booking) error {
	slog.Debug("SMSNotifier skipping participant confirmation", "responseID", b.ResponseID)
	return nil
}

func (n *SMSNotifier) SendResearcherAlert(_ context.Context, b Booking) error {
	body := fmt.Sprintf("%s: new interview booking %s %s (%s, %s)",
		StudyName, b.Booking.Date, b.Booking.Time, b.Name, b.ResponseID)
	return n.sendSMS(body, b.ResponseID)
}

// SendReminder is a no-op: reminders go to participants by email.
func (n *SMSNotifier) SendReminder(_ context.Context, b Booking) error {
	slog.Debug("SMSNotifier skipping participant reminder", "responseID", b.ResponseID)
	return nil
}

func (n *SMSNotifier) sendSMS(body, responseID string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.toNumber)
	params.SetFrom(n.fromNumber)
	params.SetBody(body)

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		slog.Error("SMSNotifier send failed", "error", err, "responseID", responseID)
		return fmt.Errorf("send SMS: %w", err)
	}
	slog.Debug("SMSNotifier send succeeded", "responseID", responseID)
	return nil
}

// MultiNotifier fans a notification out to several notifiers, returning the
// first error after trying all of them.
type MultiNotifier []Notifier

func (m MultiNotifier) SendBookingConfirmation(ctx context.Context, b Booking) error {
	return m.each(func(n Notifier) error { return n.SendBookingConfirmation(ctx, b) })
}

func (m MultiNotifier) SendResearcherAlert(ctx context.Context, b Booking) error {
	return m.each(func(n Notifier) error { return n.SendResearcherAlert(ctx, b) })
}

func (m MultiNotifier) SendReminder(ctx context.Context, b Booking) error {
	return m.each(func(n Notifier) error { return n.SendReminder(ctx, b) })
}

func (m MultiNotifier) each(send func(Notifier) error) error {
	var firstErr error
	for _, n := range m {
		if err := send(n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
