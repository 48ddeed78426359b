// Package scheduler provides cron-based background jobs for SurveyPipe.
//
// Two recurring jobs keep the study running without operator attention: a
// daily reminder sweep that emails participants with an interview the next
// day, and a purge of stale session snapshots from the local cache.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ctr-research/SurveyPipe/internal/notify"
	"github.com/ctr-research/SurveyPipe/internal/store"
)

// Default cron expressions for the maintenance jobs (5-field, server local time).
const (
	// DefaultReminderSpec fires the reminder sweep every morning at 08:00.
	DefaultReminderSpec = "0 8 * * *"
	// DefaultPurgeSpec clears stale snapshots nightly at 03:30.
	DefaultPurgeSpec = "30 3 * * *"
	// jobTimeout bounds a single job run.
	jobTimeout = 2 * time.Minute
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// SnapshotPurger deletes expired session snapshots. Implemented by
// cache.SessionCache.
type SnapshotPurger interface {
	PurgeStale() (int64, error)
}

// Maintenance bundles the recurring study jobs.
type Maintenance struct {
	store    store.Store
	notifier notify.Notifier
	purger   SnapshotPurger
	now      func() time.Time
}

// MaintenanceOption configures a Maintenance.
type MaintenanceOption func(*Maintenance)

// WithPurger attaches the snapshot cache to the nightly purge job.
func WithPurger(p SnapshotPurger) MaintenanceOption {
	return func(m *Maintenance) { m.purger = p }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) MaintenanceOption {
	return func(m *Maintenance) { m.now = now }
}

// NewMaintenance creates the maintenance job set.
func NewMaintenance(st store.Store, n notify.Notifier, opts ...MaintenanceOption) *Maintenance {
	m := &Maintenance{store: st, notifier: n, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunReminderSweep emails every participant booked for tomorrow. Send
// failures are logged per booking and do not stop the sweep. It returns the
// number of reminders delivered.
func (m *Maintenance) RunReminderSweep(ctx context.Context) (int, error) {
	if m.notifier == nil {
		return 0, nil
	}
	tomorrow := m.now().AddDate(0, 0, 1).Format("2006-01-02")
	rows, err := m.store.GetBookingsForDate(tomorrow)
	if err != nil {
		return 0, fmt.Errorf("reminder sweep: %w", err)
	}

	sent := 0
	for _, row := range rows {
		b := notify.Booking{
			ResponseID: row.ResponseID,
			Name:       row.Name,
			Email:      row.Email,
			Booking:    row.Booking,
		}
		if err := m.notifier.SendReminder(ctx, b); err != nil {
			slog.Error("Maintenance reminder send failed", "error", err, "responseID", row.ResponseID, "date", tomorrow)
			continue
		}
		sent++
	}
	slog.Debug("Maintenance reminder sweep finished", "date", tomorrow, "bookings", len(rows), "sent", sent)
	return sent, nil
}

// RunCachePurge removes stale session snapshots.
func (m *Maintenance) RunCachePurge() (int64, error) {
	if m.purger == nil {
		return 0, nil
	}
	n, err := m.purger.PurgeStale()
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	slog.Debug("Maintenance cache purge finished", "removed", n)
	return n, nil
}

// Register schedules both jobs on the scheduler. Empty specs fall back to
// the defaults.
func (m *Maintenance) Register(s *Scheduler, reminderSpec, purgeSpec string) error {
	if reminderSpec == "" {
		reminderSpec = DefaultReminderSpec
	}
	if purgeSpec == "" {
		purgeSpec = DefaultPurgeSpec
	}

	err := s.AddJob(reminderSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := m.RunReminderSweep(ctx); err != nil {
			slog.Error("Maintenance reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}

	err = s.AddJob(purgeSpec, func() {
		if _, err := m.RunCachePurge(); err != nil {
			slog.Error("Maintenance cache purge failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache purge: %w", err)
	}
	return nil
}
