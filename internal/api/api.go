// Package api provides HTTP handlers and the main API server logic for
// SurveyPipe.
//
// It exposes RESTful endpoints covering the participant funnel (session
// lifecycle, questionnaire navigation, answers), the interview scheduler
// (calendar, slots, bookings), and researcher access to response records.
// The API integrates with the funnel, booking, and store modules.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctr-research/SurveyPipe/internal/booking"
	"github.com/ctr-research/SurveyPipe/internal/funnel"
	"github.com/ctr-research/SurveyPipe/internal/store"
)

// Server configuration defaults.
const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"
	// DefaultReadTimeout bounds request reads.
	DefaultReadTimeout = 15 * time.Second
	// DefaultWriteTimeout bounds response writes.
	DefaultWriteTimeout = 30 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string
}

// Option configures API server options.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server is the SurveyPipe HTTP API server.
type Server struct {
	addr      string
	st        store.Store
	scheduler *booking.Scheduler
	cache     funnel.SnapshotCache
	debrief   funnel.DebriefGenerator
	engineOpt []funnel.Option

	mu       sync.Mutex
	sessions map[string]*funnel.Engine

	httpServer *http.Server
}

// ServerOption configures the server's collaborators.
type ServerOption func(*Server)

// WithCache attaches the session snapshot cache used for resume.
func WithCache(c funnel.SnapshotCache) ServerOption {
	return func(s *Server) { s.cache = c }
}

// WithDebrief attaches the completion debrief generator.
func WithDebrief(d funnel.DebriefGenerator) ServerOption {
	return func(s *Server) { s.debrief = d }
}

// WithScheduler attaches the interview booking scheduler.
func WithScheduler(sched *booking.Scheduler) ServerOption {
	return func(s *Server) { s.scheduler = sched }
}

// WithEngineOptions forwards extra options to every session engine, for tests.
func WithEngineOptions(opts ...funnel.Option) ServerOption {
	return func(s *Server) { s.engineOpt = opts }
}

// NewServer creates an API server over the given record store.
func NewServer(st store.Store, addr string, opts ...ServerOption) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:     addr,
		st:       st,
		sessions: make(map[string]*funnel.Engine),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the routed HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("POST /api/v1/sessions", s.createSessionHandler)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("POST /api/v1/sessions/{id}/page", s.transitionHandler)
	mux.HandleFunc("POST /api/v1/sessions/{id}/eligibility", s.eligibilityHandler)
	mux.HandleFunc("POST /api/v1/sessions/{id}/commitment", s.commitmentHandler)
	mux.HandleFunc("POST /api/v1/sessions/{id}/contact", s.contactHandler)
	mux.HandleFunc("POST /api/v1/sessions/{id}/consent", s.consentHandler)
	mux.HandleFunc("GET /api/v1/sessions/{id}/question", s.questionHandler)
	mux.HandleFunc("POST /api/v1/sessions/{id}/answers", s.answerHandler)
	mux.HandleFunc("POST /api/v1/sessions/{id}/back", s.backHandler)

	mux.HandleFunc("GET /api/v1/schedule", s.calendarHandler)
	mux.HandleFunc("GET /api/v1/schedule/slots", s.slotsHandler)
	mux.HandleFunc("POST /api/v1/bookings", s.createBookingHandler)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", s.cancelBookingHandler)

	mux.HandleFunc("GET /api/v1/records/{id}", s.getRecordHandler)

	return requestIDMiddleware(mux)
}

// requestIDMiddleware tags every request with a correlation id, echoed in the
// X-Request-ID response header and attached to access logs.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		slog.Debug("Server request", "method", r.Method, "path", r.URL.Path, "requestID", reqID)
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		slog.Info("Server shutting down", "addr", s.addr)
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// newSession registers a fresh funnel engine and returns its session id.
func (s *Server) newSession() (string, *funnel.Engine) {
	opts := []funnel.Option{}
	if s.cache != nil {
		opts = append(opts, funnel.WithCache(s.cache))
	}
	if s.debrief != nil {
		opts = append(opts, funnel.WithDebrief(s.debrief))
	}
	opts = append(opts, s.engineOpt...)
	engine := funnel.NewEngine(s.st, opts...)

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = engine
	s.mu.Unlock()
	slog.Debug("Server session created", "sessionID", id)
	return id, engine
}

// session looks up the engine for a session id.
func (s *Server) session(id string) (*funnel.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}
