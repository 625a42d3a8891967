// Package server exposes the runner over HTTP: one endpoint per turn plus a
// health probe. Identity travels in headers and is seeded into temp-scoped
// session state, so tools and hooks can read it without it ever becoming
// durable.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/logging"
	"github.com/hupe1980/agentpipe/runner"
)

const (
	headerUserID    = "X-User-Id"
	headerSessionID = "X-Session-Id"
)

// Options configures the HTTP server.
type Options struct {
	// Addr is the listen address, ":8080" by default.
	Addr string
	// Logger receives request diagnostics. Nil means no-op.
	Logger logging.Logger
	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves turns of a single runner over HTTP.
type Server struct {
	runner *runner.Runner
	router *mux.Router
	http   *http.Server
	logger logging.Logger
}

// New creates a Server around the runner.
func New(r *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:         ":8080",
		Logger:       logging.NoOpLogger{},
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{
		runner: r,
		router: mux.NewRouter(),
		logger: opts.Logger,
	}
	s.routes()

	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// WithAddr sets the listen address.
func WithAddr(addr string) func(o *Options) {
	return func(o *Options) { o.Addr = addr }
}

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

func (s *Server) routes() {
	s.router.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the router, usable directly with httptest.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving requests until the listener fails or the
// server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type runRequest struct {
	Message string `json:"message"`
}

type runResponse struct {
	SessionID    string `json:"session_id"`
	InvocationID string `json:"invocation_id"`
	Response     string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleRun executes one turn. Identity comes from X-User-Id (required) and
// X-Session-Id (generated when absent); both are seeded into temp state.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + headerUserID + " header"})
		return
	}
	sessionID := r.Header.Get(headerSessionID)
	if sessionID == "" {
		sessionID = core.NewID()
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	content := core.NewTextContent(core.RoleUser, req.Message)
	result, err := s.runner.Run(r.Context(), userID, sessionID, content,
		runner.WithStateSeed(map[string]any{
			core.StateKeyUserID:    userID,
			core.StateKeySessionID: sessionID,
			core.StateKeyThreadID:  sessionID,
		}),
	)
	if err != nil {
		s.logger.Error("run failed for session %s: %v", sessionID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "invocation failed"})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		SessionID:    sessionID,
		InvocationID: result.InvocationID,
		Response:     result.FinalText(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
