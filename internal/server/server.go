package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blag/scheduler/internal/instrumentation"
	"github.com/blag/scheduler/internal/logging"
	"github.com/blag/scheduler/internal/schedule"
	"github.com/blag/scheduler/internal/session"
)

// SessionCookie is the cookie carrying the guest's session identifier.
const SessionCookie = "scheduler_session"

// CallbackPath is where the OAuth provider redirects the guest's browser
// after the hosted authentication page.
const CallbackPath = "/login/google/authorized"

// Default HTTP server timeouts.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
)

// Config holds the settings for the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":5000".
	Addr string

	// BaseURL is the externally visible URL the callback redirects under.
	BaseURL string

	// SecureCookies marks session cookies as Secure; enable behind TLS.
	SecureCookies bool
}

// Server is the guest-facing HTTP surface of the scheduler.
type Server struct {
	config      Config
	manager     *session.Manager
	coordinator *session.Coordinator
	health      *HealthChecker
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	httpServer  *http.Server
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithServerLogger sets the request logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServerMetrics wires the HTTP request metrics.
func WithServerMetrics(metrics *instrumentation.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// NewServer creates the HTTP server over the given session manager and
// coordinator.
func NewServer(config Config, manager *session.Manager, coordinator *session.Coordinator, opts ...ServerOption) *Server {
	s := &Server{
		config:      config,
		manager:     manager,
		coordinator: coordinator,
		health:      NewHealthChecker(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health returns the server's health checker so the lifecycle code can flip
// readiness during shutdown.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET "+CallbackPath, s.instrument(CallbackPath, s.handleCallback))
	mux.Handle("POST /api/login", s.instrument("/api/login", s.handleLogin))
	mux.Handle("GET /api/availability", s.instrument("/api/availability", s.handleAvailability))
	mux.Handle("POST /api/schedule", s.instrument("/api/schedule", s.handleSchedule))
	mux.Handle("POST /api/logout", s.instrument("/api/logout", s.handleLogout))

	s.health.RegisterHealthEndpoints(mux)

	return mux
}

// Start runs the server until it is shut down. It blocks; run it in a
// goroutine for non-blocking operation.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("starting http server", slog.String("addr", s.config.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(path string, handler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		handler(rec, r)

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, duration)
		s.logger.Debug("request handled",
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int("status", rec.status),
			slog.Duration(logging.KeyDuration, duration))
	})
}

// sessionFromRequest resolves the guest's session from the session cookie,
// creating a fresh anonymous session when none exists.
func (s *Server) sessionFromRequest(r *http.Request) *session.Session {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}
	return s.manager.GetOrCreate(id)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

type loginRequest struct {
	ReturnTo string `json:"return_to"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
	AuthURL   string `json:"auth_url"`
}

type availabilityResponse struct {
	State     string   `json:"state"`
	Available []string `json:"available"`
}

type scheduleRequest struct {
	Slot string `json:"slot"`
}

type scheduleResponse struct {
	EventID   string   `json:"event_id"`
	Available []string `json:"available"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleLogin starts the OAuth flow: it binds a session to the guest's
// browser and hands back the provider URL to navigate to.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)

	var req loginRequest
	// The body is optional; an empty or absent one means the default
	// post-auth view.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.ReturnTo != "" && strings.HasPrefix(req.ReturnTo, "/") {
		sess.SetReturnTo(req.ReturnTo)
	}

	authURL := s.coordinator.StartAuth(sess)

	s.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, loginResponse{
		SessionID: sess.ID,
		AuthURL:   authURL,
	})
}

// handleCallback receives the provider redirect. The OAuth state parameter
// carries the session ID of the flow that started it. Any failure sends the
// browser to the error view instead of leaving the guest on a broken page.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		s.logger.Warn("provider returned an authorization error",
			logging.Operation("callback"),
			slog.String("provider_error", errCode))
		s.redirectError(w, r)
		return
	}

	sess, ok := s.manager.Get(q.Get("state"))
	if !ok {
		s.logger.Warn("callback for unknown session", logging.Operation("callback"))
		s.redirectError(w, r)
		return
	}

	if err := s.coordinator.HandleCallback(r.Context(), sess, q.Get("code")); err != nil {
		s.redirectError(w, r)
		return
	}

	target := sess.ReturnTo()
	if target == "" {
		target = "/schedule"
	}

	s.setSessionCookie(w, sess)
	http.Redirect(w, r, s.config.BaseURL+target, http.StatusFound)
}

func (s *Server) redirectError(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.config.BaseURL+"/?error=auth_failed", http.StatusFound)
}

// handleAvailability returns the session's current state and slot list.
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)
	writeJSON(w, http.StatusOK, availabilityResponse{
		State:     sess.State().String(),
		Available: sess.Available(),
	})
}

// handleSchedule books the slot named in the request body.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	eventID, err := s.coordinator.ConfirmSlot(r.Context(), sess, req.Slot)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		EventID:   eventID,
		Available: sess.Available(),
	})
}

// handleLogout revokes the grant and clears the session. It always succeeds
// from the guest's point of view; revocation failures only get logged.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)

	if err := s.coordinator.Logout(r.Context(), sess); err != nil {
		s.logger.Warn("logout completed with revocation failure",
			logging.Operation("logout"),
			logging.Err(err))
	}
	s.manager.Remove(sess.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, schedule.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, schedule.ErrSlotParse):
		status = http.StatusBadRequest
	case errors.Is(err, schedule.ErrAvailability), errors.Is(err, schedule.ErrBooking):
		status = http.StatusBadGateway
	}

	s.logger.Error("request failed",
		logging.Status(logging.StatusError),
		logging.Err(err))
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
