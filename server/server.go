package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/hupe1980/agentgate/config"
	"github.com/hupe1980/agentgate/eventlog"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/registry"
	"github.com/hupe1980/agentgate/session"
	"github.com/hupe1980/agentgate/stream"
)

// Options holds overrides passed to New().
type Options struct {
	Logger logging.Logger
	// HealthCheck reports backend reachability for the health endpoint. A nil
	// check reports "disconnected".
	HealthCheck func(ctx context.Context) error
}

// Server wires the gateway services behind the HTTP surface.
type Server struct {
	cfg          *config.Config
	registry     *registry.Registry
	sessions     *session.Service
	events       *eventlog.Service
	orchestrator *stream.Orchestrator
	healthCheck  func(ctx context.Context) error
	logger       logging.Logger
	router       *mux.Router
}

// New constructs a Server over the given roster registry.
func New(cfg *config.Config, reg *registry.Registry, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		cfg:      cfg,
		registry: reg,
		sessions: session.NewService(reg, func(o *session.Options) { o.Logger = opts.Logger }),
		events: eventlog.NewService(reg, func(o *eventlog.Options) {
			o.Logger = opts.Logger
			o.PollInterval = cfg.Streaming.EventPollInterval
		}),
		orchestrator: stream.NewOrchestrator(func(o *stream.Options) { o.Logger = opts.Logger }),
		healthCheck:  opts.HealthCheck,
		logger:       opts.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/agents", s.handleListAgents).Methods(http.MethodGet)
	api.HandleFunc("/agents/{agent_id}/query", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/agents/{agent_id}/stream_query", s.handleStreamQuery).Methods(http.MethodPost)
	api.HandleFunc("/agents/{agent_id}/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/agents/{agent_id}/sessions", s.handleListAllSessions).Methods(http.MethodGet)

	sessions := api.PathPrefix("/agents/{agent_id}/users/{user_id}/sessions").Subrouter()
	sessions.HandleFunc("", s.handleCreateSession).Methods(http.MethodPost)
	sessions.HandleFunc("", s.handleListSessions).Methods(http.MethodGet)
	sessions.HandleFunc("/{session_id}", s.handleCreateSessionWithID).Methods(http.MethodPost)
	sessions.HandleFunc("/{session_id}", s.handleGetSession).Methods(http.MethodGet)
	sessions.HandleFunc("/{session_id}", s.handleDeleteSession).Methods(http.MethodDelete)
	sessions.HandleFunc("/{session_id}/state", s.handleUpdateState).Methods(http.MethodPatch)
	sessions.HandleFunc("/{session_id}/stats", s.handleSessionStats).Methods(http.MethodGet)
	sessions.HandleFunc("/{session_id}/conversation", s.handleConversation).Methods(http.MethodGet)

	// The stream route must register before the {event_id} route so "stream"
	// is not captured as an event id.
	sessions.HandleFunc("/{session_id}/events/stream", s.handleStreamEvents).Methods(http.MethodGet)
	sessions.HandleFunc("/{session_id}/events", s.handleAppendEvent).Methods(http.MethodPost)
	sessions.HandleFunc("/{session_id}/events", s.handleListEvents).Methods(http.MethodGet)
	sessions.HandleFunc("/{session_id}/events/{event_id}", s.handleGetEvent).Methods(http.MethodGet)
	sessions.HandleFunc("/{session_id}/events/{event_id}", s.handleDeleteEvent).Methods(http.MethodDelete)

	return r
}

// Handler returns the fully wrapped http.Handler (CORS + request logging).
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return s.logRequests(c.Handler(s.router))
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

// statusRecorder captures the response status while keeping http.Flusher
// available for SSE handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
