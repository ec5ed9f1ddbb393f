package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mlt/internal/experiment"
	"github.com/sawpanic/mlt/internal/metrics"
	"github.com/sawpanic/mlt/internal/persistence"
)

// RunFunc executes one experiment run
type RunFunc func(ctx context.Context) (*experiment.RunResult, error)

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the monitor server: health, metrics, and run control
type Server struct {
	router  *mux.Router
	server  *http.Server
	metrics *metrics.Registry
	health  persistence.RepositoryHealth
	run     RunFunc
	started time.Time

	// runs outlive the request that triggered them
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	running bool
	latest  *experiment.RunResult
	lastErr string
}

type contextKey string

const requestIDKey contextKey = "request_id"

// NewServer creates a new HTTP server instance
func NewServer(config ServerConfig, registry *metrics.Registry, run RunFunc) *Server {
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:    mux.NewRouter(),
		metrics:   registry,
		run:       run,
		started:   time.Now(),
		runCtx:    runCtx,
		cancelRun: cancel,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// SetHealth adds a database health check to /health
func (s *Server) SetHealth(h persistence.RepositoryHealth) { s.health = h }

// Handler returns the routed handler
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/runs/latest", s.handleLatestRun).Methods("GET")
	api.HandleFunc("/runs", s.handleStartRun).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs all requests with structured format
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting monitor server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels any run in flight, waits for it, then stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down monitor server")
	s.cancelRun()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.server.Shutdown(ctx)
}

// tryStart launches a run unless one is already in flight
func (s *Server) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.run(s.runCtx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		if result != nil {
			s.latest = result
		}
		s.lastErr = ""
		if err != nil {
			s.lastErr = err.Error()
			log.Error().Err(err).Msg("Triggered run failed")
		}
	}()
	return true
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
