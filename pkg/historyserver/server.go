// Package historyserver serves a history-mode single-page application from
// a route table, with a JSON API and a live navigation WebSocket.
package historyserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/consoleroutes/pkg/middleware"
	"github.com/vango-dev/consoleroutes/pkg/router"
)

const (
	// DefaultMetricsPath is where metrics are mounted when enabled.
	DefaultMetricsPath = "/metrics"

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 5 * time.Second

	maxMessageSize = 64 << 10
	writeTimeout   = 10 * time.Second
)

// Server serves the console.
type Server struct {
	table  *router.Table
	logger *slog.Logger

	shell       string
	static      string
	metrics     *middleware.Metrics
	gatherer    prometheus.Gatherer
	metricsPath string
	tracing     bool
	traceOpts   []middleware.OTelOption
	guards      []router.Guard
	checkOrigin func(*http.Request) bool
	readTimeout time.Duration

	hub      *hub
	upgrader websocket.Upgrader
	mux      chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithShell sets the SPA entry document served for matched paths.
func WithShell(path string) Option {
	return func(s *Server) {
		s.shell = path
	}
}

// WithStatic serves dir under /static/.
func WithStatic(dir string) Option {
	return func(s *Server) {
		s.static = dir
	}
}

// WithMetrics records navigations into m and mounts gatherer at path.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer, path string) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
		if path != "" {
			s.metricsPath = path
		}
	}
}

// WithTracing traces WebSocket navigations.
func WithTracing(opts ...middleware.OTelOption) Option {
	return func(s *Server) {
		s.tracing = true
		s.traceOpts = opts
	}
}

// WithGuards installs guards on every connection's navigator.
func WithGuards(guards ...router.Guard) Option {
	return func(s *Server) {
		s.guards = append(s.guards, guards...)
	}
}

// WithCheckOrigin sets the WebSocket origin check. The default is the
// gorilla same-origin check.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.checkOrigin = fn
	}
}

// AllowOrigins returns an origin check that accepts same-origin requests,
// requests without an Origin header and any of origins
// ("https://console.example.com").
func AllowOrigins(origins ...string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// WithReadTimeout closes navigation connections idle for longer than d.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// New creates a server over table.
func New(table *router.Table, opts ...Option) *Server {
	s := &Server{
		table:       table,
		logger:      slog.Default(),
		metricsPath: DefaultMetricsPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub()
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	if s.metrics != nil {
		s.metrics.SetRecords(table.Len())
	}
	s.mux = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/routes", s.handleRoutes)
		r.Get("/resolve", s.handleResolve)
		r.Get("/url/{name}", s.handleURL)
		r.Post("/reset", s.handleReset)
	})
	r.Get("/ws/navigate", s.handleNavigate)

	if s.gatherer != nil {
		r.Handle(s.metricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.static != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.static))))
	}
	r.NotFound(s.handleFallback)
	r.MethodNotAllowed(s.handleFallback)
	return r
}

// requestLogger logs each request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Table returns the served table.
func (s *Server) Table() *router.Table {
	return s.table
}

// Reset empties the route table and tells connected clients.
func (s *Server) Reset() {
	s.table.Reset()
	if s.metrics != nil {
		s.metrics.RecordReset()
	}
	s.hub.broadcast(event{Type: eventReset, Records: 0})
}

// TableChanged tells connected clients that the table was replaced. Pass
// it to manifest.Watcher.OnReload.
func (s *Server) TableChanged(err error) {
	if err != nil {
		return
	}
	n := s.table.Len()
	if s.metrics != nil {
		s.metrics.SetRecords(n)
	}
	s.hub.broadcast(event{Type: eventRoutes, Records: n})
}

// Connections returns the number of open navigation connections.
func (s *Server) Connections() int {
	return s.hub.count()
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("history server listening", "addr", addr, "records", s.table.Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
