// Package server composes the proxy process: the remote client, the relay
// with its REST and Connect surfaces, health and Prometheus endpoints.
//
// The server initializes from configuration via New. Functional options
// replace config-created subsystems in tests.
//
//	srv, err := server.New(&cfg)
//	err = srv.Run(ctx)
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailored-agentic-units/shopassist/observability"
	"github.com/tailored-agentic-units/shopassist/proxy"
	"github.com/tailored-agentic-units/shopassist/remote"
)

// Operational routes.
const (
	PathHealth  = "/health"
	PathMetrics = "/metrics"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Server event types.
const (
	EventListening observability.EventType = "server.listening"
	EventShutdown  observability.EventType = "server.shutdown"
)

// Option configures a Server after config-driven initialization.
type Option func(*Server)

// WithUpstream overrides the config-created remote client.
func WithUpstream(u proxy.Upstream) Option {
	return func(s *Server) { s.upstream = u }
}

// WithObserver overrides the observer named by Config.Log.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithRegistry overrides the private Prometheus registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// Server serves the proxy over HTTP.
type Server struct {
	addr     string
	prefix   string
	upstream proxy.Upstream
	observer observability.Observer
	registry *prometheus.Registry
	proxy    *proxy.Proxy
	handler  http.Handler
}

// New creates a Server from configuration.
func New(cfg *Config, opts ...Option) (*Server, error) {
	upstream, err := remote.New(&cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	observer, err := observability.GetObserver(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	s := &Server{
		addr:     cfg.Addr,
		prefix:   cfg.Prefix,
		upstream: upstream,
		observer: observer,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	s.observer = observability.NewMultiObserver(s.observer, observability.NewMetricsObserver(s.registry))

	s.proxy = proxy.New(s.upstream,
		proxy.WithObserver(s.observer),
		proxy.WithConfig(cfg.Proxy),
	)
	s.handler = s.routes()

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(proxy.MethodNotAllowed)

	r.HandleFunc(PathHealth, handleHealth).Methods(http.MethodGet)
	r.Handle(PathMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.proxy.Register(r.PathPrefix(s.prefix).Subrouter())

	path, connectHandler := s.proxy.ConnectHandler()
	r.PathPrefix(path).Handler(connectHandler)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Run listens on the configured address and serves until ctx is cancelled,
// then drains in-flight requests for up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 3 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		observability.Emit(ctx, s.observer, EventListening, observability.LevelInfo, "server.Serve", map[string]any{
			"addr":   ln.Addr().String(),
			"prefix": s.prefix,
		})
		errc <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	observability.Emit(shutdownCtx, s.observer, EventShutdown, observability.LevelInfo, "server.Serve", nil)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
