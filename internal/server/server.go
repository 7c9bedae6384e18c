// Package server exposes the GPA computation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/KaramelBytes/gpacalc/internal/calc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures the HTTP surface.
type Options struct {
	// MaxUploadBytes caps the request body of POST /api/calc. Zero means 10 MiB.
	MaxUploadBytes int64
	// UploadDir receives staged uploads. Empty means os.TempDir().
	UploadDir string
	// AllowedOrigins for CORS. Empty or "*" allows any origin.
	AllowedOrigins []string
	// RateLimitRPS limits POST /api/calc when positive.
	RateLimitRPS   float64
	RateLimitBurst int
	// Registry collects the server metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// Timeouts bounds the underlying http.Server.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration
}

const defaultMaxUpload = 10 << 20

// Server routes requests to the calculator.
type Server struct {
	router  chi.Router
	opts    Options
	calc    calc.Options
	log     *zap.Logger
	metrics *metrics
}

// New builds a Server. A nil logger discards logs.
func New(opts Options, calcOpts calc.Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		opts:    opts,
		calc:    calcOpts,
		log:     log,
		metrics: newMetrics(opts.Registry),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log, s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.opts.AllowedOrigins))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		if s.opts.RateLimitRPS > 0 {
			r.Use(rateLimit(s.opts.RateLimitRPS, s.opts.RateLimitBurst, s.log))
		}
		r.Post("/calc", s.handleCalc)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on addr and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string, t Timeouts) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, t)
}

// Serve is Run on an existing listener. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener, t Timeouts) error {
	if t.Shutdown <= 0 {
		t.Shutdown = 10 * time.Second
	}
	srv := &http.Server{
		Handler:           s,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      t.Write,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), t.Shutdown)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
