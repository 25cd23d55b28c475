package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagewiki/app/internal/http/templates"
	"pagewiki/app/internal/markdown"
	"pagewiki/app/internal/wiki"
)

// Options configures the HTTP server wiring.
type Options struct {
	WikiService wiki.Service
	Markdown    *markdown.Renderer
	Templates   *templates.Renderer
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	// Metrics receives the request metrics and is served on /metrics. Nil disables both.
	Metrics     *prometheus.Registry
	RateLimiter RateLimiterSettings
	Now         func() time.Time
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and the view templates.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	wiki        wiki.Service
	markdown    *markdown.Renderer
	templates   *templates.Renderer
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	registry    *prometheus.Registry
	metrics     *requestMetrics
	rateLimiter *RateLimiter
	now         func() time.Time
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.WikiService == nil {
		return nil, eris.New("wiki service is required")
	}
	if opts.Markdown == nil {
		return nil, eris.New("markdown renderer is required")
	}
	if opts.Templates == nil {
		return nil, eris.New("template renderer is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("pagewiki", "1.0.0")

	api := humago.New(mux, config)

	srv := &Server{
		api:       api,
		mux:       mux,
		wiki:      opts.WikiService,
		markdown:  opts.Markdown,
		templates: opts.Templates,
		logger:    opts.Logger,
		sentry:    opts.SentryHub,
		db:        opts.Database,
		registry:  opts.Metrics,
		now:       opts.Now,
	}
	if srv.now == nil {
		srv.now = time.Now
	}

	if opts.Metrics != nil {
		metrics, err := newRequestMetrics(opts.Metrics)
		if err != nil {
			return nil, err
		}
		srv.metrics = metrics
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	srv.rateLimiter = NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL)

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
		s.metricsMiddleware(),
		s.exactRootMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerStaticRoute()
	if s.registry != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}

	s.registerIndexRoute()
	s.registerWikiRoute()
	s.registerSaveRoute()
	s.registerCreateRoute()
	s.registerDeleteRoute()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
