// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	apihandler "github.com/newthinker/finsight/internal/api/handler/api"
	"github.com/newthinker/finsight/internal/api/handler/web"
	"github.com/newthinker/finsight/internal/api/middleware"
	"github.com/newthinker/finsight/internal/api/session"
	"github.com/newthinker/finsight/internal/insight"
	"github.com/newthinker/finsight/internal/metrics"
	"github.com/newthinker/finsight/internal/portfolio"
	"github.com/newthinker/finsight/internal/report"
	"github.com/newthinker/finsight/internal/storage/archive"
	"github.com/newthinker/finsight/internal/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for FinSight
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     *chi.Mux
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	TemplatesDir   string
	APIKey         string
	Version        string
	MetricsPath    string // empty disables /metrics
	AllowedOrigins []string
}

// Dependencies holds the components behind the routes.
type Dependencies struct {
	Store          *sqlite.Store
	Portfolio      *portfolio.Service
	Snapshots      apihandler.SnapshotFetcher
	Prices         portfolio.PriceLookup
	Generator      apihandler.InsightGenerator
	Insights       *insight.Store
	Signer         *session.Signer
	Reports        *report.Renderer
	Archiver       *archive.Archiver
	Metrics        *metrics.Registry
	DefaultTickers []string
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: router,
			// LLM attempts may run close to their own timeout.
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		router: router,
	}

	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	r := s.router

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(metrics.LoggingMiddleware(s.logger))
	if deps.Metrics != nil {
		r.Use(metrics.HTTPMiddleware(deps.Metrics))
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.APIKeyHeader, metrics.RequestIDHeader},
		ExposedHeaders: []string{metrics.RequestIDHeader},
		MaxAge:         300,
	}))

	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, web.Dependencies{
		Snapshots:      deps.Snapshots,
		DefaultTickers: deps.DefaultTickers,
		Portfolio:      optionalValuator(deps.Portfolio),
		Prices:         deps.Prices,
		History:        optionalHistory(deps.Store),
		HistoryLimit:   sqlite.DefaultHistoryLimit,
		Insights:       optionalInsights(deps.Insights),
		Cookie:         optionalCookieReader(deps.Signer),
		Logger:         s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}

	r.Get("/", webHandler.Index)
	r.Get("/portfolio", webHandler.Portfolio)
	r.Get("/history", webHandler.History)
	r.Get("/insight_summary", webHandler.InsightSummary)
	r.NotFound(webHandler.NotFound)

	if deps.Portfolio != nil && deps.Reports != nil {
		var recorder apihandler.ReportRecorder
		if deps.Metrics != nil {
			recorder = deps.Metrics
		}
		reports := apihandler.NewReportHandler(deps.Portfolio, deps.Prices, deps.Reports,
			deps.Archiver, recorder, report.Filename, s.logger)
		r.Get("/report/portfolio.pdf", reports.Portfolio)
	}

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	// JSON API
	var pinger apihandler.Pinger
	if deps.Store != nil {
		pinger = deps.Store
	}
	health := apihandler.NewHealthHandler(pinger, cfg.Version)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.APIKey))

			if deps.Snapshots != nil && deps.Generator != nil && deps.Insights != nil {
				analyze := apihandler.NewAnalyzeHandler(deps.Snapshots, deps.Generator,
					optionalHistoryWriter(deps.Store), deps.Insights, optionalCookieWriter(deps.Signer), s.logger)
				r.Post("/analyze", analyze.Analyze)
			}

			if deps.Portfolio != nil {
				holdings := apihandler.NewPortfolioHandler(deps.Portfolio)
				r.Get("/portfolio", holdings.List)
				r.Post("/portfolio", holdings.Add)
				r.Post("/portfolio/delete", holdings.Delete)
			}
		})
	})

	return nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// The helpers below keep typed nil pointers from becoming non-nil interfaces.

func optionalValuator(p *portfolio.Service) web.PortfolioValuator {
	if p == nil {
		return nil
	}
	return p
}

func optionalHistory(s *sqlite.Store) web.HistoryReader {
	if s == nil {
		return nil
	}
	return s
}

func optionalHistoryWriter(s *sqlite.Store) apihandler.HistoryWriter {
	if s == nil {
		return nil
	}
	return s
}

func optionalInsights(s *insight.Store) web.InsightLookup {
	if s == nil {
		return nil
	}
	return s
}

func optionalCookieReader(s *session.Signer) web.InsightCookie {
	if s == nil {
		return nil
	}
	return s
}

func optionalCookieWriter(s *session.Signer) apihandler.InsightCookie {
	if s == nil {
		return nil
	}
	return s
}
