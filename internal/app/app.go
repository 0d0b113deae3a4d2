// Package app wires configuration into the running components.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/finsight/internal/api"
	"github.com/newthinker/finsight/internal/api/session"
	"github.com/newthinker/finsight/internal/config"
	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/insight"
	"github.com/newthinker/finsight/internal/llm/factory"
	"github.com/newthinker/finsight/internal/logger"
	"github.com/newthinker/finsight/internal/market"
	"github.com/newthinker/finsight/internal/market/yahoo"
	"github.com/newthinker/finsight/internal/metrics"
	"github.com/newthinker/finsight/internal/portfolio"
	"github.com/newthinker/finsight/internal/report"
	"github.com/newthinker/finsight/internal/storage/archive"
	"github.com/newthinker/finsight/internal/storage/sqlite"
	"go.uber.org/zap"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Options overrides pieces of the assembled application, mainly for tests.
type Options struct {
	Source  market.Source      // defaults to Yahoo Finance
	Version string
}

// App is the main application orchestrator
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	version string

	store     *sqlite.Store
	metrics   *metrics.Registry
	fetcher   *market.Fetcher
	generator *insight.Generator
	insights  *insight.Store
	portfolio *portfolio.Service
	reports   *report.Renderer
	archiver  *archive.Archiver
	signer    *session.Signer

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// New builds every component from cfg. A missing LLM credential is not an
// error: insight generation degrades to its heuristic output.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()

	store, err := sqlite.Open(sqlite.PathFromURL(cfg.Storage.DatabaseURL), log)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}

	source := opts.Source
	if source == nil {
		source = yahoo.New(yahoo.Options{
			Timeout:      cfg.Market.Timeout,
			HistoryRange: cfg.Market.HistoryRange,
		}, log)
	}

	backend, err := archive.New(cfg.Storage.Archive)
	if err != nil {
		store.Close()
		return nil, err
	}

	if cfg.Server.SessionSecret == config.DefaultSessionSecret {
		log.Warn("using the default session secret; set SECRET_KEY in production")
	}

	a := &App{
		cfg:       cfg,
		logger:    log,
		version:   opts.Version,
		store:     store,
		metrics:   reg,
		fetcher:   market.NewFetcher(source, log, reg),
		insights:  insight.NewStore(cfg.Insight.StoreSize, cfg.Insight.StoreTTL),
		portfolio: portfolio.NewService(store, log, reg),
		reports:   report.NewRenderer(),
		archiver:  archive.NewArchiver(backend, log, reg),
		signer:    session.NewSigner(cfg.Server.SessionSecret, cfg.Insight.StoreTTL, cfg.Server.Mode == "release"),
	}
	a.generator = insight.NewGenerator(log, reg, cfg.Insight.Timeout, a.strategies(ctx)...)

	return a, nil
}

// strategies assembles the insight chain: pipeline, then completion. The
// generator appends the heuristic itself.
func (a *App) strategies(ctx context.Context) []insight.Strategy {
	var out []insight.Strategy
	llmCfg := a.cfg.LLM

	if llmCfg.Pipeline.Enabled && llmCfg.OpenAI.APIKey != "" {
		modelName := llmCfg.Pipeline.Model
		if modelName == "" {
			modelName = llmCfg.OpenAI.Model
		}
		chatModel, err := insight.NewOpenAIChatModel(ctx, insight.PipelineModelConfig{
			APIKey:      llmCfg.OpenAI.APIKey,
			Model:       modelName,
			BaseURL:     llmCfg.OpenAI.BaseURL,
			MaxTokens:   a.cfg.Insight.MaxTokens,
			Temperature: a.cfg.Insight.Temperature,
		})
		if err == nil {
			var pipeline *insight.Pipeline
			pipeline, err = insight.NewPipeline(ctx, chatModel)
			if err == nil {
				out = append(out, pipeline)
			}
		}
		if err != nil {
			a.logger.Warn("insight pipeline disabled", logger.ErrorDetail(err))
		}
	}

	if llmCfg.HasCredential() {
		provider, err := factory.New(llmCfg)
		if err != nil {
			a.logger.Warn("completion provider disabled", logger.ErrorDetail(err))
		} else {
			out = append(out, insight.NewCompletion(provider, true, a.cfg.Insight.MaxTokens, a.cfg.Insight.Temperature))
		}
	}

	names := make([]string, 0, len(out))
	for _, s := range out {
		names = append(names, s.Name())
	}
	a.logger.Info("insight strategies configured", zap.Strings("strategies", names))
	return out
}

// Server builds the HTTP server over the app's components.
func (a *App) Server() (*api.Server, error) {
	return api.NewServer(api.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		APIKey:      a.cfg.Server.APIKey,
		Version:     a.version,
		MetricsPath: a.metricsPath(),
	}, api.Dependencies{
		Store:          a.store,
		Portfolio:      a.portfolio,
		Snapshots:      a.fetcher,
		Prices:         a.fetcher.Price,
		Generator:      a.generator,
		Insights:       a.insights,
		Signer:         a.signer,
		Reports:        a.reports,
		Archiver:       a.archiver,
		Metrics:        a.metrics,
		DefaultTickers: a.cfg.Market.DefaultTickers,
	}, a.logger)
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}

// Start serves HTTP until ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	srv, err := a.Server()
	if err != nil {
		return err
	}

	a.logger.Info("FinSight starting",
		zap.String("version", a.version),
		zap.Int("port", a.cfg.Server.Port),
		zap.Bool("archive", a.archiver.Enabled()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("FinSight shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// Stop stops a running server.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Analyze runs the analyze flow for one ticker outside HTTP: snapshot,
// insight and history entry.
func (a *App) Analyze(ctx context.Context, ticker string) (core.Snapshot, insight.Result, error) {
	ticker = core.NormalizeTicker(ticker)
	if ticker == "" {
		return core.Snapshot{}, insight.Result{}, core.ErrTickerRequired
	}

	snap := a.fetcher.Snapshot(ctx, ticker)
	if snap.IsError() {
		return snap, insight.Result{}, core.WrapError(core.ErrNoData,
			fmt.Errorf("no data found for ticker: %s", ticker))
	}
	snap.Ticker = ticker

	result := a.generator.Generate(ctx, insight.Request{Ticker: ticker, Snapshot: snap})
	if err := a.store.AppendHistory(ctx, ticker, result.Text); err != nil {
		a.logger.Warn("recording analysis history failed", zap.String("ticker", ticker), logger.ErrorDetail(err))
	}
	return snap, result, nil
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"running":  a.running,
		"insights": a.insights.Len(),
		"archive":  a.archiver.Enabled(),
		"version":  a.version,
	}
}

// Close releases the database.
func (a *App) Close() error {
	return a.store.Close()
}
