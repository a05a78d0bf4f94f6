// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/assets"
	"github.com/dvf-map/scrape/internal/config"
	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/internal/engine/browser"
	"github.com/dvf-map/scrape/internal/engine/proxyfetch"
	"github.com/dvf-map/scrape/internal/extract"
	"github.com/dvf-map/scrape/internal/perf"
	"github.com/dvf-map/scrape/internal/proxy"
	"github.com/dvf-map/scrape/internal/ratelimit"
	"github.com/dvf-map/scrape/internal/session"
	"github.com/dvf-map/scrape/internal/store"
	"github.com/dvf-map/scrape/pkg/models"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config       *config.Config
	Logger       *zerolog.Logger
	ProxyPool    *proxy.Pool
	RateLimiter  ratelimit.RateLimiter
	Assets       *assets.Fetcher
	Acquirer     engine.Acquirer
	Extractor    extract.Extractor
	Store        *store.Store
	Recorder     *perf.Recorder
	Orchestrator *session.Orchestrator
	startTime    time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// The acquisition and extraction strategies are selected by cfg.Source; the
// proxy pool, rate limiter, and asset fetcher are shared across strategies.
// Persistence is optional: with no database configured the pipeline still
// runs and keeps its artifacts on disk.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := initLogger(cfg)

	pool := proxy.NewPool(cfg.ForwardProxies)
	logger.Debug().Int("proxies", pool.Size()).Msg("Proxy pool initialized")

	limiter := ratelimit.NewHostLimiter(cfg.ImageRPS, cfg.ImageBurst)
	fetcher := assets.New(pool, cfg.AssetTimeout, cfg.UserAgent, refererFor(cfg.Source))

	acquirer, extractor, err := buildStrategy(cfg, pool)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("source", string(cfg.Source)).
		Str("strategy", acquirer.Name()).
		Str("extractor", extractor.Name()).
		Msg("Pipeline strategy selected")

	var st *store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := st.CreateSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
	} else {
		logger.Warn().Msg("No database configured, listings will not be persisted")
	}

	recorder := perf.NewRecorder()

	var persister session.Persister
	if st != nil {
		persister = st
	}
	orchestrator := session.New(acquirer, extractor, fetcher, limiter, persister,
		recorder, cfg.OutputDir, pool.Size())

	app := &Application{
		Config:       cfg,
		Logger:       &logger,
		ProxyPool:    pool,
		RateLimiter:  limiter,
		Assets:       fetcher,
		Acquirer:     acquirer,
		Extractor:    extractor,
		Store:        st,
		Recorder:     recorder,
		Orchestrator: orchestrator,
		startTime:    time.Now(),
	}

	logger.Info().Msg("Application initialized successfully")
	return app, nil
}

// initLogger configures the global zerolog logger from config.
func initLogger(cfg *config.Config) zerolog.Logger {
	logLevel := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")
	return logger
}

// buildStrategy pairs the acquisition strategy with its extractor.
func buildStrategy(cfg *config.Config, pool *proxy.Pool) (engine.Acquirer, extract.Extractor, error) {
	switch cfg.Source {
	case models.SourceLeboncoin:
		// Browser-rendered pages expose numeric surface attributes.
		return browser.New(cfg), extract.NewNextDataExtractor(true), nil
	case models.SourceLeboncoinProxy:
		// The proxy service returns the raw labels ("45 m²") untouched.
		return proxyfetch.NewAPI(cfg), extract.NewNextDataExtractor(false), nil
	case models.SourceSeloger:
		ex := extract.NewSelogerExtractor()
		if cfg.DebugDumpHTML {
			ex.DebugDumpDir = cfg.OutputDir
		}
		return proxyfetch.NewDirect(cfg, pool), ex, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// refererFor returns the Referer header value used for asset downloads.
func refererFor(source models.Source) string {
	if source == models.SourceSeloger {
		return "https://www.seloger.com/"
	}
	return "https://www.leboncoin.fr/"
}

// Close gracefully shuts down the application and all its resources.
// Any errors during shutdown are logged but do not prevent other steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Info().Msg("Shutting down application")

	if a.Store != nil {
		a.Store.Close()
	}

	uptime := time.Since(a.startTime)
	a.Logger.Info().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
