// Package app wires configuration into the running services shared by the
// serve, ingest and migrate commands.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/deusflow/geonews/internal/cache"
	"github.com/deusflow/geonews/internal/classify"
	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/discovery"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/metadata"
	"github.com/deusflow/geonews/internal/nlp"
	"github.com/deusflow/geonews/internal/pipeline"
	"github.com/deusflow/geonews/internal/ratelimit"
	"github.com/deusflow/geonews/internal/resolver"
	"github.com/deusflow/geonews/internal/rss"
	"github.com/deusflow/geonews/internal/scheduler"
	"github.com/deusflow/geonews/internal/scraper"
	"github.com/deusflow/geonews/internal/sources"
	"github.com/deusflow/geonews/internal/storage"
	"github.com/deusflow/geonews/internal/translate"
)

type App struct {
	Config       *config.Config
	Store        storage.Store
	Memo         cache.Store
	Catalog      sources.Catalog
	Limiter      *ratelimit.AIRateLimiter
	Resolver     *resolver.Resolver
	Discovery    *discovery.Fetcher
	Scheduler    *scheduler.Scheduler
	Translator   *translate.Translator
	Orchestrator *pipeline.Orchestrator
	Analyzer     *Analyzer

	closers []func()
}

// New builds every service from cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Store: store}
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	})

	a.Memo = openMemo(ctx, cfg)
	if c, ok := a.Memo.(io.Closer); ok {
		a.closers = append(a.closers, func() { _ = c.Close() })
	}

	if a.Catalog, err = loadCatalog(cfg); err != nil {
		a.Close()
		return nil, err
	}

	a.Limiter = ratelimit.NewAIRateLimiter(0)
	assistant, closeAI := newAssistant(ctx, cfg, a.Limiter)
	a.closers = append(a.closers, closeAI)

	// A nil *llm.Assistant must not become a non-nil interface.
	var zeroShot classify.ZeroShot
	if assistant != nil {
		zeroShot = assistant
	}

	a.Scheduler, err = scheduler.New(
		a.Catalog,
		rss.NewFetcher(cfg.FeedTimeout),
		scraper.NewImageResolver(cfg.ImageLookupTimeout),
		classify.New(zeroShot),
		store,
		scheduler.Settings{
			Schedule:     cfg.PollSchedule,
			MaxPerSource: cfg.MaxPerSource,
			SourcePause:  cfg.SourcePause,
			ImageTimeout: cfg.ImageLookupTimeout,
			ArticleTTL:   cfg.ArticleTTL,
		},
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Resolver = resolver.New(metadata.New(store, a.Memo), store)
	a.Discovery = discovery.NewFetcher(store, cfg.PageSizeMax, cfg.MaxCollection)

	var secondary translate.Engine
	if cfg.LibreTranslateURL != "" {
		secondary = translate.NewLibreEngine(cfg.LibreTranslateURL, cfg.LibreTranslateAPIKey, cfg.TranslateTimeout)
	}
	a.Translator = translate.New(
		translate.NewGoogleEngine(translate.DefaultGoogleURL, cfg.TranslateTimeout),
		secondary,
		translate.NewBreaker(cfg.BreakerCooldown, nil),
		translate.WithCache(store),
		translate.WithChunkSize(cfg.TranslateChunkSize),
	)

	var geocoder nlp.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = nlp.NewNominatim(cfg.GeocoderURL, cfg.GeocodeTimeout)
	}
	providers := pipeline.DefaultProviders(geocoder)
	if assistant != nil {
		providers.Summarizer = assistant
	}
	a.Orchestrator = pipeline.New(store, a.Translator, providers)
	a.Analyzer = NewAnalyzer(store, scraper.NewPageExtractor(cfg.PageExtractTimeout), a.Orchestrator)

	logger.Info("application ready",
		"sources", len(a.Catalog),
		"postgres", cfg.DatabaseURL != "",
		"redis", cfg.RedisAddr != "",
		"ai", assistant != nil,
		"libretranslate", secondary != nil)
	return a, nil
}

func loadCatalog(cfg *config.Config) (sources.Catalog, error) {
	if cfg.FeedsConfigPath == "" {
		return sources.DefaultCatalog(), nil
	}
	cat, err := sources.LoadCatalog(cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load feed catalog: %w", err)
	}
	return cat, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
