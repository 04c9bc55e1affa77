package cli

import (
	"fmt"
	"net/http"
	"time"

	"rental-tracker/cache"
	"rental-tracker/config"
	"rental-tracker/scraper"
	"rental-tracker/services"
	"rental-tracker/storage"
	"rental-tracker/utils"
)

const robotsUserAgent = "rental-tracker"

// app holds what one command invocation needs.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	store   storage.ListingStore
	cache   *cache.FactCache
	tracker *services.Tracker
}

func newApp() (*app, error) {
	cfg := config.Load()
	logger := utils.NewLogger()
	if verbose {
		logger.SetDebug(true)
	}
	backend := cfg.StoreBackend
	if storeBackend != "" {
		backend = storeBackend
	}

	hasher := utils.NewHasher(cfg.HashLength)
	fc, err := cache.Open(cfg.CacheDBPath, hasher, logger)
	if err != nil {
		logger.Warn("[app] Fact cache unavailable, fields are unprotected for this run: %v", err)
		fc = cache.Unavailable(hasher, logger)
	}

	store, err := openStore(cfg, backend)
	if err != nil {
		_ = fc.Close()
		return nil, err
	}
	logger.Debug("[app] Store backend: %s", backend)

	registry := buildRegistry(cfg, fc, logger)
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		cache:   fc,
		tracker: services.NewTracker(store, registry, fc, cfg.RateLimit(), logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("[app] close store: %v", err)
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("[app] close cache: %v", err)
	}
}

func openStore(cfg *config.Config, backend string) (storage.ListingStore, error) {
	switch backend {
	case "xlsx":
		s, err := storage.NewXLSXStore(cfg.SpreadsheetPath, cfg.SheetName)
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet: %w", err)
		}
		return s, nil
	case "postgres":
		s, err := storage.NewPostgresStore(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		return s, nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (want xlsx, postgres or memory)", backend)
	}
}

// buildRegistry wires the site sources to the configured page loader. The
// generic extractor goes last so it only sees URLs no site claims.
func buildRegistry(cfg *config.Config, fc *cache.FactCache, logger *utils.Logger) *scraper.Registry {
	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		Budget:      time.Duration(cfg.FetchBudgetSec) * time.Second,
		Logger:      logger,
	}
	timeout := time.Duration(cfg.FetchTimeoutSec) * time.Second

	var loader scraper.PageLoader
	switch cfg.FetchMode {
	case "browser":
		loader = scraper.NewBrowserLoader(cfg.ChromeBin, cfg.UserAgent, timeout, fc, cfg.PageCacheTTL(), retry, logger)
	default:
		client := &http.Client{Timeout: timeout}
		var robots *scraper.RobotsChecker
		if cfg.RespectRobots {
			ua := cfg.UserAgent
			if ua == "" {
				ua = robotsUserAgent
			}
			robots = scraper.NewRobotsChecker(ua, client)
		}
		loader = scraper.NewHTTPLoader(scraper.HTTPLoaderConfig{
			Client:         client,
			Cache:          fc,
			CacheTTL:       cfg.PageCacheTTL(),
			Robots:         robots,
			Retry:          retry,
			DomainInterval: cfg.RateLimit(),
			UserAgent:      cfg.UserAgent,
			Logger:         logger,
		})
	}

	registry := scraper.NewRegistry(logger, scraper.DefaultSites(loader)...)
	if cfg.GenericFallback {
		registry.Register(scraper.NewGenericSource(loader))
	}
	return registry
}
