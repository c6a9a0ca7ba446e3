package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/audit"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/cache"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/config"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/data"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/generation"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/handlers"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/health"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/ocr"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/pipeline"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/resolver"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/scheduler"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/telemetry"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/validation"
)

// App holds every component built from a Config.
type App struct {
	Config    *config.Config
	Store     *data.DataContainer
	Scheduler *scheduler.Scheduler
	Generator interfaces.Generator
	Analyzer  *pipeline.Orchestrator
	Handler   *handlers.HTTPHandlerImpl

	closers []func(context.Context) error
}

// NewApp wires the application. The scheduler is created but not started,
// so no reference data is loaded yet.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg, Store: data.NewDataContainer()}

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer(nil)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		app.closers = append(app.closers, shutdown)
	}

	validator := validation.NewDataValidator()
	app.Scheduler = scheduler.NewScheduler(
		app.Store,
		refdata.NewLoader(cfg.DrugDBPath, cfg.InteractionsDBPath),
		validator,
		cfg.ReloadSchedule,
	)

	checks := make(map[string]health.Check)
	generator, err := app.buildGenerator(ctx, checks)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.Generator = generator

	var fallback interfaces.Generator
	if cfg.GenerationFallback == config.FallbackTemplate && generator.Name() != generation.ProviderTemplate {
		fallback = generation.NewTemplateGenerator()
	}

	var recorder interfaces.AuditRecorder
	if cfg.AuditDBPath != "" {
		store, err := audit.New(cfg.AuditDBPath)
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		recorder = store
		app.closers = append(app.closers, func(context.Context) error { return store.Close() })
	}

	extractor := ocr.NewFallbackExtractor(
		ocr.NewCommandExtractor(cfg.OCRCommand, cfg.ImageDir),
		ocr.NewSidecarExtractor(cfg.ImageDir),
	)

	app.Analyzer, err = pipeline.New(pipeline.Options{
		Store:     app.Store,
		Threshold: cfg.SimilarityThreshold,
		Extractor: extractor,
		Generator: generator,
		Fallback:  fallback,
		Audit:     recorder,
		OnTransition: func(id string, from, to pipeline.State) {
			logging.Debug("Analysis state changed", "analysis_id", id, "from", from.String(), "to", to.String())
		},
	})
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	app.Handler = handlers.NewHTTPHandler(handlers.Options{
		Analyzer:  app.Analyzer,
		Store:     app.Store,
		Resolvers: resolver.NewProvider(app.Store, cfg.SimilarityThreshold),
		Validator: validator,
		Health: health.NewHealthChecker(health.Options{
			Store:      app.Store,
			Generator:  generator,
			NextReload: app.Scheduler.NextReload,
			Checks:     checks,
		}),
		Generator:     generator,
		Audit:         recorder,
		ImageDir:      cfg.ImageDir,
		MaxUploadSize: cfg.MaxUploadSize,
	})

	return app, nil
}

// buildGenerator stacks the provider adapter, the rate limiter and the
// explanation cache, outermost last. Dependency checks for /health are
// added to checks.
func (a *App) buildGenerator(ctx context.Context, checks map[string]health.Check) (interfaces.Generator, error) {
	cfg := a.Config
	generator, err := generation.NewGenerator(generation.Config{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		BaseURL:   cfg.LLMBaseURL,
		Timeout:   cfg.LLMTimeout,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	if cfg.LLMRate > 0 {
		generator = generation.NewRateLimitedGenerator(generator, cfg.LLMRate, 1)
	}

	if cfg.CacheTTL <= 0 || generator.Name() == generation.ProviderNone {
		return generator, nil
	}

	var explanations interfaces.Cache = cache.NewMemoryCache(cfg.CacheTTL, 2*cfg.CacheTTL)
	if cfg.RedisURL != "" {
		client, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			// The memory layer still works without redis
			logging.Warn("Redis unavailable, caching explanations in memory only", "error", err)
		} else {
			shared := cache.NewRedisCache(client, "", cfg.CacheTTL)
			explanations = cache.NewLayeredCache(explanations, shared)
			checks["redis"] = shared.Ping
			a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		}
	}

	_, layered := checks["redis"]
	logging.Info("Generator ready", "provider", generator.Name(), "cache_ttl", cfg.CacheTTL.String(), "redis", layered)
	return generation.NewCachedGenerator(generator, cfg.LLMModel, explanations), nil
}

// Close releases resources in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
