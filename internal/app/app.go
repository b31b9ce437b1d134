// Package app assembles the extraction pipeline from configuration. It is the
// single composition root shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/config"
	"github.com/productsheet/backend/internal/domain"
	"github.com/productsheet/backend/internal/infrastructure/cache"
	"github.com/productsheet/backend/internal/infrastructure/diagnostics"
	"github.com/productsheet/backend/internal/infrastructure/ollama"
	"github.com/productsheet/backend/internal/infrastructure/pdftext"
	"github.com/productsheet/backend/internal/infrastructure/render"
	"github.com/productsheet/backend/internal/usecase"
)

// App holds the wired components
type App struct {
	Config      *config.Config
	Client      *ollama.Client
	Service     *usecase.ExtractionService
	Diagnostics *diagnostics.FileStore
	Sheets      *render.Writer

	memoryCache *cache.MemoryCache
}

// New builds every component. Nothing here contacts the model service.
func New(cfg *config.Config) (*App, error) {
	client := ollama.NewClient(cfg.Model.URL, ollama.Options{
		Timeout:           cfg.Model.Timeout,
		RequestsPerSecond: cfg.Model.RequestsPerSecond,
	})
	if cfg.Server.Environment == "development" {
		client.SetDebug(true)
	}

	recoverer, err := usecase.NewResponseRecoverer()
	if err != nil {
		return nil, fmt.Errorf("build response recoverer: %w", err)
	}

	validator := usecase.NewGroundingValidator(usecase.GroundingConfig{
		MinLength:         cfg.Extraction.MinGroundLength,
		Ratio:             cfg.Extraction.GroundingRatio,
		SuspiciousPhrases: cfg.Extraction.SuspiciousPhrases,
		ForeignMarkers:    cfg.Extraction.ForeignMarkers,
	})

	a := &App{
		Config: cfg,
		Client: client,
		Sheets: render.NewWriter(cfg.Storage.OutputDir),
	}

	// Leave the interfaces nil rather than holding typed nil pointers.
	var store domain.DiagnosticsStore
	if cfg.Storage.Diagnostics {
		a.Diagnostics = diagnostics.NewFileStore(cfg.Storage.OutputDir)
		store = a.Diagnostics
	}

	var results domain.CacheRepository
	if cfg.Cache.Type == "memory" {
		a.memoryCache = cache.NewMemoryCache(0)
		results = a.memoryCache
	}

	analyzer := usecase.NewSegmentAnalyzer(client, recoverer, validator, store, usecase.AnalyzerConfig{
		Model: cfg.Model.Name,
		Options: domain.ModelOptions{
			Temperature: cfg.Model.Temperature,
			TopP:        cfg.Model.TopP,
			NumPredict:  cfg.Model.NumPredict,
			Stop:        cfg.Model.Stop,
		},
		Prompts: usecase.PromptTemplates{
			Full:    cfg.Extraction.PromptTemplate,
			Reduced: cfg.Extraction.FallbackPromptTemplate,
		},
	})

	a.Service = usecase.NewExtractionService(
		usecase.NewAvailabilityProber(client, cfg.Model.ProbeTimeout),
		usecase.NewTextSegmenter(cfg.Extraction.SegmentMaxLength, cfg.Extraction.SegmentOverlap),
		analyzer,
		usecase.NewResultMerger(),
		results,
		usecase.ExtractionServiceConfig{
			SegmentThreshold: cfg.Extraction.SegmentThreshold,
			Retry: usecase.RetryPolicy{
				MaxRetries: cfg.Model.MaxRetries,
				Delay:      cfg.Model.RetryDelay,
			},
			ProbeAttempts: cfg.Model.ProbeAttempts,
			ProbeDelay:    cfg.Model.RetryDelay,
			CacheTTL:      cfg.Cache.TTL,
		},
	)

	log.Info().
		Str("model", cfg.Model.Name).
		Str("url", cfg.Model.URL).
		Str("cache", cfg.Cache.Type).
		Bool("diagnostics", cfg.Storage.Diagnostics).
		Msg("[APP] Extraction pipeline ready")

	return a, nil
}

// ReadText extracts the source text of a PDF document
func (a *App) ReadText(data []byte) (string, error) {
	return pdftext.Extract(data)
}

// CheckModel logs whether the configured model is installed on the model
// service. It never fails: the service may come up later.
func (a *App) CheckModel(ctx context.Context) {
	models, err := a.Client.Models(ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", a.Config.Model.URL).Msg("[APP] Model service not reachable yet")
		return
	}
	if !slices.Contains(models, a.Config.Model.Name) && !slices.Contains(models, a.Config.Model.Name+":latest") {
		log.Warn().Str("model", a.Config.Model.Name).Strs("available", models).Msg("[APP] Configured model is not installed")
		return
	}
	log.Info().Str("model", a.Config.Model.Name).Msg("[APP] Configured model available")
}

// CachedRecords returns the number of records in the result cache, zero
// when caching is disabled.
func (a *App) CachedRecords() int {
	if a.memoryCache == nil {
		return 0
	}
	return a.memoryCache.Size()
}

// Close releases background resources
func (a *App) Close() {
	if a.memoryCache != nil {
		a.memoryCache.Close()
	}
}
