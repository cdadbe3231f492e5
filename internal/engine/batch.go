package engine

import (
	"context"
	"log/slog"
	"time"

	"orcamet/internal/observability"
	"orcamet/internal/types"
)

// SiteSource lists the sites eligible for a batch run.
type SiteSource interface {
	// ListActive returns active sites whose job is not complete.
	ListActive(ctx context.Context) ([]types.Site, error)
}

// ThresholdSource resolves the active threshold profile for a site.
type ThresholdSource interface {
	// GetActiveForSite returns the active profile, or (nil, nil) when the
	// site has none configured.
	GetActiveForSite(ctx context.Context, siteID string) (*types.ThresholdProfile, error)
}

// ResultStore persists daily forecast results with full replacement semantics
// for the same site and date.
type ResultStore interface {
	Replace(ctx context.Context, siteID string, result types.DailyForecastResult) error
}

// BatchSummary reports the outcome of one batch invocation.
type BatchSummary struct {
	Sites     int
	Succeeded int
	Failed    int
	Skipped   int
	Persisted int
}

// Batch runs the forecast pipeline over every active site, strictly one site
// after another. A failure in one site's run never aborts the batch.
type Batch struct {
	runner     *Runner
	sites      SiteSource
	thresholds ThresholdSource
	store      ResultStore
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// BatchConfig holds the dependencies for creating a Batch.
type BatchConfig struct {
	Runner     *Runner
	Sites      SiteSource
	Thresholds ThresholdSource
	Store      ResultStore
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// NewBatch creates a Batch with the given configuration.
func NewBatch(cfg BatchConfig) *Batch {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		runner:     cfg.Runner,
		sites:      cfg.Sites,
		thresholds: cfg.Thresholds,
		store:      cfg.Store,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Run processes all active sites and persists their results. It returns a
// summary of outcomes; the only fatal error is failing to list the sites.
func (b *Batch) Run(ctx context.Context) (BatchSummary, error) {
	sites, err := b.sites.ListActive(ctx)
	if err != nil {
		return BatchSummary{}, types.NewAppError(
			types.ErrCodeInternalDB,
			"listing active sites",
			err,
		)
	}

	summary := BatchSummary{Sites: len(sites)}
	b.logger.InfoContext(ctx, "running forecasts", "sites", len(sites))

	for i, site := range sites {
		b.logger.InfoContext(ctx, "processing site",
			"index", i+1,
			"total", len(sites),
			"site", site.Name,
		)

		profile, err := b.thresholds.GetActiveForSite(ctx, site.ID)
		if err != nil {
			b.logger.ErrorContext(ctx, "resolving thresholds failed",
				"site", site.Name,
				"error", err,
			)
			summary.Failed++
			b.countRun("failed")
			continue
		}

		runStart := time.Now()
		results := b.runner.RunSite(ctx, site, profile)
		if b.metrics != nil {
			b.metrics.RunDuration.Observe(time.Since(runStart).Seconds())
		}

		if len(results) == 0 {
			summary.Skipped++
			b.countRun("skipped")
			continue
		}

		failed := false
		for _, result := range results {
			if result.Status == types.RunFailed {
				failed = true
			}
			if err := b.store.Replace(ctx, site.ID, result); err != nil {
				b.logger.ErrorContext(ctx, "persisting result failed",
					"site", site.Name,
					"date", result.ForecastDate.Format("2006-01-02"),
					"error", err,
				)
				continue
			}
			summary.Persisted++
			if b.metrics != nil {
				b.metrics.ResultsEmitted.Inc()
			}
		}

		if failed {
			summary.Failed++
			b.countRun("failed")
		} else {
			summary.Succeeded++
			b.countRun("success")
		}
	}

	b.logger.InfoContext(ctx, "batch complete",
		"sites", summary.Sites,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"persisted", summary.Persisted,
	)

	return summary, nil
}

func (b *Batch) countRun(outcome string) {
	if b.metrics != nil {
		b.metrics.SiteRuns.WithLabelValues(outcome).Inc()
	}
}
