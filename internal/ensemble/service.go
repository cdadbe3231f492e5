// Package ensemble fetches the multi-model forecast for a location and blends
// it into a single weighted consensus series with per-variable inter-model
// spread.
//
// Models are fetched sequentially in registry order with a fixed pacing delay
// between requests as a courtesy to the provider. A failed fetch drops that
// model from the ensemble; the surviving weights are renormalized so they
// always sum to 1.0. Only when every model fails does the fetch itself fail.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"orcamet/internal/observability"
	"orcamet/internal/registry"
	"orcamet/internal/types"
	"orcamet/internal/weighting"
)

// DefaultPacingDelay is the courtesy delay between successive model fetches.
// It is not a retry or backoff mechanism.
const DefaultPacingDelay = 150 * time.Millisecond

// Fetcher retrieves one model's normalized hourly series.
type Fetcher interface {
	FetchSeries(ctx context.Context, spec registry.ModelSpec, lat, lon float64, start, end time.Time) (*types.ModelSeries, error)
}

// survivingModel is one successfully fetched model with its (pre-renormalization)
// policy weight.
type survivingModel struct {
	spec   registry.ModelSpec
	weight float64
	series *types.ModelSeries
}

// Service drives the fetch-and-blend cycle for one location.
type Service struct {
	fetcher Fetcher
	models  []registry.ModelSpec
	pacing  time.Duration
	sleepFn func(time.Duration)
	logger  *slog.Logger
	metrics *observability.Metrics
}

// ServiceConfig holds the configuration for creating an ensemble Service.
type ServiceConfig struct {
	Fetcher Fetcher
	// Models overrides the registry catalog; nil uses the full registry.
	Models []registry.ModelSpec
	// PacingDelay is the inter-request courtesy delay; zero or negative
	// values fall back to DefaultPacingDelay.
	PacingDelay time.Duration
	// SleepFn overrides the pacing sleep for tests.
	SleepFn func(time.Duration)
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewService creates an ensemble Service.
func NewService(cfg ServiceConfig) *Service {
	models := cfg.Models
	if models == nil {
		models = registry.Models()
	}
	pacing := cfg.PacingDelay
	if pacing <= 0 {
		pacing = DefaultPacingDelay
	}
	sleepFn := cfg.SleepFn
	if sleepFn == nil {
		sleepFn = time.Sleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: cfg.Fetcher,
		models:  models,
		pacing:  pacing,
		sleepFn: sleepFn,
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// Fetch retrieves every registry model for the location and inclusive date
// window, then blends the survivors into a consensus table.
//
// Individual fetch failures are logged and absorbed: the model is dropped and
// its weight redistributed over the survivors. If no model survives, Fetch
// returns an AppError with code upstream_no_models_available.
func (s *Service) Fetch(
	ctx context.Context,
	lat, lon float64,
	exposure types.Exposure,
	start, end time.Time,
) (*types.EnsembleTable, error) {
	weights := weighting.ForSite(lat, lon, exposure)

	var survivors []survivingModel
	for i, spec := range s.models {
		if i > 0 {
			s.sleepFn(s.pacing)
		}

		fetchStart := time.Now()
		series, err := s.fetcher.FetchSeries(ctx, spec, lat, lon, start, end)
		if s.metrics != nil {
			s.metrics.FetchDuration.WithLabelValues(string(spec.ID)).Observe(time.Since(fetchStart).Seconds())
		}
		if err != nil {
			s.logger.WarnContext(ctx, "model fetch failed",
				"model", spec.ID,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.ModelFetches.WithLabelValues(string(spec.ID), "error").Inc()
			}
			continue
		}

		s.logger.DebugContext(ctx, "model fetch succeeded",
			"model", spec.ID,
			"hours", len(series.Times),
		)
		if s.metrics != nil {
			s.metrics.ModelFetches.WithLabelValues(string(spec.ID), "success").Inc()
		}
		survivors = append(survivors, survivingModel{
			spec:   spec,
			weight: weights[spec.ID],
			series: series,
		})
	}

	if len(survivors) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamNoModels,
			fmt.Sprintf("all models failed for (%.4f, %.4f)", lat, lon),
			nil,
		)
	}

	renormalize(survivors)
	return blend(survivors), nil
}

// renormalize divides each survivor's weight by the sum of surviving weights,
// so the distribution over available models always sums to 1.0.
func renormalize(survivors []survivingModel) {
	total := 0.0
	for _, s := range survivors {
		total += s.weight
	}
	for i := range survivors {
		survivors[i].weight /= total
	}
}

// blend combines the survivors into a consensus table. The timestamp grid of
// the first surviving model is the reference; per-variable columns from models
// whose series length does not match the grid are skipped for that variable.
func blend(survivors []survivingModel) *types.EnsembleTable {
	ref := survivors[0].series
	n := len(ref.Times)

	table := &types.EnsembleTable{
		Times:      append([]time.Time(nil), ref.Times...),
		ModelCount: len(survivors),
	}
	for _, s := range survivors {
		table.ModelsUsed = append(table.ModelsUsed, s.spec.ID)
	}

	table.WindSpeed, table.WindSpread = blendVariable(
		columnsFor(survivors, func(m *types.ModelSeries) []*float64 { return m.WindSpeed }, n), n)
	table.WindGusts, table.GustSpread = blendVariable(
		columnsFor(survivors, func(m *types.ModelSeries) []*float64 { return m.WindGusts }, n), n)
	table.Precipitation, table.PrecipSpread = blendVariable(
		columnsFor(survivors, func(m *types.ModelSeries) []*float64 { return m.Precipitation }, n), n)
	table.Temperature, table.TempSpread = blendVariable(
		columnsFor(survivors, func(m *types.ModelSeries) []*float64 { return m.Temperature }, n), n)

	return table
}
