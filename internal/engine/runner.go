// Package engine implements the forecast run orchestrator. For one site it
// resolves thresholds, fetches the blended ensemble for the full horizon in a
// single pass, scores every hour, and aggregates the hours into one result per
// calendar date.
//
// The orchestrator is a pure computation over its inputs: it owns no storage
// and no scheduling. The clock is injected so the forecast window is
// deterministic under test.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"orcamet/internal/risk"
	"orcamet/internal/types"
)

// Defaults for the forecast window and the operational work-hour band.
const (
	DefaultHorizonDays   = 3
	DefaultWorkStartHour = 7
	DefaultWorkEndHour   = 18
)

// EnsembleFetcher abstracts the ensemble service for the orchestrator.
type EnsembleFetcher interface {
	Fetch(ctx context.Context, lat, lon float64, exposure types.Exposure, start, end time.Time) (*types.EnsembleTable, error)
}

// Config holds the orchestrator's tunable run parameters. Zero values fall
// back to the documented defaults.
type Config struct {
	// HorizonDays is the number of calendar days to forecast, starting today.
	HorizonDays int
	// WorkStartHour and WorkEndHour bound the operational window (UTC hours,
	// inclusive) used for daily summary statistics. Hours outside the window
	// are still stored as hourly observations.
	WorkStartHour int
	WorkEndHour   int
}

func (c Config) withDefaults() Config {
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.WorkStartHour <= 0 && c.WorkEndHour <= 0 {
		c.WorkStartHour = DefaultWorkStartHour
		c.WorkEndHour = DefaultWorkEndHour
	}
	return c
}

// Runner orchestrates forecast generation for individual sites.
type Runner struct {
	ensemble EnsembleFetcher
	clock    clockwork.Clock
	cfg      Config
	logger   *slog.Logger
}

// RunnerConfig holds the dependencies for creating a Runner.
type RunnerConfig struct {
	Ensemble EnsembleFetcher
	Clock    clockwork.Clock
	Run      Config
	Logger   *slog.Logger
}

// NewRunner creates a Runner with the given configuration.
func NewRunner(cfg RunnerConfig) *Runner {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		ensemble: cfg.Ensemble,
		clock:    clock,
		cfg:      cfg.Run.withDefaults(),
		logger:   logger,
	}
}

// RunSite generates daily forecast results for one site over the configured
// horizon, in ascending date order.
//
// Sites without coordinates, inactive sites, and sites whose job is complete
// are skipped with an empty result set; these are preconditions, not errors.
// An ensemble failure produces a single FAILED result dated today. Date
// groups with no hours inside the work window are dropped entirely.
func (r *Runner) RunSite(ctx context.Context, site types.Site, profile *types.ThresholdProfile) []types.DailyForecastResult {
	if !site.HasCoordinates() {
		r.logger.ErrorContext(ctx, "site has no coordinates, skipping",
			"site", site.Name,
		)
		return nil
	}
	if !site.IsActive || site.JobComplete {
		r.logger.InfoContext(ctx, "site inactive or job complete, skipping",
			"site", site.Name,
		)
		return nil
	}

	var thresholds types.ThresholdProfile
	if profile != nil {
		thresholds = *profile
	} else {
		r.logger.WarnContext(ctx, "no active thresholds, using defaults",
			"site", site.Name,
		)
		thresholds = types.DefaultThresholds()
	}

	today := midnightUTC(r.clock.Now())
	endDate := today.AddDate(0, 0, r.cfg.HorizonDays-1)

	lat, lon := *site.Latitude, *site.Longitude
	r.logger.InfoContext(ctx, "generating forecast",
		"site", site.Name,
		"lat", lat,
		"lon", lon,
		"start", today.Format("2006-01-02"),
		"end", endDate.Format("2006-01-02"),
	)

	table, err := r.ensemble.Fetch(ctx, lat, lon, site.Exposure, today, endDate)
	if err != nil {
		r.logger.ErrorContext(ctx, "ensemble fetch failed",
			"site", site.Name,
			"error", err,
		)
		return []types.DailyForecastResult{{
			ForecastDate:       today,
			Status:             types.RunFailed,
			Recommendation:     types.RecommendationUnknown,
			ThresholdsSnapshot: thresholds,
			ErrorMessage:       err.Error(),
		}}
	}

	r.logger.InfoContext(ctx, "ensemble fetched",
		"site", site.Name,
		"hours", table.Len(),
		"models", table.ModelsUsed,
	)

	hours := scoreHours(table, thresholds)

	var results []types.DailyForecastResult
	for _, group := range groupByDate(hours) {
		work := r.workWindow(group.hours)
		if len(work) == 0 {
			continue
		}

		peakRisk := maxOf(work, func(h types.HourlyObservation) *float64 { return h.HourlyRisk })
		result := types.DailyForecastResult{
			ForecastDate:       group.date,
			Status:             types.RunSuccess,
			PeakRisk:           peakRisk,
			Recommendation:     risk.Recommend(peakRisk),
			PeakWind:           maxOf(work, func(h types.HourlyObservation) *float64 { return h.WindSpeed }),
			PeakGust:           maxOf(work, func(h types.HourlyObservation) *float64 { return h.WindGusts }),
			PeakPrecip:         maxOf(work, func(h types.HourlyObservation) *float64 { return h.Precipitation }),
			MinTemp:            minOf(work, func(h types.HourlyObservation) *float64 { return h.Temperature }),
			ModelsUsed:         table.ModelsUsed,
			ThresholdsSnapshot: thresholds,
			Hourly:             group.hours,
		}

		r.logger.InfoContext(ctx, "daily forecast computed",
			"site", site.Name,
			"date", group.date.Format("2006-01-02"),
			"recommendation", result.Recommendation,
			"hours_stored", len(group.hours),
		)
		results = append(results, result)
	}

	return results
}

// scoreHours converts the ensemble table into hourly observations with risk
// scores attached.
func scoreHours(table *types.EnsembleTable, thresholds types.ThresholdProfile) []types.HourlyObservation {
	hours := make([]types.HourlyObservation, table.Len())
	for i := range table.Times {
		hours[i] = types.HourlyObservation{
			Timestamp:     table.Times[i],
			WindSpeed:     table.WindSpeed[i],
			WindGusts:     table.WindGusts[i],
			Precipitation: table.Precipitation[i],
			Temperature:   table.Temperature[i],
			WindSpread:    table.WindSpread[i],
			GustSpread:    table.GustSpread[i],
			PrecipSpread:  table.PrecipSpread[i],
			TempSpread:    table.TempSpread[i],
			HourlyRisk: risk.Hourly(
				table.WindSpeed[i],
				table.WindGusts[i],
				table.Precipitation[i],
				table.Temperature[i],
				thresholds,
			),
		}
	}
	return hours
}

// dayGroup collects the observations belonging to one UTC calendar date.
type dayGroup struct {
	date  time.Time
	hours []types.HourlyObservation
}

// groupByDate splits observations into per-date groups. Input order is
// preserved, so groups come out in ascending date order for a time-sorted
// table.
func groupByDate(hours []types.HourlyObservation) []dayGroup {
	var groups []dayGroup
	index := make(map[time.Time]int)

	for _, h := range hours {
		date := midnightUTC(h.Timestamp)
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, dayGroup{date: date})
		}
		groups[i].hours = append(groups[i].hours, h)
	}

	return groups
}

// workWindow filters observations to the operational work-hour band
// (inclusive on both ends).
func (r *Runner) workWindow(hours []types.HourlyObservation) []types.HourlyObservation {
	var work []types.HourlyObservation
	for _, h := range hours {
		hr := h.Timestamp.UTC().Hour()
		if hr >= r.cfg.WorkStartHour && hr <= r.cfg.WorkEndHour {
			work = append(work, h)
		}
	}
	return work
}

// maxOf returns the maximum of a field across observations, ignoring missing
// values; nil when every value is missing.
func maxOf(hours []types.HourlyObservation, pick func(types.HourlyObservation) *float64) *float64 {
	var best *float64
	for _, h := range hours {
		v := pick(h)
		if v == nil {
			continue
		}
		if best == nil || *v > *best {
			val := *v
			best = &val
		}
	}
	return best
}

// minOf is the minimum counterpart of maxOf.
func minOf(hours []types.HourlyObservation, pick func(types.HourlyObservation) *float64) *float64 {
	var best *float64
	for _, h := range hours {
		v := pick(h)
		if v == nil {
			continue
		}
		if best == nil || *v < *best {
			val := *v
			best = &val
		}
	}
	return best
}

// midnightUTC truncates a time to the start of its UTC calendar date.
func midnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
