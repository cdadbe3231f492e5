package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orcamet/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ptr(v float64) *float64 { return &v }

// fakeEnsemble returns a canned table or error.
type fakeEnsemble struct {
	table *types.EnsembleTable
	err   error

	gotLat, gotLon     float64
	gotStart, gotEnd   time.Time
	gotExposure        types.Exposure
	calls              int
}

func (f *fakeEnsemble) Fetch(_ context.Context, lat, lon float64, exposure types.Exposure, start, end time.Time) (*types.EnsembleTable, error) {
	f.calls++
	f.gotLat, f.gotLon = lat, lon
	f.gotExposure = exposure
	f.gotStart, f.gotEnd = start, end
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

// tableForDays builds an hourly table covering full UTC days from start, with
// constant calm values except where overridden.
func tableForDays(start time.Time, days int) *types.EnsembleTable {
	table := &types.EnsembleTable{
		ModelsUsed: []types.ModelID{types.ModelUKV, types.ModelECMWF},
		ModelCount: 2,
	}
	for h := 0; h < days*24; h++ {
		table.Times = append(table.Times, start.Add(time.Duration(h)*time.Hour))
		table.WindSpeed = append(table.WindSpeed, ptr(3.0))
		table.WindGusts = append(table.WindGusts, ptr(5.0))
		table.Precipitation = append(table.Precipitation, ptr(0.0))
		table.Temperature = append(table.Temperature, ptr(10.0))
		table.WindSpread = append(table.WindSpread, 0.5)
		table.GustSpread = append(table.GustSpread, 0.8)
		table.PrecipSpread = append(table.PrecipSpread, 0.0)
		table.TempSpread = append(table.TempSpread, 0.3)
	}
	return table
}

func testSite() types.Site {
	return types.Site{
		ID:        "site-001",
		Name:      "Forth Bridge South Tower",
		Latitude:  ptr(56.0003),
		Longitude: ptr(-3.3885),
		Exposure:  types.ExposureCoastal,
		IsActive:  true,
	}
}

func newTestRunner(ens EnsembleFetcher, now time.Time) *Runner {
	return NewRunner(RunnerConfig{
		Ensemble: ens,
		Clock:    clockwork.NewFakeClockAt(now),
		Logger:   testLogger(),
	})
}

func TestRunSite_ThreeDayHorizon(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	ens := &fakeEnsemble{table: tableForDays(today, 3)}

	runner := newTestRunner(ens, now)
	profile := types.DefaultThresholds()
	results := runner.RunSite(context.Background(), testSite(), &profile)

	require.Len(t, results, 3)
	for i, result := range results {
		assert.Equal(t, today.AddDate(0, 0, i), result.ForecastDate)
		assert.Equal(t, types.RunSuccess, result.Status)
		assert.Equal(t, types.RecommendationGo, result.Recommendation)
		require.NotNil(t, result.PeakRisk)
		assert.Len(t, result.Hourly, 24)
		assert.Equal(t, []types.ModelID{types.ModelUKV, types.ModelECMWF}, result.ModelsUsed)
	}

	// The fetch covers the whole horizon in one request window.
	assert.Equal(t, 1, ens.calls)
	assert.Equal(t, today, ens.gotStart)
	assert.Equal(t, today.AddDate(0, 0, 2), ens.gotEnd)
	assert.Equal(t, 56.0003, ens.gotLat)
	assert.Equal(t, types.ExposureCoastal, ens.gotExposure)
}

func TestRunSite_DailyAggregatesUseWorkWindowOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	table := tableForDays(today, 1)
	// Severe gust at 03:00, outside the 07-18 work window.
	table.WindGusts[3] = ptr(30.0)
	// Moderate gust at noon, inside the window.
	table.WindGusts[12] = ptr(12.0)

	ens := &fakeEnsemble{table: table}
	runner := newTestRunner(ens, now)
	profile := types.DefaultThresholds()

	results := runner.RunSite(context.Background(), testSite(), &profile)
	require.Len(t, results, 1)

	require.NotNil(t, results[0].PeakGust)
	assert.InDelta(t, 12.0, *results[0].PeakGust, 1e-9)
	// All 24 hours are still stored even though only work hours feed the peaks.
	assert.Len(t, results[0].Hourly, 24)
}

func TestRunSite_DayWithoutWorkHoursDropped(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Day one is complete; day two only has hours 00-05, all before the
	// work window opens.
	table := tableForDays(today, 1)
	day2 := today.AddDate(0, 0, 1)
	for h := 0; h < 6; h++ {
		table.Times = append(table.Times, day2.Add(time.Duration(h)*time.Hour))
		table.WindSpeed = append(table.WindSpeed, ptr(3.0))
		table.WindGusts = append(table.WindGusts, ptr(5.0))
		table.Precipitation = append(table.Precipitation, ptr(0.0))
		table.Temperature = append(table.Temperature, ptr(10.0))
		table.WindSpread = append(table.WindSpread, 0)
		table.GustSpread = append(table.GustSpread, 0)
		table.PrecipSpread = append(table.PrecipSpread, 0)
		table.TempSpread = append(table.TempSpread, 0)
	}

	ens := &fakeEnsemble{table: table}
	runner := newTestRunner(ens, now)
	profile := types.DefaultThresholds()

	results := runner.RunSite(context.Background(), testSite(), &profile)
	require.Len(t, results, 1)
	assert.Equal(t, today, results[0].ForecastDate)
}

func TestRunSite_EnsembleFailureProducesFailedResult(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	ens := &fakeEnsemble{
		err: types.NewAppError(types.ErrCodeUpstreamNoModels, "all models failed", nil),
	}

	runner := newTestRunner(ens, now)
	profile := types.DefaultThresholds()

	results := runner.RunSite(context.Background(), testSite(), &profile)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, today, result.ForecastDate)
	assert.Equal(t, types.RunFailed, result.Status)
	assert.Equal(t, types.RecommendationUnknown, result.Recommendation)
	assert.Nil(t, result.PeakRisk)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Equal(t, profile, result.ThresholdsSnapshot)
}

func TestRunSite_PreconditionSkips(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*types.Site)
	}{
		{"missing latitude", func(s *types.Site) { s.Latitude = nil }},
		{"missing longitude", func(s *types.Site) { s.Longitude = nil }},
		{"inactive site", func(s *types.Site) { s.IsActive = false }},
		{"job complete", func(s *types.Site) { s.JobComplete = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ens := &fakeEnsemble{table: tableForDays(now, 1)}
			runner := newTestRunner(ens, now)

			site := testSite()
			tt.mutate(&site)

			profile := types.DefaultThresholds()
			results := runner.RunSite(context.Background(), site, &profile)
			assert.Nil(t, results)
			assert.Equal(t, 0, ens.calls)
		})
	}
}

func TestRunSite_NilProfileFallsBackToDefaults(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	ens := &fakeEnsemble{table: tableForDays(today, 1)}

	runner := newTestRunner(ens, now)
	results := runner.RunSite(context.Background(), testSite(), nil)

	require.Len(t, results, 1)
	assert.Equal(t, types.DefaultThresholds(), results[0].ThresholdsSnapshot)
}

func TestRunSite_MissingRiskYieldsUnknown(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	table := tableForDays(today, 1)
	// Wipe temperature for every hour: no hour can be scored.
	for i := range table.Temperature {
		table.Temperature[i] = nil
	}

	ens := &fakeEnsemble{table: table}
	runner := newTestRunner(ens, now)
	profile := types.DefaultThresholds()

	results := runner.RunSite(context.Background(), testSite(), &profile)
	require.Len(t, results, 1)
	assert.Equal(t, types.RunSuccess, results[0].Status)
	assert.Nil(t, results[0].PeakRisk)
	assert.Equal(t, types.RecommendationUnknown, results[0].Recommendation)
	assert.Nil(t, results[0].MinTemp)
}
