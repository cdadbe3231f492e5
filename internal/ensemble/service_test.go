package ensemble

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orcamet/internal/observability"
	"orcamet/internal/registry"
	"orcamet/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ptr(v float64) *float64 { return &v }

// fakeFetcher serves canned series or errors per model ID.
type fakeFetcher struct {
	series map[types.ModelID]*types.ModelSeries
	errs   map[types.ModelID]error
	calls  []types.ModelID
}

func (f *fakeFetcher) FetchSeries(_ context.Context, spec registry.ModelSpec, _, _ float64, _, _ time.Time) (*types.ModelSeries, error) {
	f.calls = append(f.calls, spec.ID)
	if err, ok := f.errs[spec.ID]; ok {
		return nil, err
	}
	return f.series[spec.ID], nil
}

// flatSeries builds an n-hour series with constant values for every variable.
func flatSeries(model types.ModelID, n int, wind, gust, precip, temp float64) *types.ModelSeries {
	s := &types.ModelSeries{Model: model}
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Times = append(s.Times, base.Add(time.Duration(i)*time.Hour))
		s.WindSpeed = append(s.WindSpeed, ptr(wind))
		s.WindGusts = append(s.WindGusts, ptr(gust))
		s.Precipitation = append(s.Precipitation, ptr(precip))
		s.Temperature = append(s.Temperature, ptr(temp))
	}
	return s
}

func newTestService(f Fetcher) *Service {
	return NewService(ServiceConfig{
		Fetcher: f,
		SleepFn: func(time.Duration) {},
		Logger:  testLogger(),
		Metrics: observability.NewMetricsForTesting(),
	})
}

func TestFetch_IdenticalModelsHaveZeroSpread(t *testing.T) {
	fetcher := &fakeFetcher{series: map[types.ModelID]*types.ModelSeries{}}
	for _, spec := range registry.Models() {
		fetcher.series[spec.ID] = flatSeries(spec.ID, 24, 8.0, 12.0, 0.2, 6.0)
	}

	svc := newTestService(fetcher)
	table, err := svc.Fetch(context.Background(), 55.0, -3.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 12))
	require.NoError(t, err)

	assert.Equal(t, 4, table.ModelCount)
	assert.Equal(t, 24, table.Len())
	for i := 0; i < table.Len(); i++ {
		require.NotNil(t, table.WindSpeed[i])
		assert.InDelta(t, 8.0, *table.WindSpeed[i], 1e-9)
		assert.InDelta(t, 0.0, table.WindSpread[i], 1e-9)
		assert.InDelta(t, 0.0, table.GustSpread[i], 1e-9)
		assert.InDelta(t, 0.0, table.PrecipSpread[i], 1e-9)
		assert.InDelta(t, 0.0, table.TempSpread[i], 1e-9)
	}
}

func TestFetch_SingleSurvivorPassesThroughRaw(t *testing.T) {
	fetcher := &fakeFetcher{
		series: map[types.ModelID]*types.ModelSeries{
			types.ModelECMWF: flatSeries(types.ModelECMWF, 12, 9.5, 13.2, 0.0, 4.1),
		},
		errs: map[types.ModelID]error{},
	}
	for _, spec := range registry.Models() {
		if spec.ID != types.ModelECMWF {
			fetcher.errs[spec.ID] = errors.New("provider down")
		}
	}

	svc := newTestService(fetcher)
	table, err := svc.Fetch(context.Background(), 51.0, -1.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 12))
	require.NoError(t, err)

	assert.Equal(t, 1, table.ModelCount)
	assert.Equal(t, []types.ModelID{types.ModelECMWF}, table.ModelsUsed)
	for i := 0; i < table.Len(); i++ {
		require.NotNil(t, table.WindSpeed[i])
		assert.InDelta(t, 9.5, *table.WindSpeed[i], 1e-9)
		assert.InDelta(t, 0.0, table.WindSpread[i], 1e-9)
	}
}

func TestFetch_WeightedMeanOfTwoSurvivors(t *testing.T) {
	// Southern urban weights: ukv 0.35, ecmwf 0.35. With only these two
	// surviving, renormalization makes them 0.5 each.
	fetcher := &fakeFetcher{
		series: map[types.ModelID]*types.ModelSeries{
			types.ModelUKV:   flatSeries(types.ModelUKV, 6, 10.0, 14.0, 0.0, 5.0),
			types.ModelECMWF: flatSeries(types.ModelECMWF, 6, 6.0, 10.0, 0.0, 7.0),
		},
		errs: map[types.ModelID]error{
			types.ModelICONEU: errors.New("timeout"),
			types.ModelARPEGE: errors.New("timeout"),
		},
	}

	svc := newTestService(fetcher)
	table, err := svc.Fetch(context.Background(), 51.0, -1.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 10))
	require.NoError(t, err)

	require.Equal(t, 2, table.ModelCount)
	require.NotNil(t, table.WindSpeed[0])
	assert.InDelta(t, 8.0, *table.WindSpeed[0], 1e-9)
	require.NotNil(t, table.Temperature[0])
	assert.InDelta(t, 6.0, *table.Temperature[0], 1e-9)
	// Population std dev of {10, 6} is 2.
	assert.InDelta(t, 2.0, table.WindSpread[0], 1e-9)
}

func TestFetch_MissingValueExcludedFromBlend(t *testing.T) {
	a := flatSeries(types.ModelUKV, 3, 10.0, 14.0, 0.0, 5.0)
	b := flatSeries(types.ModelECMWF, 3, 6.0, 10.0, 0.0, 7.0)
	b.WindSpeed[1] = nil

	fetcher := &fakeFetcher{
		series: map[types.ModelID]*types.ModelSeries{
			types.ModelUKV:   a,
			types.ModelECMWF: b,
		},
		errs: map[types.ModelID]error{
			types.ModelICONEU: errors.New("down"),
			types.ModelARPEGE: errors.New("down"),
		},
	}

	svc := newTestService(fetcher)
	table, err := svc.Fetch(context.Background(), 51.0, -1.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 10))
	require.NoError(t, err)

	// Hour 1: only the ukv value is present, so the consensus is its raw value
	// and the spread collapses to zero.
	require.NotNil(t, table.WindSpeed[1])
	assert.InDelta(t, 10.0, *table.WindSpeed[1], 1e-9)
	assert.InDelta(t, 0.0, table.WindSpread[1], 1e-9)

	// Hour 0 still blends both.
	assert.InDelta(t, 8.0, *table.WindSpeed[0], 1e-9)
}

func TestFetch_LengthMismatchSkipsModelPerVariable(t *testing.T) {
	a := flatSeries(types.ModelUKV, 4, 10.0, 14.0, 0.0, 5.0)
	b := flatSeries(types.ModelECMWF, 4, 6.0, 10.0, 0.0, 7.0)
	// Truncated wind column only; the other variables still align.
	b.WindSpeed = b.WindSpeed[:2]

	fetcher := &fakeFetcher{
		series: map[types.ModelID]*types.ModelSeries{
			types.ModelUKV:   a,
			types.ModelECMWF: b,
		},
		errs: map[types.ModelID]error{
			types.ModelICONEU: errors.New("down"),
			types.ModelARPEGE: errors.New("down"),
		},
	}

	svc := newTestService(fetcher)
	table, err := svc.Fetch(context.Background(), 51.0, -1.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 10))
	require.NoError(t, err)

	// Wind comes from ukv alone across the whole grid.
	for i := 0; i < table.Len(); i++ {
		require.NotNil(t, table.WindSpeed[i])
		assert.InDelta(t, 10.0, *table.WindSpeed[i], 1e-9)
	}
	// Temperature still blends both models.
	assert.InDelta(t, 6.0, *table.Temperature[0], 1e-9)
}

func TestFetch_AllModelsFailed(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[types.ModelID]error{}}
	for _, spec := range registry.Models() {
		fetcher.errs[spec.ID] = errors.New("provider down")
	}

	svc := newTestService(fetcher)
	table, err := svc.Fetch(context.Background(), 51.0, -1.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 12))
	assert.Nil(t, table)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamNoModels, appErr.Code)
}

func TestFetch_PacingBetweenRequestsOnly(t *testing.T) {
	fetcher := &fakeFetcher{series: map[types.ModelID]*types.ModelSeries{}}
	for _, spec := range registry.Models() {
		fetcher.series[spec.ID] = flatSeries(spec.ID, 2, 5.0, 8.0, 0.0, 10.0)
	}

	var sleeps []time.Duration
	svc := NewService(ServiceConfig{
		Fetcher:     fetcher,
		PacingDelay: 150 * time.Millisecond,
		SleepFn:     func(d time.Duration) { sleeps = append(sleeps, d) },
		Logger:      testLogger(),
	})

	_, err := svc.Fetch(context.Background(), 51.0, -1.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 10))
	require.NoError(t, err)

	// Four models means three inter-request delays; no delay before the first.
	require.Len(t, sleeps, 3)
	for _, d := range sleeps {
		assert.Equal(t, 150*time.Millisecond, d)
	}
}

func TestFetch_ModelsFetchedInRegistryOrder(t *testing.T) {
	fetcher := &fakeFetcher{series: map[types.ModelID]*types.ModelSeries{}}
	for _, spec := range registry.Models() {
		fetcher.series[spec.ID] = flatSeries(spec.ID, 2, 5.0, 8.0, 0.0, 10.0)
	}

	svc := newTestService(fetcher)
	_, err := svc.Fetch(context.Background(), 51.0, -1.0, types.ExposureUrban, day(2026, 3, 10), day(2026, 3, 10))
	require.NoError(t, err)

	want := []types.ModelID{types.ModelUKV, types.ModelECMWF, types.ModelICONEU, types.ModelARPEGE}
	assert.Equal(t, want, fetcher.calls)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
