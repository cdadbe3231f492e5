package weighting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orcamet/internal/types"
)

func TestForSite_BranchSelection(t *testing.T) {
	tests := []struct {
		name     string
		lat      float64
		exposure types.Exposure
		wantUKV  float64
	}{
		{"highland exposure anywhere", 51.5, types.ExposureHighland, 0.60},
		{"scotland overrides urban exposure", 57.2, types.ExposureUrban, 0.60},
		{"scotland overrides coastal exposure", 56.5, types.ExposureCoastal, 0.60},
		{"coastal site in the south", 50.8, types.ExposureCoastal, 0.45},
		{"northern england urban", 54.5, types.ExposureUrban, 0.40},
		{"southern urban default", 51.5, types.ExposureUrban, 0.35},
		{"unknown exposure falls through to balanced", 51.5, types.Exposure("offshore"), 0.35},
		{"boundary latitude is not scotland", 56.0, types.ExposureUrban, 0.40},
		{"boundary latitude is not northern", 53.5, types.ExposureUrban, 0.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ForSite(tt.lat, -2.0, tt.exposure)
			assert.InDelta(t, tt.wantUKV, d[types.ModelUKV], 1e-9)
		})
	}
}

func TestForSite_CoversFullRegistry(t *testing.T) {
	exposures := []types.Exposure{
		types.ExposureUrban,
		types.ExposureCoastal,
		types.ExposureHighland,
	}
	for _, exp := range exposures {
		for _, lat := range []float64{50.0, 54.0, 57.0} {
			d := ForSite(lat, -3.0, exp)
			require.Len(t, d, 4)
			for _, id := range []types.ModelID{types.ModelUKV, types.ModelECMWF, types.ModelICONEU, types.ModelARPEGE} {
				assert.Greater(t, d[id], 0.0, "model %s at lat %.1f exposure %s", id, lat, exp)
			}
		}
	}
}

func TestForSite_WeightsSumToOne(t *testing.T) {
	for _, exp := range []types.Exposure{types.ExposureUrban, types.ExposureCoastal, types.ExposureHighland} {
		for _, lat := range []float64{50.0, 54.0, 57.0} {
			d := ForSite(lat, -3.0, exp)
			sum := 0.0
			for _, w := range d {
				sum += w
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		}
	}
}

func TestForSite_ReturnsIndependentCopy(t *testing.T) {
	a := ForSite(51.5, -2.0, types.ExposureUrban)
	a[types.ModelUKV] = 99.0

	b := ForSite(51.5, -2.0, types.ExposureUrban)
	assert.InDelta(t, 0.35, b[types.ModelUKV], 1e-9)
}
