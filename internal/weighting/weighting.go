// Package weighting maps a site's geography and exposure classification to a
// weight distribution over the model registry. The weight tables are fixed
// policy constants tuned for UK operations: the high-resolution UKV model is
// favoured in complex terrain (Scotland, highland sites) where coarse global
// models smooth out wind extremes.
package weighting

import "orcamet/internal/types"

// Latitude bands used by the policy branches.
const (
	scotlandLat        = 56.0
	northernEnglandLat = 53.5
)

// Distribution maps model IDs to blend weights. Weights over the full registry
// need not sum to exactly 1; the ensemble blender renormalizes over the models
// that actually fetched.
type Distribution map[types.ModelID]float64

var (
	highlandWeights = Distribution{
		types.ModelUKV:    0.60,
		types.ModelECMWF:  0.25,
		types.ModelICONEU: 0.10,
		types.ModelARPEGE: 0.05,
	}
	coastalWeights = Distribution{
		types.ModelUKV:    0.45,
		types.ModelECMWF:  0.25,
		types.ModelARPEGE: 0.20,
		types.ModelICONEU: 0.10,
	}
	northernWeights = Distribution{
		types.ModelUKV:    0.40,
		types.ModelECMWF:  0.30,
		types.ModelICONEU: 0.20,
		types.ModelARPEGE: 0.10,
	}
	balancedWeights = Distribution{
		types.ModelUKV:    0.35,
		types.ModelECMWF:  0.35,
		types.ModelICONEU: 0.20,
		types.ModelARPEGE: 0.10,
	}
)

// ForSite returns the weight distribution for a location and exposure class.
// Branches are evaluated in order, first match wins; unrecognized exposure
// values land on the balanced default. The returned distribution always covers
// the full registry with nonzero weights.
func ForSite(lat, lon float64, exposure types.Exposure) Distribution {
	scotland := lat > scotlandLat
	northernEngland := lat > northernEnglandLat && lat <= scotlandLat

	switch {
	case exposure == types.ExposureHighland || scotland:
		return highlandWeights.clone()
	case exposure == types.ExposureCoastal:
		return coastalWeights.clone()
	case northernEngland:
		return northernWeights.clone()
	default:
		return balancedWeights.clone()
	}
}

func (d Distribution) clone() Distribution {
	out := make(Distribution, len(d))
	for id, w := range d {
		out[id] = w
	}
	return out
}
