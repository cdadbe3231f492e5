// Package risk implements the hourly risk model: a threshold ramp per weather
// variable, a weighted composite, and a logistic transform onto a 0-100 scale.
//
// Missing inputs are represented as nil pointers and propagate through every
// stage; an hour with no data yields a nil risk and an UNKNOWN recommendation,
// never a fabricated low score.
package risk

import (
	"math"

	"orcamet/internal/types"
)

// Composite weights per variable. Gust dominates because gusts drive most
// rope-access stand-downs; temperature is the weakest signal.
const (
	windWeight   = 0.30
	gustWeight   = 0.40
	precipWeight = 0.20
	tempWeight   = 0.10
)

// Logistic transform constants. The midpoint places 50% risk at a composite of
// 0.45; the steepness controls how sharply risk saturates around it.
const (
	logisticMidpoint  = 0.45
	logisticSteepness = 6.0
)

// Recommendation band boundaries. Boundary values belong to the higher
// severity band.
const (
	cautionBoundary = 20.0
	cancelBoundary  = 50.0
)

// Ramp linearly interpolates a value between 0 (fully acceptable) and 1
// (fully unacceptable) across the soft..hard threshold span.
//
// When highBad is true, values at or below soft map to 0 and values at or
// above hard map to 1. When highBad is false the axis is reversed: values at
// or above soft map to 0 and values at or below hard map to 1 (used for
// temperature, where colder is worse).
//
// A nil value returns nil.
func Ramp(value *float64, soft, hard float64, highBad bool) *float64 {
	if value == nil {
		return nil
	}
	v := *value

	var r float64
	if highBad {
		switch {
		case v <= soft:
			r = 0.0
		case v >= hard:
			r = 1.0
		default:
			r = (v - soft) / (hard - soft)
		}
	} else {
		switch {
		case v >= soft:
			r = 0.0
		case v <= hard:
			r = 1.0
		default:
			r = (soft - v) / (soft - hard)
		}
	}
	return &r
}

// Hourly computes the instantaneous risk score (0-100) for one hour of
// blended weather values against a threshold profile. If any input is nil the
// composite is undefined and the result is nil.
func Hourly(wind, gust, precip, temp *float64, thresholds types.ThresholdProfile) *float64 {
	windR := Ramp(wind, thresholds.WindMeanCaution, thresholds.WindMeanCancel, true)
	gustR := Ramp(gust, thresholds.GustCaution, thresholds.GustCancel, true)
	precipR := Ramp(precip, thresholds.PrecipCaution, thresholds.PrecipCancel, true)
	tempR := Ramp(temp, thresholds.TempMinCaution, thresholds.TempMinCancel, false)

	if windR == nil || gustR == nil || precipR == nil || tempR == nil {
		return nil
	}

	composite := windWeight**windR + gustWeight**gustR + precipWeight**precipR + tempWeight**tempR

	prob := sigmoid(logisticSteepness * (composite - logisticMidpoint))
	score := clamp(prob*100, 0, 100)
	return &score
}

// Recommend converts a risk score into the discrete operational decision.
// A nil score means the risk could not be computed and maps to UNKNOWN.
func Recommend(score *float64) types.Recommendation {
	switch {
	case score == nil:
		return types.RecommendationUnknown
	case *score < cautionBoundary:
		return types.RecommendationGo
	case *score < cancelBoundary:
		return types.RecommendationCaution
	default:
		return types.RecommendationCancel
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
