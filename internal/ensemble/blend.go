package ensemble

import (
	"math"

	"orcamet/internal/types"
)

// modelColumn pairs one surviving model's renormalized weight with its series
// for a single variable. Columns are pre-filtered to the reference grid
// length before blending.
type modelColumn struct {
	weight float64
	values []*float64
}

// blendVariable computes the weighted consensus and inter-model spread for one
// variable across the reference grid.
//
// At each timestamp, models with a missing value contribute nothing; the
// weighted mean is taken over the values present, with weights renormalized
// over those contributors so a single gap never drags the consensus toward
// zero. Spread is the population standard deviation of the raw values; hours
// with fewer than two contributors get a spread of 0.
func blendVariable(columns []modelColumn, n int) (blended []*float64, spread []float64) {
	blended = make([]*float64, n)
	spread = make([]float64, n)

	for i := 0; i < n; i++ {
		var weightSum, valueSum float64
		var raw []float64

		for _, col := range columns {
			v := col.values[i]
			if v == nil || math.IsNaN(*v) {
				continue
			}
			weightSum += col.weight
			valueSum += col.weight * *v
			raw = append(raw, *v)
		}

		if weightSum > 0 {
			mean := valueSum / weightSum
			blended[i] = &mean
		}
		if len(raw) >= 2 {
			spread[i] = populationStdDev(raw)
		}
	}

	return blended, spread
}

// populationStdDev returns the population (not sample) standard deviation.
func populationStdDev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// columnsFor extracts one variable's columns from the surviving models,
// skipping any model whose series length for that variable does not match the
// reference grid. A length mismatch drops the model from that variable
// entirely, not just at the mismatched points.
func columnsFor(survivors []survivingModel, pick func(*types.ModelSeries) []*float64, n int) []modelColumn {
	var columns []modelColumn
	for _, s := range survivors {
		values := pick(s.series)
		if len(values) != n {
			continue
		}
		columns = append(columns, modelColumn{weight: s.weight, values: values})
	}
	return columns
}
