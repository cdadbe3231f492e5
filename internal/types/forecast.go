package types

import "time"

// ModelSeries is the normalized hourly series returned by a single provider
// fetch. Value slices are positionally aligned to Times; a nil entry means the
// provider returned no reading for that hour.
type ModelSeries struct {
	Model         ModelID
	Times         []time.Time
	WindSpeed     []*float64
	WindGusts     []*float64
	Precipitation []*float64
	Temperature   []*float64
}

// EnsembleTable is the blended multi-model output for a location and date
// window. All columns are aligned to Times, which is the timestamp grid of the
// first model that fetched successfully. Spread columns hold the population
// standard deviation of the raw per-model values; zero when fewer than two
// models contributed at that hour.
type EnsembleTable struct {
	Times         []time.Time
	WindSpeed     []*float64
	WindGusts     []*float64
	Precipitation []*float64
	Temperature   []*float64
	WindSpread    []float64
	GustSpread    []float64
	PrecipSpread  []float64
	TempSpread    []float64

	// ModelsUsed lists the surviving models in registry order.
	ModelsUsed []ModelID
	ModelCount int
}

// Len returns the number of hours in the table.
func (t *EnsembleTable) Len() int {
	return len(t.Times)
}
