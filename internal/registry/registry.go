// Package registry holds the static catalog of weather data providers backing
// the forecast ensemble. Each entry maps a model ID to its Open-Meteo endpoint,
// provider-specific query parameters, and nominal spatial resolution. The
// catalog is fixed at compile time; runtime code never mutates it.
package registry

import "orcamet/internal/types"

// ModelSpec describes one weather data provider.
type ModelSpec struct {
	ID          types.ModelID
	DisplayName string
	Endpoint    string
	// QueryParams are provider-specific parameters merged into every request,
	// e.g. a "models" selector for multi-model endpoints.
	QueryParams  map[string]string
	ResolutionKM float64
}

// models is ordered by preference: the first surviving model's timestamp grid
// becomes the ensemble reference grid.
var models = []ModelSpec{
	{
		ID:           types.ModelUKV,
		DisplayName:  "Met Office UKV",
		Endpoint:     "https://api.open-meteo.com/v1/forecast",
		QueryParams:  map[string]string{"models": "ukmo_uk_deterministic_2km"},
		ResolutionKM: 2.0,
	},
	{
		ID:           types.ModelECMWF,
		DisplayName:  "ECMWF HRES",
		Endpoint:     "https://api.open-meteo.com/v1/ecmwf",
		QueryParams:  map[string]string{},
		ResolutionKM: 9.0,
	},
	{
		ID:           types.ModelICONEU,
		DisplayName:  "DWD ICON-EU",
		Endpoint:     "https://api.open-meteo.com/v1/dwd-icon",
		QueryParams:  map[string]string{},
		ResolutionKM: 7.0,
	},
	{
		ID:           types.ModelARPEGE,
		DisplayName:  "Météo-France ARPEGE",
		Endpoint:     "https://api.open-meteo.com/v1/meteofrance",
		QueryParams:  map[string]string{"models": "arpege_world"},
		ResolutionKM: 10.0,
	},
}

// Models returns the full provider catalog in stable order.
// The returned slice is shared; callers must not modify it.
func Models() []ModelSpec {
	return models
}

// Lookup returns the spec for a model ID.
func Lookup(id types.ModelID) (ModelSpec, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelSpec{}, false
}
