package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Site is a fixed geographic work location monitored by the forecast engine.
// Latitude and Longitude are pointers because legacy site records may exist
// before coordinates are assigned; the engine skips such sites.
type Site struct {
	ID          string   `json:"id" db:"id"`
	Name        string   `json:"name" db:"name"`
	Latitude    *float64 `json:"latitude" db:"latitude"`
	Longitude   *float64 `json:"longitude" db:"longitude"`
	Exposure    Exposure `json:"exposure" db:"exposure"`
	IsActive    bool     `json:"is_active" db:"is_active"`
	JobComplete bool     `json:"job_complete" db:"job_complete"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasCoordinates reports whether the site has both latitude and longitude set.
func (s *Site) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// ThresholdProfile holds the soft ("caution") and hard ("cancel") limits per
// weather variable that drive the risk ramp. For wind, gust, and precipitation
// the caution value must be below the cancel value; for temperature the
// ordering is reversed because lower temperature is worse.
type ThresholdProfile struct {
	WindMeanCaution float64 `json:"wind_mean_caution" db:"wind_mean_caution" validate:"ltfield=WindMeanCancel"`
	WindMeanCancel  float64 `json:"wind_mean_cancel" db:"wind_mean_cancel"`
	GustCaution     float64 `json:"gust_caution" db:"gust_caution" validate:"ltfield=GustCancel"`
	GustCancel      float64 `json:"gust_cancel" db:"gust_cancel"`
	PrecipCaution   float64 `json:"precip_caution" db:"precip_caution" validate:"ltfield=PrecipCancel"`
	PrecipCancel    float64 `json:"precip_cancel" db:"precip_cancel"`
	TempMinCaution  float64 `json:"temp_min_caution" db:"temp_min_caution" validate:"gtfield=TempMinCancel"`
	TempMinCancel   float64 `json:"temp_min_cancel" db:"temp_min_cancel"`
}

var thresholdValidator = validator.New()

// Validate checks that every caution threshold is strictly less severe than
// its cancel counterpart along the variable's axis.
func (t *ThresholdProfile) Validate() error {
	if err := thresholdValidator.Struct(t); err != nil {
		return NewAppError(
			ErrCodeValidationThresholdOrder,
			"caution thresholds must be strictly less severe than cancel thresholds",
			err,
		)
	}
	return nil
}

// DefaultThresholds returns the hardcoded fallback threshold profile used
// when a site has no active profile configured. Wind and gust in m/s,
// precipitation in mm/h, temperature in degrees Celsius.
func DefaultThresholds() ThresholdProfile {
	return ThresholdProfile{
		WindMeanCaution: 10.0,
		WindMeanCancel:  14.0,
		GustCaution:     15.0,
		GustCancel:      20.0,
		PrecipCaution:   0.7,
		PrecipCancel:    2.0,
		TempMinCaution:  1.0,
		TempMinCancel:   -2.0,
	}
}

// HourlyObservation is one hour of blended ensemble output with inter-model
// spread and the computed risk score. Weather values and the risk are pointers:
// nil means "no data", which is never conflated with a valid zero reading.
type HourlyObservation struct {
	Timestamp     time.Time `json:"timestamp"`
	WindSpeed     *float64  `json:"wind_speed"`
	WindGusts     *float64  `json:"wind_gusts"`
	Precipitation *float64  `json:"precipitation"`
	Temperature   *float64  `json:"temperature"`
	WindSpread    float64   `json:"wind_spread"`
	GustSpread    float64   `json:"gust_spread"`
	PrecipSpread  float64   `json:"precip_spread"`
	TempSpread    float64   `json:"temp_spread"`
	HourlyRisk    *float64  `json:"hourly_risk"`
}

// DailyForecastResult is the engine's output for one calendar date. It is a
// value object with no identity of its own: callers persisting a result for a
// site+date fully replace any previous result, never merge.
type DailyForecastResult struct {
	ForecastDate       time.Time           `json:"forecast_date"`
	Status             RunStatus           `json:"status"`
	PeakRisk           *float64            `json:"peak_risk"`
	Recommendation     Recommendation      `json:"recommendation"`
	PeakWind           *float64            `json:"peak_wind"`
	PeakGust           *float64            `json:"peak_gust"`
	PeakPrecip         *float64            `json:"peak_precip"`
	MinTemp            *float64            `json:"min_temp"`
	ModelsUsed         []ModelID           `json:"models_used"`
	ThresholdsSnapshot ThresholdProfile    `json:"thresholds_snapshot"`
	ErrorMessage       string              `json:"error_message,omitempty"`
	Hourly             []HourlyObservation `json:"hourly_observations,omitempty"`
}
