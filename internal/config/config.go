// Package config defines the process configuration for the OrcaMet forecast
// engine. Configuration is loaded once at startup and immutable thereafter;
// any missing required value or invalid format fails the process immediately.
//
// Values come from the OS environment, with a .env file as a non-overriding
// fallback for local development.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Database DatabaseConfig
	Forecast ForecastConfig
}

// ServerConfig holds HTTP server settings for the API binary.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// ForecastConfig holds the engine's run parameters and provider settings.
type ForecastConfig struct {
	// HorizonDays is the number of calendar days to forecast, starting today.
	HorizonDays int `envconfig:"FORECAST_HORIZON_DAYS" default:"3" validate:"min=1,max=16"`

	// WorkStartHour and WorkEndHour bound the operational window (UTC hours,
	// inclusive) used for daily summary statistics.
	WorkStartHour int `envconfig:"FORECAST_WORK_START_HOUR" default:"7" validate:"min=0,max=23"`
	WorkEndHour   int `envconfig:"FORECAST_WORK_END_HOUR" default:"18" validate:"min=0,max=23"`

	// APIKey is the optional Open-Meteo commercial API key. The free tier
	// works without one.
	APIKey string `envconfig:"OPENMETEO_API_KEY"`

	// PacingDelay is the courtesy delay between successive model fetches.
	PacingDelay time.Duration `envconfig:"FETCH_PACING_DELAY" default:"150ms"`

	// FetchTimeout bounds each provider request.
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
}

// Load reads, validates, and returns the process configuration.
//
// The loading sequence is:
//  1. Enforce UTC as the process timezone to prevent date-bucketing drift.
//  2. Load a .env file if present (non-fatal if missing, never overrides
//     existing environment variables).
//  3. Process envconfig struct tags.
//  4. Validate the populated struct.
func Load() (*Config, error) {
	time.Local = time.UTC

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.Forecast.WorkEndHour < cfg.Forecast.WorkStartHour {
		return nil, fmt.Errorf("FORECAST_WORK_END_HOUR (%d) must not precede FORECAST_WORK_START_HOUR (%d)",
			cfg.Forecast.WorkEndHour, cfg.Forecast.WorkStartHour)
	}

	return &cfg, nil
}
