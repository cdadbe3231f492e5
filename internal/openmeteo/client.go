// Package openmeteo implements the per-model forecast fetcher. One request is
// issued per model per ensemble run, covering the full date window, requesting
// hourly wind speed, wind gusts, precipitation, and air temperature in UTC and
// metric units. Responses are normalized into types.ModelSeries with JSON
// nulls preserved as missing values.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"orcamet/internal/external"
	"orcamet/internal/registry"
	"orcamet/internal/types"
)

// hourlyVariables is the fixed variable selection requested from every model.
const hourlyVariables = "wind_speed_10m,wind_gusts_10m,precipitation,temperature_2m"

// dateLayout formats the inclusive start/end dates of the request window.
const dateLayout = "2006-01-02"

// hourLayout matches Open-Meteo hourly timestamps, which omit the zone
// designator when timezone=UTC is requested.
const hourLayout = "2006-01-02T15:04"

// Doer abstracts the resilient HTTP client so tests can inject failures
// without a network.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches hourly series from Open-Meteo-compatible provider endpoints.
type Client struct {
	http   Doer
	apiKey string
	logger *slog.Logger
}

// Config holds the Client construction parameters.
type Config struct {
	// APIKey is attached to every request when non-empty. The free tier
	// requires no key.
	APIKey string
	// Timeout bounds each provider request.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewClient creates a provider client backed by a resilient BaseClient.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := external.NewBaseClient(
		&http.Client{Timeout: timeout},
		"openmeteo",
		external.DefaultRetryPolicy(),
		"orcamet-forecaster/1.0",
	)
	return &Client{
		http:   base,
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// NewClientWithDoer creates a Client with a caller-provided HTTP doer.
// Intended for tests.
func NewClientWithDoer(doer Doer, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: doer, apiKey: apiKey, logger: logger}
}

// forecastResponse mirrors the subset of the provider JSON the engine needs.
// Value arrays use *float64 so JSON nulls decode as missing, not zero.
type forecastResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		WindSpeed10m  []*float64 `json:"wind_speed_10m"`
		WindGusts10m  []*float64 `json:"wind_gusts_10m"`
		Precipitation []*float64 `json:"precipitation"`
		Temperature2m []*float64 `json:"temperature_2m"`
	} `json:"hourly"`
}

// FetchSeries retrieves one model's hourly series for a location and inclusive
// date range. Any transport failure, non-success status, or response without
// an hourly time axis is returned as an AppError with code
// upstream_model_unavailable; the ensemble treats such models as absent.
func (c *Client) FetchSeries(
	ctx context.Context,
	spec registry.ModelSpec,
	lat, lon float64,
	start, end time.Time,
) (*types.ModelSeries, error) {
	reqURL, err := c.buildURL(spec, lat, lon, start, end)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamModel,
			fmt.Sprintf("building request for model %s", spec.ID),
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamModel,
			fmt.Sprintf("creating request for model %s", spec.ID),
			err,
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamModel,
			fmt.Sprintf("fetching model %s", spec.ID),
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewAppError(
			types.ErrCodeUpstreamModel,
			fmt.Sprintf("model %s returned status %d: %s", spec.ID, resp.StatusCode, body),
			nil,
		)
	}

	var parsed forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamModel,
			fmt.Sprintf("decoding response for model %s", spec.ID),
			err,
		)
	}

	if len(parsed.Hourly.Time) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamModel,
			fmt.Sprintf("no hourly data returned for model %s", spec.ID),
			nil,
		)
	}

	times, err := parseTimes(parsed.Hourly.Time)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamModel,
			fmt.Sprintf("parsing timestamps for model %s", spec.ID),
			err,
		)
	}

	return &types.ModelSeries{
		Model:         spec.ID,
		Times:         times,
		WindSpeed:     parsed.Hourly.WindSpeed10m,
		WindGusts:     parsed.Hourly.WindGusts10m,
		Precipitation: parsed.Hourly.Precipitation,
		Temperature:   parsed.Hourly.Temperature2m,
	}, nil
}

// buildURL assembles the provider request URL: location, variable selection,
// UTC timezone, metric units, the date window, the model-specific parameters
// from the registry, and the API key if configured.
func (c *Client) buildURL(spec registry.ModelSpec, lat, lon float64, start, end time.Time) (string, error) {
	u, err := url.Parse(spec.Endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("hourly", hourlyVariables)
	q.Set("timezone", "UTC")
	q.Set("wind_speed_unit", "ms")
	q.Set("precipitation_unit", "mm")
	q.Set("start_date", start.UTC().Format(dateLayout))
	q.Set("end_date", end.UTC().Format(dateLayout))
	for k, v := range spec.QueryParams {
		q.Set(k, v)
	}
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// parseTimes converts the provider's hourly time axis to UTC time.Time values.
// Open-Meteo omits the zone designator when timezone=UTC; RFC 3339 stamps are
// accepted as a fallback.
func parseTimes(raw []string) ([]time.Time, error) {
	times := make([]time.Time, len(raw))
	for i, s := range raw {
		t, err := time.ParseInLocation(hourLayout, s, time.UTC)
		if err != nil {
			t, err = time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, fmt.Errorf("invalid hourly timestamp %q: %w", s, err)
			}
		}
		times[i] = t.UTC()
	}
	return times, nil
}
