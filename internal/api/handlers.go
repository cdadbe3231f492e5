// Package api implements the HTTP surface of the OrcaMet portal: site
// summaries for the dashboard, per-site chart data for the hourly plots, and
// the health endpoint.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"orcamet/internal/db"
	"orcamet/internal/types"
)

// SiteReader is the site lookup contract the handlers depend on. Defined
// locally so the handlers couple to behavior, not to the db package's
// concrete repositories.
type SiteReader interface {
	ListActive(ctx context.Context) ([]types.Site, error)
	GetByID(ctx context.Context, id string) (*types.Site, error)
}

// RunReader provides access to persisted forecast runs and their hourly rows.
type RunReader interface {
	LatestSuccessful(ctx context.Context, siteID string) (*db.RunRecord, error)
	ListSuccessfulSince(ctx context.Context, siteID string, from time.Time) ([]db.RunRecord, error)
	ListHourly(ctx context.Context, runIDs []string) ([]types.HourlyObservation, error)
}

// ThresholdReader resolves a site's active threshold profile, (nil, nil) when
// none is configured.
type ThresholdReader interface {
	GetActiveForSite(ctx context.Context, siteID string) (*types.ThresholdProfile, error)
}

// SiteHandler serves the dashboard endpoints.
type SiteHandler struct {
	sites      SiteReader
	runs       RunReader
	thresholds ThresholdReader
	logger     *slog.Logger
}

// NewSiteHandler creates a SiteHandler with the provided dependencies.
func NewSiteHandler(sites SiteReader, runs RunReader, thresholds ThresholdReader, logger *slog.Logger) *SiteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteHandler{
		sites:      sites,
		runs:       runs,
		thresholds: thresholds,
		logger:     logger,
	}
}

// RegisterRoutes mounts the site endpoints onto the router.
func (h *SiteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListSites)
	r.Get("/{siteID}/chart", h.HandleChartData)
}

// SiteSummary is one dashboard row: the site plus its most recent successful
// forecast, if any.
type SiteSummary struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Exposure       types.Exposure        `json:"exposure"`
	ForecastDate   *time.Time            `json:"forecast_date,omitempty"`
	PeakRisk       *float64              `json:"peak_risk,omitempty"`
	Recommendation *types.Recommendation `json:"recommendation,omitempty"`
	GeneratedAt    *time.Time            `json:"generated_at,omitempty"`
}

// SiteListResponse is the dashboard overview payload.
type SiteListResponse struct {
	Sites              []SiteSummary `json:"sites"`
	SiteCount          int           `json:"site_count"`
	ForecastCount      int           `json:"forecast_count"`
	AlertCount         int           `json:"alert_count"`
	LatestForecastTime *time.Time    `json:"latest_forecast_time,omitempty"`
}

// HandleListSites handles GET /api/sites. Each active site is annotated with
// its latest successful run; sites whose latest recommendation is CAUTION or
// CANCEL count as alerts.
func (h *SiteHandler) HandleListSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sites, err := h.sites.ListActive(ctx)
	if err != nil {
		Error(w, r, err)
		return
	}

	resp := SiteListResponse{
		Sites:     make([]SiteSummary, 0, len(sites)),
		SiteCount: len(sites),
	}

	for _, site := range sites {
		summary := SiteSummary{
			ID:       site.ID,
			Name:     site.Name,
			Exposure: site.Exposure,
		}

		run, err := h.runs.LatestSuccessful(ctx, site.ID)
		if err != nil {
			Error(w, r, err)
			return
		}
		if run != nil {
			resp.ForecastCount++
			summary.ForecastDate = &run.ForecastDate
			summary.PeakRisk = run.PeakRisk
			summary.Recommendation = &run.Recommendation
			summary.GeneratedAt = &run.GeneratedAt

			if run.Recommendation == types.RecommendationCaution || run.Recommendation == types.RecommendationCancel {
				resp.AlertCount++
			}
			if resp.LatestForecastTime == nil || run.GeneratedAt.After(*resp.LatestForecastTime) {
				t := run.GeneratedAt
				resp.LatestForecastTime = &t
			}
		}

		resp.Sites = append(resp.Sites, summary)
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: resp})
}

// ChartSite identifies the site a chart payload belongs to.
type ChartSite struct {
	Name     string         `json:"name"`
	Exposure types.Exposure `json:"exposure"`
}

// ChartHour is one plotted hour. All values are rounded to one decimal; a
// missing risk is null, never zero.
type ChartHour struct {
	Time          string   `json:"time"`
	WindSpeed     *float64 `json:"wind_speed"`
	WindGusts     *float64 `json:"wind_gusts"`
	Precipitation *float64 `json:"precipitation"`
	Temperature   *float64 `json:"temperature"`
	WindSpread    float64  `json:"wind_spread"`
	GustSpread    float64  `json:"gust_spread"`
	PrecipSpread  float64  `json:"precip_spread"`
	TempSpread    float64  `json:"temp_spread"`
	Risk          *float64 `json:"risk"`
}

// ChartResponse is the payload for the hourly forecast charts.
type ChartResponse struct {
	Site       ChartSite              `json:"site"`
	Thresholds types.ThresholdProfile `json:"thresholds"`
	Hourly     []ChartHour            `json:"hourly"`
}

// HandleChartData handles GET /api/sites/{siteID}/chart. It returns the
// hourly rows for the latest successful run per forecast date, from yesterday
// onward, with the threshold lines the chart overlays.
func (h *SiteHandler) HandleChartData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := chi.URLParam(r, "siteID")

	site, err := h.sites.GetByID(ctx, siteID)
	if err != nil {
		Error(w, r, err)
		return
	}

	yesterday := midnightUTC(time.Now().UTC()).AddDate(0, 0, -1)
	runs, err := h.runs.ListSuccessfulSince(ctx, site.ID, yesterday)
	if err != nil {
		Error(w, r, err)
		return
	}

	runIDs := make([]string, len(runs))
	for i, run := range runs {
		runIDs[i] = run.ID
	}

	hours, err := h.runs.ListHourly(ctx, runIDs)
	if err != nil {
		Error(w, r, err)
		return
	}

	thresholds, err := h.thresholds.GetActiveForSite(ctx, site.ID)
	if err != nil {
		Error(w, r, err)
		return
	}
	profile := types.DefaultThresholds()
	if thresholds != nil {
		profile = *thresholds
	}

	resp := ChartResponse{
		Site: ChartSite{
			Name:     site.Name,
			Exposure: site.Exposure,
		},
		Thresholds: profile,
		Hourly:     make([]ChartHour, 0, len(hours)),
	}

	for _, hr := range hours {
		resp.Hourly = append(resp.Hourly, ChartHour{
			Time:          hr.Timestamp.UTC().Format(time.RFC3339),
			WindSpeed:     round1Ptr(hr.WindSpeed),
			WindGusts:     round1Ptr(hr.WindGusts),
			Precipitation: round1Ptr(hr.Precipitation),
			Temperature:   round1Ptr(hr.Temperature),
			WindSpread:    round1(hr.WindSpread),
			GustSpread:    round1(hr.GustSpread),
			PrecipSpread:  round1(hr.PrecipSpread),
			TempSpread:    round1(hr.TempSpread),
			Risk:          round1Ptr(hr.HourlyRisk),
		})
	}

	JSON(w, r, http.StatusOK, resp)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /healthz.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a HealthHandler checking the given database.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HandleHealth reports process liveness and database reachability.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		JSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}

	JSON(w, r, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}
