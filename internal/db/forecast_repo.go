package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orcamet/internal/types"
)

// RunRecord is a persisted daily forecast result with its storage identity.
type RunRecord struct {
	ID          string
	SiteID      string
	GeneratedAt time.Time

	types.DailyForecastResult
}

// ForecastRunRepository provides data access for the forecast_runs and
// hourly_forecasts tables. It takes a pool rather than DBTX because the
// replacement write is transactional.
type ForecastRunRepository struct {
	pool *pgxpool.Pool
}

// NewForecastRunRepository creates a ForecastRunRepository backed by the pool.
func NewForecastRunRepository(pool *pgxpool.Pool) *ForecastRunRepository {
	return &ForecastRunRepository{pool: pool}
}

// Replace atomically swaps the stored result for a site and date: any existing
// run for the same site+date is deleted (hourly rows cascade) and the fresh
// run and its hourly observations are inserted. Results are never merged.
func (r *ForecastRunRepository) Replace(ctx context.Context, siteID string, result types.DailyForecastResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "beginning replace transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM forecast_runs WHERE site_id = $1 AND forecast_date = $2`,
		siteID, result.ForecastDate,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "deleting superseded run", err)
	}

	snapshot, err := json.Marshal(result.ThresholdsSnapshot)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "encoding thresholds snapshot", err)
	}

	runID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO forecast_runs (
			id, site_id, forecast_date, status,
			peak_risk, recommendation, peak_wind, peak_gust, peak_precip, min_temp,
			models_used, thresholds_snapshot, error_message, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())`,
		runID,
		siteID,
		result.ForecastDate,
		result.Status,
		result.PeakRisk,
		result.Recommendation,
		result.PeakWind,
		result.PeakGust,
		result.PeakPrecip,
		result.MinTemp,
		modelIDStrings(result.ModelsUsed),
		snapshot,
		nullableString(result.ErrorMessage),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "inserting forecast run", err)
	}

	if len(result.Hourly) > 0 {
		batch := &pgx.Batch{}
		for _, h := range result.Hourly {
			batch.Queue(`
				INSERT INTO hourly_forecasts (
					run_id, ts,
					wind_speed, wind_gusts, precipitation, temperature,
					wind_spread, gust_spread, precip_spread, temp_spread,
					hourly_risk
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				runID, h.Timestamp,
				h.WindSpeed, h.WindGusts, h.Precipitation, h.Temperature,
				h.WindSpread, h.GustSpread, h.PrecipSpread, h.TempSpread,
				h.HourlyRisk,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "inserting hourly observations", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "committing replace transaction", err)
	}

	return nil
}

const runColumns = `id, site_id, forecast_date, status,
	peak_risk, recommendation, peak_wind, peak_gust, peak_precip, min_temp,
	models_used, thresholds_snapshot, error_message, generated_at`

func scanRun(row pgx.Row) (*RunRecord, error) {
	var rec RunRecord
	var models []string
	var snapshot []byte
	var errorMessage *string

	err := row.Scan(
		&rec.ID,
		&rec.SiteID,
		&rec.ForecastDate,
		&rec.Status,
		&rec.PeakRisk,
		&rec.Recommendation,
		&rec.PeakWind,
		&rec.PeakGust,
		&rec.PeakPrecip,
		&rec.MinTemp,
		&models,
		&snapshot,
		&errorMessage,
		&rec.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, m := range models {
		rec.ModelsUsed = append(rec.ModelsUsed, types.ModelID(m))
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &rec.ThresholdsSnapshot); err != nil {
			return nil, fmt.Errorf("decoding thresholds snapshot: %w", err)
		}
	}
	if errorMessage != nil {
		rec.ErrorMessage = *errorMessage
	}

	return &rec, nil
}

// LatestSuccessful returns the most recent successful run for a site by
// forecast date, or (nil, nil) when none exists.
func (r *ForecastRunRepository) LatestSuccessful(ctx context.Context, siteID string) (*RunRecord, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM forecast_runs
		WHERE site_id = $1 AND status = $2
		ORDER BY forecast_date DESC, generated_at DESC
		LIMIT 1`, runColumns),
		siteID, types.RunSuccess,
	)

	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching latest run", err)
	}
	return rec, nil
}

// ListSuccessfulSince returns at most one successful run per forecast date
// (the most recently generated) from the given date onward, in ascending date
// order.
func (r *ForecastRunRepository) ListSuccessfulSince(ctx context.Context, siteID string, from time.Time) ([]RunRecord, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT DISTINCT ON (forecast_date) %s
		FROM forecast_runs
		WHERE site_id = $1 AND status = $2 AND forecast_date >= $3
		ORDER BY forecast_date, generated_at DESC`, runColumns),
		siteID, types.RunSuccess, from,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing runs", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning run row", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating run rows", err)
	}

	return records, nil
}

// ListHourly returns the hourly observations for the given runs, ordered by
// timestamp.
func (r *ForecastRunRepository) ListHourly(ctx context.Context, runIDs []string) ([]types.HourlyObservation, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ts, wind_speed, wind_gusts, precipitation, temperature,
		       wind_spread, gust_spread, precip_spread, temp_spread, hourly_risk
		FROM hourly_forecasts
		WHERE run_id = ANY($1)
		ORDER BY ts`,
		runIDs,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing hourly observations", err)
	}
	defer rows.Close()

	var hours []types.HourlyObservation
	for rows.Next() {
		var h types.HourlyObservation
		err := rows.Scan(
			&h.Timestamp,
			&h.WindSpeed,
			&h.WindGusts,
			&h.Precipitation,
			&h.Temperature,
			&h.WindSpread,
			&h.GustSpread,
			&h.PrecipSpread,
			&h.TempSpread,
			&h.HourlyRisk,
		)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning hourly row", err)
		}
		hours = append(hours, h)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating hourly rows", err)
	}

	return hours, nil
}

func modelIDStrings(ids []types.ModelID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
