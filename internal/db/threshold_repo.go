package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"orcamet/internal/types"
)

// ThresholdRepository provides read access to threshold profiles. A site has
// at most one active profile; the engine falls back to hardcoded defaults
// when none exists.
type ThresholdRepository struct {
	db DBTX
}

// NewThresholdRepository creates a ThresholdRepository backed by the given
// connection.
func NewThresholdRepository(db DBTX) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// GetActiveForSite returns the active threshold profile for a site, or
// (nil, nil) when the site has none configured.
func (r *ThresholdRepository) GetActiveForSite(ctx context.Context, siteID string) (*types.ThresholdProfile, error) {
	row := r.db.QueryRow(ctx, `
		SELECT wind_mean_caution, wind_mean_cancel,
		       gust_caution, gust_cancel,
		       precip_caution, precip_cancel,
		       temp_min_caution, temp_min_cancel
		FROM threshold_profiles
		WHERE site_id = $1 AND is_active
		ORDER BY updated_at DESC
		LIMIT 1`,
		siteID,
	)

	var t types.ThresholdProfile
	err := row.Scan(
		&t.WindMeanCaution,
		&t.WindMeanCancel,
		&t.GustCaution,
		&t.GustCancel,
		&t.PrecipCaution,
		&t.PrecipCancel,
		&t.TempMinCaution,
		&t.TempMinCancel,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching threshold profile", err)
	}

	return &t, nil
}
