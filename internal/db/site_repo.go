package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"orcamet/internal/types"
)

// SiteRepository provides read access to the sites table. Site CRUD lives in
// the admin surface; the engine and API only read.
type SiteRepository struct {
	db DBTX
}

// NewSiteRepository creates a SiteRepository backed by the given connection.
func NewSiteRepository(db DBTX) *SiteRepository {
	return &SiteRepository{db: db}
}

const siteColumns = `id, name, latitude, longitude, exposure,
	is_active, job_complete, created_at, updated_at`

func scanSite(row pgx.Row) (*types.Site, error) {
	var s types.Site
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Latitude,
		&s.Longitude,
		&s.Exposure,
		&s.IsActive,
		&s.JobComplete,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActive returns all active sites whose job is not complete, ordered by
// name for stable batch processing.
func (r *SiteRepository) ListActive(ctx context.Context) ([]types.Site, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM sites WHERE is_active AND NOT job_complete ORDER BY name`,
		siteColumns,
	))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing active sites", err)
	}
	defer rows.Close()

	var sites []types.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning site row", err)
		}
		sites = append(sites, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating site rows", err)
	}

	return sites, nil
}

// GetByID returns one active site by ID.
func (r *SiteRepository) GetByID(ctx context.Context, id string) (*types.Site, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM sites WHERE id = $1 AND is_active`,
		siteColumns,
	), id)

	s, err := scanSite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(
				types.ErrCodeNotFoundSite,
				fmt.Sprintf("site %s not found", id),
				err,
			)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching site", err)
	}
	return s, nil
}
