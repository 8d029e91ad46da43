package parcel

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/acre/pkg/database"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

// insertBatchSize keeps each bulk insert under the Postgres parameter limit.
const insertBatchSize = 500

var columns = []string{"canonical_key", "raw_parcel_id", "county_name", "site_address", "zip_code", "attributes", "created_at"}

// Repository handles parcel persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new parcel repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Replace clears the parcel table and bulk loads the given set in one
// transaction. The previous set stays visible until commit.
func (r *Repository) Replace(ctx context.Context, parcels []models.Parcel) error {
	ctx, span := tracing.StartSpan(ctx, "parcel.Repository.Replace")
	defer span.End()

	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE parcels"); err != nil {
			return err
		}

		now := time.Now().UTC()
		for start := 0; start < len(parcels); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(parcels) {
				end = len(parcels)
			}

			ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
			ib.InsertInto("parcels")
			ib.Cols(columns...)
			for _, p := range parcels[start:end] {
				createdAt := p.CreatedAt
				if createdAt.IsZero() {
					createdAt = now
				}
				ib.Values(p.CanonicalKey, p.RawParcelID, p.CountyName, p.SiteAddress, p.ZipCode, nullableJSON(p.Attributes), createdAt)
			}

			query, args := ib.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"parcels": len(parcels)}).Error("Failed to replace parcel set")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to replace parcel set: %v", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"parcels": len(parcels)}).Info("Replaced parcel set")
	return nil
}

// GetByCanonicalKey retrieves one parcel by its canonical key.
func (r *Repository) GetByCanonicalKey(ctx context.Context, canonicalKey string) (*models.Parcel, error) {
	ctx, span := tracing.StartSpan(ctx, "parcel.Repository.GetByCanonicalKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("parcels")
	sb.Where(sb.Equal("canonical_key", canonicalKey))
	sb.Limit(1)

	query, args := sb.Build()
	var parcel models.Parcel
	if err := r.db.GetContext(ctx, &parcel, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "parcel %s not found", canonicalKey)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"canonical_key": canonicalKey}).Error("Failed to get parcel")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get parcel")
	}
	return &parcel, nil
}

// ListByCounty retrieves parcels for a county, ordered by canonical key.
func (r *Repository) ListByCounty(ctx context.Context, countyName string, limit, offset int) ([]models.Parcel, error) {
	ctx, span := tracing.StartSpan(ctx, "parcel.Repository.ListByCounty")
	defer span.End()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("parcels")
	sb.Where(sb.Equal("county_name", countyName))
	sb.OrderBy("canonical_key")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var parcels []models.Parcel
	if err := r.db.SelectContext(ctx, &parcels, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"county_name": countyName}).Error("Failed to list parcels by county")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list parcels")
	}
	return parcels, nil
}

// Count returns the number of stored parcels.
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "parcel.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM parcels"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count parcels")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count parcels")
	}
	return count, nil
}

// nullableJSON maps an empty attribute blob to SQL NULL so jsonb columns
// never receive an empty string.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
