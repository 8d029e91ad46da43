package event

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/acre/pkg/database"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

const insertBatchSize = 500

var columns = []string{"event_id", "canonical_key", "match_stage", "raw_parcel_identification", "county_name", "event_type", "event_date", "address", "zip_code", "source", "payload"}

// Repository handles resolved transaction persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new event repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Replace clears the event table and bulk loads the resolved set in one
// transaction.
func (r *Repository) Replace(ctx context.Context, events []models.ResolvedTransaction) error {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Replace")
	defer span.End()

	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE parcel_events"); err != nil {
			return err
		}

		for start := 0; start < len(events); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(events) {
				end = len(events)
			}

			ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
			ib.InsertInto("parcel_events")
			ib.Cols(columns...)
			for _, e := range events[start:end] {
				ib.Values(e.EventID, e.CanonicalKey, e.MatchStage, e.RawParcelID, e.CountyName, e.EventType, e.EventDate, e.Address, e.ZipCode, e.Source, nullableJSON(e.Payload))
			}

			query, args := ib.Build()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"events": len(events)}).Error("Failed to replace event set")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to replace event set: %v", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"events": len(events)}).Info("Replaced event set")
	return nil
}

// ListByParcel retrieves the events resolved to a canonical key, oldest
// first.
func (r *Repository) ListByParcel(ctx context.Context, canonicalKey string, limit, offset int) ([]models.ResolvedTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.ListByParcel")
	defer span.End()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("parcel_events")
	sb.Where(sb.Equal("canonical_key", canonicalKey))
	sb.OrderBy("event_date", "event_id")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var events []models.ResolvedTransaction
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"canonical_key": canonicalKey}).Error("Failed to list events by parcel")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list events")
	}
	return events, nil
}

// GetByEventID retrieves one resolved event.
func (r *Repository) GetByEventID(ctx context.Context, eventID string) (*models.ResolvedTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.GetByEventID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("parcel_events")
	sb.Where(sb.Equal("event_id", eventID))
	sb.Limit(1)

	query, args := sb.Build()
	var event models.ResolvedTransaction
	if err := r.db.GetContext(ctx, &event, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "event %s not found", eventID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"event_id": eventID}).Error("Failed to get event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get event")
	}
	return &event, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
