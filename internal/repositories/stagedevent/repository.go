package stagedevent

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/acre/pkg/database"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

var columns = []string{"id", "raw_parcel_identification", "county_name", "event_type", "event_date", "address", "zip_code", "source", "payload"}

// Repository stages transaction events arriving over the transport until
// the next reconciliation run picks them up.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new staged event repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append stages one incoming transaction.
func (r *Repository) Append(ctx context.Context, txn models.Transaction) error {
	ctx, span := tracing.StartSpan(ctx, "stagedevent.Repository.Append")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("staged_events")
	ib.Cols(columns...)
	ib.Values(uuid.New().String(), txn.RawParcelID, txn.CountyName, txn.EventType, txn.EventDate, txn.Address, txn.ZipCode, txn.Source, nullableJSON(txn.Payload))

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"raw_parcel_identification": txn.RawParcelID}).Error("Failed to stage event")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to stage event: %v", err)
	}
	return nil
}

// Transactions returns every staged event in arrival order, so a staged
// repository can stand in as a pipeline transaction source.
func (r *Repository) Transactions(ctx context.Context) ([]models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedevent.Repository.Transactions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("raw_parcel_identification", "county_name", "event_type", "event_date", "address", "zip_code", "source", "payload")
	sb.From("staged_events")
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	var txns []models.Transaction
	if err := r.db.SelectContext(ctx, &txns, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list staged events")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list staged events")
	}
	return txns, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
