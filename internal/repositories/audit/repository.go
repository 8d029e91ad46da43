package audit

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/acre/pkg/database"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

var columns = []string{"id", "run_id", "kind", "raw_parcel_id", "county_name", "failing_stage", "reasons", "candidate_count", "details", "created_at"}

// Repository is the append-only audit record store. It satisfies the
// reporter's sink interface so reconciliation runs write straight through.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Write appends one audit record.
func (r *Repository) Write(ctx context.Context, record models.AuditRecord) error {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.Write")
	defer span.End()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("audit_records")
	ib.Cols(columns...)
	ib.Values(record.ID, record.RunID, record.Kind, record.RawParcelID, record.CountyName, record.FailingStage, record.ReasonsRaw, record.CandidateCount, nullableJSON(record.Details), record.CreatedAt)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"kind": record.Kind, "run_id": record.RunID}).Error("Failed to write audit record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to write audit record: %v", err)
	}
	return nil
}

// ListByRun retrieves the audit records of one run, optionally filtered by
// kind, in write order.
func (r *Repository) ListByRun(ctx context.Context, runID string, kind models.AuditKind, limit, offset int) ([]models.AuditRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.ListByRun")
	defer span.End()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From("audit_records")
	where := []string{sb.Equal("run_id", runID)}
	if kind != "" {
		where = append(where, sb.Equal("kind", kind))
	}
	sb.Where(where...)
	sb.OrderBy("created_at", "id")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var records []models.AuditRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": runID, "kind": kind}).Error("Failed to list audit records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list audit records")
	}
	return records, nil
}

// CountByRun reports per-kind record counts for one run.
func (r *Repository) CountByRun(ctx context.Context, runID string) (map[models.AuditKind]int, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Repository.CountByRun")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("kind", "COUNT(*) AS total")
	sb.From("audit_records")
	sb.Where(sb.Equal("run_id", runID))
	sb.GroupBy("kind")

	query, args := sb.Build()
	var rows []struct {
		Kind  models.AuditKind `db:"kind"`
		Total int              `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"run_id": runID}).Error("Failed to count audit records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count audit records")
	}

	counts := make(map[models.AuditKind]int, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Total
	}
	return counts, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
