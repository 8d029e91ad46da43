// Package audit implements the orphan/duplicate side-channel. The reporter
// owns its log exclusively: the loader and pipeline append to it, nothing
// else mutates it.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/acre/pkg/models"
)

// Sink receives audit records. Implementations must tolerate appends only;
// a failed write is reported to the caller but never stops a run.
type Sink interface {
	Write(ctx context.Context, record models.AuditRecord) error
}

// Reporter is the append-only audit channel for a single run.
type Reporter struct {
	logger ectologger.Logger
	runID  string
	sinks  []Sink

	mu     sync.Mutex
	counts map[models.AuditKind]int
}

// NewReporter creates a reporter for one run.
func NewReporter(logger ectologger.Logger, runID string, sinks ...Sink) *Reporter {
	return &Reporter{
		logger: logger,
		runID:  runID,
		sinks:  sinks,
		counts: make(map[models.AuditKind]int),
	}
}

// Unkeyable records a parcel whose canonical key could not be derived,
// with the cause the caller established (unknown county, empty id).
func (r *Reporter) Unkeyable(ctx context.Context, parcel models.Parcel, reason models.ReasonCode) {
	r.write(ctx, models.AuditRecord{
		Kind:        models.AuditKindUnkeyable,
		RawParcelID: parcel.RawParcelID,
		CountyName:  parcel.CountyName,
		Reasons:     []models.ReasonCode{reason},
	})
}

// Duplicate records a parcel that collided on an already-registered key.
// The full colliding row is retained in Details for later reconciliation.
func (r *Reporter) Duplicate(ctx context.Context, canonicalKey string, discarded models.Parcel) {
	details, _ := json.Marshal(map[string]any{
		"canonical_key": canonicalKey,
		"discarded":     discarded,
	})
	r.write(ctx, models.AuditRecord{
		Kind:        models.AuditKindDuplicate,
		RawParcelID: discarded.RawParcelID,
		CountyName:  discarded.CountyName,
		Reasons:     []models.ReasonCode{models.ReasonDuplicateKey},
		Details:     details,
	})
}

// Orphan records a transaction that resolved to no canonical key, with the
// failing stage trail and the candidate set size at failure.
func (r *Reporter) Orphan(ctx context.Context, txn models.Transaction, resolution models.Resolution) {
	failingStage := models.Stage("")
	if n := len(resolution.Failures); n > 0 {
		failingStage = resolution.Failures[n-1].Stage
	}
	details, _ := json.Marshal(txn)
	r.write(ctx, models.AuditRecord{
		Kind:           models.AuditKindOrphan,
		RawParcelID:    txn.RawParcelID,
		CountyName:     txn.CountyName,
		FailingStage:   failingStage,
		Reasons:        resolution.FailureReasons(),
		CandidateCount: resolution.CandidateCount,
		Details:        details,
	})
}

// Dropped records a transaction excluded before matching (e.g. no usable
// event date in the feed).
func (r *Reporter) Dropped(ctx context.Context, txn models.Transaction, reason models.ReasonCode) {
	details, _ := json.Marshal(txn)
	r.write(ctx, models.AuditRecord{
		Kind:        models.AuditKindOrphan,
		RawParcelID: txn.RawParcelID,
		CountyName:  txn.CountyName,
		Reasons:     []models.ReasonCode{reason},
		Details:     details,
	})
}

// Counts returns the number of records written per kind.
func (r *Reporter) Counts() map[models.AuditKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.AuditKind]int, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}
	return counts
}

func (r *Reporter) write(ctx context.Context, record models.AuditRecord) {
	record.ID = uuid.New().String()
	record.RunID = r.runID
	record.CreatedAt = time.Now().UTC()
	record.ReasonsRaw = joinReasons(record.Reasons)

	r.mu.Lock()
	r.counts[record.Kind]++
	r.mu.Unlock()

	for _, sink := range r.sinks {
		if err := sink.Write(ctx, record); err != nil {
			// A failed audit write is a warning, never a pipeline abort.
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"kind":          record.Kind,
				"raw_parcel_id": record.RawParcelID,
			}).Warn("Failed to write audit record")
		}
	}
}

func joinReasons(reasons []models.ReasonCode) string {
	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = string(reason)
	}
	return strings.Join(parts, ",")
}

// MemorySink collects audit records in memory. Used for run reports and in
// tests.
type MemorySink struct {
	mu      sync.Mutex
	records []models.AuditRecord
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends a record.
func (s *MemorySink) Write(_ context.Context, record models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything written so far.
func (s *MemorySink) Records() []models.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

// ByKind filters the collected records.
func (s *MemorySink) ByKind(kind models.AuditKind) []models.AuditRecord {
	var out []models.AuditRecord
	for _, record := range s.Records() {
		if record.Kind == kind {
			out = append(out, record)
		}
	}
	return out
}

// KindFilterSink forwards only the listed kinds to the wrapped sink. Used to
// split the run output into separate report files per audit kind.
type KindFilterSink struct {
	sink  Sink
	kinds map[models.AuditKind]bool
}

// NewKindFilterSink wraps a sink with a kind filter.
func NewKindFilterSink(sink Sink, kinds ...models.AuditKind) *KindFilterSink {
	allowed := make(map[models.AuditKind]bool, len(kinds))
	for _, kind := range kinds {
		allowed[kind] = true
	}
	return &KindFilterSink{sink: sink, kinds: allowed}
}

// Write forwards the record when its kind is allowed.
func (s *KindFilterSink) Write(ctx context.Context, record models.AuditRecord) error {
	if !s.kinds[record.Kind] {
		return nil
	}
	return s.sink.Write(ctx, record)
}
