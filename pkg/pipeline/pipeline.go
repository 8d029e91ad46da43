// Package pipeline orchestrates one reconciliation run: load both feeds,
// build the registry, resolve every transaction, and emit the resolved and
// orphan partitions. The pipeline holds no state between runs; each run
// recomputes everything from the two input datasets.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/acre/pkg/audit"
	"github.com/Ramsey-B/acre/pkg/countycode"
	"github.com/Ramsey-B/acre/pkg/matching"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/normalize"
	"github.com/Ramsey-B/acre/pkg/registry"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

// ParcelSource yields the parcel registry feed for a run.
type ParcelSource interface {
	Parcels(ctx context.Context) ([]models.Parcel, error)
}

// TransactionSource yields the transaction feed for a run.
type TransactionSource interface {
	Transactions(ctx context.Context) ([]models.Transaction, error)
}

// ParcelStore persists the resolved parcel set via full replace.
type ParcelStore interface {
	Replace(ctx context.Context, parcels []models.Parcel) error
}

// EventStore persists the resolved transaction set via full replace.
type EventStore interface {
	Replace(ctx context.Context, events []models.ResolvedTransaction) error
}

// Config controls one run.
type Config struct {
	ParcelNormalizePolicy string
	EventNormalizePolicy  string
	TieBreak              registry.TieBreak
	// Fuzzy thresholds pass through to the matcher unchanged; zero means no
	// score floor.
	AddressThreshold  float64
	ParcelIDThreshold float64
	// WorkerCount parallelizes the match stage. Resolution of one
	// transaction never depends on another, so partitioning is safe.
	WorkerCount int
}

// Pipeline runs the reconciliation state machine:
// LOAD_PARCELS -> BUILD_REGISTRY -> LOAD_TRANSACTIONS -> NORMALIZE ->
// MATCH -> PARTITION -> EMIT.
type Pipeline struct {
	logger      ectologger.Logger
	counties    *countycode.Table
	parcels     ParcelSource
	txns        TransactionSource
	parcelStore ParcelStore
	eventStore  EventStore
	sinks       []audit.Sink
	config      Config
}

// New creates a pipeline. Stores may be nil for dry runs; EMIT is skipped
// for whichever store is absent.
func New(
	logger ectologger.Logger,
	counties *countycode.Table,
	parcels ParcelSource,
	txns TransactionSource,
	parcelStore ParcelStore,
	eventStore EventStore,
	config Config,
	sinks ...audit.Sink,
) *Pipeline {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.ParcelNormalizePolicy == "" {
		config.ParcelNormalizePolicy = normalize.PolicyAlphanumeric
	}
	if config.EventNormalizePolicy == "" {
		config.EventNormalizePolicy = config.ParcelNormalizePolicy
	}
	return &Pipeline{
		logger:      logger,
		counties:    counties,
		parcels:     parcels,
		txns:        txns,
		parcelStore: parcelStore,
		eventStore:  eventStore,
		sinks:       sinks,
		config:      config,
	}
}

// Run executes one reconciliation pass. Per-record anomalies are recovered
// into the audit side-channel; only infrastructure failures (unreadable
// feeds, unavailable stores) surface as an error, and those abort before
// any partial emit.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	runID := uuid.New().String()
	log := p.logger.WithContext(ctx).WithFields(map[string]any{"run_id": runID})
	reporter := audit.NewReporter(p.logger, runID, p.sinks...)
	startedAt := time.Now().UTC()

	// LOAD_PARCELS
	parcelRows, err := p.parcels.Parcels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load parcel feed: %w", err)
	}
	log.WithFields(map[string]any{"rows": len(parcelRows)}).Info("Loaded parcel feed")

	// BUILD_REGISTRY
	reg := registry.Build(ctx, p.logger, p.counties, parcelRows, registry.Config{
		NormalizePolicy: p.config.ParcelNormalizePolicy,
		TieBreak:        p.config.TieBreak,
	}, reporter)

	// LOAD_TRANSACTIONS
	txnRows, err := p.txns.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction feed: %w", err)
	}
	log.WithFields(map[string]any{"rows": len(txnRows)}).Info("Loaded transaction feed")

	// NORMALIZE_TRANSACTIONS: exclude rows with no usable event date before
	// matching. The feed readers already applied the date fallback chain.
	matchable := make([]models.Transaction, 0, len(txnRows))
	for _, txn := range txnRows {
		if txn.EventDate.IsZero() {
			reporter.Dropped(ctx, txn, models.ReasonMissingEventDate)
			continue
		}
		matchable = append(matchable, txn)
	}

	// MATCH
	matcher := matching.NewMatcher(p.logger, p.counties, reg, matching.Config{
		NormalizePolicy:   p.config.EventNormalizePolicy,
		AddressThreshold:  p.config.AddressThreshold,
		ParcelIDThreshold: p.config.ParcelIDThreshold,
	})
	resolutions := p.matchAll(ctx, matcher, matchable)

	// PARTITION: resolved vs orphan, then dedupe resolved events on
	// (canonical_key, event_date) keeping the first in input order.
	// Orphans are reported in input order so the audit log is reproducible.
	resolved := make([]models.ResolvedTransaction, 0, len(matchable))
	seen := make(map[string]struct{}, len(matchable))
	for i, txn := range matchable {
		resolution := resolutions[i]
		if !resolution.Matched() {
			reporter.Orphan(ctx, txn, resolution)
			continue
		}

		dedupeKey := resolution.CanonicalKey + "|" + txn.EventDate.UTC().Format(time.RFC3339)
		if _, dup := seen[dedupeKey]; dup {
			reporter.Dropped(ctx, txn, models.ReasonDuplicateEvent)
			continue
		}
		seen[dedupeKey] = struct{}{}

		txn.EventID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(dedupeKey)).String()
		resolved = append(resolved, models.ResolvedTransaction{
			Transaction:  txn,
			CanonicalKey: resolution.CanonicalKey,
			MatchStage:   resolution.Stage,
		})
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		if resolved[i].CanonicalKey != resolved[j].CanonicalKey {
			return resolved[i].CanonicalKey < resolved[j].CanonicalKey
		}
		return resolved[i].EventDate.Before(resolved[j].EventDate)
	})

	// EMIT: clear-then-bulk-load so a partially completed load is never
	// observable. Store failures abort the run with prior state intact.
	if p.parcelStore != nil {
		parcels := make([]models.Parcel, 0, reg.Len())
		for _, key := range reg.Keys() {
			parcel, _ := reg.Lookup(key)
			parcels = append(parcels, parcel)
		}
		if err := p.parcelStore.Replace(ctx, parcels); err != nil {
			return nil, fmt.Errorf("failed to emit parcel set: %w", err)
		}
	}
	if p.eventStore != nil {
		if err := p.eventStore.Replace(ctx, resolved); err != nil {
			return nil, fmt.Errorf("failed to emit resolved transaction set: %w", err)
		}
	}

	counts := reporter.Counts()
	summary := &models.RunSummary{
		RunID:      runID,
		Resolved:   len(resolved),
		Orphan:     counts[models.AuditKindOrphan],
		Duplicate:  counts[models.AuditKindDuplicate],
		Unkeyable:  counts[models.AuditKindUnkeyable],
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}

	log.WithFields(map[string]any{
		"resolved":  summary.Resolved,
		"orphan":    summary.Orphan,
		"duplicate": summary.Duplicate,
		"unkeyable": summary.Unkeyable,
	}).Info("Reconciliation run complete")

	return summary, nil
}

// matchAll resolves transactions over a worker pool. Results are written by
// input index so the outcome is independent of worker scheduling.
func (p *Pipeline) matchAll(ctx context.Context, matcher *matching.Matcher, txns []models.Transaction) []models.Resolution {
	resolutions := make([]models.Resolution, len(txns))

	workers := p.config.WorkerCount
	if workers > len(txns) {
		workers = len(txns)
	}
	if workers <= 1 {
		for i, txn := range txns {
			resolutions[i] = matcher.Resolve(ctx, txn)
		}
		return resolutions
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				resolutions[i] = matcher.Resolve(ctx, txns[i])
			}
		}()
	}
	for i := range txns {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return resolutions
}
