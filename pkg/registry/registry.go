// Package registry builds the authoritative canonical_key -> parcel mapping
// for one reconciliation run.
package registry

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/acre/pkg/audit"
	"github.com/Ramsey-B/acre/pkg/countycode"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/normalize"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

// TieBreak selects which parcel wins a canonical key collision. The policy
// is explicit and deterministic; the loser always lands in the duplicate
// report.
type TieBreak string

const (
	// TieBreakFirst keeps the first parcel in input order.
	TieBreakFirst TieBreak = "first"
	// TieBreakMostComplete keeps the parcel with more populated identifying
	// fields, falling back to input order on equal completeness.
	TieBreakMostComplete TieBreak = "most_complete"
)

// Config controls how the registry is built.
type Config struct {
	// NormalizePolicy names the normalization policy for the parcel feed.
	NormalizePolicy string
	TieBreak        TieBreak
}

// Registry is the frozen output of a build: the key map plus the derived
// match indices. It is read-only after Build returns and therefore safe to
// share across matcher workers.
type Registry struct {
	parcels map[string]models.Parcel
	order   []string

	// segment -> canonical key, from hyphen-splitting every registry
	// parcel's raw id. Segments seen under more than one key are ambiguous
	// and recorded as such rather than overwritten.
	segments map[string]segmentEntry

	// zip code -> canonical keys sharing it, for fuzzy-match blocking.
	blocks map[string][]string

	policy string
}

type segmentEntry struct {
	canonicalKey string
	ambiguous    bool
}

// Build derives canonical keys for every parcel row, enforcing key
// uniqueness. Unkeyable and duplicate rows go to the reporter; they are
// never fatal and never silently overwritten.
func Build(ctx context.Context, logger ectologger.Logger, counties *countycode.Table, parcels []models.Parcel, cfg Config, reporter *audit.Reporter) *Registry {
	ctx, span := tracing.StartSpan(ctx, "registry.Build")
	defer span.End()

	if cfg.NormalizePolicy == "" {
		cfg.NormalizePolicy = normalize.PolicyAlphanumeric
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = TieBreakFirst
	}

	log := logger.WithContext(ctx)

	r := &Registry{
		parcels:  make(map[string]models.Parcel, len(parcels)),
		segments: make(map[string]segmentEntry),
		blocks:   make(map[string][]string),
		policy:   cfg.NormalizePolicy,
	}

	for _, parcel := range parcels {
		key, ok := normalize.BuildCanonicalKey(counties, parcel.CountyName, parcel.RawParcelID, cfg.NormalizePolicy)
		if !ok {
			reason := models.ReasonMissingParcelID
			if _, found := counties.Lookup(parcel.CountyName); !found {
				reason = models.ReasonUnknownCounty
			}
			reporter.Unkeyable(ctx, parcel, reason)
			continue
		}
		parcel.CanonicalKey = key

		existing, collided := r.parcels[key]
		if !collided {
			r.parcels[key] = parcel
			r.order = append(r.order, key)
			continue
		}

		kept, discarded := breakTie(cfg.TieBreak, existing, parcel)
		r.parcels[key] = kept
		reporter.Duplicate(ctx, key, discarded)
	}

	r.buildIndices()

	log.WithFields(map[string]any{
		"parcels":  len(parcels),
		"registry": len(r.parcels),
		"segments": len(r.segments),
		"blocks":   len(r.blocks),
	}).Info("Built parcel registry")

	return r
}

// breakTie returns (kept, discarded) for two parcels sharing a key. The
// existing parcel is always earlier in input order.
func breakTie(policy TieBreak, existing, incoming models.Parcel) (models.Parcel, models.Parcel) {
	if policy == TieBreakMostComplete && incoming.FieldCount() > existing.FieldCount() {
		return incoming, existing
	}
	return existing, incoming
}

func (r *Registry) buildIndices() {
	for _, key := range r.order {
		parcel := r.parcels[key]

		for _, segment := range normalize.NumericSegments(parcel.RawParcelID) {
			if entry, seen := r.segments[segment]; seen {
				if entry.canonicalKey != key {
					entry.ambiguous = true
					r.segments[segment] = entry
				}
				continue
			}
			r.segments[segment] = segmentEntry{canonicalKey: key}
		}

		if zip := normalize.ZipCode(parcel.ZipCode); zip != "" {
			r.blocks[zip] = append(r.blocks[zip], key)
		}
	}
}

// Lookup returns the parcel registered under a canonical key.
func (r *Registry) Lookup(canonicalKey string) (models.Parcel, bool) {
	parcel, ok := r.parcels[canonicalKey]
	return parcel, ok
}

// LookupSegment resolves a numeric segment to a canonical key. ok is false
// when the segment is unknown; ambiguous reports a segment shared by
// multiple keys, which the matcher must treat as a non-hit.
func (r *Registry) LookupSegment(segment string) (canonicalKey string, ok, ambiguous bool) {
	entry, ok := r.segments[segment]
	if !ok {
		return "", false, false
	}
	if entry.ambiguous {
		return "", true, true
	}
	return entry.canonicalKey, true, false
}

// Block returns the canonical keys of parcels sharing a zip code, in
// registry input order. The fuzzy stage only ever scores within one block.
func (r *Registry) Block(zipCode string) []string {
	return r.blocks[normalize.ZipCode(zipCode)]
}

// Keys returns the registered canonical keys in input order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of registered parcels.
func (r *Registry) Len() int {
	return len(r.parcels)
}

// Policy returns the normalization policy the registry was keyed with.
func (r *Registry) Policy() string {
	return r.policy
}
