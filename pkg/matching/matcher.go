// Package matching implements the staged parcel identity matcher.
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/acre/pkg/countycode"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/normalize"
	"github.com/Ramsey-B/acre/pkg/registry"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

// SimilarityScorer produces a similarity score in [0,100] for two strings.
type SimilarityScorer interface {
	Ratio(a, b string) float64
}

// Config contains configuration for the staged matcher.
type Config struct {
	// NormalizePolicy names the policy applied to the transaction feed's
	// raw identifiers before exact lookup.
	NormalizePolicy string
	// AddressThreshold and ParcelIDThreshold are the per-component minimum
	// scores for a fuzzy candidate to qualify. Both must be met. Zero is a
	// real value (no floor, every blocked candidate qualifies); start from
	// DefaultConfig to get the standard floors.
	AddressThreshold  float64
	ParcelIDThreshold float64
}

// DefaultConfig returns the default matcher configuration.
func DefaultConfig() Config {
	return Config{
		NormalizePolicy:   normalize.PolicyAlphanumeric,
		AddressThreshold:  80,
		ParcelIDThreshold: 80,
	}
}

// Matcher resolves transactions against a frozen registry. It holds no
// per-transaction state, so one matcher is safely shared across workers and
// a transaction's outcome never depends on processing order.
type Matcher struct {
	logger   ectologger.Logger
	counties *countycode.Table
	registry *registry.Registry
	scorer   SimilarityScorer
	config   Config
}

// NewMatcher creates a matcher over a built registry.
func NewMatcher(logger ectologger.Logger, counties *countycode.Table, reg *registry.Registry, cfg Config) *Matcher {
	return NewMatcherWithScorer(logger, counties, reg, cfg, NewScorer())
}

// NewMatcherWithScorer creates a matcher with an explicit scorer. Tests use
// this to instrument fuzzy-stage evaluations.
func NewMatcherWithScorer(logger ectologger.Logger, counties *countycode.Table, reg *registry.Registry, cfg Config, scorer SimilarityScorer) *Matcher {
	if cfg.NormalizePolicy == "" {
		cfg.NormalizePolicy = normalize.PolicyAlphanumeric
	}
	return &Matcher{
		logger:   logger,
		counties: counties,
		registry: reg,
		scorer:   scorer,
		config:   cfg,
	}
}

// Resolve runs the matching strategies in fixed order, short-circuiting on
// the first success. It never mutates the registry and never fails: the
// outcome is either a canonical key or an orphan with the failure trail.
func (m *Matcher) Resolve(ctx context.Context, txn models.Transaction) models.Resolution {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.Resolve")
	defer span.End()

	var resolution models.Resolution

	if key, failure := m.matchExact(txn); failure == nil {
		resolution.CanonicalKey = key
		resolution.Stage = models.StageExact
		return resolution
	} else {
		resolution.Failures = append(resolution.Failures, *failure)
	}

	if key, failure := m.matchSegment(txn); failure == nil {
		resolution.CanonicalKey = key
		resolution.Stage = models.StageSegment
		return resolution
	} else {
		resolution.Failures = append(resolution.Failures, *failure)
	}

	key, candidateCount, failure := m.matchFuzzy(txn)
	resolution.CandidateCount = candidateCount
	if failure == nil {
		resolution.CanonicalKey = key
		resolution.Stage = models.StageFuzzy
		return resolution
	}
	resolution.Failures = append(resolution.Failures, *failure)

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_parcel_id": txn.RawParcelID,
		"county":        txn.CountyName,
		"reasons":       resolution.FailureReasons(),
	}).Debug("Transaction unresolved")

	return resolution
}

// matchExact normalizes the transaction's raw id with the transaction
// feed's own policy and looks the derived key up directly in the registry.
func (m *Matcher) matchExact(txn models.Transaction) (string, *models.StageFailure) {
	if _, ok := m.counties.Lookup(txn.CountyName); !ok {
		return "", &models.StageFailure{Stage: models.StageExact, Reason: models.ReasonUnknownCounty}
	}
	key, ok := normalize.BuildCanonicalKey(m.counties, txn.CountyName, txn.RawParcelID, m.config.NormalizePolicy)
	if !ok {
		return "", &models.StageFailure{Stage: models.StageExact, Reason: models.ReasonMissingParcelID}
	}
	if _, found := m.registry.Lookup(key); !found {
		return "", &models.StageFailure{Stage: models.StageExact, Reason: models.ReasonNoExactMatch}
	}
	return key, nil
}

// matchSegment splits the un-normalized raw id on hyphens and looks each
// purely numeric segment up in the registry's segment index. All segment
// hits must agree on one key; disagreement is ambiguous and falls through
// to the fuzzy stage rather than guessing.
func (m *Matcher) matchSegment(txn models.Transaction) (string, *models.StageFailure) {
	segments := normalize.NumericSegments(txn.RawParcelID)
	if len(segments) == 0 {
		return "", &models.StageFailure{Stage: models.StageSegment, Reason: models.ReasonNoSegmentMatch}
	}

	matched := ""
	for _, segment := range segments {
		key, ok, ambiguous := m.registry.LookupSegment(segment)
		if !ok || ambiguous {
			// A segment shared by multiple parcels is a non-hit.
			continue
		}
		if matched == "" {
			matched = key
			continue
		}
		if matched != key {
			return "", &models.StageFailure{Stage: models.StageSegment, Reason: models.ReasonAmbiguousSegments}
		}
	}

	if matched == "" {
		return "", &models.StageFailure{Stage: models.StageSegment, Reason: models.ReasonNoSegmentMatch}
	}
	return matched, nil
}

// matchFuzzy scores the transaction against parcels sharing its zip code.
// The block bound is mandatory: the full registry is never scored. A
// candidate qualifies only when both component scores meet their
// thresholds; the best combined score wins and ties are no-matches.
func (m *Matcher) matchFuzzy(txn models.Transaction) (string, int, *models.StageFailure) {
	if txn.Address == "" || txn.ZipCode == "" {
		return "", 0, &models.StageFailure{Stage: models.StageFuzzy, Reason: models.ReasonMissingFuzzyFields}
	}

	block := m.registry.Block(txn.ZipCode)
	if len(block) == 0 {
		return "", 0, &models.StageFailure{Stage: models.StageFuzzy, Reason: models.ReasonNoQualifyingCandidate}
	}

	txnAddress := normalize.ForComparison(txn.Address)
	txnParcelID := normalize.ForComparison(txn.RawParcelID)

	var best *models.MatchCandidate
	tied := false

	for _, key := range block {
		parcel, ok := m.registry.Lookup(key)
		if !ok {
			continue
		}

		candidate := models.MatchCandidate{
			CanonicalKey:  key,
			AddressScore:  m.scorer.Ratio(txnAddress, normalize.ForComparison(parcel.SiteAddress)),
			ParcelIDScore: m.scorer.Ratio(txnParcelID, normalize.ForComparison(parcel.RawParcelID)),
		}
		candidate.CombinedScore = (candidate.AddressScore + candidate.ParcelIDScore) / 2

		if candidate.AddressScore < m.config.AddressThreshold || candidate.ParcelIDScore < m.config.ParcelIDThreshold {
			continue
		}

		switch {
		case best == nil || candidate.CombinedScore > best.CombinedScore:
			c := candidate
			best = &c
			tied = false
		case candidate.CombinedScore == best.CombinedScore && candidate.CanonicalKey != best.CanonicalKey:
			tied = true
		}
	}

	if best == nil {
		return "", len(block), &models.StageFailure{Stage: models.StageFuzzy, Reason: models.ReasonNoQualifyingCandidate}
	}
	if tied {
		return "", len(block), &models.StageFailure{Stage: models.StageFuzzy, Reason: models.ReasonAmbiguousTie}
	}
	return best.CanonicalKey, len(block), nil
}
