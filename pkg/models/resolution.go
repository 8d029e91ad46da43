package models

// Stage identifies a matching strategy in the staged matcher.
type Stage string

const (
	StageExact   Stage = "exact"
	StageSegment Stage = "segment"
	StageFuzzy   Stage = "fuzzy"
)

// ReasonCode classifies why a record could not be resolved or keyed.
type ReasonCode string

const (
	ReasonUnknownCounty         ReasonCode = "unknown_county"
	ReasonMissingParcelID       ReasonCode = "missing_parcel_id"
	ReasonNoExactMatch          ReasonCode = "no_exact_match"
	ReasonNoSegmentMatch        ReasonCode = "no_segment_match"
	ReasonAmbiguousSegments     ReasonCode = "ambiguous_segments"
	ReasonMissingFuzzyFields    ReasonCode = "missing_fuzzy_fields"
	ReasonNoQualifyingCandidate ReasonCode = "no_qualifying_candidate"
	ReasonAmbiguousTie          ReasonCode = "ambiguous_tie"
	ReasonDuplicateKey          ReasonCode = "duplicate_key"
	ReasonDuplicateEvent        ReasonCode = "duplicate_event"
	ReasonMissingEventDate      ReasonCode = "missing_event_date"
)

// StageFailure records why a single matching stage did not produce a key.
type StageFailure struct {
	Stage  Stage      `json:"stage"`
	Reason ReasonCode `json:"reason"`
}

// Resolution is the terminal outcome of resolving one transaction. Exactly
// one of CanonicalKey or Failures is meaningful: a resolved transaction
// carries a key and the stage that produced it, an orphan carries the
// per-stage failure trail.
type Resolution struct {
	CanonicalKey string         `json:"canonical_key,omitempty"`
	Stage        Stage          `json:"stage,omitempty"`
	Failures     []StageFailure `json:"failures,omitempty"`
	// CandidateCount is the number of blocked fuzzy candidates evaluated,
	// retained for the orphan audit trail.
	CandidateCount int `json:"candidate_count,omitempty"`
}

// Matched reports whether the resolution bound a canonical key.
func (r *Resolution) Matched() bool {
	return r.CanonicalKey != ""
}

// FailureReasons flattens the failure trail into reason codes.
func (r *Resolution) FailureReasons() []ReasonCode {
	reasons := make([]ReasonCode, 0, len(r.Failures))
	for _, f := range r.Failures {
		reasons = append(reasons, f.Reason)
	}
	return reasons
}

// MatchCandidate is an ephemeral (transaction, parcel) pair considered
// during fuzzy matching. Discarded once the best candidate is chosen.
type MatchCandidate struct {
	CanonicalKey  string  `json:"canonical_key"`
	AddressScore  float64 `json:"address_score"`
	ParcelIDScore float64 `json:"parcel_id_score"`
	CombinedScore float64 `json:"combined_score"`
}
