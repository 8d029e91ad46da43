package matching

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/acre/pkg/audit"
	"github.com/Ramsey-B/acre/pkg/countycode"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/registry"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func buildRegistry(t *testing.T, parcels []models.Parcel) *registry.Registry {
	t.Helper()
	reporter := audit.NewReporter(testLogger(), "test-run", audit.NewMemorySink())
	return registry.Build(context.Background(), testLogger(), countycode.Wisconsin(), parcels, registry.Config{}, reporter)
}

// countingScorer wraps the real scorer and records fuzzy evaluations so
// tests can assert when the fuzzy stage runs.
type countingScorer struct {
	inner *Scorer
	calls int
}

func (s *countingScorer) Ratio(a, b string) float64 {
	s.calls++
	return s.inner.Ratio(a, b)
}

func TestResolveExactMatch(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "012345", CountyName: "VILAS", SiteAddress: "100 LAKE RD", ZipCode: "54521"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	// The transaction feed formats the same id with a prefix and hyphens.
	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "PRCL125-012-345",
		CountyName:  "VILAS",
	})

	require.True(t, resolution.Matched())
	assert.Equal(t, "125012345", resolution.CanonicalKey)
	assert.Equal(t, models.StageExact, resolution.Stage)
	assert.Empty(t, resolution.Failures)
}

func TestResolveExactShortCircuitsFuzzy(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "012345", CountyName: "VILAS", SiteAddress: "100 LAKE RD", ZipCode: "54521"},
	})
	scorer := &countingScorer{inner: NewScorer()}
	matcher := NewMatcherWithScorer(testLogger(), countycode.Wisconsin(), reg, DefaultConfig(), scorer)

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "012345",
		CountyName:  "VILAS",
		Address:     "100 LAKE RD",
		ZipCode:     "54521",
	})

	require.True(t, resolution.Matched())
	assert.Equal(t, models.StageExact, resolution.Stage)
	assert.Zero(t, scorer.calls)
}

func TestResolveUnknownCounty(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "012345", CountyName: "VILAS"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "555-666",
		CountyName:  "ATLANTIS",
	})

	assert.False(t, resolution.Matched())
	reasons := resolution.FailureReasons()
	require.NotEmpty(t, reasons)
	assert.Equal(t, models.ReasonUnknownCounty, reasons[0])
}

func TestResolveSegmentMatch(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "042-1170", CountyName: "VILAS"},
		{RawParcelID: "099-8888", CountyName: "VILAS"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	// No exact hit for this format, but the segment "1170" is unique.
	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "XX-1170",
		CountyName:  "VILAS",
	})

	require.True(t, resolution.Matched())
	assert.Equal(t, models.StageSegment, resolution.Stage)
	assert.Equal(t, "1250421170", resolution.CanonicalKey)

	// The exact stage failure is still in the trail.
	require.Len(t, resolution.Failures, 1)
	assert.Equal(t, models.StageExact, resolution.Failures[0].Stage)
	assert.Equal(t, models.ReasonNoExactMatch, resolution.Failures[0].Reason)
}

func TestResolveSegmentSharedIsNonHit(t *testing.T) {
	// "042" is shared by both parcels, so it must not resolve on its own.
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "042-1170", CountyName: "VILAS"},
		{RawParcelID: "042-9999", CountyName: "VILAS"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "YY-042",
		CountyName:  "VILAS",
	})

	assert.False(t, resolution.Matched())
	assert.Contains(t, resolution.FailureReasons(), models.ReasonNoSegmentMatch)
}

func TestResolveSegmentsDisagree(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "1170-AAA", CountyName: "VILAS"},
		{RawParcelID: "2280-BBB", CountyName: "VILAS"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	// The transaction carries segments pointing at two different parcels.
	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "1170-2280",
		CountyName:  "VILAS",
	})

	assert.False(t, resolution.Matched())
	assert.Contains(t, resolution.FailureReasons(), models.ReasonAmbiguousSegments)
}

func TestResolveFuzzyMatch(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "AAA111", CountyName: "VILAS", SiteAddress: "123 N MAIN ST", ZipCode: "54521"},
		{RawParcelID: "BBB222", CountyName: "VILAS", SiteAddress: "999 ELM AVE", ZipCode: "54521"},
		{RawParcelID: "CCC333", CountyName: "VILAS", SiteAddress: "123 N MAIN ST", ZipCode: "54558"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	// "AAA-1112" normalizes to no registered key, but scores close to
	// AAA111 on both components.
	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "AAA-1112",
		CountyName:  "VILAS",
		Address:     "123 N. MAIN ST",
		ZipCode:     "54521",
	})

	require.True(t, resolution.Matched())
	assert.Equal(t, models.StageFuzzy, resolution.Stage)
	assert.Equal(t, "125AAA111", resolution.CanonicalKey)
	// Only the two parcels in the 54521 block were candidates.
	assert.Equal(t, 2, resolution.CandidateCount)
}

func TestResolveFuzzyRequiresAddressAndZip(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "AAA111", CountyName: "VILAS", SiteAddress: "123 N MAIN ST", ZipCode: "54521"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "ZZZ-999",
		CountyName:  "VILAS",
		Address:     "123 N MAIN ST",
	})

	assert.False(t, resolution.Matched())
	assert.Contains(t, resolution.FailureReasons(), models.ReasonMissingFuzzyFields)
}

func TestResolveFuzzyBothThresholdsRequired(t *testing.T) {
	// Address matches perfectly but the parcel id shares nothing, so the
	// candidate must not qualify on the address score alone.
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "QQQQQQ", CountyName: "VILAS", SiteAddress: "123 N MAIN ST", ZipCode: "54521"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "777-888",
		CountyName:  "VILAS",
		Address:     "123 N MAIN ST",
		ZipCode:     "54521",
	})

	assert.False(t, resolution.Matched())
	assert.Contains(t, resolution.FailureReasons(), models.ReasonNoQualifyingCandidate)
	assert.Equal(t, 1, resolution.CandidateCount)
}

func TestResolveFuzzyTieIsOrphan(t *testing.T) {
	// Two candidates equidistant from the transaction tie exactly, and a
	// tie must never be guessed at.
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "A12345", CountyName: "VILAS", SiteAddress: "123 N MAIN ST", ZipCode: "54521"},
		{RawParcelID: "B12345", CountyName: "VILAS", SiteAddress: "123 N MAIN ST", ZipCode: "54521"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "C12345",
		CountyName:  "VILAS",
		Address:     "123 N MAIN ST",
		ZipCode:     "54521",
	})

	assert.False(t, resolution.Matched())
	assert.Contains(t, resolution.FailureReasons(), models.ReasonAmbiguousTie)
}

func TestResolveFuzzyZeroThresholdDisablesFloor(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "A12345", CountyName: "VILAS", SiteAddress: "100 LAKE RD", ZipCode: "54521"},
	})
	// An explicit zero threshold is honored, not replaced with the default
	// floor: every blocked candidate qualifies.
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, Config{
		AddressThreshold:  0,
		ParcelIDThreshold: 0,
	})

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "ZZZZZ",
		CountyName:  "VILAS",
		Address:     "700 TOTALLY ELSEWHERE AVE",
		ZipCode:     "54521",
	})

	require.True(t, resolution.Matched())
	assert.Equal(t, models.StageFuzzy, resolution.Stage)
	assert.Equal(t, "125A12345", resolution.CanonicalKey)
}

func TestResolveAccumulatesFullFailureTrail(t *testing.T) {
	reg := buildRegistry(t, []models.Parcel{
		{RawParcelID: "012345", CountyName: "VILAS", SiteAddress: "100 LAKE RD", ZipCode: "54521"},
	})
	matcher := NewMatcher(testLogger(), countycode.Wisconsin(), reg, DefaultConfig())

	resolution := matcher.Resolve(context.Background(), models.Transaction{
		RawParcelID: "NOPE",
		CountyName:  "VILAS",
	})

	assert.False(t, resolution.Matched())
	require.Len(t, resolution.Failures, 3)
	assert.Equal(t, models.StageExact, resolution.Failures[0].Stage)
	assert.Equal(t, models.StageSegment, resolution.Failures[1].Stage)
	assert.Equal(t, models.StageFuzzy, resolution.Failures[2].Stage)
}
