package registry

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/acre/pkg/audit"
	"github.com/Ramsey-B/acre/pkg/countycode"
	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/normalize"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func buildTestRegistry(t *testing.T, parcels []models.Parcel, cfg Config) (*Registry, *audit.MemorySink) {
	t.Helper()
	sink := audit.NewMemorySink()
	reporter := audit.NewReporter(testLogger(), "test-run", sink)
	reg := Build(context.Background(), testLogger(), countycode.Wisconsin(), parcels, cfg, reporter)
	return reg, sink
}

func TestBuildKeysParcels(t *testing.T) {
	parcels := []models.Parcel{
		{RawParcelID: "012-345", CountyName: "VILAS", SiteAddress: "100 LAKE RD", ZipCode: "54521"},
		{RawParcelID: "777-888", CountyName: "DANE", SiteAddress: "1 MAIN ST", ZipCode: "53703"},
	}

	reg, sink := buildTestRegistry(t, parcels, Config{})
	assert.Equal(t, 2, reg.Len())
	assert.Empty(t, sink.Records())

	parcel, ok := reg.Lookup("125012345")
	require.True(t, ok)
	assert.Equal(t, "012-345", parcel.RawParcelID)
	assert.Equal(t, "125012345", parcel.CanonicalKey)

	_, ok = reg.Lookup("025777888")
	assert.True(t, ok)

	assert.Equal(t, []string{"125012345", "025777888"}, reg.Keys())
}

func TestBuildUnkeyableRowsReported(t *testing.T) {
	parcels := []models.Parcel{
		{RawParcelID: "012-345", CountyName: "ATLANTIS"},
		{RawParcelID: "", CountyName: "VILAS"},
		{RawParcelID: "999", CountyName: "VILAS"},
	}

	reg, sink := buildTestRegistry(t, parcels, Config{})
	assert.Equal(t, 1, reg.Len())

	unkeyable := sink.ByKind(models.AuditKindUnkeyable)
	require.Len(t, unkeyable, 2)
	assert.Equal(t, "ATLANTIS", unkeyable[0].CountyName)
	assert.Contains(t, unkeyable[0].Reasons, models.ReasonUnknownCounty)
	assert.Equal(t, "VILAS", unkeyable[1].CountyName)
	assert.Contains(t, unkeyable[1].Reasons, models.ReasonMissingParcelID)
}

func TestBuildUnkeyableEmptyAfterNormalize(t *testing.T) {
	// The county is valid; the raw id normalizes to nothing. The cause must
	// say so instead of blaming the county.
	parcels := []models.Parcel{
		{RawParcelID: "-./", CountyName: "VILAS"},
	}

	reg, sink := buildTestRegistry(t, parcels, Config{})
	assert.Equal(t, 0, reg.Len())

	unkeyable := sink.ByKind(models.AuditKindUnkeyable)
	require.Len(t, unkeyable, 1)
	assert.Equal(t, []models.ReasonCode{models.ReasonMissingParcelID}, unkeyable[0].Reasons)
}

func TestBuildDuplicateKeepsFirstByDefault(t *testing.T) {
	// Two raw ids that collapse to the same canonical key under the
	// alphanumeric policy.
	parcels := []models.Parcel{
		{RawParcelID: "012-345", CountyName: "VILAS", SiteAddress: "FIRST"},
		{RawParcelID: "012345", CountyName: "VILAS", SiteAddress: "SECOND", ZipCode: "54521"},
	}

	reg, sink := buildTestRegistry(t, parcels, Config{})
	assert.Equal(t, 1, reg.Len())

	kept, ok := reg.Lookup("125012345")
	require.True(t, ok)
	assert.Equal(t, "FIRST", kept.SiteAddress)

	dups := sink.ByKind(models.AuditKindDuplicate)
	require.Len(t, dups, 1)
	assert.Equal(t, "012345", dups[0].RawParcelID)
}

func TestBuildDuplicateMostCompleteTieBreak(t *testing.T) {
	parcels := []models.Parcel{
		{RawParcelID: "012-345", CountyName: "VILAS"},
		{RawParcelID: "012345", CountyName: "VILAS", SiteAddress: "200 SHORE DR", ZipCode: "54521"},
	}

	reg, sink := buildTestRegistry(t, parcels, Config{TieBreak: TieBreakMostComplete})

	kept, ok := reg.Lookup("125012345")
	require.True(t, ok)
	assert.Equal(t, "200 SHORE DR", kept.SiteAddress)

	dups := sink.ByKind(models.AuditKindDuplicate)
	require.Len(t, dups, 1)
	assert.Equal(t, "012-345", dups[0].RawParcelID)
}

func TestSegmentIndex(t *testing.T) {
	parcels := []models.Parcel{
		{RawParcelID: "012-345", CountyName: "VILAS"},
		{RawParcelID: "012-999", CountyName: "VILAS"},
	}

	reg, _ := buildTestRegistry(t, parcels, Config{})

	// "345" belongs to one parcel only.
	key, ok, ambiguous := reg.LookupSegment("345")
	require.True(t, ok)
	assert.False(t, ambiguous)
	assert.Equal(t, "125012345", key)

	// "012" appears under both keys and must be flagged, not overwritten.
	key, ok, ambiguous = reg.LookupSegment("012")
	assert.True(t, ok)
	assert.True(t, ambiguous)
	assert.Empty(t, key)

	_, ok, _ = reg.LookupSegment("000")
	assert.False(t, ok)
}

func TestZipBlocks(t *testing.T) {
	parcels := []models.Parcel{
		{RawParcelID: "1", CountyName: "VILAS", ZipCode: "54521"},
		{RawParcelID: "2", CountyName: "VILAS", ZipCode: "54521-9999"},
		{RawParcelID: "3", CountyName: "VILAS", ZipCode: "54558"},
		{RawParcelID: "4", CountyName: "VILAS", ZipCode: ""},
	}

	reg, _ := buildTestRegistry(t, parcels, Config{})

	// Zip+4 collapses into the 5-digit block, in input order.
	assert.Equal(t, []string{"1251", "1252"}, reg.Block("54521"))
	assert.Equal(t, []string{"1253"}, reg.Block("54558"))
	assert.Empty(t, reg.Block("99999"))
	assert.Empty(t, reg.Block(""))
}

func TestBuildPolicyDefaults(t *testing.T) {
	reg, _ := buildTestRegistry(t, nil, Config{})
	assert.Equal(t, normalize.PolicyAlphanumeric, reg.Policy())
	assert.Equal(t, 0, reg.Len())
}
