package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/acre/pkg/countycode"
)

func TestAlphanumeric(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain digits pass through", input: "012345", expected: "012345"},
		{name: "hyphens dropped", input: "012-345", expected: "012345"},
		{name: "dots and slashes dropped", input: "12-34.5/6", expected: "123456"},
		{name: "lowercase uppercased", input: "ab12cd", expected: "AB12CD"},
		{name: "source prefix stripped", input: "PRCL125-012-345", expected: "012345"},
		{name: "whitespace trimmed", input: "  12 345  ", expected: "12345"},
		{name: "empty", input: "", expected: ""},
		{name: "punctuation only", input: "-./", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Alphanumeric(tt.input))
		})
	}
}

func TestStripPrefixZeros(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "source prefix and segment zeros stripped", input: "PRCL125-012-345", expected: "12-345"},
		{name: "no prefix", input: "012-345", expected: "12-345"},
		{name: "all-zero segment keeps one zero", input: "000-12", expected: "0-12"},
		{name: "no leading zeros unchanged", input: "12-345", expected: "12-345"},
		{name: "single segment", input: "00042", expected: "42"},
		{name: "lowercase uppercased", input: "prcl125-0a1", expected: "A1"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripPrefixZeros(tt.input))
		})
	}
}

func TestApplyUnknownPolicyFallsBack(t *testing.T) {
	assert.Equal(t, "012345", Apply("012-345", "no_such_policy"))
}

func TestBuildCanonicalKey(t *testing.T) {
	counties := countycode.Wisconsin()

	tests := []struct {
		name     string
		county   string
		rawID    string
		policy   string
		expected string
		ok       bool
	}{
		{name: "alphanumeric policy", county: "VILAS", rawID: "012-345", policy: PolicyAlphanumeric, expected: "125012345", ok: true},
		{name: "strip prefix zeros policy", county: "VILAS", rawID: "PRCL125-012-345", policy: PolicyStripPrefixZeros, expected: "12512-345", ok: true},
		{name: "county lookup is case insensitive", county: "vilas", rawID: "1", policy: PolicyAlphanumeric, expected: "1251", ok: true},
		{name: "unknown county", county: "NOWHERE", rawID: "012-345", policy: PolicyAlphanumeric, ok: false},
		{name: "empty id after normalization", county: "DANE", rawID: "-./", policy: PolicyAlphanumeric, ok: false},
		{name: "empty id", county: "DANE", rawID: "", policy: PolicyAlphanumeric, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := BuildCanonicalKey(counties, tt.county, tt.rawID, tt.policy)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, key)
			} else {
				assert.Empty(t, key)
			}
		})
	}
}

func TestBuildCanonicalKeySamePropertyBothFeeds(t *testing.T) {
	// The same physical parcel arrives as "012345" in the registry feed and
	// "PRCL125-012-345" in the transaction feed. Both must derive one key.
	counties := countycode.Wisconsin()

	registryKey, ok := BuildCanonicalKey(counties, "VILAS", "012345", PolicyAlphanumeric)
	require.True(t, ok)

	txnKey, ok := BuildCanonicalKey(counties, "VILAS", "PRCL125-012-345", PolicyAlphanumeric)
	require.True(t, ok)

	assert.Equal(t, registryKey, txnKey)
}

func TestNumericSegments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "mixed segments keep numeric only", input: "AB-012-345", expected: []string{"012", "345"}},
		{name: "all numeric", input: "012-345", expected: []string{"012", "345"}},
		{name: "no hyphens", input: "012345", expected: []string{"012345"}},
		{name: "alpha only", input: "ABC-DEF", expected: nil},
		{name: "empty", input: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NumericSegments(tt.input))
		})
	}
}

func TestZipCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "five digits", input: "54521", expected: "54521"},
		{name: "zip plus four truncated", input: "545211234", expected: "54521"},
		{name: "zip plus four with hyphen", input: "54521-1234", expected: "54521"},
		{name: "too short", input: "5452", expected: ""},
		{name: "non numeric", input: "ABCDE", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ZipCode(tt.input))
		})
	}
}

func TestForComparison(t *testing.T) {
	assert.Equal(t, "123 N MAIN ST", ForComparison("  123  n. Main   St "))
	assert.Equal(t, "12345", ForComparison("12-34.5"))
}
