// Package normalize provides parcel identifier normalization policies and
// canonical key construction.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Ramsey-B/acre/pkg/countycode"
)

// Policy is a named normalization function applied to a raw parcel
// identifier. Policies are deterministic and total: they never fail.
type Policy func(string) string

// Policy names. The two feeds use different raw formats, so the policy is
// selected per input source rather than hard-coded.
const (
	PolicyAlphanumeric     = "alphanumeric"
	PolicyStripPrefixZeros = "strip_prefix_zeros"
)

var registry = map[string]Policy{}

func init() {
	Register(PolicyAlphanumeric, Alphanumeric)
	Register(PolicyStripPrefixZeros, StripPrefixZeros)
}

// Register adds a policy to the registry.
func Register(name string, fn Policy) {
	registry[name] = fn
}

// Get retrieves a policy by name.
func Get(name string) (Policy, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named policy to a raw identifier. Unknown policy names
// fall back to Alphanumeric so a misconfigured feed still produces keys in
// the registry's default format.
func Apply(rawID, policy string) string {
	fn, ok := registry[policy]
	if !ok {
		fn = Alphanumeric
	}
	return fn(rawID)
}

// sourcePrefix matches the transaction feed's parcel id marker: a fixed
// "PRCL" tag, a 3-digit county code, and a separator (e.g. "PRCL002-").
var sourcePrefix = regexp.MustCompile(`^PRCL[0-9]{3}-`)

// StripSourcePrefix removes the transaction feed's "PRCL###-" marker.
func StripSourcePrefix(s string) string {
	return sourcePrefix.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// Alphanumeric uppercases and keeps only letters and digits. This is the
// registry feed's policy: "12-34.5" and "012345" style ids collapse into a
// uniform joinable form. The transaction feed's source prefix is stripped
// first so both feeds normalize into the same keyspace.
func Alphanumeric(s string) string {
	s = StripSourcePrefix(s)
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// StripPrefixZeros uppercases, strips the source prefix, and removes leading
// zeros from each hyphen-delimited segment, preserving the separators.
// "PRCL125-012-345" normalizes to "12-345".
func StripPrefixZeros(s string) string {
	s = StripSourcePrefix(s)
	if s == "" {
		return ""
	}
	segments := strings.Split(s, "-")
	for i, seg := range segments {
		trimmed := strings.TrimLeft(seg, "0")
		if trimmed == "" && seg != "" {
			trimmed = "0" // an all-zero segment keeps a single zero
		}
		segments[i] = trimmed
	}
	return strings.Join(segments, "-")
}

// BuildCanonicalKey derives the canonical join key for a parcel: the
// county's zero-padded numeric code concatenated with the normalized raw
// identifier. Returns ok=false when the county is unknown or the identifier
// normalizes to nothing - a valid, expected outcome, not an error.
func BuildCanonicalKey(counties *countycode.Table, countyName, rawID, policy string) (string, bool) {
	code, ok := counties.Lookup(countyName)
	if !ok {
		return "", false
	}
	normalized := Apply(rawID, policy)
	if normalized == "" {
		return "", false
	}
	return code + normalized, true
}

// NumericSegments splits a raw, un-normalized identifier on hyphens and
// returns the purely numeric segments. The segment index is built from the
// same splitting rule applied to every registry parcel's raw id.
func NumericSegments(rawID string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.TrimSpace(rawID), "-") {
		if seg != "" && isDigits(seg) {
			segments = append(segments, seg)
		}
	}
	return segments
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ZipCode normalizes a postal code down to its 5-digit prefix for blocking.
// Anything without five leading digits blocks nothing.
func ZipCode(s string) string {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		break
	}
	if digits.Len() < 5 {
		return ""
	}
	return digits.String()[:5]
}

// ForComparison normalizes free-text fields (addresses, raw ids) for fuzzy
// scoring: uppercase, collapse whitespace, drop punctuation that differs
// between feeds without changing meaning.
func ForComparison(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	replacer := strings.NewReplacer(".", "", ",", "", "-", "", "/", "")
	return replacer.Replace(s)
}
