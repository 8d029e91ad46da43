package models

import (
	"encoding/json"
	"time"
)

// Parcel is one physical land unit from the geospatial registry feed.
// The descriptive attributes (owner, values, geometry) are opaque to the
// resolution engine and pass through in Attributes untouched.
type Parcel struct {
	CanonicalKey string          `json:"canonical_key" db:"canonical_key"`
	RawParcelID  string          `json:"raw_parcel_id" db:"raw_parcel_id"`
	CountyName   string          `json:"county_name" db:"county_name"`
	SiteAddress  string          `json:"site_address,omitempty" db:"site_address"`
	ZipCode      string          `json:"zip_code,omitempty" db:"zip_code"`
	Attributes   json.RawMessage `json:"attributes,omitempty" db:"attributes"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// FieldCount reports how many of the parcel's identifying fields are
// populated. Used by the most-complete duplicate tie-break.
func (p *Parcel) FieldCount() int {
	count := 0
	for _, v := range []string{p.RawParcelID, p.CountyName, p.SiteAddress, p.ZipCode} {
		if v != "" {
			count++
		}
	}
	if len(p.Attributes) > 0 && string(p.Attributes) != "null" {
		count++
	}
	return count
}
