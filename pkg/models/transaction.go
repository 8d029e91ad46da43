package models

import (
	"encoding/json"
	"time"
)

// Transaction is one deed/sale/transfer record from the transaction feed.
// Its raw parcel identifier is formatted independently from the registry's.
type Transaction struct {
	EventID     string          `json:"event_id" db:"event_id"`
	RawParcelID string          `json:"raw_parcel_identification" db:"raw_parcel_identification"`
	CountyName  string          `json:"county_name" db:"county_name"`
	EventType   string          `json:"event_type" db:"event_type"`
	EventDate   time.Time       `json:"event_date" db:"event_date"`
	Address     string          `json:"address,omitempty" db:"address"`
	ZipCode     string          `json:"zip_code,omitempty" db:"zip_code"`
	Source      string          `json:"source" db:"source"`
	Payload     json.RawMessage `json:"payload,omitempty" db:"payload"`
}

// ResolvedTransaction is a transaction bound to a canonical key. The key is
// guaranteed to exist in the registry the transaction was resolved against.
type ResolvedTransaction struct {
	Transaction
	CanonicalKey string `json:"canonical_key" db:"canonical_key"`
	MatchStage   Stage  `json:"match_stage" db:"match_stage"`
}

// ToCreateRequest converts the row to the transport payload.
func (t Transaction) ToCreateRequest() CreateEventRequest {
	return CreateEventRequest{
		RawParcelID: t.RawParcelID,
		CountyName:  t.CountyName,
		EventType:   t.EventType,
		EventDate:   t.EventDate,
		Address:     t.Address,
		ZipCode:     t.ZipCode,
		Source:      t.Source,
		Payload:     t.Payload,
	}
}

// CreateEventRequest is the payload accepted from the event transport.
type CreateEventRequest struct {
	RawParcelID string          `json:"raw_parcel_identification" validate:"required"`
	CountyName  string          `json:"county_name" validate:"required"`
	EventType   string          `json:"event_type" validate:"required"`
	EventDate   time.Time       `json:"event_date" validate:"required"`
	Address     string          `json:"address,omitempty"`
	ZipCode     string          `json:"zip_code,omitempty"`
	Source      string          `json:"source,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}
