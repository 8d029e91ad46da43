package models

import (
	"encoding/json"
	"time"
)

// AuditKind distinguishes the audit side-channels.
type AuditKind string

const (
	AuditKindOrphan    AuditKind = "orphan"    // transaction that resolved to no key
	AuditKindDuplicate AuditKind = "duplicate" // parcel colliding on a canonical key
	AuditKindUnkeyable AuditKind = "unkeyable" // parcel with no derivable canonical key
)

// AuditRecord is one entry in the orphan/duplicate side-channel. It carries
// enough of the source record to re-drive reconciliation later.
type AuditRecord struct {
	ID             string          `json:"id" db:"id"`
	RunID          string          `json:"run_id" db:"run_id"`
	Kind           AuditKind       `json:"kind" db:"kind"`
	RawParcelID    string          `json:"raw_parcel_id" db:"raw_parcel_id"`
	CountyName     string          `json:"county_name" db:"county_name"`
	FailingStage   Stage           `json:"failing_stage,omitempty" db:"failing_stage"`
	Reasons        []ReasonCode    `json:"reasons" db:"-"`
	ReasonsRaw     string          `json:"-" db:"reasons"`
	CandidateCount int             `json:"candidate_count,omitempty" db:"candidate_count"`
	Details        json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// RunSummary reports the outcome counts of one reconciliation run. A
// completed run always reports counts, even when every record had problems.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Resolved   int       `json:"resolved"`
	Orphan     int       `json:"orphan"`
	Duplicate  int       `json:"duplicate"`
	Unkeyable  int       `json:"unkeyable"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
