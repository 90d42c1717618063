package model

import (
	"time"

	"github.com/google/uuid"
)

// Asset is the registry's record for one land parcel or property.
// It is created exactly once by genesis and never deleted. CurrentSequence
// points at the highest committed version and is advanced only as part of a
// successful append.
type Asset struct {
	ID              string    `json:"id"               db:"id"`
	CurrentSequence int       `json:"current_sequence" db:"current_sequence"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"`
}

// Payload is the versioned snapshot of an asset's state. Every field is
// captured immutably per version; the registry validates the schema and the
// status transition before any persistence attempt.
type Payload struct {
	Status       Status  `json:"status"`
	Owner        string  `json:"owner"`
	Name         string  `json:"name"`
	LocationLat  float64 `json:"location_lat"`
	LocationLon  float64 `json:"location_lon"`
	SizeHectares float64 `json:"size_hectares"`
	ChangeReason string  `json:"change_reason"`
}

// Version is one immutable snapshot in an asset's hash-linked history.
// For sequence 0, PrevHash is the well-known genesis sentinel; for every
// later sequence it equals the content hash of the preceding version.
type Version struct {
	AssetID   string    `json:"asset_id"   db:"asset_id"`
	Sequence  int       `json:"sequence"   db:"sequence"`
	Payload   Payload   `json:"payload"    db:"payload"`
	Hash      string    `json:"hash"       db:"hash"`
	PrevHash  string    `json:"prev_hash"  db:"prev_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// EvidenceKind enumerates the recognised categories of proof records.
type EvidenceKind string

const (
	EvidenceDocumentHash EvidenceKind = "document-hash"
	EvidenceSurveyData   EvidenceKind = "survey-data"
	EvidenceAttestation  EvidenceKind = "attestation"
	EvidenceOther        EvidenceKind = "other"
)

// ValidEvidenceKind reports whether k is a recognised evidence kind.
func ValidEvidenceKind(k EvidenceKind) bool {
	switch k {
	case EvidenceDocumentHash, EvidenceSurveyData, EvidenceAttestation, EvidenceOther:
		return true
	}
	return false
}

// Evidence is an immutable proof record bound to one specific version of an
// asset. PayloadRef carries a content hash or an external locator, never the
// raw document. Evidence is never reassigned to another version.
type Evidence struct {
	ID              uuid.UUID    `json:"id"                 db:"id"`
	AssetID         string       `json:"asset_id"           db:"asset_id"`
	VersionSequence int          `json:"version_sequence"   db:"version_sequence"`
	Kind            EvidenceKind `json:"kind"               db:"kind"`
	PayloadRef      string       `json:"payload_ref"        db:"payload_ref"`
	Description     string       `json:"description"        db:"description"`
	GPSLat          *float64     `json:"gps_lat,omitempty"  db:"gps_lat"`
	GPSLon          *float64     `json:"gps_lon,omitempty"  db:"gps_lon"`
	Submitter       string       `json:"submitter"          db:"submitter"`
	SubmittedAt     time.Time    `json:"submitted_at"       db:"submitted_at"`
}

// Timeline event type tags.
const (
	EventVersionCreated = "version"
	EventEvidenceLogged = "evidence"
)

// TimelineEvent is one entry in the chronologically merged view of an
// asset's versions and evidence.
type TimelineEvent struct {
	Type      string    `json:"type"` // "version" or "evidence"
	Timestamp time.Time `json:"timestamp"`

	// Version events.
	Sequence *int     `json:"sequence,omitempty"`
	Payload  *Payload `json:"payload,omitempty"`

	// Evidence events.
	EvidenceID      *uuid.UUID   `json:"evidence_id,omitempty"`
	VersionSequence *int         `json:"version_sequence,omitempty"`
	Kind            EvidenceKind `json:"kind,omitempty"`
	Description     string       `json:"description,omitempty"`
}

// CreateAssetRequest is the payload for registering a new asset.
type CreateAssetRequest struct {
	AssetID string  `json:"asset_id" binding:"required"`
	Payload Payload `json:"payload"  binding:"required"`
}

// AppendVersionRequest is the payload for appending a version to an asset.
// ExpectedSequence is the sequence the caller believes is current; a stale
// value is rejected and the caller must re-read and retry.
type AppendVersionRequest struct {
	ExpectedSequence *int    `json:"expected_sequence" binding:"required"`
	Payload          Payload `json:"payload"           binding:"required"`
}

// LogEvidenceRequest is the payload for binding evidence to a version.
type LogEvidenceRequest struct {
	AssetID         string       `json:"asset_id"         binding:"required"`
	VersionSequence *int         `json:"version_sequence" binding:"required"`
	Kind            EvidenceKind `json:"kind"             binding:"required"`
	PayloadRef      string       `json:"payload_ref"      binding:"required"`
	Description     string       `json:"description"`
	GPSLat          *float64     `json:"gps_lat,omitempty"`
	GPSLon          *float64     `json:"gps_lon,omitempty"`
	Submitter       string       `json:"submitter"        binding:"required"`
}
