package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity of a detected accident, ordered by urgency.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// ValidSeverity reports whether s is a known severity value.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityModerate, SeverityMinor:
		return true
	}
	return false
}

// TrackType identifies one of the two independent response pipelines
// attached to every incident.
type TrackType string

const (
	TrackMedical TrackType = "medical"
	TrackPolice  TrackType = "police"
)

func ValidTrackType(t TrackType) bool {
	return t == TrackMedical || t == TrackPolice
}

// TrackStatus is the lifecycle of a response track. Accepted and Rejected
// are terminal; a track never reverts.
type TrackStatus string

const (
	TrackPending  TrackStatus = "pending"
	TrackAccepted TrackStatus = "accepted"
	TrackRejected TrackStatus = "rejected"
)

// ResponseTrack holds one responder type's decision on an incident.
// ClaimedBy is set on the terminal transition and is nil while pending.
type ResponseTrack struct {
	Status    TrackStatus `json:"status"`
	ClaimedBy *uuid.UUID  `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time  `json:"claimed_at,omitempty"`
}

// Incident is the durable record of one detected accident. All fields
// except the two tracks are immutable after ingestion.
type Incident struct {
	ID           uuid.UUID     `json:"id"`
	Address      string        `json:"address"`
	Latitude     *float64      `json:"latitude,omitempty"`
	Longitude    *float64      `json:"longitude,omitempty"`
	Region       string        `json:"region"`
	Severity     Severity      `json:"severity"`
	Description  string        `json:"description"`
	EvidenceRef  string        `json:"evidence_ref,omitempty"`
	DetectedAt   time.Time     `json:"detected_at"`
	MedicalTrack ResponseTrack `json:"medical_track"`
	PoliceTrack  ResponseTrack `json:"police_track"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Track returns the named track. Callers validate t first.
func (i *Incident) Track(t TrackType) *ResponseTrack {
	if t == TrackPolice {
		return &i.PoliceTrack
	}
	return &i.MedicalTrack
}

// Settled reports whether both tracks reached a terminal status. A
// settled incident never mutates again.
func (i *Incident) Settled() bool {
	return i.MedicalTrack.Status != TrackPending && i.PoliceTrack.Status != TrackPending
}
