package v1

import (
	"time"

	"github.com/google/uuid"
)

// IngestDetectionRequest DTO for the detection-pipeline boundary
// @Description DTO for ingesting a detection event
type IngestDetectionRequest struct {
	SourceSensorID string    `json:"source_sensor_id" validate:"required,min=1,max=128"`
	Address        string    `json:"address" validate:"required,min=2,max=255"`
	Latitude       *float64  `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude      *float64  `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Severity       string    `json:"severity" validate:"required"`
	Description    string    `json:"description,omitempty"`
	EvidenceRef    string    `json:"evidence_ref,omitempty"`
	DetectedAt     time.Time `json:"detected_at" validate:"required"`
}

// IngestDetectionResponse DTO returned after ingestion
// @Description DTO returned after ingestion
type IngestDetectionResponse struct {
	IncidentID uuid.UUID `json:"incident_id"`
}

// TrackResponse DTO for one response track
// @Description DTO for one response track
type TrackResponse struct {
	Status    string     `json:"status"`
	ClaimedBy *uuid.UUID `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// IncidentResponse DTO for incident details with both tracks
// @Description DTO for incident details with both tracks
type IncidentResponse struct {
	ID           uuid.UUID     `json:"id"`
	Address      string        `json:"address"`
	Latitude     *float64      `json:"latitude,omitempty"`
	Longitude    *float64      `json:"longitude,omitempty"`
	Region       string        `json:"region"`
	Severity     string        `json:"severity"`
	Description  string        `json:"description,omitempty"`
	EvidenceRef  string        `json:"evidence_ref,omitempty"`
	DetectedAt   time.Time     `json:"detected_at"`
	MedicalTrack TrackResponse `json:"medical_track"`
	PoliceTrack  TrackResponse `json:"police_track"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ClaimResponse DTO for accept/reject outcomes
// @Description DTO for accept/reject outcomes
type ClaimResponse struct {
	Result    string     `json:"result"`
	ClaimedBy *uuid.UUID `json:"claimed_by,omitempty"`
}

// RegisterOrganizationRequest DTO for catalog registration
// @Description DTO for registering a responder organization
type RegisterOrganizationRequest struct {
	Type            string   `json:"type" validate:"required,oneof=hospital police"`
	Name            string   `json:"name" validate:"required,min=2,max=255"`
	Region          string   `json:"region" validate:"required,min=2,max=128"`
	AlertSeverities []string `json:"alert_severities,omitempty" validate:"dive,oneof=critical major moderate minor"`
	AlertRegion     string   `json:"alert_region,omitempty"`
}

// OrganizationResponse DTO for a responder organization
// @Description DTO for a responder organization
type OrganizationResponse struct {
	ID              uuid.UUID `json:"id"`
	Type            string    `json:"type"`
	Name            string    `json:"name"`
	Region          string    `json:"region"`
	AlertSeverities []string  `json:"alert_severities,omitempty"`
	AlertRegion     string    `json:"alert_region"`
	CreatedAt       time.Time `json:"created_at"`
}

// NotificationResponse DTO for one notification entry
// @Description DTO for one notification entry
type NotificationResponse struct {
	ID         int64     `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// MarkReadResponse DTO for the mark-all-read result
// @Description DTO for the mark-all-read result
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// StatsResponse DTO for the operational stats snapshot
// @Description DTO for the operational stats snapshot
type StatsResponse struct {
	StuckPendingTracks int `json:"stuck_pending_tracks"`
}
