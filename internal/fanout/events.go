package fanout

import (
	"time"

	"github.com/google/uuid"

	"github.com/svmurthy/accident-dispatch/internal/models"
)

// EventType discriminates fan-out event envelopes.
type EventType string

const (
	EventNewIncident   EventType = "new_incident"
	EventClaimOutcome  EventType = "claim_outcome"
	EventTrackRejected EventType = "track_rejected"
)

// Event is the envelope queued for the fan-out worker. One event expands
// into per-organization notification records (and optionally an external
// webhook push). Events are published only after the corresponding store
// mutation is committed, so redelivery can never change incident state.
type Event struct {
	Type       EventType        `json:"type"`
	IncidentID uuid.UUID        `json:"incident_id"`
	Address    string           `json:"address"`
	Severity   models.Severity  `json:"severity"`
	Region     string           `json:"region"`
	Track      models.TrackType `json:"track,omitempty"`

	// Eligible organizations per track, for new-incident delivery.
	EligibleMedical []uuid.UUID `json:"eligible_medical,omitempty"`
	EligiblePolice  []uuid.UUID `json:"eligible_police,omitempty"`

	// Claim resolution: the actor that closed the track, its display
	// name, and the organizations previously alerted about the track.
	ActorOrgID   *uuid.UUID  `json:"actor_org_id,omitempty"`
	ActorOrgName string      `json:"actor_org_name,omitempty"`
	NotifiedOrgs []uuid.UUID `json:"notified_orgs,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
