package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind classifies a notification record. Together with the
// recipient and incident it forms the delivery de-duplication key.
type NotificationKind string

const (
	KindNewIncident   NotificationKind = "new_incident"
	KindClaimWon      NotificationKind = "claim_won"
	KindStatusChanged NotificationKind = "status_changed"
)

// Notification is one entry in an organization's notification list. Only
// the read flag is mutable, and only by the recipient.
type Notification struct {
	ID             int64            `json:"id"`
	RecipientOrgID uuid.UUID        `json:"recipient_org_id"`
	IncidentID     uuid.UUID        `json:"incident_id"`
	Kind           NotificationKind `json:"kind"`
	Message        string           `json:"message"`
	IsRead         bool             `json:"is_read"`
	CreatedAt      time.Time        `json:"created_at"`
}
