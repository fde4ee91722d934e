package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgType maps a responder organization to the track it may act on.
type OrgType string

const (
	OrgHospital OrgType = "hospital"
	OrgPolice   OrgType = "police"
)

func ValidOrgType(t OrgType) bool {
	return t == OrgHospital || t == OrgPolice
}

// Track returns the response track this organization type participates in.
func (t OrgType) Track() TrackType {
	if t == OrgPolice {
		return TrackPolice
	}
	return TrackMedical
}

// RegionAll is the wildcard value for an alert filter region.
// RegionUnknown is assigned to incidents whose location could not be
// mapped to a district; it only ever matches wildcard filters.
const (
	RegionAll     = "All"
	RegionUnknown = "Unknown"
)

// AlertFilter governs which incidents an organization is notified about.
// An empty severity set means all severities.
type AlertFilter struct {
	Severities []Severity `json:"severities,omitempty"`
	Region     string     `json:"region"`
}

// Matches reports whether an incident with the given severity and region
// passes this filter.
func (f AlertFilter) Matches(severity Severity, region string) bool {
	if f.Region != RegionAll && f.Region != region {
		return false
	}
	if len(f.Severities) == 0 {
		return true
	}
	for _, s := range f.Severities {
		if s == severity {
			return true
		}
	}
	return false
}

// Organization is a registered responder (hospital or police unit).
type Organization struct {
	ID          uuid.UUID   `json:"id"`
	Type        OrgType     `json:"type"`
	Name        string      `json:"name"`
	Region      string      `json:"region"`
	AlertFilter AlertFilter `json:"alert_filter"`
	CreatedAt   time.Time   `json:"created_at"`
}
