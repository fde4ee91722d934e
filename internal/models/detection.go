package models

import "time"

// DetectionEvent is the boundary payload produced by the external
// detection pipeline. The coordinator validates only well-formedness of
// the severity, not the classification itself.
type DetectionEvent struct {
	SourceSensorID string    `json:"source_sensor_id"`
	Address        string    `json:"address"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	EvidenceRef    string    `json:"evidence_ref,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
}
