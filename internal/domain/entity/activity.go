package entity

import "time"

// ActivityEntry is one line of the audit trail
type ActivityEntry struct {
	ID             string                 `json:"id"`
	Action         string                 `json:"action"`
	DocumentID     string                 `json:"documentId,omitempty"`
	DocumentNumber string                 `json:"documentNumber,omitempty"`
	Vendor         string                 `json:"vendor,omitempty"`
	Detail         map[string]interface{} `json:"detail,omitempty"`
	PerformedBy    string                 `json:"performedBy"`
	Timestamp      time.Time              `json:"timestamp"`
}

// Activity action constants
const (
	ActionDocumentUploaded  = "document_uploaded"
	ActionDocumentEdited    = "document_edited"
	ActionAnomaliesDetected = "anomalies_detected"
	ActionStatusChanged     = "status_changed"
	ActionTriageOverride    = "triage_override"
)
