package entity

import "time"

// VendorRiskSummary is the slice of a vendor profile carried on a
// triage decision
type VendorRiskSummary struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
	Trend string  `json:"trend"`
}

// AnomalySummary counts the open anomalies weighed during triage
type AnomalySummary struct {
	Total     int     `json:"total"`
	High      int     `json:"high"`
	Medium    int     `json:"medium"`
	Low       int     `json:"low"`
	TotalRisk float64 `json:"totalRisk"`
	HasEPD    bool    `json:"hasEPD"`
}

// Approver identifies the role whose authority covers an invoice amount
type Approver struct {
	Role  string `json:"role"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// Override records a human decision that pins a triage lane
type Override struct {
	Lane   string    `json:"lane"`
	Reason string    `json:"reason"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

// TriageDecision is the classifier output for one invoice. At most one
// decision exists per invoice; re-triage replaces it.
type TriageDecision struct {
	ID               string            `json:"id"`
	InvoiceID        string            `json:"invoiceId"`
	Lane             string            `json:"lane"`
	Reasons          []string          `json:"reasons"`
	Confidence       float64           `json:"confidence"`
	VendorRisk       VendorRiskSummary `json:"vendorRisk"`
	AnomalySummary   AnomalySummary    `json:"anomalySummary"`
	MatchQuality     float64           `json:"matchQuality"`
	AutoAction       string            `json:"autoAction"`
	ActiveRole       string            `json:"activeRole"`
	ActiveRoleTitle  string            `json:"activeRoleTitle"`
	RequiredApprover *Approver         `json:"requiredApprover,omitempty"`
	Override         *Override         `json:"override,omitempty"`
	TriageAt         time.Time         `json:"triageAt"`
}
