package entity

import "time"

// CorrectionPattern is a learned extraction mistake. Repeated identical
// corrections bump CorrectionCount instead of creating new patterns.
type CorrectionPattern struct {
	ID               string    `json:"id"`
	Vendor           string    `json:"vendor"`
	VendorNormalized string    `json:"vendorNormalized"`
	DocumentType     string    `json:"documentType"`
	Field            string    `json:"field"`
	ExtractedValue   string    `json:"extracted_value"`
	CorrectedValue   string    `json:"corrected_value"`
	Note             string    `json:"note,omitempty"`
	DocumentID       string    `json:"documentId"`
	CorrectionCount  int       `json:"correctionCount"`
	LearnedAt        time.Time `json:"learnedAt"`
}
