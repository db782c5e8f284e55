package entity

import "time"

// Anomaly is a single detected exception against a document. AmountAtRisk
// is negative for savings opportunities (early payment discounts).
type Anomaly struct {
	ID             string     `json:"id"`
	DocumentID     string     `json:"invoiceId"`
	DocumentNumber string     `json:"invoiceNumber"`
	Vendor         string     `json:"vendor"`
	Currency       string     `json:"currency"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	Description    string     `json:"description"`
	AmountAtRisk   float64    `json:"amount_at_risk"`
	ContractClause string     `json:"contract_clause,omitempty"`
	Recommendation string     `json:"recommendation,omitempty"`
	Status         string     `json:"status"`
	DetectedAt     time.Time  `json:"detectedAt"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	DismissedAt    *time.Time `json:"dismissedAt,omitempty"`
}

// IsOpen reports whether the anomaly still needs attention
func (a *Anomaly) IsOpen() bool {
	return a.Status == AnomalyStatusOpen
}

// IsSavings reports whether the anomaly represents money to be saved
// rather than money at risk
func (a *Anomaly) IsSavings() bool {
	return a.Type == AnomalyEarlyPaymentDiscount
}
