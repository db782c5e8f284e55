package entity

import "time"

// RiskFactor is one weighted component of a vendor risk score
type RiskFactor struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail"`
}

// VendorRiskProfile is the computed risk posture of a vendor across its
// full document history
type VendorRiskProfile struct {
	Vendor            string                `json:"vendor"`
	VendorNormalized  string                `json:"vendorNormalized"`
	Score             float64               `json:"score"`
	Level             string                `json:"level"`
	Trend             string                `json:"trend"`
	InvoiceCount      int                   `json:"invoiceCount"`
	TotalSpend        float64               `json:"totalSpend"`
	OpenAnomalyCount  int                   `json:"openAnomalyCount"`
	TotalAnomalyCount int                   `json:"totalAnomalyCount"`
	Factors           map[string]RiskFactor `json:"factors"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// DynamicTolerances are policy tolerances tightened by vendor risk
type DynamicTolerances struct {
	AmountTolerancePct float64 `json:"amount_tolerance_pct"`
	PriceTolerancePct  float64 `json:"price_tolerance_pct"`
	RiskAdjusted       bool    `json:"risk_adjusted"`
	RiskScore          float64 `json:"risk_score"`
	RiskLevel          string  `json:"risk_level"`
}
