package policy

// Policy holds every tunable knob of the audit pipeline. Zero values are
// never meaningful; always start from Default() and mutate through Engine.
type Policy struct {
	MatchingMode string `json:"matching_mode" mapstructure:"matching_mode"`

	AmountTolerancePct        float64 `json:"amount_tolerance_pct" mapstructure:"amount_tolerance_pct"`
	PriceTolerancePct         float64 `json:"price_tolerance_pct" mapstructure:"price_tolerance_pct"`
	OverInvoicePct            float64 `json:"over_invoice_pct" mapstructure:"over_invoice_pct"`
	TaxTolerancePct           float64 `json:"tax_tolerance_pct" mapstructure:"tax_tolerance_pct"`
	GRNQtyTolerancePct        float64 `json:"grn_qty_tolerance_pct" mapstructure:"grn_qty_tolerance_pct"`
	GRNAmountTolerancePct     float64 `json:"grn_amount_tolerance_pct" mapstructure:"grn_amount_tolerance_pct"`
	ShortShipmentThresholdPct float64 `json:"short_shipment_threshold_pct" mapstructure:"short_shipment_threshold_pct"`

	DuplicateWindowDays         int     `json:"duplicate_window_days" mapstructure:"duplicate_window_days"`
	DuplicateAmountTolerancePct float64 `json:"duplicate_amount_tolerance_pct" mapstructure:"duplicate_amount_tolerance_pct"`

	HighSeverityPct float64 `json:"high_severity_pct" mapstructure:"high_severity_pct"`
	MedSeverityPct  float64 `json:"med_severity_pct" mapstructure:"med_severity_pct"`

	TriageEnabled            bool               `json:"triage_enabled" mapstructure:"triage_enabled"`
	AutoApproveMinConfidence float64            `json:"auto_approve_min_confidence" mapstructure:"auto_approve_min_confidence"`
	AutoApproveMaxVendorRisk float64            `json:"auto_approve_max_vendor_risk" mapstructure:"auto_approve_max_vendor_risk"`
	BlockOnHighSeverity      bool               `json:"block_on_high_severity" mapstructure:"block_on_high_severity"`
	BlockMinVendorRisk       float64            `json:"block_min_vendor_risk" mapstructure:"block_min_vendor_risk"`
	RequirePOForAutoApprove  bool               `json:"require_po_for_auto_approve" mapstructure:"require_po_for_auto_approve"`
	RequireGRNForAutoApprove bool               `json:"require_grn_for_auto_approve" mapstructure:"require_grn_for_auto_approve"`
	AutoApproveLimits        map[string]float64 `json:"auto_approve_limits" mapstructure:"auto_approve_limits"`

	VendorRiskWeights       map[string]float64 `json:"vendor_risk_weights" mapstructure:"vendor_risk_weights"`
	HighRiskThreshold       float64            `json:"high_risk_threshold" mapstructure:"high_risk_threshold"`
	MedRiskThreshold        float64            `json:"med_risk_threshold" mapstructure:"med_risk_threshold"`
	RiskToleranceTightening float64            `json:"risk_tolerance_tightening" mapstructure:"risk_tolerance_tightening"`

	AutoDetectDocumentType  bool `json:"auto_detect_document_type" mapstructure:"auto_detect_document_type"`
	RequireInvoiceNumber    bool `json:"require_invoice_number" mapstructure:"require_invoice_number"`
	FlagRoundNumberInvoices bool `json:"flag_round_number_invoices" mapstructure:"flag_round_number_invoices"`
	MaxInvoiceAgeDays       int  `json:"max_invoice_age_days" mapstructure:"max_invoice_age_days"`
	FlagWeekendInvoices     bool `json:"flag_weekend_invoices" mapstructure:"flag_weekend_invoices"`
}

// Risk weight factor keys
const (
	WeightAnomalyRate         = "anomaly_rate"
	WeightCorrectionFrequency = "correction_frequency"
	WeightContractCompliance  = "contract_compliance"
	WeightDuplicateHistory    = "duplicate_history"
	WeightVolumeConsistency   = "volume_consistency"
)

// DefaultAutoApproveLimit applies when an invoice currency has no
// per-currency limit configured
const DefaultAutoApproveLimit = 100000

// Default returns the baseline policy
func Default() Policy {
	return Policy{
		MatchingMode: "flexible",

		AmountTolerancePct:        2,
		PriceTolerancePct:         1,
		OverInvoicePct:            2,
		TaxTolerancePct:           5,
		GRNQtyTolerancePct:        2,
		GRNAmountTolerancePct:     2,
		ShortShipmentThresholdPct: 90,

		DuplicateWindowDays:         90,
		DuplicateAmountTolerancePct: 2,

		HighSeverityPct: 10,
		MedSeverityPct:  5,

		TriageEnabled:            true,
		AutoApproveMinConfidence: 85,
		AutoApproveMaxVendorRisk: 50,
		BlockOnHighSeverity:      true,
		BlockMinVendorRisk:       70,
		RequirePOForAutoApprove:  true,
		RequireGRNForAutoApprove: false,
		AutoApproveLimits: map[string]float64{
			"USD": 100000,
			"EUR": 90000,
			"GBP": 80000,
			"INR": 7500000,
			"AED": 350000,
			"JPY": 15000000,
			"CAD": 130000,
			"AUD": 150000,
		},

		VendorRiskWeights: map[string]float64{
			WeightAnomalyRate:         0.30,
			WeightCorrectionFrequency: 0.15,
			WeightContractCompliance:  0.25,
			WeightDuplicateHistory:    0.15,
			WeightVolumeConsistency:   0.15,
		},
		HighRiskThreshold:       65,
		MedRiskThreshold:        35,
		RiskToleranceTightening: 0.50,

		AutoDetectDocumentType:  true,
		RequireInvoiceNumber:    true,
		FlagRoundNumberInvoices: false,
		MaxInvoiceAgeDays:       365,
		FlagWeekendInvoices:     false,
	}
}

// AutoApproveLimit returns the auto-approve ceiling for a currency
func (p Policy) AutoApproveLimit(currency string) float64 {
	if limit, ok := p.AutoApproveLimits[currency]; ok {
		return limit
	}
	return DefaultAutoApproveLimit
}

// RiskWeight returns a configured factor weight, falling back to the
// default weight for unknown keys
func (p Policy) RiskWeight(key string) float64 {
	if w, ok := p.VendorRiskWeights[key]; ok {
		return w
	}
	return Default().VendorRiskWeights[key]
}
