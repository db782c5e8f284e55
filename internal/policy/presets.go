package policy

// Preset is a named policy bundle tuned for an industry profile
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Policy      Policy `json:"policy"`
}

// Presets returns the built-in policy bundles keyed by identifier
func Presets() map[string]Preset {
	manufacturing := Default()
	manufacturing.MatchingMode = "three_way"
	manufacturing.AmountTolerancePct = 1
	manufacturing.PriceTolerancePct = 0.5
	manufacturing.OverInvoicePct = 1
	manufacturing.GRNQtyTolerancePct = 1
	manufacturing.GRNAmountTolerancePct = 1
	manufacturing.ShortShipmentThresholdPct = 95
	manufacturing.DuplicateWindowDays = 180
	manufacturing.AutoApproveMinConfidence = 90
	manufacturing.RequireGRNForAutoApprove = true
	manufacturing.FlagRoundNumberInvoices = true

	services := Default()
	services.MatchingMode = "two_way"
	services.AmountTolerancePct = 3
	services.PriceTolerancePct = 2
	services.OverInvoicePct = 5
	services.DuplicateWindowDays = 90
	services.AutoApproveMinConfidence = 80
	services.RequireGRNForAutoApprove = false
	services.FlagRoundNumberInvoices = false

	enterprise := Default()
	enterprise.MatchingMode = "flexible"
	enterprise.AmountTolerancePct = 2
	enterprise.PriceTolerancePct = 1
	enterprise.OverInvoicePct = 2
	enterprise.GRNQtyTolerancePct = 2
	enterprise.GRNAmountTolerancePct = 2
	enterprise.ShortShipmentThresholdPct = 90
	enterprise.DuplicateWindowDays = 90
	enterprise.AutoApproveMinConfidence = 85
	enterprise.RequireGRNForAutoApprove = false

	strict := Default()
	strict.MatchingMode = "three_way"
	strict.AmountTolerancePct = 0.5
	strict.PriceTolerancePct = 0.5
	strict.OverInvoicePct = 0.5
	strict.GRNQtyTolerancePct = 0.5
	strict.GRNAmountTolerancePct = 0.5
	strict.ShortShipmentThresholdPct = 98
	strict.DuplicateWindowDays = 365
	strict.AutoApproveMinConfidence = 95
	strict.AutoApproveMaxVendorRisk = 25
	strict.BlockMinVendorRisk = 50
	strict.RequireGRNForAutoApprove = true
	strict.FlagRoundNumberInvoices = true
	strict.FlagWeekendInvoices = true
	strict.MaxInvoiceAgeDays = 180

	return map[string]Preset{
		"manufacturing": {
			Name:        "Manufacturing",
			Description: "Three-way matching with tight tolerances for goods-heavy procurement",
			Policy:      manufacturing,
		},
		"services": {
			Name:        "Professional Services",
			Description: "Two-way matching with relaxed tolerances for service invoices without receipts",
			Policy:      services,
		},
		"enterprise_default": {
			Name:        "Enterprise Default",
			Description: "Balanced flexible matching suitable for mixed goods and services",
			Policy:      enterprise,
		},
		"strict_audit": {
			Name:        "Strict Audit",
			Description: "Minimal tolerances and mandatory receipts for audit-sensitive environments",
			Policy:      strict,
		},
	}
}
