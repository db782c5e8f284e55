package policy

import (
	"fmt"
	"sync"
)

// Engine holds the active policy and serializes mutations. Reads return a
// copy so callers can evaluate a consistent snapshot mid-pipeline.
type Engine struct {
	mu     sync.RWMutex
	active Policy
}

// NewEngine creates an engine seeded with the given policy
func NewEngine(p Policy) *Engine {
	return &Engine{active: normalize(p)}
}

// Snapshot returns a copy of the active policy
func (e *Engine) Snapshot() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return clone(e.active)
}

// ApplyPreset atomically replaces the active policy with a built-in preset
func (e *Engine) ApplyPreset(name string) (Policy, error) {
	preset, ok := Presets()[name]
	if !ok {
		return Policy{}, fmt.Errorf("unknown policy preset: %s", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = clone(preset.Policy)
	return clone(e.active), nil
}

// Update applies a partial policy change. Unknown keys and invalid values
// are skipped rather than rejected; the returned slice names the fields
// that were actually applied.
func (e *Engine) Update(changes map[string]interface{}) (Policy, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var applied []string
	for key, raw := range changes {
		if e.applyField(key, raw) {
			applied = append(applied, key)
		}
	}
	e.active = normalize(e.active)
	return clone(e.active), applied
}

func (e *Engine) applyField(key string, raw interface{}) bool {
	switch key {
	case "matching_mode":
		s, ok := raw.(string)
		if !ok || (s != "two_way" && s != "three_way" && s != "flexible") {
			return false
		}
		e.active.MatchingMode = s
		return true

	case "amount_tolerance_pct":
		return setPct(&e.active.AmountTolerancePct, raw)
	case "price_tolerance_pct":
		return setPct(&e.active.PriceTolerancePct, raw)
	case "over_invoice_pct":
		return setPct(&e.active.OverInvoicePct, raw)
	case "tax_tolerance_pct":
		return setPct(&e.active.TaxTolerancePct, raw)
	case "grn_qty_tolerance_pct":
		return setPct(&e.active.GRNQtyTolerancePct, raw)
	case "grn_amount_tolerance_pct":
		return setPct(&e.active.GRNAmountTolerancePct, raw)
	case "short_shipment_threshold_pct":
		return setPct(&e.active.ShortShipmentThresholdPct, raw)
	case "duplicate_amount_tolerance_pct":
		return setPct(&e.active.DuplicateAmountTolerancePct, raw)
	case "high_severity_pct":
		return setPct(&e.active.HighSeverityPct, raw)
	case "med_severity_pct":
		return setPct(&e.active.MedSeverityPct, raw)
	case "auto_approve_min_confidence":
		return setPct(&e.active.AutoApproveMinConfidence, raw)
	case "auto_approve_max_vendor_risk":
		return setPct(&e.active.AutoApproveMaxVendorRisk, raw)
	case "block_min_vendor_risk":
		return setPct(&e.active.BlockMinVendorRisk, raw)
	case "high_risk_threshold":
		return setPct(&e.active.HighRiskThreshold, raw)
	case "med_risk_threshold":
		return setPct(&e.active.MedRiskThreshold, raw)
	case "risk_tolerance_tightening":
		return setPct(&e.active.RiskToleranceTightening, raw)

	case "duplicate_window_days":
		return setDays(&e.active.DuplicateWindowDays, raw)
	case "max_invoice_age_days":
		return setDays(&e.active.MaxInvoiceAgeDays, raw)

	case "triage_enabled":
		return setBool(&e.active.TriageEnabled, raw)
	case "block_on_high_severity":
		return setBool(&e.active.BlockOnHighSeverity, raw)
	case "require_po_for_auto_approve":
		return setBool(&e.active.RequirePOForAutoApprove, raw)
	case "require_grn_for_auto_approve":
		return setBool(&e.active.RequireGRNForAutoApprove, raw)
	case "auto_detect_document_type":
		return setBool(&e.active.AutoDetectDocumentType, raw)
	case "require_invoice_number":
		return setBool(&e.active.RequireInvoiceNumber, raw)
	case "flag_round_number_invoices":
		return setBool(&e.active.FlagRoundNumberInvoices, raw)
	case "flag_weekend_invoices":
		return setBool(&e.active.FlagWeekendInvoices, raw)

	case "auto_approve_limits":
		return mergeFloatMap(&e.active.AutoApproveLimits, raw)
	case "vendor_risk_weights":
		return mergeFloatMap(&e.active.VendorRiskWeights, raw)
	}
	return false
}

func setPct(dst *float64, raw interface{}) bool {
	f, ok := toFloat(raw)
	if !ok {
		return false
	}
	if f < 0 {
		f = 0
	} else if f > 100 {
		f = 100
	}
	*dst = f
	return true
}

func setDays(dst *int, raw interface{}) bool {
	f, ok := toFloat(raw)
	if !ok {
		return false
	}
	n := int(f)
	if n < 0 {
		n = 0
	}
	*dst = n
	return true
}

func setBool(dst *bool, raw interface{}) bool {
	b, ok := raw.(bool)
	if !ok {
		return false
	}
	*dst = b
	return true
}

func mergeFloatMap(dst *map[string]float64, raw interface{}) bool {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return false
	}
	if *dst == nil {
		*dst = make(map[string]float64)
	}
	merged := false
	for k, v := range m {
		if f, ok := toFloat(v); ok {
			(*dst)[k] = f
			merged = true
		}
	}
	return merged
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// normalize ensures map fields exist so lookups never hit a nil map
func normalize(p Policy) Policy {
	if p.AutoApproveLimits == nil {
		p.AutoApproveLimits = Default().AutoApproveLimits
	}
	if p.VendorRiskWeights == nil {
		p.VendorRiskWeights = Default().VendorRiskWeights
	}
	return p
}

func clone(p Policy) Policy {
	limits := make(map[string]float64, len(p.AutoApproveLimits))
	for k, v := range p.AutoApproveLimits {
		limits[k] = v
	}
	weights := make(map[string]float64, len(p.VendorRiskWeights))
	for k, v := range p.VendorRiskWeights {
		weights[k] = v
	}
	p.AutoApproveLimits = limits
	p.VendorRiskWeights = weights
	return p
}

// SeverityForAmount grades a risk amount against a base amount using the
// policy severity bands. A non-positive base cannot be graded and is
// treated as medium.
func SeverityForAmount(p Policy, riskAmount, baseAmount float64) string {
	if baseAmount <= 0 {
		return "medium"
	}
	pct := riskAmount / baseAmount * 100
	if pct < 0 {
		pct = -pct
	}
	if pct >= p.HighSeverityPct {
		return "high"
	}
	if pct >= p.MedSeverityPct {
		return "medium"
	}
	return "low"
}
