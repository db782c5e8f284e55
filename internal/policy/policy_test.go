package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := Default()

	assert.Equal(t, "flexible", p.MatchingMode)
	assert.Equal(t, 2.0, p.AmountTolerancePct)
	assert.Equal(t, 90, p.DuplicateWindowDays)
	assert.True(t, p.TriageEnabled)
	assert.Equal(t, 85.0, p.AutoApproveMinConfidence)
	assert.Equal(t, 50.0, p.AutoApproveMaxVendorRisk)
	assert.Equal(t, 70.0, p.BlockMinVendorRisk)
	assert.True(t, p.RequirePOForAutoApprove)
	assert.False(t, p.RequireGRNForAutoApprove)

	// risk weights must sum to 1
	var sum float64
	for _, w := range p.VendorRiskWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestAutoApproveLimit(t *testing.T) {
	p := Default()
	assert.Equal(t, 100000.0, p.AutoApproveLimit("USD"))
	assert.Equal(t, 7500000.0, p.AutoApproveLimit("INR"))
	assert.Equal(t, float64(DefaultAutoApproveLimit), p.AutoApproveLimit("MXN"))
}

func TestRiskWeightFallback(t *testing.T) {
	p := Policy{VendorRiskWeights: map[string]float64{WeightAnomalyRate: 0.9}}
	assert.Equal(t, 0.9, p.RiskWeight(WeightAnomalyRate))
	assert.Equal(t, Default().VendorRiskWeights[WeightContractCompliance], p.RiskWeight(WeightContractCompliance))
}

func TestPresets(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, 4)

	t.Run("manufacturing demands receipts", func(t *testing.T) {
		p := presets["manufacturing"].Policy
		assert.Equal(t, "three_way", p.MatchingMode)
		assert.True(t, p.RequireGRNForAutoApprove)
		assert.Equal(t, 180, p.DuplicateWindowDays)
		assert.Equal(t, 90.0, p.AutoApproveMinConfidence)
	})

	t.Run("services relaxes tolerances", func(t *testing.T) {
		p := presets["services"].Policy
		assert.Equal(t, "two_way", p.MatchingMode)
		assert.Equal(t, 3.0, p.AmountTolerancePct)
		assert.Equal(t, 80.0, p.AutoApproveMinConfidence)
	})

	t.Run("strict audit tightens everything", func(t *testing.T) {
		p := presets["strict_audit"].Policy
		assert.Equal(t, "three_way", p.MatchingMode)
		assert.Equal(t, 0.5, p.AmountTolerancePct)
		assert.Equal(t, 365, p.DuplicateWindowDays)
		assert.Equal(t, 25.0, p.AutoApproveMaxVendorRisk)
		assert.Equal(t, 50.0, p.BlockMinVendorRisk)
		assert.True(t, p.FlagWeekendInvoices)
	})

	t.Run("enterprise default mirrors baseline matching", func(t *testing.T) {
		p := presets["enterprise_default"].Policy
		assert.Equal(t, "flexible", p.MatchingMode)
		assert.Equal(t, 85.0, p.AutoApproveMinConfidence)
	})
}

func TestSeverityForAmount(t *testing.T) {
	p := Default()

	tests := []struct {
		name     string
		risk     float64
		base     float64
		expected string
	}{
		{"zero base is medium", 100, 0, "medium"},
		{"above high band", 1500, 10000, "high"},
		{"mid band", 700, 10000, "medium"},
		{"below medium band", 100, 10000, "low"},
		{"negative risk uses magnitude", -1500, 10000, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SeverityForAmount(p, tt.risk, tt.base))
		})
	}
}
