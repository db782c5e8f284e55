package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
)

func cleanInput() Input {
	return Input{
		Invoice: entity.Document{
			ID:          "INV1",
			Type:        entity.DocTypeInvoice,
			Number:      "INV-1001",
			Vendor:      "Acme Corp",
			Currency:    "USD",
			Amount:      5000,
			Subtotal:    5000,
			POReference: "PO-1",
			Confidence:  96,
			Status:      entity.InvoiceStatusUnpaid,
		},
		Match: &entity.Match{
			ID:         "M1",
			InvoiceID:  "INV1",
			PONumber:   "PO-1",
			MatchScore: 95,
			MatchType:  entity.MatchTypeTwoWay,
			GRNStatus:  entity.GRNLinkNone,
		},
		VendorRisk: entity.VendorRiskSummary{Score: 12, Level: entity.RiskLevelLow},
		ActiveRole: policy.LookupRole("analyst"),
	}
}

func openAnomaly(id, docID, anomalyType, severity string, risk float64) entity.Anomaly {
	return entity.Anomaly{
		ID:           id,
		DocumentID:   docID,
		Type:         anomalyType,
		Severity:     severity,
		AmountAtRisk: risk,
		Status:       entity.AnomalyStatusOpen,
	}
}

func TestClassifyCleanInvoiceAutoApproves(t *testing.T) {
	c := NewClassifier(policy.Default())

	decision := c.Classify(cleanInput())

	assert.Equal(t, entity.LaneAutoApprove, decision.Lane)
	assert.Equal(t, entity.InvoiceStatusApproved, decision.AutoAction)
	require.NotEmpty(t, decision.Reasons)
	assert.True(t, strings.HasPrefix(decision.Reasons[0], "APPROVED:"))
	// five conditions pass, so 80 + 5*4 caps at 99
	assert.Equal(t, 99.0, decision.Confidence)
	assert.Equal(t, 95.0, decision.MatchQuality)
	require.NotNil(t, decision.RequiredApprover)
	assert.Equal(t, "analyst", decision.RequiredApprover.Role)
}

func TestClassifyVendorRiskBlocksAutoApprove(t *testing.T) {
	c := NewClassifier(policy.Default())

	in := cleanInput()
	in.VendorRisk = entity.VendorRiskSummary{Score: 85, Level: entity.RiskLevelHigh}

	// risk 85 with no open anomalies cannot block, but it fails the
	// auto-approve risk ceiling even at 96% extraction confidence
	decision := c.Classify(in)

	assert.Equal(t, entity.LaneReview, decision.Lane)
	assert.Equal(t, entity.InvoiceStatusUnderReview, decision.AutoAction)
	assert.Contains(t, decision.Reasons[0], "Vendor risk 85")
	// one failed condition: 70 - 10 = 60
	assert.Equal(t, 60.0, decision.Confidence)
}

func TestClassifyHighRiskVendorWithAnomaliesBlocks(t *testing.T) {
	c := NewClassifier(policy.Default())

	in := cleanInput()
	in.VendorRisk = entity.VendorRiskSummary{Score: 75, Level: entity.RiskLevelHigh}
	in.Anomalies = []entity.Anomaly{
		openAnomaly("A1", "INV1", entity.AnomalyTaxRate, entity.SeverityMedium, 100),
	}

	decision := c.Classify(in)

	assert.Equal(t, entity.LaneBlock, decision.Lane)
	assert.Equal(t, entity.InvoiceStatusOnHold, decision.AutoAction)
	assert.Contains(t, decision.Reasons[0], "High-risk vendor")
	// one block reason: 70 + 8 = 78
	assert.Equal(t, 78.0, decision.Confidence)
}

func TestClassifyBlockReasons(t *testing.T) {
	c := NewClassifier(policy.Default())

	t.Run("high severity anomaly", func(t *testing.T) {
		in := cleanInput()
		in.Anomalies = []entity.Anomaly{
			openAnomaly("A1", "INV1", entity.AnomalyPriceOvercharge, entity.SeverityHigh, 200),
		}
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneBlock, decision.Lane)
		assert.Contains(t, decision.Reasons[0], entity.AnomalyPriceOvercharge)
	})

	t.Run("duplicate invoice", func(t *testing.T) {
		in := cleanInput()
		in.Anomalies = []entity.Anomaly{
			openAnomaly("A1", "INV1", entity.AnomalyDuplicateInvoice, entity.SeverityMedium, 0),
		}
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneBlock, decision.Lane)
		assert.Contains(t, strings.Join(decision.Reasons, " "), "duplicate")
	})

	t.Run("over invoiced match", func(t *testing.T) {
		in := cleanInput()
		in.Match.OverInvoiced = true
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneBlock, decision.Lane)
	})

	t.Run("untrusted extraction", func(t *testing.T) {
		in := cleanInput()
		in.Invoice.Confidence = 45
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneBlock, decision.Lane)
		assert.Contains(t, decision.Reasons[0], "confidence")
	})

	t.Run("risk amount dominates invoice", func(t *testing.T) {
		in := cleanInput()
		in.Anomalies = []entity.Anomaly{
			openAnomaly("A1", "INV1", entity.AnomalyAmountDiscrepancy, entity.SeverityMedium, 1500),
		}
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneBlock, decision.Lane)
	})

	t.Run("multiple reasons raise confidence", func(t *testing.T) {
		in := cleanInput()
		in.Invoice.Confidence = 45
		in.Anomalies = []entity.Anomaly{
			openAnomaly("A1", "INV1", entity.AnomalyPriceOvercharge, entity.SeverityHigh, 1500),
			openAnomaly("A2", "INV1", entity.AnomalyDuplicateInvoice, entity.SeverityMedium, 0),
		}
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneBlock, decision.Lane)
		assert.GreaterOrEqual(t, len(decision.Reasons), 4)
		assert.Equal(t, 99.0, decision.Confidence)
	})
}

func TestClassifyReviewPaths(t *testing.T) {
	c := NewClassifier(policy.Default())

	t.Run("missing po reference", func(t *testing.T) {
		in := cleanInput()
		in.Invoice.POReference = ""
		in.Match = nil
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneReview, decision.Lane)
		assert.Contains(t, decision.Reasons[0], "No PO reference")
	})

	t.Run("weak match score", func(t *testing.T) {
		in := cleanInput()
		in.Match.MatchScore = 45
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneReview, decision.Lane)
		assert.Contains(t, decision.Reasons[0], "weak or missing")
	})

	t.Run("amount above role authority names required approver", func(t *testing.T) {
		in := cleanInput()
		in.Invoice.Amount = 50000
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneReview, decision.Lane)
		assert.Contains(t, decision.Reasons[0], "AP Manager")
		require.NotNil(t, decision.RequiredApprover)
		assert.Equal(t, "manager", decision.RequiredApprover.Role)
	})

	t.Run("manager authority covers the same amount", func(t *testing.T) {
		in := cleanInput()
		in.Invoice.Amount = 50000
		in.ActiveRole = policy.LookupRole("manager")
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneAutoApprove, decision.Lane)
	})

	t.Run("review confidence floors at 40", func(t *testing.T) {
		in := cleanInput()
		in.Invoice.POReference = ""
		in.Invoice.Confidence = 70
		in.Invoice.Amount = 50000
		in.VendorRisk.Score = 60
		in.Match = nil
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneReview, decision.Lane)
		assert.Equal(t, 40.0, decision.Confidence)
	})
}

func TestClassifyReceiptRequirement(t *testing.T) {
	t.Run("three way mode demands a receipt", func(t *testing.T) {
		pol := policy.Default()
		pol.MatchingMode = entity.ModeThreeWay
		c := NewClassifier(pol)
		decision := c.Classify(cleanInput())
		assert.Equal(t, entity.LaneReview, decision.Lane)
		assert.Contains(t, decision.Reasons[0], "three-way match required")
	})

	t.Run("three way match satisfies the requirement", func(t *testing.T) {
		pol := policy.Default()
		pol.RequireGRNForAutoApprove = true
		c := NewClassifier(pol)
		in := cleanInput()
		in.Match.MatchType = entity.MatchTypeThreeWay
		in.Match.GRNStatus = entity.GRNLinkReceived
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneAutoApprove, decision.Lane)
	})

	t.Run("flexible mode only fails on an unreceipted finding", func(t *testing.T) {
		c := NewClassifier(policy.Default())
		in := cleanInput()
		in.Anomalies = []entity.Anomaly{
			openAnomaly("A1", "INV1", entity.AnomalyUnreceiptedInvoice, entity.SeverityMedium, 0),
		}
		decision := c.Classify(in)
		assert.Equal(t, entity.LaneReview, decision.Lane)
		assert.Contains(t, decision.Reasons[0], "not yet receipted")
	})
}

func TestClassifyTriageDisabled(t *testing.T) {
	pol := policy.Default()
	pol.TriageEnabled = false
	c := NewClassifier(pol)

	decision := c.Classify(cleanInput())

	assert.Equal(t, entity.LaneReview, decision.Lane)
	assert.Equal(t, []string{"Triage disabled"}, decision.Reasons)
	assert.Equal(t, 0.0, decision.Confidence)
}

func TestClassifyEarlyPaymentNote(t *testing.T) {
	c := NewClassifier(policy.Default())

	in := cleanInput()
	epd := openAnomaly("A1", "INV1", entity.AnomalyEarlyPaymentDiscount, entity.SeverityLow, -100)
	in.Anomalies = []entity.Anomaly{epd}

	decision := c.Classify(in)

	// a discount is an opportunity, not a defect
	assert.Equal(t, entity.LaneAutoApprove, decision.Lane)
	assert.Contains(t, strings.Join(decision.Reasons, " "), "Early payment discount")
	assert.True(t, decision.AnomalySummary.HasEPD)
	assert.Equal(t, 0, decision.AnomalySummary.Total)
}

func TestClassifyIgnoresOtherInvoicesAnomalies(t *testing.T) {
	c := NewClassifier(policy.Default())

	in := cleanInput()
	in.Anomalies = []entity.Anomaly{
		openAnomaly("A1", "OTHER", entity.AnomalyDuplicateInvoice, entity.SeverityHigh, 9999),
	}

	decision := c.Classify(in)
	assert.Equal(t, entity.LaneAutoApprove, decision.Lane)
}

func TestLaneActions(t *testing.T) {
	assert.Equal(t, entity.InvoiceStatusApproved, StatusForLane(entity.LaneAutoApprove))
	assert.Equal(t, entity.InvoiceStatusOnHold, StatusForLane(entity.LaneBlock))
	assert.Equal(t, entity.InvoiceStatusUnderReview, StatusForLane(entity.LaneReview))

	assert.True(t, IsTerminalStatus(entity.InvoiceStatusPaid))
	assert.False(t, IsTerminalStatus(entity.InvoiceStatusUnpaid))

	assert.True(t, CanApply(entity.InvoiceStatusUnpaid))
	assert.False(t, CanApply(entity.InvoiceStatusPaid))

	assert.Equal(t, "triage_block", ActivityAction(entity.LaneBlock))
}
