package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
	"github.com/aivoralabs/auditlens/pkg/utils"
)

// extraction confidence below which an invoice is never trusted
const minTrustedConfidence = 60

// minimum match score for the PO requirement to count as satisfied
const minApproveMatchScore = 60

// share of the invoice amount at which open risk forces a block
const blockRiskShare = 0.2

// Input is everything the classifier consults for one invoice. The
// classifier is pure: it reads Input and the policy, nothing else.
type Input struct {
	Invoice    entity.Document
	Match      *entity.Match
	Anomalies  []entity.Anomaly
	VendorRisk entity.VendorRiskSummary
	ActiveRole policy.Role
}

// Classifier routes invoices into AUTO_APPROVE, REVIEW, or BLOCK lanes
type Classifier struct {
	pol policy.Policy
}

// NewClassifier creates a classifier bound to a policy snapshot
func NewClassifier(pol policy.Policy) *Classifier {
	return &Classifier{pol: pol}
}

// Classify produces the triage decision for an invoice
func (c *Classifier) Classify(in Input) entity.TriageDecision {
	decision := entity.TriageDecision{
		ID:              utils.NewRecordID(),
		InvoiceID:       in.Invoice.ID,
		VendorRisk:      in.VendorRisk,
		ActiveRole:      in.ActiveRole.Key,
		ActiveRoleTitle: in.ActiveRole.Title,
		TriageAt:        time.Now(),
	}
	if in.Match != nil {
		decision.MatchQuality = in.Match.MatchScore
	}
	approver := policy.RequiredApprover(in.Invoice.Amount, in.Invoice.Currency)
	decision.RequiredApprover = &entity.Approver{Role: approver.Key, Title: approver.Title, Level: approver.Level}

	if !c.pol.TriageEnabled {
		decision.Lane = entity.LaneReview
		decision.Reasons = []string{"Triage disabled"}
		decision.Confidence = 0
		decision.AutoAction = entity.InvoiceStatusUnderReview
		return decision
	}

	open, hasEPD := openAnomalies(in.Invoice.ID, in.Anomalies)
	decision.AnomalySummary = summarize(open, hasEPD)

	if blocks := c.blockReasons(in, open, decision.AnomalySummary); len(blocks) > 0 {
		decision.Lane = entity.LaneBlock
		decision.Reasons = blocks
		decision.Confidence = minF(99, 70+float64(len(blocks))*8)
		decision.AutoAction = entity.InvoiceStatusOnHold
		return decision
	}

	passed, failed := c.approveConditions(in, open)
	if len(failed) == 0 {
		decision.Lane = entity.LaneAutoApprove
		decision.Reasons = []string{"APPROVED: " + strings.Join(passed, "; ")}
		if hasEPD {
			decision.Reasons = append(decision.Reasons, "NOTE: Early payment discount available")
		}
		decision.Confidence = minF(99, 80+float64(len(passed))*4)
		decision.AutoAction = entity.InvoiceStatusApproved
		return decision
	}

	decision.Lane = entity.LaneReview
	decision.Reasons = []string{"REVIEW: " + strings.Join(failed, "; ")}
	if len(passed) > 0 {
		decision.Reasons = append(decision.Reasons, "Passed: "+strings.Join(passed, "; "))
	}
	if n := decision.AnomalySummary.Medium; n > 0 {
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("%d medium-severity anomalies need a look", n))
	}
	decision.Confidence = maxF(40, 70-float64(len(failed))*10)
	decision.AutoAction = entity.InvoiceStatusUnderReview
	return decision
}

// openAnomalies filters to this invoice's open findings, separating out
// early payment discounts, which are opportunities rather than risks
func openAnomalies(invoiceID string, anomalies []entity.Anomaly) ([]entity.Anomaly, bool) {
	var open []entity.Anomaly
	hasEPD := false
	for _, a := range anomalies {
		if a.DocumentID != invoiceID || !a.IsOpen() {
			continue
		}
		if a.IsSavings() {
			hasEPD = true
			continue
		}
		open = append(open, a)
	}
	return open, hasEPD
}

func summarize(open []entity.Anomaly, hasEPD bool) entity.AnomalySummary {
	s := entity.AnomalySummary{Total: len(open), HasEPD: hasEPD}
	for _, a := range open {
		switch a.Severity {
		case entity.SeverityHigh:
			s.High++
		case entity.SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
		if a.AmountAtRisk > 0 {
			s.TotalRisk += a.AmountAtRisk
		}
	}
	return s
}

func (c *Classifier) blockReasons(in Input, open []entity.Anomaly, summary entity.AnomalySummary) []string {
	var reasons []string

	if c.pol.BlockOnHighSeverity && summary.High > 0 {
		types := make([]string, 0, summary.High)
		seen := make(map[string]bool)
		for _, a := range open {
			if a.Severity == entity.SeverityHigh && !seen[a.Type] {
				seen[a.Type] = true
				types = append(types, a.Type)
			}
		}
		reasons = append(reasons, fmt.Sprintf("BLOCK: %d high-severity anomalies (%s)",
			summary.High, strings.Join(types, ", ")))
	}

	if in.Match != nil && in.Match.OverInvoiced {
		reasons = append(reasons, "BLOCK: Cumulative invoicing exceeds the purchase order amount")
	}

	for _, a := range open {
		if a.Type == entity.AnomalyDuplicateInvoice {
			reasons = append(reasons, "BLOCK: Possible duplicate invoice")
			break
		}
	}

	if in.VendorRisk.Score >= c.pol.BlockMinVendorRisk && len(open) > 0 {
		reasons = append(reasons, fmt.Sprintf("BLOCK: High-risk vendor (score %.0f) with open anomalies", in.VendorRisk.Score))
	}

	if in.Invoice.Confidence < minTrustedConfidence {
		reasons = append(reasons, fmt.Sprintf("BLOCK: Extraction confidence %.0f%% is below %d%%",
			in.Invoice.Confidence, minTrustedConfidence))
	}

	if in.Invoice.Amount > 0 && summary.TotalRisk > in.Invoice.Amount*blockRiskShare {
		reasons = append(reasons, fmt.Sprintf("BLOCK: %s%.2f at risk is over %.0f%% of the invoice amount",
			vendor.CurrencySymbol(in.Invoice.Currency), summary.TotalRisk, blockRiskShare*100))
	}

	return reasons
}

func (c *Classifier) approveConditions(in Input, open []entity.Anomaly) (passed, failed []string) {
	check := func(ok bool, pass, fail string) {
		if ok {
			passed = append(passed, pass)
		} else {
			failed = append(failed, fail)
		}
	}

	check(len(open) == 0,
		"No anomalies detected",
		fmt.Sprintf("%d open anomalies", len(open)))

	check(in.Invoice.Confidence >= c.pol.AutoApproveMinConfidence,
		fmt.Sprintf("Extraction confidence %.0f%%", in.Invoice.Confidence),
		fmt.Sprintf("Extraction confidence %.0f%% is below the %.0f%% cutoff",
			in.Invoice.Confidence, c.pol.AutoApproveMinConfidence))

	check(in.VendorRisk.Score <= c.pol.AutoApproveMaxVendorRisk,
		fmt.Sprintf("Vendor risk %.0f within limits", in.VendorRisk.Score),
		fmt.Sprintf("Vendor risk %.0f exceeds the auto-approve limit of %.0f",
			in.VendorRisk.Score, c.pol.AutoApproveMaxVendorRisk))

	if c.pol.RequirePOForAutoApprove {
		if in.Invoice.POReference == "" {
			failed = append(failed, "No PO reference; requires manual authorization")
		} else {
			check(in.Match != nil && in.Match.MatchScore >= minApproveMatchScore,
				"Purchase order matched",
				"Purchase order match is weak or missing")
		}
	}

	c.checkReceiptRequirement(in, open, &passed, &failed)

	limit := in.ActiveRole.Limit(in.Invoice.Currency)
	if in.Invoice.Amount <= limit {
		passed = append(passed, fmt.Sprintf("Amount within %s authority", in.ActiveRole.Title))
	} else {
		approver := policy.RequiredApprover(in.Invoice.Amount, in.Invoice.Currency)
		failed = append(failed, fmt.Sprintf("Amount %s%.2f exceeds %s authority; requires %s",
			vendor.CurrencySymbol(in.Invoice.Currency), in.Invoice.Amount,
			in.ActiveRole.Title, approver.Title))
	}

	return passed, failed
}

func (c *Classifier) checkReceiptRequirement(in Input, open []entity.Anomaly, passed, failed *[]string) {
	requireThreeWay := c.pol.RequireGRNForAutoApprove || c.pol.MatchingMode == entity.ModeThreeWay
	switch {
	case requireThreeWay:
		if in.Match != nil && in.Match.MatchType == entity.MatchTypeThreeWay {
			*passed = append(*passed, "Goods receipt on file")
		} else {
			*failed = append(*failed, "No goods receipt; three-way match required")
		}
	case c.pol.MatchingMode == entity.ModeFlexible:
		unreceipted := false
		for _, a := range open {
			if a.Type == entity.AnomalyUnreceiptedInvoice {
				unreceipted = true
				break
			}
		}
		if in.Match != nil && in.Match.GRNStatus == entity.GRNLinkNone && unreceipted {
			*failed = append(*failed, "Goods not yet receipted for this purchase order")
		}
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
