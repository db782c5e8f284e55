package anomaly

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/pkg/utils"
)

// Input carries everything a detection pass may consult. PO, Match, and
// Contract are nil when the invoice has no counterpart.
type Input struct {
	Invoice    entity.Document
	PO         *entity.Document
	Match      *entity.Match
	Contract   *entity.Document
	History    []entity.Document
	Tolerances entity.DynamicTolerances
}

type rule struct {
	name string
	fn   func(d *Detector, in Input) []entity.Anomaly
}

// Detector runs the anomaly rule set over an invoice. Rules are isolated:
// a panic in one rule is logged and the rest still run.
type Detector struct {
	pol    policy.Policy
	logger *zap.Logger
}

// NewDetector creates a detector bound to a policy snapshot
func NewDetector(pol policy.Policy, logger *zap.Logger) *Detector {
	return &Detector{pol: pol, logger: logger}
}

var invoiceRules = []rule{
	{"line_item_total", (*Detector).checkLineItemTotals},
	{"missing_po", (*Detector).checkMissingPO},
	{"po_comparison", (*Detector).checkAgainstPO},
	{"contract_terms", (*Detector).checkAgainstContract},
	{"duplicate", (*Detector).checkDuplicates},
	{"early_payment_discount", (*Detector).checkEarlyPaymentDiscount},
	{"tax_rate", (*Detector).checkTaxRates},
	{"currency", (*Detector).checkCurrency},
	{"round_number", (*Detector).checkRoundNumber},
	{"weekend", (*Detector).checkWeekend},
	{"stale", (*Detector).checkStale},
	{"goods_receipt", (*Detector).checkGoodsReceipts},
}

// Detect runs every rule against the invoice and returns the findings
func (d *Detector) Detect(in Input) []entity.Anomaly {
	var found []entity.Anomaly
	for _, r := range invoiceRules {
		found = append(found, d.runRule(r, in)...)
	}
	return found
}

func (d *Detector) runRule(r rule, in Input) (out []entity.Anomaly) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Anomaly rule panicked",
				zap.String("rule", r.name),
				zap.String("invoice_id", in.Invoice.ID),
				zap.Any("panic", p))
			out = nil
		}
	}()
	return r.fn(d, in)
}

// newAnomaly fills the common envelope for a finding against a document
func (d *Detector) newAnomaly(doc entity.Document, anomalyType, severity, description string, amountAtRisk float64) entity.Anomaly {
	return entity.Anomaly{
		ID:             utils.NewRecordID(),
		DocumentID:     doc.ID,
		DocumentNumber: doc.Number,
		Vendor:         doc.Vendor,
		Currency:       doc.Currency,
		Type:           anomalyType,
		Severity:       severity,
		Description:    description,
		AmountAtRisk:   round2(amountAtRisk),
		Recommendation: recommendationFor(anomalyType),
		Status:         entity.AnomalyStatusOpen,
		DetectedAt:     time.Now(),
	}
}

func (d *Detector) severityFor(riskAmount, baseAmount float64) string {
	return policy.SeverityForAmount(d.pol, riskAmount, baseAmount)
}

var recommendations = map[string]string{
	entity.AnomalyLineItemTotalMismatch: "Verify line item math before payment",
	entity.AnomalyMissingPO:             "Obtain purchase order authorization before processing",
	entity.AnomalyQuantityMismatch:      "Confirm delivered quantity with the requester",
	entity.AnomalyPriceOvercharge:       "Request a corrected invoice or credit note from the vendor",
	entity.AnomalyUnauthorizedItem:      "Confirm the item was authorized outside the purchase order",
	entity.AnomalyAmountDiscrepancy:     "Reconcile the invoice total against the purchase order",
	entity.AnomalyTermsViolation:        "Review the governing contract before approving",
	entity.AnomalyDuplicateInvoice:      "Hold payment and confirm this is not a resubmission",
	entity.AnomalyEarlyPaymentDiscount:  "Schedule payment within the discount window to capture savings",
	entity.AnomalyTaxRate:               "Verify the tax calculation with the vendor",
	entity.AnomalyCurrencyMismatch:      "Confirm the billing currency against the purchase order",
	entity.AnomalyRoundNumber:           "Request an itemized invoice",
	entity.AnomalyWeekendInvoice:        "Verify the invoice issue date",
	entity.AnomalyStaleInvoice:          "Confirm the invoice is still payable before processing",
	entity.AnomalyUnreceiptedInvoice:    "Hold payment until goods receipt is recorded",
	entity.AnomalyOverbilledVsReceived:  "Pay only for quantities actually received",
	entity.AnomalyQtyReceivedMismatch:   "Reconcile billed quantities against goods receipts",
	entity.AnomalyShortShipment:         "Follow up with the vendor on the outstanding delivery",
}

func recommendationFor(anomalyType string) string {
	return recommendations[anomalyType]
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
