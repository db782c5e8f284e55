package anomaly

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// composite duplicate score at which an invoice gets flagged
const duplicateFlagScore = 60

// duplicate score at which the finding is graded high severity
const duplicateHighScore = 80

// checkDuplicates scores the invoice against the vendor's prior invoices
// on several overlapping signals. Both sides of a suspected pair get
// flagged: one anomaly on the invoice and a mirror on the prior, each
// carrying its own amount at risk.
func (d *Detector) checkDuplicates(in Input) []entity.Anomaly {
	inv := in.Invoice
	var found []entity.Anomaly
	for i := range in.History {
		prior := &in.History[i]
		if prior.ID == inv.ID || prior.Type != entity.DocTypeInvoice {
			continue
		}
		score, signals := d.duplicateScore(inv, prior)
		if score < duplicateFlagScore {
			continue
		}
		severity := entity.SeverityMedium
		if score >= duplicateHighScore {
			severity = entity.SeverityHigh
		}
		joined := strings.Join(signals, "; ")
		desc := fmt.Sprintf("Likely duplicate of %s (%s%.2f). Signals: %s. Confidence: %d%%",
			prior.Number, vendor.CurrencySymbol(prior.Currency), prior.Amount, joined, score)
		found = append(found, d.newAnomaly(inv, entity.AnomalyDuplicateInvoice, severity, desc, inv.Amount))
		mirror := fmt.Sprintf("Duplicated by %s (%s%.2f). Signals: %s. Confidence: %d%%",
			inv.Number, vendor.CurrencySymbol(inv.Currency), inv.Amount, joined, score)
		found = append(found, d.newAnomaly(*prior, entity.AnomalyDuplicateInvoice, severity, mirror, prior.Amount))
	}
	return found
}

func (d *Detector) duplicateScore(inv entity.Document, prior *entity.Document) (int, []string) {
	score := 0
	var signals []string

	if inv.Number != "" && inv.Number == prior.Number {
		score += 50
		signals = append(signals, "identical invoice number")
	}

	tol := d.pol.DuplicateAmountTolerancePct / 100
	if prior.Amount > 0 && math.Abs(inv.Amount-prior.Amount) <= prior.Amount*tol {
		score += 40
		signals = append(signals, "same amount")
	}

	if inv.IssueDate != "" && inv.IssueDate == prior.IssueDate {
		score += 25
		signals = append(signals, "same date")
	} else if daysBetween(inv.IssueDate, prior.IssueDate) <= d.pol.DuplicateWindowDays {
		score += 10
		signals = append(signals, fmt.Sprintf("issued within %d days", d.pol.DuplicateWindowDays))
	}

	switch overlap := lineItemSetOverlap(inv.LineItems, prior.LineItems); {
	case overlap == 1:
		score += 35
		signals = append(signals, "identical line items")
	case overlap > 0.7:
		score += 20
		signals = append(signals, "similar line items")
	}

	if score > 100 {
		score = 100
	}
	return score, signals
}

// daysBetween returns the absolute gap between two YYYY-MM-DD dates, or
// a large sentinel when either is missing or unreadable
func daysBetween(a, b string) int {
	const never = 1 << 30
	if a == "" || b == "" {
		return never
	}
	ta, errA := time.Parse("2006-01-02", a)
	tb, errB := time.Parse("2006-01-02", b)
	if errA != nil || errB != nil {
		return never
	}
	days := int(ta.Sub(tb).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// lineItemSetOverlap treats each item as a (description, quantity, price)
// tuple and returns the share of prior items found on the invoice
func lineItemSetOverlap(invItems, priorItems []entity.LineItem) float64 {
	if len(invItems) == 0 || len(priorItems) == 0 {
		return 0
	}
	key := func(li entity.LineItem) string {
		return fmt.Sprintf("%s|%.2f|%.2f", strings.ToLower(strings.TrimSpace(li.Description)), li.Quantity, li.UnitPrice)
	}
	invSet := make(map[string]bool, len(invItems))
	for _, li := range invItems {
		invSet[key(li)] = true
	}
	shared := 0
	priorSet := make(map[string]bool, len(priorItems))
	for _, li := range priorItems {
		k := key(li)
		if priorSet[k] {
			continue
		}
		priorSet[k] = true
		if invSet[k] {
			shared++
		}
	}
	if shared == len(priorSet) && len(priorSet) == len(invSet) {
		return 1
	}
	return float64(shared) / float64(len(priorSet))
}
