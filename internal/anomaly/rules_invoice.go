package anomaly

import (
	"fmt"
	"math"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// tolerance in currency units for line item arithmetic
const lineItemSumTolerance = 0.50

// effective tax rates above this percentage are flagged
const taxRateCeiling = 30.0

func (d *Detector) checkLineItemTotals(in Input) []entity.Anomaly {
	inv := in.Invoice
	if len(inv.LineItems) == 0 {
		return nil
	}
	diff := math.Abs(inv.LineItemSum() - inv.Subtotal)
	if diff <= lineItemSumTolerance {
		return nil
	}
	desc := fmt.Sprintf("Line items sum to %s%.2f but the invoice subtotal is %s%.2f (difference %s%.2f)",
		vendor.CurrencySymbol(inv.Currency), inv.LineItemSum(),
		vendor.CurrencySymbol(inv.Currency), inv.Subtotal,
		vendor.CurrencySymbol(inv.Currency), diff)
	return []entity.Anomaly{
		d.newAnomaly(inv, entity.AnomalyLineItemTotalMismatch, d.severityFor(diff, inv.Subtotal), desc, diff),
	}
}

func (d *Detector) checkMissingPO(in Input) []entity.Anomaly {
	inv := in.Invoice
	if inv.Type != entity.DocTypeInvoice || in.PO != nil {
		return nil
	}
	var desc string
	if inv.POReference == "" {
		desc = "Invoice carries no purchase order reference and no matching purchase order was found"
	} else {
		desc = fmt.Sprintf("Invoice references purchase order %q but no such purchase order is on file", inv.POReference)
	}
	return []entity.Anomaly{
		d.newAnomaly(inv, entity.AnomalyMissingPO, entity.SeverityMedium, desc, inv.Amount),
	}
}

func (d *Detector) checkEarlyPaymentDiscount(in Input) []entity.Anomaly {
	inv := in.Invoice
	epd := inv.EarlyPaymentDiscount
	if epd == nil || epd.DiscountPercent <= 0 || epd.Days <= 0 {
		return nil
	}
	savings := inv.Subtotal * (epd.DiscountPercent / 100)
	desc := fmt.Sprintf("Pay within %d days to capture a %.1f%% discount worth %s%.2f",
		epd.Days, epd.DiscountPercent, vendor.CurrencySymbol(inv.Currency), savings)
	return []entity.Anomaly{
		d.newAnomaly(inv, entity.AnomalyEarlyPaymentDiscount, entity.SeverityLow, desc, -savings),
	}
}

func (d *Detector) checkTaxRates(in Input) []entity.Anomaly {
	inv := in.Invoice
	var found []entity.Anomaly

	if inv.Subtotal > 0 && inv.TotalTax > 0 {
		effective := inv.TotalTax / inv.Subtotal * 100
		if effective > taxRateCeiling {
			desc := fmt.Sprintf("Effective tax rate is %.1f%%, above the %.0f%% plausibility ceiling", effective, taxRateCeiling)
			found = append(found, d.newAnomaly(inv, entity.AnomalyTaxRate, entity.SeverityMedium, desc, inv.TotalTax))
		} else if effective > 0 && effective < 1 {
			desc := fmt.Sprintf("Effective tax rate is only %.2f%%, which is unusually low", effective)
			found = append(found, d.newAnomaly(inv, entity.AnomalyTaxRate, entity.SeverityLow, desc, 0))
		}
	}

	for _, td := range inv.TaxDetails {
		if td.Rate <= 0 || inv.Subtotal <= 0 {
			continue
		}
		expected := inv.Subtotal * td.Rate / 100
		diff := math.Abs(td.Amount - expected)
		if diff > math.Max(1.0, expected*0.05) {
			desc := fmt.Sprintf("%s stated at %.1f%% should be %s%.2f but the invoice shows %s%.2f",
				td.Type, td.Rate,
				vendor.CurrencySymbol(inv.Currency), expected,
				vendor.CurrencySymbol(inv.Currency), td.Amount)
			found = append(found, d.newAnomaly(inv, entity.AnomalyTaxRate, entity.SeverityMedium, desc, diff))
		}
	}
	return found
}

func (d *Detector) checkCurrency(in Input) []entity.Anomaly {
	inv := in.Invoice
	if in.PO == nil || in.PO.Currency == "" || inv.Currency == "" || in.PO.Currency == inv.Currency {
		return nil
	}
	desc := fmt.Sprintf("Invoice is billed in %s but purchase order %s is in %s",
		inv.Currency, in.PO.Number, in.PO.Currency)
	return []entity.Anomaly{
		d.newAnomaly(inv, entity.AnomalyCurrencyMismatch, entity.SeverityMedium, desc, 0),
	}
}

func (d *Detector) checkRoundNumber(in Input) []entity.Anomaly {
	inv := in.Invoice
	if !d.pol.FlagRoundNumberInvoices || inv.Amount < 5000 {
		return nil
	}
	if inv.Amount != math.Round(inv.Amount/1000)*1000 {
		return nil
	}
	desc := fmt.Sprintf("Invoice total %s%.2f is a suspiciously round figure",
		vendor.CurrencySymbol(inv.Currency), inv.Amount)
	return []entity.Anomaly{
		d.newAnomaly(inv, entity.AnomalyRoundNumber, entity.SeverityLow, desc, 0),
	}
}

func (d *Detector) checkWeekend(in Input) []entity.Anomaly {
	inv := in.Invoice
	if !d.pol.FlagWeekendInvoices || inv.IssueDate == "" {
		return nil
	}
	issued, err := time.Parse("2006-01-02", inv.IssueDate)
	if err != nil {
		return nil
	}
	wd := issued.Weekday()
	if wd != time.Saturday && wd != time.Sunday {
		return nil
	}
	desc := fmt.Sprintf("Invoice was issued on a %s (%s)", wd, inv.IssueDate)
	return []entity.Anomaly{
		d.newAnomaly(inv, entity.AnomalyWeekendInvoice, entity.SeverityLow, desc, 0),
	}
}

func (d *Detector) checkStale(in Input) []entity.Anomaly {
	inv := in.Invoice
	if d.pol.MaxInvoiceAgeDays <= 0 || inv.IssueDate == "" {
		return nil
	}
	issued, err := time.Parse("2006-01-02", inv.IssueDate)
	if err != nil {
		return nil
	}
	ageDays := int(time.Since(issued).Hours() / 24)
	if ageDays <= d.pol.MaxInvoiceAgeDays {
		return nil
	}
	desc := fmt.Sprintf("Invoice is %d days old, beyond the %d day processing limit",
		ageDays, d.pol.MaxInvoiceAgeDays)
	return []entity.Anomaly{
		d.newAnomaly(inv, entity.AnomalyStaleInvoice, entity.SeverityMedium, desc, inv.Amount),
	}
}
