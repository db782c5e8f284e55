package anomaly

import (
	"fmt"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// descriptionsAlike fuzzy-matches two line item descriptions
func descriptionsAlike(a, b string) bool {
	return vendor.Similarity(a, b) > 0.7
}

// checkAgainstPO compares the invoice line by line against its matched
// purchase order. The comparison is tax aware: invoice subtotal against
// purchase order amount, which is quoted pre-tax.
func (d *Detector) checkAgainstPO(in Input) []entity.Anomaly {
	inv := in.Invoice
	po := in.PO
	if po == nil {
		return nil
	}

	amtTol := in.Tolerances.AmountTolerancePct
	prcTol := in.Tolerances.PriceTolerancePct
	riskNote := ""
	if in.Tolerances.RiskAdjusted {
		riskNote = fmt.Sprintf(" [Tightened: vendor risk %.0f]", in.Tolerances.RiskScore)
	}

	var poLevelDiff float64
	if po.Amount > 0 && inv.Subtotal > po.Amount*(1+amtTol/100) {
		poLevelDiff = inv.Subtotal - po.Amount
	}

	var found []entity.Anomaly
	var lineItemRisk float64
	sym := vendor.CurrencySymbol(inv.Currency)

	for _, item := range inv.LineItems {
		var poItem *entity.LineItem
		for i := range po.LineItems {
			if descriptionsAlike(item.Description, po.LineItems[i].Description) {
				poItem = &po.LineItems[i]
				break
			}
		}

		if poItem == nil {
			if item.Total > 0 {
				desc := fmt.Sprintf("Line item %q (%s%.2f) does not appear on purchase order %s",
					item.Description, sym, item.Total, po.Number)
				found = append(found, d.newAnomaly(inv, entity.AnomalyUnauthorizedItem,
					d.severityFor(item.Total, inv.Subtotal), desc, item.Total))
				lineItemRisk += item.Total
			}
			continue
		}

		if item.Quantity > poItem.Quantity && poItem.Quantity > 0 {
			extra := item.Quantity - poItem.Quantity
			risk := extra * item.UnitPrice
			desc := fmt.Sprintf("%q billed at quantity %.0f but purchase order %s authorizes %.0f",
				item.Description, item.Quantity, po.Number, poItem.Quantity)
			found = append(found, d.newAnomaly(inv, entity.AnomalyQuantityMismatch,
				d.severityFor(risk, inv.Subtotal), desc, risk))
			lineItemRisk += risk
		}

		if poItem.UnitPrice > 0 && item.UnitPrice > poItem.UnitPrice*(1+prcTol/100) {
			// Extraction sometimes leaves the quantity blank. Treat the
			// line as a single unit so the overcharge still carries risk.
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			risk := (item.UnitPrice - poItem.UnitPrice) * qty
			desc := fmt.Sprintf("%q billed at %s%.2f per unit against a purchase order price of %s%.2f%s",
				item.Description, sym, item.UnitPrice, sym, poItem.UnitPrice, riskNote)
			found = append(found, d.newAnomaly(inv, entity.AnomalyPriceOvercharge,
				d.severityFor(risk, inv.Subtotal), desc, risk))
			lineItemRisk += risk
		}
	}

	// Flag any remainder the line items cannot explain
	if poLevelDiff > 0 && lineItemRisk < poLevelDiff*0.9 {
		unexplained := poLevelDiff - lineItemRisk
		desc := fmt.Sprintf("Invoice subtotal %s%.2f exceeds purchase order %s amount %s%.2f; %s%.2f is unexplained by line items",
			sym, inv.Subtotal, po.Number, sym, po.Amount, sym, unexplained)
		a := d.newAnomaly(inv, entity.AnomalyAmountDiscrepancy,
			d.severityFor(unexplained, po.Amount), desc, unexplained)
		a.ContractClause = "Purchase order authorization limits"
		found = append(found, a)
	}

	return found
}
