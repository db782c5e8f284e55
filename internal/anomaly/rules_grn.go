package anomaly

import (
	"fmt"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// checkGoodsReceipts validates the invoice against what was actually
// received for its matched purchase order
func (d *Detector) checkGoodsReceipts(in Input) []entity.Anomaly {
	inv := in.Invoice
	match := in.Match
	if match == nil {
		return nil
	}
	sym := vendor.CurrencySymbol(inv.Currency)

	if match.GRNStatus == entity.GRNLinkNone {
		if in.PO == nil || (d.pol.MatchingMode != entity.ModeThreeWay && d.pol.MatchingMode != entity.ModeFlexible) {
			return nil
		}
		severity := entity.SeverityMedium
		if d.pol.MatchingMode == entity.ModeThreeWay {
			severity = entity.SeverityHigh
		}
		desc := fmt.Sprintf("No goods receipt recorded for purchase order %s; %s%.2f is billed against undelivered goods",
			match.PONumber, sym, inv.Subtotal)
		return []entity.Anomaly{
			d.newAnomaly(inv, entity.AnomalyUnreceiptedInvoice, severity, desc, inv.Subtotal),
		}
	}

	var found []entity.Anomaly

	grnAmtTol := d.pol.GRNAmountTolerancePct / 100
	if match.TotalReceived > 0 && inv.Subtotal > match.TotalReceived*(1+grnAmtTol) {
		diff := inv.Subtotal - match.TotalReceived
		severity := entity.SeverityMedium
		if diff > inv.Subtotal*0.1 {
			severity = entity.SeverityHigh
		}
		desc := fmt.Sprintf("Invoice bills %s%.2f but goods receipts only cover %s%.2f",
			sym, inv.Subtotal, sym, match.TotalReceived)
		found = append(found, d.newAnomaly(inv, entity.AnomalyOverbilledVsReceived, severity, desc, diff))
	}

	found = append(found, d.checkReceivedQuantities(inv, match, sym)...)

	if in.PO != nil && in.PO.Amount > 0 {
		threshold := in.PO.Amount * (d.pol.ShortShipmentThresholdPct / 100)
		if match.TotalReceived < threshold {
			shortPct := round1((1 - match.TotalReceived/in.PO.Amount) * 100)
			desc := fmt.Sprintf("Only %s%.2f of purchase order %s (%s%.2f) has been received; %.1f%% outstanding",
				sym, match.TotalReceived, match.PONumber, sym, in.PO.Amount, shortPct)
			found = append(found, d.newAnomaly(inv, entity.AnomalyShortShipment, entity.SeverityLow, desc, 0))
		}
	}

	return found
}

// checkReceivedQuantities aggregates received quantities by description
// and flags invoice lines billing beyond them
func (d *Detector) checkReceivedQuantities(inv entity.Document, match *entity.Match, sym string) []entity.Anomaly {
	if len(match.GRNLineItems) == 0 {
		return nil
	}

	var found []entity.Anomaly
	qtyTol := d.pol.GRNQtyTolerancePct / 100
	for _, item := range inv.LineItems {
		var received float64
		matched := false
		for _, grnItem := range match.GRNLineItems {
			if descriptionsAlike(item.Description, grnItem.Description) {
				received += grnItem.QuantityReceived
				matched = true
			}
		}
		if !matched {
			continue
		}
		if item.Quantity > received*(1+qtyTol) {
			excess := item.Quantity - received
			risk := excess * item.UnitPrice
			severity := entity.SeverityMedium
			if risk > inv.Subtotal*0.05 {
				severity = entity.SeverityHigh
			}
			desc := fmt.Sprintf("%q billed at quantity %.0f but only %.0f received (%s%.2f excess)",
				item.Description, item.Quantity, received, sym, risk)
			found = append(found, d.newAnomaly(inv, entity.AnomalyQtyReceivedMismatch, severity, desc, risk))
		}
	}
	return found
}
