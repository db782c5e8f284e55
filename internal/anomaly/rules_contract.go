package anomaly

import (
	"fmt"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// checkAgainstContract validates the invoice against the vendor's
// governing contract: expiry, contracted rates, and payment terms
func (d *Detector) checkAgainstContract(in Input) []entity.Anomaly {
	inv := in.Invoice
	contract := in.Contract
	if contract == nil {
		return nil
	}

	var found []entity.Anomaly
	sym := vendor.CurrencySymbol(inv.Currency)

	if contract.ContractTerms != nil && contract.ContractTerms.ExpiryDate != "" && inv.IssueDate != "" {
		expiry, expErr := time.Parse("2006-01-02", contract.ContractTerms.ExpiryDate)
		issued, issErr := time.Parse("2006-01-02", inv.IssueDate)
		if expErr == nil && issErr == nil && issued.After(expiry) {
			daysExpired := int(issued.Sub(expiry).Hours() / 24)
			desc := fmt.Sprintf("Invoice issued %d days after contract %s expired on %s",
				daysExpired, contract.Number, contract.ContractTerms.ExpiryDate)
			a := d.newAnomaly(inv, entity.AnomalyTermsViolation, entity.SeverityHigh, desc, inv.Amount)
			a.ContractClause = fmt.Sprintf("Contract term ends %s", contract.ContractTerms.ExpiryDate)
			found = append(found, a)
		}
	}

	prcTol := in.Tolerances.PriceTolerancePct
	for _, item := range inv.LineItems {
		for _, term := range contract.PricingTerms {
			if vendor.Similarity(item.Description, term.Item) <= 0.6 &&
				!strings.Contains(strings.ToLower(item.Description), strings.ToLower(term.Item)) &&
				!strings.Contains(strings.ToLower(term.Item), strings.ToLower(item.Description)) {
				continue
			}
			if term.Rate > 0 && item.UnitPrice > term.Rate*(1+prcTol/100) {
				risk := (item.UnitPrice - term.Rate) * item.Quantity
				desc := fmt.Sprintf("%q billed at %s%.2f per unit against a contracted rate of %s%.2f",
					item.Description, sym, item.UnitPrice, sym, term.Rate)
				a := d.newAnomaly(inv, entity.AnomalyPriceOvercharge,
					d.severityFor(risk, inv.Subtotal), desc, risk)
				a.ContractClause = fmt.Sprintf("Contracted rate: %s at %s%.2f", term.Item, sym, term.Rate)
				found = append(found, a)
			}
			break
		}
	}

	if contract.ContractTerms != nil && contract.ContractTerms.PaymentTerms != "" && inv.PaymentTerms != "" {
		contractTerms := strings.ToLower(strings.TrimSpace(contract.ContractTerms.PaymentTerms))
		invoiceTerms := strings.ToLower(strings.TrimSpace(inv.PaymentTerms))
		if contractTerms != invoiceTerms {
			desc := fmt.Sprintf("Invoice states payment terms %q but contract %s specifies %q",
				inv.PaymentTerms, contract.Number, contract.ContractTerms.PaymentTerms)
			a := d.newAnomaly(inv, entity.AnomalyTermsViolation, entity.SeverityMedium, desc, 0)
			a.ContractClause = fmt.Sprintf("Payment terms: %s", contract.ContractTerms.PaymentTerms)
			found = append(found, a)
		}
	}

	return found
}
