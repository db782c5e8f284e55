package anomaly

import (
	"fmt"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// CheckPOAgainstContract validates a freshly uploaded purchase order
// against the vendor's governing contract: liability cap, expiry, and
// payment terms
func (d *Detector) CheckPOAgainstContract(po entity.Document, contract *entity.Document) []entity.Anomaly {
	if contract == nil || contract.ContractTerms == nil {
		return nil
	}
	terms := contract.ContractTerms
	sym := vendor.CurrencySymbol(po.Currency)

	var found []entity.Anomaly

	if terms.LiabilityCap > 0 && po.Amount > terms.LiabilityCap {
		diff := po.Amount - terms.LiabilityCap
		desc := fmt.Sprintf("Purchase order amount %s%.2f exceeds the contract liability cap of %s%.2f",
			sym, po.Amount, sym, terms.LiabilityCap)
		a := d.newAnomaly(po, entity.AnomalyAmountDiscrepancy, entity.SeverityHigh, desc, diff)
		a.ContractClause = fmt.Sprintf("Liability cap: %s%.2f", sym, terms.LiabilityCap)
		found = append(found, a)
	}

	if terms.ExpiryDate != "" && po.IssueDate != "" {
		expiry, expErr := time.Parse("2006-01-02", terms.ExpiryDate)
		issued, issErr := time.Parse("2006-01-02", po.IssueDate)
		if expErr == nil && issErr == nil && issued.After(expiry) {
			desc := fmt.Sprintf("Purchase order issued after contract %s expired on %s",
				contract.Number, terms.ExpiryDate)
			a := d.newAnomaly(po, entity.AnomalyTermsViolation, entity.SeverityHigh, desc, po.Amount)
			a.ContractClause = fmt.Sprintf("Contract term ends %s", terms.ExpiryDate)
			found = append(found, a)
		}
	}

	if terms.PaymentTerms != "" && po.PaymentTerms != "" {
		if !strings.EqualFold(strings.TrimSpace(terms.PaymentTerms), strings.TrimSpace(po.PaymentTerms)) {
			desc := fmt.Sprintf("Purchase order states payment terms %q but contract %s specifies %q",
				po.PaymentTerms, contract.Number, terms.PaymentTerms)
			a := d.newAnomaly(po, entity.AnomalyTermsViolation, entity.SeverityMedium, desc, 0)
			a.ContractClause = fmt.Sprintf("Payment terms: %s", terms.PaymentTerms)
			found = append(found, a)
		}
	}

	return found
}

// CheckNote validates a credit or debit note against the invoice it
// amends. The original may be nil when the reference did not resolve.
func (d *Detector) CheckNote(note entity.Document, original *entity.Document) []entity.Anomaly {
	label := "Credit note"
	if note.Type == entity.DocTypeDebitNote {
		label = "Debit note"
	}
	sym := vendor.CurrencySymbol(note.Currency)

	if note.OriginalInvoiceRef == "" {
		desc := fmt.Sprintf("%s does not reference an original invoice", label)
		return []entity.Anomaly{
			d.newAnomaly(note, entity.AnomalyMissingPO, entity.SeverityMedium, desc, note.Amount),
		}
	}

	if original != nil && note.Amount > original.Amount {
		diff := note.Amount - original.Amount
		desc := fmt.Sprintf("%s amount %s%.2f exceeds original invoice %s (%s%.2f). Do not process. %s cannot exceed original invoice.",
			label, sym, note.Amount, original.Number, sym, original.Amount, label)
		return []entity.Anomaly{
			d.newAnomaly(note, entity.AnomalyAmountDiscrepancy, entity.SeverityHigh, desc, diff),
		}
	}

	return nil
}
