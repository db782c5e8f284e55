package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
	"github.com/aivoralabs/auditlens/pkg/utils"
)

// ListDocuments returns every stored document, newest first
func (s *AuditService) ListDocuments(ctx context.Context) ([]entity.Document, error) {
	return s.repos.Documents.ListAll(ctx)
}

// ListByType returns documents of one type, newest first
func (s *AuditService) ListByType(ctx context.Context, docType string) ([]entity.Document, error) {
	return s.repos.Documents.ListByType(ctx, docType)
}

// GetDocument fetches one document
func (s *AuditService) GetDocument(ctx context.Context, id string) (*entity.Document, error) {
	return s.repos.Documents.GetByID(ctx, id)
}

// ListCorrectionPatterns returns the learned extraction corrections
func (s *AuditService) ListCorrectionPatterns(ctx context.Context) ([]entity.CorrectionPattern, error) {
	return s.repos.Corrections.ListAll(ctx)
}

// ListVendorProfiles returns cached vendor risk profiles
func (s *AuditService) ListVendorProfiles(ctx context.Context) ([]entity.VendorRiskProfile, error) {
	return s.repos.Vendors.ListAll(ctx)
}

// GetVendorProfile recomputes the risk profile for one vendor name
func (s *AuditService) GetVendorProfile(ctx context.Context, vendorName string) (*entity.VendorRiskProfile, error) {
	doc := entity.Document{Vendor: vendorName, VendorNormalized: vendor.Normalize(vendorName)}
	return s.detectProfileOnly(ctx, &doc)
}

// invoice statuses a reviewer may set directly
var validInvoiceStatuses = map[string]bool{
	entity.InvoiceStatusUnpaid:      true,
	entity.InvoiceStatusUnderReview: true,
	entity.InvoiceStatusApproved:    true,
	entity.InvoiceStatusDisputed:    true,
	entity.InvoiceStatusScheduled:   true,
	entity.InvoiceStatusPaid:        true,
	entity.InvoiceStatusOnHold:      true,
}

// UpdateInvoiceStatus moves an invoice through its payment lifecycle
func (s *AuditService) UpdateInvoiceStatus(ctx context.Context, id, status string) (*entity.Document, error) {
	if !validInvoiceStatuses[status] {
		return nil, fmt.Errorf("invalid invoice status: %s", status)
	}
	doc, err := s.repos.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsInvoiceLike() {
		return nil, fmt.Errorf("document %s is not an invoice", id)
	}

	from := doc.Status
	doc.Status = status
	err = s.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Documents.Update(ctx, doc); err != nil {
			return err
		}
		s.logActivity(ctx, entity.ActionStatusChanged, doc, map[string]interface{}{
			"from": from,
			"to":   status,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// fields a reviewer may correct by hand
var editableFields = map[string]bool{
	"vendor": true, "amount": true, "subtotal": true,
	"invoiceNumber": true, "poNumber": true, "contractNumber": true,
	"documentNumber": true, "poReference": true, "paymentTerms": true,
	"currency": true, "issueDate": true, "dueDate": true,
	"deliveryDate": true, "notes": true, "lineItems": true,
	"taxDetails": true, "pricingTerms": true,
}

// EditFields applies manual corrections to a document, learns from them,
// and reruns matching and detection for affected records
func (s *AuditService) EditFields(ctx context.Context, id string, fields map[string]interface{}, editor string) (*entity.Document, error) {
	doc, err := s.repos.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, patterns := s.applyEdits(doc, fields)
	if len(changed) == 0 {
		return nil, fmt.Errorf("no editable fields in request")
	}

	now := time.Now()
	doc.ManuallyVerified = true
	doc.VerifiedAt = &now
	doc.EditHistory = append(doc.EditHistory, entity.EditEntry{
		Fields:   changed,
		EditedAt: now,
		EditedBy: editor,
	})

	err = s.withLock("vendor:"+doc.VendorNormalized, func() error {
		return s.db.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.repos.Documents.Update(ctx, doc); err != nil {
				return err
			}
			s.logActivity(ctx, entity.ActionDocumentEdited, doc, map[string]interface{}{
				"fieldsChanged": changed,
			})
			for i := range patterns {
				if err := s.repos.Corrections.Learn(ctx, &patterns[i]); err != nil {
					return err
				}
			}
			return s.reprocessAfterEdit(ctx, doc)
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// reprocessAfterEdit rewinds derived records that the edit invalidated
func (s *AuditService) reprocessAfterEdit(ctx context.Context, doc *entity.Document) error {
	switch doc.Type {
	case entity.DocTypeInvoice:
		if err := s.repos.Matches.DeleteByInvoice(ctx, doc.ID); err != nil {
			return err
		}
		if err := s.repos.Anomalies.DeleteOpenByDocument(ctx, doc.ID); err != nil {
			return err
		}
		match, err := s.matchInvoice(ctx, doc)
		if err != nil {
			return err
		}
		_, err = s.detectForInvoice(ctx, doc, match)
		return err
	case entity.DocTypePurchaseOrder:
		if err := s.repos.Matches.DeleteByPO(ctx, doc.ID); err != nil {
			return err
		}
		return s.rematchInvoicesForPO(ctx, doc)
	default:
		return nil
	}
}

// applyEdits mutates the document from the whitelisted fields and returns
// the change list plus correction patterns to learn
func (s *AuditService) applyEdits(doc *entity.Document, fields map[string]interface{}) ([]string, []entity.CorrectionPattern) {
	var changed []string
	var patterns []entity.CorrectionPattern
	lineItemsChanged := false
	subtotalSet := false
	taxChanged := false

	learn := func(field, oldVal, newVal string) {
		if oldVal == newVal {
			return
		}
		patterns = append(patterns, entity.CorrectionPattern{
			ID:               utils.NewRecordID(),
			Vendor:           doc.Vendor,
			VendorNormalized: doc.VendorNormalized,
			DocumentType:     doc.Type,
			Field:            field,
			ExtractedValue:   oldVal,
			CorrectedValue:   newVal,
			DocumentID:       doc.ID,
			CorrectionCount:  1,
			LearnedAt:        time.Now(),
		})
	}

	setString := func(field string, dst *string, raw interface{}) {
		v, ok := raw.(string)
		if !ok || v == *dst {
			return
		}
		learn(field, *dst, v)
		*dst = v
		changed = append(changed, field)
	}

	for field, raw := range fields {
		if !editableFields[field] {
			continue
		}
		switch field {
		case "vendor":
			old := doc.Vendor
			setString(field, &doc.Vendor, raw)
			if doc.Vendor != old {
				doc.VendorNormalized = vendor.Normalize(doc.Vendor)
			}
		case "invoiceNumber", "poNumber", "contractNumber", "documentNumber":
			setString(field, &doc.Number, raw)
		case "poReference":
			setString(field, &doc.POReference, raw)
		case "paymentTerms":
			setString(field, &doc.PaymentTerms, raw)
		case "currency":
			setString(field, &doc.Currency, raw)
		case "issueDate":
			setString(field, &doc.IssueDate, raw)
		case "dueDate":
			setString(field, &doc.DueDate, raw)
		case "deliveryDate":
			setString(field, &doc.DeliveryDate, raw)
		case "notes":
			setString(field, &doc.Notes, raw)
		case "amount":
			if v, ok := toFloat(raw); ok && v != doc.Amount {
				learn(field, formatAmount(doc.Amount), formatAmount(v))
				doc.Amount = v
				changed = append(changed, field)
			}
		case "subtotal":
			if v, ok := toFloat(raw); ok && v != doc.Subtotal {
				learn(field, formatAmount(doc.Subtotal), formatAmount(v))
				doc.Subtotal = v
				changed = append(changed, field)
				subtotalSet = true
			}
		case "lineItems":
			if items, ok := parseLineItems(raw); ok {
				patterns = append(patterns, lineItemPatterns(doc, items)...)
				doc.LineItems = items
				changed = append(changed, field)
				lineItemsChanged = true
			}
		case "taxDetails":
			if details, ok := parseTaxDetails(raw); ok {
				doc.TaxDetails = details
				changed = append(changed, field)
				taxChanged = true
			}
		case "pricingTerms":
			if terms, ok := parsePricingTerms(raw); ok {
				doc.PricingTerms = terms
				changed = append(changed, field)
			}
		}
	}

	if len(changed) == 0 {
		return nil, nil
	}

	// Keep the money fields arithmetically consistent after the edit
	if lineItemsChanged && !subtotalSet {
		doc.Subtotal = round2(doc.LineItemSum())
	}
	if taxChanged {
		var tax float64
		for _, td := range doc.TaxDetails {
			tax += td.Amount
		}
		doc.TotalTax = round2(tax)
	}
	doc.Amount = round2(doc.Subtotal + doc.TotalTax)

	return changed, patterns
}

// lineItemPatterns diffs old and new line items position by position
func lineItemPatterns(doc *entity.Document, items []entity.LineItem) []entity.CorrectionPattern {
	var patterns []entity.CorrectionPattern
	for i, item := range items {
		if i >= len(doc.LineItems) {
			break
		}
		old := doc.LineItems[i]
		var field, oldVal, newVal string
		switch {
		case old.Description != item.Description:
			field, oldVal, newVal = "lineItems.description", old.Description, item.Description
		case old.Quantity != item.Quantity:
			field, oldVal, newVal = "lineItems.quantity", formatAmount(old.Quantity), formatAmount(item.Quantity)
		case old.UnitPrice != item.UnitPrice:
			field, oldVal, newVal = "lineItems.unitPrice", formatAmount(old.UnitPrice), formatAmount(item.UnitPrice)
		default:
			continue
		}
		patterns = append(patterns, entity.CorrectionPattern{
			ID:               utils.NewRecordID(),
			Vendor:           doc.Vendor,
			VendorNormalized: doc.VendorNormalized,
			DocumentType:     doc.Type,
			Field:            field,
			ExtractedValue:   oldVal,
			CorrectedValue:   newVal,
			DocumentID:       doc.ID,
			CorrectionCount:  1,
			LearnedAt:        time.Now(),
		})
	}
	return patterns
}

func parseLineItems(raw interface{}) ([]entity.LineItem, bool) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	items := make([]entity.LineItem, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			return nil, false
		}
		var li entity.LineItem
		li.Description, _ = m["description"].(string)
		li.Quantity, _ = toFloat(m["quantity"])
		li.UnitPrice, _ = toFloat(m["unitPrice"])
		li.Total, _ = toFloat(m["total"])
		if li.Total == 0 {
			li.Total = round2(li.Quantity * li.UnitPrice)
		}
		items = append(items, li)
	}
	return items, true
}

func parseTaxDetails(raw interface{}) ([]entity.TaxDetail, bool) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	details := make([]entity.TaxDetail, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			return nil, false
		}
		var td entity.TaxDetail
		td.Type, _ = m["type"].(string)
		td.Rate, _ = toFloat(m["rate"])
		td.Amount, _ = toFloat(m["amount"])
		details = append(details, td)
	}
	return details, true
}

func parsePricingTerms(raw interface{}) ([]entity.PricingTerm, bool) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	terms := make([]entity.PricingTerm, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			return nil, false
		}
		var pt entity.PricingTerm
		pt.Item, _ = m["item"].(string)
		pt.Rate, _ = toFloat(m["rate"])
		pt.Unit, _ = m["unit"].(string)
		terms = append(terms, pt)
	}
	return terms, true
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func formatAmount(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
