package extract

import (
	"fmt"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// Result is the raw field set pulled out of a document before it becomes
// a stored record. Field names mirror the extraction JSON schema.
type Result struct {
	DocumentType       string  `json:"document_type"`
	VendorName         string  `json:"vendor_name"`
	DocumentNumber     string  `json:"document_number"`
	TotalAmount        float64 `json:"total_amount"`
	Subtotal           float64 `json:"subtotal"`
	Currency           string  `json:"currency"`
	IssueDate          string  `json:"issue_date"`
	DueDate            string  `json:"due_date"`
	DeliveryDate       string  `json:"delivery_date"`
	ReceivedDate       string  `json:"received_date"`
	ReceivedBy         string  `json:"received_by"`
	POReference        string  `json:"po_reference"`
	OriginalInvoiceRef string  `json:"original_invoice_ref"`
	PaymentTerms       string  `json:"payment_terms"`
	Notes              string  `json:"notes"`

	LineItems            []entity.LineItem            `json:"line_items"`
	TaxDetails           []entity.TaxDetail           `json:"tax_details"`
	PricingTerms         []entity.PricingTerm         `json:"pricing_terms"`
	ContractTerms        *entity.ContractTerms        `json:"contract_terms"`
	Parties              []string                     `json:"parties"`
	EarlyPaymentDiscount *entity.EarlyPaymentDiscount `json:"early_payment_discount"`

	SelfConfidence float64 `json:"_confidence"`
	Source         string  `json:"-"`
}

// Transform turns an extraction result into the stored document record,
// applying per-type defaults
func Transform(id string, fileName string, res Result) entity.Document {
	docType := res.DocumentType
	if docType == "" {
		docType = entity.DocTypeInvoice
	}

	subtotal := res.Subtotal
	if subtotal == 0 {
		subtotal = res.TotalAmount
	}
	total := res.TotalAmount
	if total == 0 {
		total = subtotal
	}

	var totalTax float64
	for _, td := range res.TaxDetails {
		totalTax += td.Amount
	}

	vendorName := res.VendorName
	if vendorName == "" {
		vendorName = "Unknown"
	}
	currency := res.Currency
	if currency == "" {
		currency = "USD"
	}

	items := make([]entity.LineItem, 0, len(res.LineItems))
	for _, li := range res.LineItems {
		if li.Description == "" {
			li.Description = "?"
		}
		items = append(items, li)
	}

	doc := entity.Document{
		ID:                   id,
		Type:                 docType,
		DocumentName:         fileName,
		Vendor:               vendorName,
		VendorNormalized:     vendor.Normalize(vendorName),
		Currency:             currency,
		Subtotal:             subtotal,
		TotalTax:             totalTax,
		Amount:               total,
		IssueDate:            res.IssueDate,
		PaymentTerms:         res.PaymentTerms,
		Notes:                res.Notes,
		Status:               entity.InvoiceStatusPending,
		LineItems:            items,
		TaxDetails:           res.TaxDetails,
		EarlyPaymentDiscount: res.EarlyPaymentDiscount,
		ExtractionSource:     res.Source,
		ExtractedAt:          time.Now(),
		UploadedFile:         fmt.Sprintf("%s_%s", id, fileName),
	}

	switch docType {
	case entity.DocTypeInvoice:
		doc.Status = entity.InvoiceStatusUnpaid
		doc.Number = numberOr(res.DocumentNumber, "INV-"+id)
		doc.POReference = res.POReference
		doc.DueDate = res.DueDate
	case entity.DocTypePurchaseOrder:
		doc.Status = entity.POStatusOpen
		doc.Number = numberOr(res.DocumentNumber, "PO-"+id)
		doc.DeliveryDate = res.DeliveryDate
	case entity.DocTypeContract:
		doc.Status = entity.ContractStatusActive
		doc.Number = numberOr(res.DocumentNumber, "AGR-"+id)
		doc.PricingTerms = res.PricingTerms
		doc.ContractTerms = res.ContractTerms
		doc.Parties = res.Parties
	case entity.DocTypeCreditNote:
		doc.Status = entity.NoteStatusPending
		doc.Number = numberOr(res.DocumentNumber, "CN-"+id)
		doc.OriginalInvoiceRef = res.OriginalInvoiceRef
	case entity.DocTypeDebitNote:
		doc.Status = entity.NoteStatusPending
		doc.Number = numberOr(res.DocumentNumber, "DN-"+id)
		doc.OriginalInvoiceRef = res.OriginalInvoiceRef
	case entity.DocTypeGoodsReceipt:
		doc.Status = entity.GRNStatusReceived
		doc.Number = numberOr(res.DocumentNumber, "GRN-"+id)
		doc.POReference = res.POReference
		doc.ReceivedDate = res.ReceivedDate
		if doc.ReceivedDate == "" {
			doc.ReceivedDate = res.IssueDate
		}
		doc.ReceivedBy = res.ReceivedBy
	default:
		doc.Number = numberOr(res.DocumentNumber, "DOC-"+id)
	}

	doc.Confidence, doc.ConfidenceFactors = ScoreConfidence(res)
	return doc
}

func numberOr(number, fallback string) string {
	if number != "" {
		return number
	}
	return fallback
}
