package entity

import "time"

// LineItem is a single billed or ordered line on a document
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// TaxDetail is one tax component stated on a document
type TaxDetail struct {
	Type   string  `json:"type"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// EarlyPaymentDiscount holds pay-early terms extracted from an invoice,
// e.g. "2/10 net 30"
type EarlyPaymentDiscount struct {
	DiscountPercent float64 `json:"discount_percent"`
	Days            int     `json:"days"`
}

// PricingTerm is a contracted rate for an item or service
type PricingTerm struct {
	Item  string  `json:"item"`
	Rate  float64 `json:"rate"`
	Unit  string  `json:"unit,omitempty"`
	Notes string  `json:"notes,omitempty"`
}

// ContractTerms holds the non-pricing clauses of a contract
type ContractTerms struct {
	PaymentTerms   string  `json:"payment_terms,omitempty"`
	ExpiryDate     string  `json:"expiry_date,omitempty"`
	LiabilityCap   float64 `json:"liability_cap,omitempty"`
	RenewalClause  string  `json:"renewal_clause,omitempty"`
	TerminationFee float64 `json:"termination_fee,omitempty"`
}

// EditEntry records one manual field correction on a document
type EditEntry struct {
	Fields   []string  `json:"fields"`
	EditedAt time.Time `json:"editedAt"`
	EditedBy string    `json:"editedBy"`
}

// Document is the stored form of any uploaded document. A single struct
// covers all document types; type-specific fields are zero for the rest.
type Document struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	DocumentName     string  `json:"documentName"`
	Number           string  `json:"number"`
	Vendor           string  `json:"vendor"`
	VendorNormalized string  `json:"vendorNormalized"`
	Currency         string  `json:"currency"`
	Subtotal         float64 `json:"subtotal"`
	TotalTax         float64 `json:"totalTax"`
	Amount           float64 `json:"amount"`

	// Extracted dates, kept as YYYY-MM-DD strings exactly as read
	IssueDate    string `json:"issueDate,omitempty"`
	DueDate      string `json:"dueDate,omitempty"`
	DeliveryDate string `json:"deliveryDate,omitempty"`
	ReceivedDate string `json:"receivedDate,omitempty"`

	ReceivedBy         string `json:"receivedBy,omitempty"`
	POReference        string `json:"poReference,omitempty"`
	OriginalInvoiceRef string `json:"originalInvoiceRef,omitempty"`
	PaymentTerms       string `json:"paymentTerms,omitempty"`
	Notes              string `json:"notes,omitempty"`
	Status             string `json:"status"`

	Confidence        float64            `json:"confidence"`
	ConfidenceFactors map[string]float64 `json:"confidenceFactors"`
	ExtractionSource  string             `json:"extractionSource"`
	ExtractedAt       time.Time          `json:"extractedAt"`

	LineItems            []LineItem            `json:"lineItems"`
	TaxDetails           []TaxDetail           `json:"taxDetails"`
	PricingTerms         []PricingTerm         `json:"pricingTerms,omitempty"`
	ContractTerms        *ContractTerms        `json:"contractTerms,omitempty"`
	Parties              []string              `json:"parties,omitempty"`
	EarlyPaymentDiscount *EarlyPaymentDiscount `json:"earlyPaymentDiscount,omitempty"`

	UploadedFile     string      `json:"uploadedFile"`
	ManuallyVerified bool        `json:"manuallyVerified,omitempty"`
	VerifiedAt       *time.Time  `json:"verifiedAt,omitempty"`
	EditHistory      []EditEntry `json:"editHistory,omitempty"`
}

// IsInvoiceLike reports whether the document flows through the invoice
// pipeline (matching, anomaly detection, triage)
func (d *Document) IsInvoiceLike() bool {
	return d.Type == DocTypeInvoice || d.Type == DocTypeCreditNote || d.Type == DocTypeDebitNote
}

// LineItemSum returns the arithmetic sum of line item totals
func (d *Document) LineItemSum() float64 {
	var sum float64
	for _, li := range d.LineItems {
		sum += li.Total
	}
	return sum
}
