package entity

import "time"

// GRNLineItem is a received line aggregated onto a match record
type GRNLineItem struct {
	Description      string  `json:"description"`
	QuantityReceived float64 `json:"quantityReceived"`
	GRNNumber        string  `json:"grnNumber"`
	ReceivedDate     string  `json:"receivedDate,omitempty"`
}

// Match links an invoice to the purchase order it was scored against,
// plus any goods receipts found for that purchase order
type Match struct {
	ID              string  `json:"id"`
	InvoiceID       string  `json:"invoiceId"`
	InvoiceNumber   string  `json:"invoiceNumber"`
	InvoiceAmount   float64 `json:"invoiceAmount"`
	InvoiceSubtotal float64 `json:"invoiceSubtotal"`
	Vendor          string  `json:"vendor"`

	POID     string  `json:"poId"`
	PONumber string  `json:"poNumber"`
	POAmount float64 `json:"poAmount"`

	MatchScore       float64  `json:"matchScore"`
	Signals          []string `json:"signals"`
	AmountDifference float64  `json:"amountDifference"`
	Status           string   `json:"status"`

	POAlreadyInvoiced float64 `json:"poAlreadyInvoiced"`
	PORemaining       float64 `json:"poRemaining"`
	POInvoiceCount    int     `json:"poInvoiceCount"`
	OverInvoiced      bool    `json:"overInvoiced"`

	MatchType     string        `json:"matchType"`
	GRNStatus     string        `json:"grnStatus"`
	GRNIDs        []string      `json:"grnIds,omitempty"`
	GRNNumbers    []string      `json:"grnNumbers,omitempty"`
	TotalReceived float64       `json:"totalReceived"`
	GRNLineItems  []GRNLineItem `json:"grnLineItems,omitempty"`
	ReceivedDate  string        `json:"receivedDate,omitempty"`

	MatchedAt time.Time `json:"matchedAt"`
}
