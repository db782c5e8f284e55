package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
)

const sampleInvoiceText = `Acme Corp
Bill to: Globex Industrial
INV-90210
Amount due: 1,234.56
Issued 2026-05-01`

func TestOfflineExtractParsesText(t *testing.T) {
	res := offlineExtract("invoice_may.pdf", sampleInvoiceText, "")

	assert.Equal(t, entity.DocTypeInvoice, res.DocumentType)
	assert.Equal(t, "Acme Corp", res.VendorName)
	assert.Equal(t, "INV-90210", res.DocumentNumber)
	assert.Equal(t, 1234.56, res.TotalAmount)
	assert.Equal(t, "2026-05-01", res.IssueDate)
	assert.Equal(t, "2026-05-31", res.DueDate)
	assert.Equal(t, res.TotalAmount, res.Subtotal)
	assert.Equal(t, "offline", res.Source)
}

func TestOfflineExtractIsDeterministic(t *testing.T) {
	first := offlineExtract("quarterly_report.pdf", "", "")
	second := offlineExtract("quarterly_report.pdf", "", "")

	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.Equal(t, first.VendorName, second.VendorName)
	assert.Equal(t, first.IssueDate, second.IssueDate)
	assert.Positive(t, first.TotalAmount)
	assert.NotEmpty(t, first.VendorName)
}

func TestOfflineExtractRespectsTypeOverride(t *testing.T) {
	res := offlineExtract("doc.pdf", "purchase order PO-777", entity.DocTypeInvoice)
	assert.Equal(t, entity.DocTypeInvoice, res.DocumentType)
}

func TestGuessType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		text     string
		expected string
	}{
		{"invoice keyword", "x.pdf", "invoice amount due", entity.DocTypeInvoice},
		{"purchase order keyword", "x.pdf", "purchase order terms", entity.DocTypePurchaseOrder},
		{"goods receipt wins over invoice", "x.pdf", "goods receipt for invoice", entity.DocTypeGoodsReceipt},
		{"credit note", "x.pdf", "credit note issued", entity.DocTypeCreditNote},
		{"contract keyword", "x.pdf", "this agreement between parties", entity.DocTypeContract},
		{"file name probe", "contract_2026.pdf", "", entity.DocTypeContract},
		{"default is invoice", "scan001.pdf", "illegible", entity.DocTypeInvoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, guessType(tt.fileName, tt.text))
		})
	}
}

func TestVendorGuess(t *testing.T) {
	assert.Equal(t, "Acme Corp", VendorGuess("\n\n  Acme Corp\nInvoice"))
	assert.Equal(t, "", VendorGuess("a\nb"))
}

func TestTransformInvoiceDefaults(t *testing.T) {
	res := Result{
		DocumentType: entity.DocTypeInvoice,
		VendorName:   "Acme Corp",
		TotalAmount:  1100,
		POReference:  "PO-1",
		DueDate:      "2026-09-15",
		Source:       "openai",
	}

	doc := Transform("d1", "inv.pdf", res)

	assert.Equal(t, entity.InvoiceStatusUnpaid, doc.Status)
	assert.Equal(t, "INV-d1", doc.Number)
	assert.Equal(t, "acme", doc.VendorNormalized)
	assert.Equal(t, "USD", doc.Currency)
	assert.Equal(t, 1100.0, doc.Subtotal)
	assert.Equal(t, "PO-1", doc.POReference)
	assert.Equal(t, "2026-09-15", doc.DueDate)
	assert.Equal(t, "d1_inv.pdf", doc.UploadedFile)
}

func TestTransformPerTypeStatus(t *testing.T) {
	tests := []struct {
		docType        string
		expectedStatus string
		numberPrefix   string
	}{
		{entity.DocTypeInvoice, entity.InvoiceStatusUnpaid, "INV-"},
		{entity.DocTypePurchaseOrder, entity.POStatusOpen, "PO-"},
		{entity.DocTypeContract, entity.ContractStatusActive, "AGR-"},
		{entity.DocTypeCreditNote, entity.NoteStatusPending, "CN-"},
		{entity.DocTypeDebitNote, entity.NoteStatusPending, "DN-"},
		{entity.DocTypeGoodsReceipt, entity.GRNStatusReceived, "GRN-"},
	}
	for _, tt := range tests {
		t.Run(tt.docType, func(t *testing.T) {
			doc := Transform("d9", "f.pdf", Result{DocumentType: tt.docType, TotalAmount: 100})
			assert.Equal(t, tt.expectedStatus, doc.Status)
			assert.True(t, strings.HasPrefix(doc.Number, tt.numberPrefix))
		})
	}
}

func TestTransformFallbacks(t *testing.T) {
	doc := Transform("d2", "scan.pdf", Result{
		Subtotal:  900,
		LineItems: []entity.LineItem{{Quantity: 1, Total: 900}},
	})

	assert.Equal(t, entity.DocTypeInvoice, doc.Type)
	assert.Equal(t, "Unknown", doc.Vendor)
	assert.Equal(t, 900.0, doc.Amount)
	require.Len(t, doc.LineItems, 1)
	assert.Equal(t, "?", doc.LineItems[0].Description)
}
