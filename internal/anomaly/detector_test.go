package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
)

func newTestDetector() *Detector {
	return NewDetector(policy.Default(), zap.NewNop())
}

func defaultTolerances() entity.DynamicTolerances {
	p := policy.Default()
	return entity.DynamicTolerances{
		AmountTolerancePct: p.AmountTolerancePct,
		PriceTolerancePct:  p.PriceTolerancePct,
	}
}

func baseInvoice() entity.Document {
	return entity.Document{
		ID:        "INV1",
		Type:      entity.DocTypeInvoice,
		Number:    "INV-1001",
		Vendor:    "Acme Corp",
		Currency:  "USD",
		Subtotal:  10000,
		TotalTax:  1000,
		Amount:    11000,
		IssueDate: time.Now().AddDate(0, 0, -10).Format("2006-01-02"),
	}
}

func TestCheckLineItemTotals(t *testing.T) {
	d := newTestDetector()

	t.Run("consistent items pass", func(t *testing.T) {
		inv := baseInvoice()
		inv.LineItems = []entity.LineItem{{Description: "Widget", Quantity: 10, UnitPrice: 1000, Total: 10000}}
		assert.Empty(t, d.checkLineItemTotals(Input{Invoice: inv}))
	})

	t.Run("mismatch beyond tolerance flags", func(t *testing.T) {
		inv := baseInvoice()
		inv.LineItems = []entity.LineItem{{Description: "Widget", Quantity: 10, UnitPrice: 900, Total: 9000}}
		found := d.checkLineItemTotals(Input{Invoice: inv})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyLineItemTotalMismatch, found[0].Type)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
		assert.Equal(t, 1000.0, found[0].AmountAtRisk)
	})

	t.Run("no line items is not an arithmetic problem", func(t *testing.T) {
		assert.Empty(t, d.checkLineItemTotals(Input{Invoice: baseInvoice()}))
	})
}

func TestCheckMissingPO(t *testing.T) {
	d := newTestDetector()

	t.Run("unmatched invoice without reference", func(t *testing.T) {
		inv := baseInvoice()
		found := d.checkMissingPO(Input{Invoice: inv})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyMissingPO, found[0].Type)
		assert.Equal(t, entity.SeverityMedium, found[0].Severity)
		assert.Equal(t, inv.Amount, found[0].AmountAtRisk)
	})

	t.Run("dangling reference gets its own description", func(t *testing.T) {
		inv := baseInvoice()
		inv.POReference = "PO-404"
		found := d.checkMissingPO(Input{Invoice: inv})
		require.Len(t, found, 1)
		assert.Contains(t, found[0].Description, "PO-404")
	})

	t.Run("matched invoice passes", func(t *testing.T) {
		po := entity.Document{ID: "P1", Type: entity.DocTypePurchaseOrder}
		assert.Empty(t, d.checkMissingPO(Input{Invoice: baseInvoice(), PO: &po}))
	})
}

func TestCheckEarlyPaymentDiscount(t *testing.T) {
	d := newTestDetector()
	inv := baseInvoice()
	inv.EarlyPaymentDiscount = &entity.EarlyPaymentDiscount{DiscountPercent: 2, Days: 10}

	found := d.checkEarlyPaymentDiscount(Input{Invoice: inv})
	require.Len(t, found, 1)
	assert.Equal(t, entity.AnomalyEarlyPaymentDiscount, found[0].Type)
	assert.Equal(t, entity.SeverityLow, found[0].Severity)
	// savings are carried as negative risk
	assert.Equal(t, -200.0, found[0].AmountAtRisk)
	assert.True(t, found[0].IsSavings())
}

func TestCheckTaxRates(t *testing.T) {
	d := newTestDetector()

	t.Run("implausibly high effective rate", func(t *testing.T) {
		inv := baseInvoice()
		inv.TotalTax = 4000
		found := d.checkTaxRates(Input{Invoice: inv})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyTaxRate, found[0].Type)
		assert.Equal(t, entity.SeverityMedium, found[0].Severity)
	})

	t.Run("stated rate disagrees with computed amount", func(t *testing.T) {
		inv := baseInvoice()
		inv.TotalTax = 1000
		inv.TaxDetails = []entity.TaxDetail{{Type: "VAT", Rate: 10, Amount: 1500}}
		found := d.checkTaxRates(Input{Invoice: inv})
		require.Len(t, found, 1)
		assert.Equal(t, 500.0, found[0].AmountAtRisk)
	})

	t.Run("normal tax passes", func(t *testing.T) {
		inv := baseInvoice()
		inv.TaxDetails = []entity.TaxDetail{{Type: "VAT", Rate: 10, Amount: 1000}}
		assert.Empty(t, d.checkTaxRates(Input{Invoice: inv}))
	})
}

func TestCheckCurrency(t *testing.T) {
	d := newTestDetector()
	inv := baseInvoice()
	po := entity.Document{ID: "P1", Type: entity.DocTypePurchaseOrder, Number: "PO-1", Currency: "EUR"}

	found := d.checkCurrency(Input{Invoice: inv, PO: &po})
	require.Len(t, found, 1)
	assert.Equal(t, entity.AnomalyCurrencyMismatch, found[0].Type)

	po.Currency = "USD"
	assert.Empty(t, d.checkCurrency(Input{Invoice: inv, PO: &po}))
}

func TestCheckRoundNumber(t *testing.T) {
	pol := policy.Default()
	pol.FlagRoundNumberInvoices = true
	d := NewDetector(pol, zap.NewNop())

	inv := baseInvoice()
	inv.Amount = 15000
	found := d.checkRoundNumber(Input{Invoice: inv})
	require.Len(t, found, 1)
	assert.Equal(t, entity.AnomalyRoundNumber, found[0].Type)

	inv.Amount = 15230.50
	assert.Empty(t, d.checkRoundNumber(Input{Invoice: inv}))

	// below the floor round figures are normal
	inv.Amount = 3000
	assert.Empty(t, d.checkRoundNumber(Input{Invoice: inv}))

	// flag disabled by default
	assert.Empty(t, newTestDetector().checkRoundNumber(Input{Invoice: inv}))
}

func TestCheckWeekend(t *testing.T) {
	pol := policy.Default()
	pol.FlagWeekendInvoices = true
	d := NewDetector(pol, zap.NewNop())

	inv := baseInvoice()
	inv.IssueDate = "2026-08-29" // a Saturday
	found := d.checkWeekend(Input{Invoice: inv})
	require.Len(t, found, 1)
	assert.Equal(t, entity.AnomalyWeekendInvoice, found[0].Type)

	inv.IssueDate = "2026-08-26" // a Wednesday
	assert.Empty(t, d.checkWeekend(Input{Invoice: inv}))
}

func TestCheckStale(t *testing.T) {
	d := newTestDetector()

	inv := baseInvoice()
	inv.IssueDate = time.Now().AddDate(0, 0, -400).Format("2006-01-02")
	found := d.checkStale(Input{Invoice: inv})
	require.Len(t, found, 1)
	assert.Equal(t, entity.AnomalyStaleInvoice, found[0].Type)

	inv.IssueDate = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	assert.Empty(t, d.checkStale(Input{Invoice: inv}))
}

func TestCheckAgainstPO(t *testing.T) {
	d := newTestDetector()

	po := entity.Document{
		ID:       "P1",
		Type:     entity.DocTypePurchaseOrder,
		Number:   "PO-1",
		Vendor:   "Acme Corp",
		Currency: "USD",
		Amount:   10000,
		LineItems: []entity.LineItem{
			{Description: "Steel Widget", Quantity: 100, UnitPrice: 100, Total: 10000},
		},
	}

	t.Run("price overcharge per line", func(t *testing.T) {
		inv := baseInvoice()
		inv.Subtotal = 11000
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 100, UnitPrice: 110, Total: 11000},
		}
		found := d.checkAgainstPO(Input{Invoice: inv, PO: &po, Tolerances: defaultTolerances()})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyPriceOvercharge, found[0].Type)
		assert.Equal(t, 1000.0, found[0].AmountAtRisk)
	})

	t.Run("overcharge with blank quantity still carries risk", func(t *testing.T) {
		inv := baseInvoice()
		inv.Subtotal = 110
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 0, UnitPrice: 110, Total: 110},
		}
		found := d.checkAgainstPO(Input{Invoice: inv, PO: &po, Tolerances: defaultTolerances()})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyPriceOvercharge, found[0].Type)
		// blank quantity is read as a single unit
		assert.Equal(t, 10.0, found[0].AmountAtRisk)
	})

	t.Run("quantity beyond authorization", func(t *testing.T) {
		inv := baseInvoice()
		inv.Subtotal = 12000
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 120, UnitPrice: 100, Total: 12000},
		}
		found := d.checkAgainstPO(Input{Invoice: inv, PO: &po, Tolerances: defaultTolerances()})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyQuantityMismatch, found[0].Type)
		assert.Equal(t, 2000.0, found[0].AmountAtRisk)
	})

	t.Run("unauthorized item", func(t *testing.T) {
		inv := baseInvoice()
		inv.Subtotal = 10000
		inv.LineItems = []entity.LineItem{
			{Description: "Consulting Retainer", Quantity: 1, UnitPrice: 10000, Total: 10000},
		}
		found := d.checkAgainstPO(Input{Invoice: inv, PO: &po, Tolerances: defaultTolerances()})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyUnauthorizedItem, found[0].Type)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
	})

	t.Run("unexplained subtotal excess", func(t *testing.T) {
		inv := baseInvoice()
		inv.Subtotal = 12000
		// line item matches the order exactly, so 2000 has no explanation
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 100, UnitPrice: 100, Total: 10000},
		}
		found := d.checkAgainstPO(Input{Invoice: inv, PO: &po, Tolerances: defaultTolerances()})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyAmountDiscrepancy, found[0].Type)
		assert.Equal(t, 2000.0, found[0].AmountAtRisk)
		assert.Equal(t, "Purchase order authorization limits", found[0].ContractClause)
	})

	t.Run("within tolerance passes", func(t *testing.T) {
		inv := baseInvoice()
		inv.Subtotal = 10100
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 100, UnitPrice: 100.5, Total: 10050},
		}
		assert.Empty(t, d.checkAgainstPO(Input{Invoice: inv, PO: &po, Tolerances: defaultTolerances()}))
	})

	t.Run("tightened tolerances annotate the finding", func(t *testing.T) {
		inv := baseInvoice()
		inv.Subtotal = 10100
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 100, UnitPrice: 101, Total: 10100},
		}
		tight := entity.DynamicTolerances{
			AmountTolerancePct: 0.7,
			PriceTolerancePct:  0.35,
			RiskAdjusted:       true,
			RiskScore:          80,
		}
		found := d.checkAgainstPO(Input{Invoice: inv, PO: &po, Tolerances: tight})
		require.NotEmpty(t, found)
		assert.Contains(t, found[0].Description, "Tightened")
	})
}

func TestCheckDuplicates(t *testing.T) {
	d := newTestDetector()

	prior := entity.Document{
		ID:        "INV0",
		Type:      entity.DocTypeInvoice,
		Number:    "INV-1001",
		Vendor:    "Acme Corp",
		Currency:  "USD",
		Amount:    5000,
		IssueDate: "2026-08-01",
	}

	t.Run("same number and amount within window is high", func(t *testing.T) {
		inv := baseInvoice()
		inv.Amount = 5000
		inv.IssueDate = "2026-08-11"
		found := d.checkDuplicates(Input{Invoice: inv, History: []entity.Document{prior}})
		require.Len(t, found, 2)
		assert.Equal(t, entity.AnomalyDuplicateInvoice, found[0].Type)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
		assert.Equal(t, 5000.0, found[0].AmountAtRisk)
		assert.Contains(t, found[0].Description, "identical invoice number")
		assert.Contains(t, found[0].Description, "same amount")
	})

	t.Run("both sides of the pair are flagged", func(t *testing.T) {
		inv := baseInvoice()
		inv.ID = "INV-NEW"
		inv.Number = "INV-500"
		inv.Amount = 5000
		inv.IssueDate = "2026-08-04"
		p := prior
		p.ID = "INV-OLD"
		p.Number = "INV-500"

		found := d.checkDuplicates(Input{Invoice: inv, History: []entity.Document{p}})
		require.Len(t, found, 2)

		byDoc := map[string]entity.Anomaly{}
		for _, a := range found {
			byDoc[a.DocumentID] = a
		}
		require.Contains(t, byDoc, "INV-NEW")
		require.Contains(t, byDoc, "INV-OLD")
		for _, a := range byDoc {
			assert.Equal(t, entity.AnomalyDuplicateInvoice, a.Type)
			assert.Equal(t, entity.SeverityHigh, a.Severity)
			assert.Equal(t, 5000.0, a.AmountAtRisk)
		}
		assert.Contains(t, byDoc["INV-OLD"].Description, "Duplicated by INV-500")
	})

	t.Run("same amount alone does not flag", func(t *testing.T) {
		inv := baseInvoice()
		inv.Number = "INV-2002"
		inv.Amount = 5000
		inv.IssueDate = "2026-08-11"
		assert.Empty(t, d.checkDuplicates(Input{Invoice: inv, History: []entity.Document{prior}}))
	})

	t.Run("amount plus matching line items flags high", func(t *testing.T) {
		items := []entity.LineItem{
			{Description: "Widget", Quantity: 10, UnitPrice: 500},
		}
		p := prior
		p.LineItems = items
		inv := baseInvoice()
		inv.Number = "INV-2002"
		inv.Amount = 5000
		inv.IssueDate = "2026-08-11"
		inv.LineItems = items
		found := d.checkDuplicates(Input{Invoice: inv, History: []entity.Document{p}})
		require.Len(t, found, 2)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
		assert.Equal(t, entity.SeverityHigh, found[1].Severity)
	})

	t.Run("own record is skipped", func(t *testing.T) {
		inv := baseInvoice()
		history := []entity.Document{inv}
		assert.Empty(t, d.checkDuplicates(Input{Invoice: inv, History: history}))
	})
}

func TestDuplicateScoreBreakdown(t *testing.T) {
	d := newTestDetector()

	inv := entity.Document{Number: "INV-1", Amount: 5000, IssueDate: "2026-08-10"}
	prior := entity.Document{Number: "INV-1", Amount: 5000, IssueDate: "2026-08-10"}

	score, signals := d.duplicateScore(inv, &prior)
	// number 50 + amount 40 + date 25 caps at 100
	assert.Equal(t, 100, score)
	assert.Contains(t, signals, "same date")

	prior.IssueDate = "2026-06-01"
	score, _ = d.duplicateScore(inv, &prior)
	assert.Equal(t, 100, score)

	prior.Number = "INV-9"
	prior.Amount = 9000
	score, _ = d.duplicateScore(inv, &prior)
	assert.Equal(t, 10, score)
}

func TestCheckGoodsReceipts(t *testing.T) {
	inv := baseInvoice()
	inv.Subtotal = 10000
	po := entity.Document{ID: "P1", Type: entity.DocTypePurchaseOrder, Number: "PO-1", Amount: 10000}

	t.Run("unreceipted is high under three way", func(t *testing.T) {
		pol := policy.Default()
		pol.MatchingMode = entity.ModeThreeWay
		d := NewDetector(pol, zap.NewNop())
		match := &entity.Match{PONumber: "PO-1", GRNStatus: entity.GRNLinkNone}
		found := d.checkGoodsReceipts(Input{Invoice: inv, PO: &po, Match: match})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyUnreceiptedInvoice, found[0].Type)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
	})

	t.Run("unreceipted is medium under flexible", func(t *testing.T) {
		d := newTestDetector()
		match := &entity.Match{PONumber: "PO-1", GRNStatus: entity.GRNLinkNone}
		found := d.checkGoodsReceipts(Input{Invoice: inv, PO: &po, Match: match})
		require.Len(t, found, 1)
		assert.Equal(t, entity.SeverityMedium, found[0].Severity)
	})

	t.Run("two way mode does not demand receipts", func(t *testing.T) {
		pol := policy.Default()
		pol.MatchingMode = entity.ModeTwoWay
		d := NewDetector(pol, zap.NewNop())
		match := &entity.Match{PONumber: "PO-1", GRNStatus: entity.GRNLinkNone}
		assert.Empty(t, d.checkGoodsReceipts(Input{Invoice: inv, PO: &po, Match: match}))
	})

	t.Run("overbilled against received amount", func(t *testing.T) {
		d := newTestDetector()
		match := &entity.Match{
			PONumber:      "PO-1",
			GRNStatus:     entity.GRNLinkReceived,
			TotalReceived: 7000,
		}
		found := d.checkGoodsReceipts(Input{Invoice: inv, PO: &po, Match: match})
		require.NotEmpty(t, found)
		assert.Equal(t, entity.AnomalyOverbilledVsReceived, found[0].Type)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
		assert.Equal(t, 3000.0, found[0].AmountAtRisk)
	})

	t.Run("short shipment noted below threshold", func(t *testing.T) {
		d := newTestDetector()
		match := &entity.Match{
			PONumber:      "PO-1",
			GRNStatus:     entity.GRNLinkReceived,
			TotalReceived: 5000,
		}
		found := d.checkGoodsReceipts(Input{Invoice: inv, PO: &po, Match: match})
		var types []string
		for _, a := range found {
			types = append(types, a.Type)
		}
		assert.Contains(t, types, entity.AnomalyShortShipment)
	})

	t.Run("billed quantity beyond received", func(t *testing.T) {
		d := newTestDetector()
		billed := inv
		billed.LineItems = []entity.LineItem{
			{Description: "Widget", Quantity: 100, UnitPrice: 100, Total: 10000},
		}
		match := &entity.Match{
			PONumber:      "PO-1",
			GRNStatus:     entity.GRNLinkReceived,
			TotalReceived: 10000,
			GRNLineItems: []entity.GRNLineItem{
				{Description: "Widget", QuantityReceived: 80, GRNNumber: "GRN-1"},
			},
		}
		found := d.checkGoodsReceipts(Input{Invoice: billed, PO: &po, Match: match})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyQtyReceivedMismatch, found[0].Type)
		assert.Equal(t, 2000.0, found[0].AmountAtRisk)
	})

	t.Run("no match means nothing to check", func(t *testing.T) {
		d := newTestDetector()
		assert.Empty(t, d.checkGoodsReceipts(Input{Invoice: inv}))
	})
}

func TestCheckAgainstContract(t *testing.T) {
	d := newTestDetector()

	contract := entity.Document{
		ID:     "C1",
		Type:   entity.DocTypeContract,
		Number: "AGR-1",
		Vendor: "Acme Corp",
		Status: entity.ContractStatusActive,
		ContractTerms: &entity.ContractTerms{
			ExpiryDate:   "2026-06-30",
			PaymentTerms: "Net 30",
		},
		PricingTerms: []entity.PricingTerm{
			{Item: "Steel Widget", Rate: 100, Unit: "each"},
		},
	}

	t.Run("invoice after expiry violates terms", func(t *testing.T) {
		inv := baseInvoice()
		inv.IssueDate = "2026-08-15"
		found := d.checkAgainstContract(Input{Invoice: inv, Contract: &contract, Tolerances: defaultTolerances()})
		require.NotEmpty(t, found)
		assert.Equal(t, entity.AnomalyTermsViolation, found[0].Type)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
		assert.Contains(t, found[0].ContractClause, "2026-06-30")
	})

	t.Run("rate above contracted price", func(t *testing.T) {
		inv := baseInvoice()
		inv.IssueDate = "2026-05-01"
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 10, UnitPrice: 130, Total: 1300},
		}
		found := d.checkAgainstContract(Input{Invoice: inv, Contract: &contract, Tolerances: defaultTolerances()})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyPriceOvercharge, found[0].Type)
		assert.Equal(t, 300.0, found[0].AmountAtRisk)
		assert.Contains(t, found[0].ContractClause, "Contracted rate")
	})

	t.Run("payment terms mismatch", func(t *testing.T) {
		inv := baseInvoice()
		inv.IssueDate = "2026-05-01"
		inv.PaymentTerms = "Net 60"
		found := d.checkAgainstContract(Input{Invoice: inv, Contract: &contract, Tolerances: defaultTolerances()})
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyTermsViolation, found[0].Type)
		assert.Equal(t, entity.SeverityMedium, found[0].Severity)
	})

	t.Run("compliant invoice passes", func(t *testing.T) {
		inv := baseInvoice()
		inv.IssueDate = "2026-05-01"
		inv.PaymentTerms = "net 30"
		inv.LineItems = []entity.LineItem{
			{Description: "Steel Widget", Quantity: 10, UnitPrice: 100, Total: 1000},
		}
		assert.Empty(t, d.checkAgainstContract(Input{Invoice: inv, Contract: &contract, Tolerances: defaultTolerances()}))
	})
}

func TestCheckPOAgainstContract(t *testing.T) {
	d := newTestDetector()

	contract := entity.Document{
		Number: "AGR-1",
		Type:   entity.DocTypeContract,
		ContractTerms: &entity.ContractTerms{
			ExpiryDate:   "2026-12-31",
			LiabilityCap: 50000,
			PaymentTerms: "Net 30",
		},
	}

	t.Run("liability cap exceeded", func(t *testing.T) {
		po := entity.Document{Type: entity.DocTypePurchaseOrder, Number: "PO-1", Amount: 80000, IssueDate: "2026-05-01"}
		found := d.CheckPOAgainstContract(po, &contract)
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyAmountDiscrepancy, found[0].Type)
		assert.Equal(t, 30000.0, found[0].AmountAtRisk)
	})

	t.Run("issued after expiry", func(t *testing.T) {
		po := entity.Document{Type: entity.DocTypePurchaseOrder, Number: "PO-1", Amount: 1000, IssueDate: "2027-02-01"}
		found := d.CheckPOAgainstContract(po, &contract)
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyTermsViolation, found[0].Type)
	})

	t.Run("no contract terms means nothing to check", func(t *testing.T) {
		po := entity.Document{Type: entity.DocTypePurchaseOrder, Amount: 999999}
		assert.Empty(t, d.CheckPOAgainstContract(po, &entity.Document{}))
	})
}

func TestCheckNote(t *testing.T) {
	d := newTestDetector()
	original := entity.Document{Type: entity.DocTypeInvoice, Number: "INV-1", Amount: 1000}

	t.Run("missing original reference", func(t *testing.T) {
		note := entity.Document{Type: entity.DocTypeCreditNote, Number: "CN-1", Amount: 500}
		found := d.CheckNote(note, nil)
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyMissingPO, found[0].Type)
	})

	t.Run("note exceeding original invoice", func(t *testing.T) {
		note := entity.Document{Type: entity.DocTypeCreditNote, Number: "CN-1", Amount: 1500, OriginalInvoiceRef: "INV-1"}
		found := d.CheckNote(note, &original)
		require.Len(t, found, 1)
		assert.Equal(t, entity.AnomalyAmountDiscrepancy, found[0].Type)
		assert.Equal(t, entity.SeverityHigh, found[0].Severity)
		assert.Contains(t, found[0].Description, "Do not process")
	})

	t.Run("note within original passes", func(t *testing.T) {
		note := entity.Document{Type: entity.DocTypeDebitNote, Number: "DN-1", Amount: 300, OriginalInvoiceRef: "INV-1"}
		assert.Empty(t, d.CheckNote(note, &original))
	})
}

func TestRulePanicIsolation(t *testing.T) {
	d := newTestDetector()

	panicking := rule{name: "explodes", fn: func(*Detector, Input) []entity.Anomaly {
		panic("boom")
	}}

	assert.NotPanics(t, func() {
		out := d.runRule(panicking, Input{Invoice: baseInvoice()})
		assert.Nil(t, out)
	})
}

func TestDetectRunsFullRuleSet(t *testing.T) {
	d := newTestDetector()

	inv := baseInvoice()
	inv.EarlyPaymentDiscount = &entity.EarlyPaymentDiscount{DiscountPercent: 2, Days: 10}

	found := d.Detect(Input{Invoice: inv})

	var types []string
	for _, a := range found {
		types = append(types, a.Type)
	}
	// no PO matched and a discount is on offer
	assert.Contains(t, types, entity.AnomalyMissingPO)
	assert.Contains(t, types, entity.AnomalyEarlyPaymentDiscount)
}
