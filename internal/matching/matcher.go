package matching

import (
	"math"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
	"github.com/aivoralabs/auditlens/pkg/utils"
)

// minimum composite score for a candidate to count as a match at all
const minMatchScore = 40

// composite score at or above which a match needs no human review
const autoMatchScore = 75

// Matcher scores invoices against open purchase orders
type Matcher struct {
	pol policy.Policy
}

// NewMatcher creates a matcher bound to a policy snapshot
func NewMatcher(pol policy.Policy) *Matcher {
	return &Matcher{pol: pol}
}

// Fulfillment sums the invoice subtotals already matched to a purchase
// order, and how many invoices contributed
func Fulfillment(poID string, matches []entity.Match) (float64, int) {
	var total float64
	count := 0
	for _, m := range matches {
		if m.POID == poID {
			total += m.InvoiceSubtotal
			count++
		}
	}
	return total, count
}

type candidate struct {
	po         *entity.Document
	score      float64
	signals    []string
	targetDiff float64
	already    float64
	count      int
}

// Match scores the invoice against every purchase order and returns the
// best candidate as a match record, or nil when nothing clears the
// minimum score. Existing matches feed cumulative fulfillment; GRNs are
// linked onto the returned record.
func (m *Matcher) Match(inv entity.Document, pos, grns []entity.Document, existing []entity.Match) *entity.Match {
	var best *candidate
	for i := range pos {
		po := &pos[i]
		if po.Type != entity.DocTypePurchaseOrder {
			continue
		}
		c := m.scoreAgainst(inv, po, existing)
		if c.score < minMatchScore {
			continue
		}
		if best == nil || betterCandidate(c, *best) {
			saved := c
			best = &saved
		}
	}
	if best == nil {
		return nil
	}
	return m.buildMatch(inv, *best, grns)
}

// betterCandidate orders by score, then nearest amount, then earliest PO
func betterCandidate(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.targetDiff != b.targetDiff {
		return a.targetDiff < b.targetDiff
	}
	return a.po.ExtractedAt.Before(b.po.ExtractedAt)
}

func (m *Matcher) scoreAgainst(inv entity.Document, po *entity.Document, existing []entity.Match) candidate {
	already, count := Fulfillment(po.ID, existing)
	remaining := po.Amount - already

	c := candidate{po: po, already: already, count: count}

	if inv.POReference != "" && inv.POReference == po.Number {
		c.score += 50
		c.signals = append(c.signals, "po_reference_exact")
	}

	switch sim := vendor.Similarity(inv.Vendor, po.Vendor); {
	case sim >= 0.95:
		c.score += 25
		c.signals = append(c.signals, "vendor_exact")
	case sim >= 0.7:
		c.score += 15
		c.signals = append(c.signals, "vendor_partial")
	}

	target := po.Amount
	if remaining > 0 {
		target = remaining
	}
	c.targetDiff = math.Abs(inv.Subtotal - target)
	if denom := math.Max(inv.Subtotal, target); denom > 0 {
		switch proximity := c.targetDiff / denom; {
		case proximity < 0.02:
			c.score += 20
			c.signals = append(c.signals, "amount_near_exact")
		case proximity < 0.10:
			c.score += 12
			c.signals = append(c.signals, "amount_close")
		case proximity < 0.25:
			c.score += 5
			c.signals = append(c.signals, "amount_approximate")
		}
	}

	if remaining > 0 && inv.Subtotal <= remaining*1.1 {
		c.score += 5
		c.signals = append(c.signals, "within_po_budget")
	}

	if lineItemOverlap(inv.LineItems, po.LineItems) > 0.5 {
		c.score += 10
		c.signals = append(c.signals, "line_items_overlap")
	}

	c.score = math.Min(c.score, 100)
	return c
}

// lineItemOverlap compares the description sets of two documents
func lineItemOverlap(a, b []entity.LineItem) float64 {
	setA := descriptionSet(a)
	setB := descriptionSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for desc := range setA {
		if setB[desc] {
			shared++
		}
	}
	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	return float64(shared) / float64(larger)
}

func descriptionSet(items []entity.LineItem) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, li := range items {
		desc := strings.ToLower(strings.TrimSpace(li.Description))
		if desc != "" && desc != "?" {
			set[desc] = true
		}
	}
	return set
}

func (m *Matcher) buildMatch(inv entity.Document, c candidate, grns []entity.Document) *entity.Match {
	po := c.po
	billed := c.already + inv.Subtotal
	overInvoiced := billed > po.Amount*(1+m.pol.OverInvoicePct/100)
	exceedsPO := billed > po.Amount*1.005

	status := entity.MatchStatusReview
	if c.score >= autoMatchScore {
		status = entity.MatchStatusAuto
	}
	if overInvoiced || exceedsPO {
		status = entity.MatchStatusReview
	}

	match := &entity.Match{
		ID:              utils.NewRecordID(),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		InvoiceAmount:   inv.Amount,
		InvoiceSubtotal: inv.Subtotal,
		Vendor:          inv.Vendor,

		POID:     po.ID,
		PONumber: po.Number,
		POAmount: po.Amount,

		MatchScore:       c.score,
		Signals:          c.signals,
		AmountDifference: round2(c.targetDiff),
		Status:           status,

		POAlreadyInvoiced: round2(c.already),
		PORemaining:       round2(po.Amount - c.already),
		POInvoiceCount:    c.count,
		OverInvoiced:      overInvoiced,

		MatchedAt: time.Now(),
	}
	m.linkGRNs(match, po, grns)
	return match
}

// linkGRNs finds goods receipts referencing the matched purchase order
// and upgrades the match to three-way when any exist
func (m *Matcher) linkGRNs(match *entity.Match, po *entity.Document, grns []entity.Document) {
	match.MatchType = entity.MatchTypeTwoWay
	match.GRNStatus = entity.GRNLinkNone

	identifiers := map[string]bool{po.ID: true}
	if po.Number != "" {
		identifiers[po.Number] = true
	}

	var totalReceived float64
	for i := range grns {
		grn := &grns[i]
		if grn.Type != entity.DocTypeGoodsReceipt || !identifiers[grn.POReference] {
			continue
		}
		match.GRNIDs = append(match.GRNIDs, grn.ID)
		match.GRNNumbers = append(match.GRNNumbers, grn.Number)
		amount := grn.Amount
		if amount == 0 {
			amount = grn.Subtotal
		}
		totalReceived += amount
		for _, li := range grn.LineItems {
			match.GRNLineItems = append(match.GRNLineItems, entity.GRNLineItem{
				Description:      li.Description,
				QuantityReceived: li.Quantity,
				GRNNumber:        grn.Number,
				ReceivedDate:     grn.ReceivedDate,
			})
		}
		match.ReceivedDate = grn.ReceivedDate
	}

	if len(match.GRNIDs) > 0 {
		match.MatchType = entity.MatchTypeThreeWay
		match.GRNStatus = entity.GRNLinkReceived
		match.TotalReceived = round2(totalReceived)
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
