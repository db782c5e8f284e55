package extract

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
)

// factor weights for the composite confidence score
var confidenceWeights = map[string]float64{
	"field_completeness":    0.25,
	"line_item_integrity":   0.20,
	"math_consistency":      0.20,
	"date_validity":         0.10,
	"amount_plausibility":   0.10,
	"vendor_identification": 0.10,
	"ai_self_assessment":    0.05,
}

// ScoreConfidence grades an extraction result on seven weighted factors
// and returns the composite score plus the per-factor breakdown
func ScoreConfidence(res Result) (float64, map[string]float64) {
	factors := map[string]float64{
		"field_completeness":    fieldCompleteness(res),
		"line_item_integrity":   lineItemIntegrity(res),
		"math_consistency":      mathConsistency(res),
		"date_validity":         dateValidity(res),
		"amount_plausibility":   amountPlausibility(res),
		"vendor_identification": vendorIdentification(res),
		"ai_self_assessment":    selfAssessment(res),
	}

	var score float64
	for name, value := range factors {
		factors[name] = round1(value)
		score += value * confidenceWeights[name]
	}
	score = math.Min(100, math.Max(0, score))

	// Structural caps: a score cannot look healthy when the basics are broken
	if unknownVendor(res.VendorName) {
		score = math.Min(score, 55)
	}
	if res.TotalAmount <= 0 && (res.DocumentType == entity.DocTypeInvoice || res.DocumentType == entity.DocTypePurchaseOrder) {
		score = math.Min(score, 50)
	}

	return round1(score), factors
}

func fieldCompleteness(res Result) float64 {
	present := 0
	total := 0

	count := func(ok bool) {
		total++
		if ok {
			present++
		}
	}

	count(res.VendorName != "")
	count(res.DocumentNumber != "")
	count(res.DocumentType != "")
	count(res.TotalAmount != 0)
	count(res.Currency != "")

	switch res.DocumentType {
	case entity.DocTypeInvoice:
		count(res.IssueDate != "")
		count(res.DueDate != "")
		count(res.POReference != "")
	case entity.DocTypeContract:
		count(res.ContractTerms != nil)
		count(len(res.PricingTerms) > 0)
	case entity.DocTypePurchaseOrder:
		count(res.IssueDate != "")
	}

	return float64(present) / float64(total) * 100
}

func lineItemIntegrity(res Result) float64 {
	if len(res.LineItems) == 0 {
		if res.DocumentType == entity.DocTypeContract {
			return 30
		}
		return 40
	}
	var sum float64
	for _, li := range res.LineItems {
		desc := strings.TrimSpace(li.Description)
		switch {
		case desc != "" && desc != "?" && li.Quantity > 0 && li.UnitPrice > 0 && li.Total > 0:
			sum += 1
		case desc != "" && desc != "?" && li.Total > 0:
			sum += 0.5
		}
	}
	return sum / float64(len(res.LineItems)) * 100
}

func mathConsistency(res Result) float64 {
	score := 100.0

	subtotal := res.Subtotal
	if subtotal == 0 {
		subtotal = res.TotalAmount
	}

	if len(res.LineItems) > 0 && subtotal > 0 {
		var liSum float64
		for _, li := range res.LineItems {
			liSum += li.Total
		}
		switch diff := math.Abs(liSum-subtotal) / subtotal; {
		case diff > 0.05:
			score -= 40
		case diff > 0.01:
			score -= 15
		}
	}

	if res.Subtotal > 0 && res.TotalAmount > 0 {
		var tax float64
		for _, td := range res.TaxDetails {
			tax += td.Amount
		}
		expected := res.Subtotal + tax
		switch diff := math.Abs(expected-res.TotalAmount) / res.TotalAmount; {
		case diff > 0.05:
			score -= 40
		case diff > 0.01:
			score -= 10
		}
	}

	return math.Max(0, score)
}

func dateValidity(res Result) float64 {
	score := 100.0
	for _, date := range []string{res.IssueDate, res.DueDate, res.DeliveryDate, res.ReceivedDate} {
		if date == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			score -= 30
			continue
		}
		if year := parsed.Year(); year < 2020 || year > 2030 {
			score -= 20
		}
	}
	return math.Max(0, score)
}

func amountPlausibility(res Result) float64 {
	if res.TotalAmount <= 0 && (res.DocumentType == entity.DocTypeInvoice || res.DocumentType == entity.DocTypePurchaseOrder) {
		return 20
	}
	if res.TotalAmount > 100_000_000 {
		return 50
	}
	score := 100.0
	for _, li := range res.LineItems {
		if li.UnitPrice < 0 {
			score -= 25
		}
	}
	return math.Max(0, score)
}

func vendorIdentification(res Result) float64 {
	if unknownVendor(res.VendorName) {
		return 10
	}
	name := strings.TrimSpace(res.VendorName)
	if len(name) < 3 || isAllDigits(name) {
		return 40
	}
	return 100
}

func selfAssessment(res Result) float64 {
	if res.SelfConfidence > 0 {
		return math.Min(100, res.SelfConfidence)
	}
	return 85
}

func unknownVendor(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed == "" || strings.EqualFold(trimmed, "unknown")
}

func isAllDigits(s string) bool {
	if _, err := strconv.Atoi(strings.ReplaceAll(s, " ", "")); err == nil {
		return true
	}
	return false
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
