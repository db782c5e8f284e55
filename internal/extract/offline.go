package extract

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
)

var (
	numberPattern = regexp.MustCompile(`\b(INV|PO|AGR|CN|DN|GRN)[-/]?([A-Z0-9]{3,12})\b`)
	amountPattern = regexp.MustCompile(`(?i)(?:total|amount due|grand total)[^0-9]{0,10}([0-9][0-9,]*\.?[0-9]{0,2})`)
	datePattern   = regexp.MustCompile(`\b(20[0-9]{2})-([0-1][0-9])-([0-3][0-9])\b`)
)

// offlineExtract is the no-API-key extractor. It is deterministic for a
// given file name and text so repeated uploads behave identically.
func offlineExtract(fileName, text, typeOverride string) Result {
	res := Result{
		DocumentType: typeOverride,
		Currency:     "USD",
		Source:       "offline",
	}
	lower := strings.ToLower(text)

	if res.DocumentType == "" {
		res.DocumentType = guessType(strings.ToLower(fileName), lower)
	}

	if m := numberPattern.FindStringSubmatch(strings.ToUpper(text)); m != nil {
		res.DocumentNumber = m[1] + "-" + m[2]
	}
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		if amt, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			res.TotalAmount = amt
		}
	}
	if m := datePattern.FindString(text); m != "" {
		res.IssueDate = m
	}

	if vendor := firstNonEmptyLine(text); vendor != "" {
		res.VendorName = vendor
	}

	// Fill anything still missing from a stable hash of the file name so
	// demo environments without a key still exercise the full pipeline
	seed := hashSeed(fileName)
	if res.TotalAmount == 0 {
		res.TotalAmount = float64(500+seed%9500) + 0.50
	}
	if res.VendorName == "" {
		res.VendorName = "Vendor " + strconv.FormatUint(seed%97, 10)
	}
	if res.IssueDate == "" {
		res.IssueDate = time.Now().AddDate(0, 0, -int(seed%60)).Format("2006-01-02")
	}
	if res.DocumentType == entity.DocTypeInvoice && res.DueDate == "" {
		if issued, err := time.Parse("2006-01-02", res.IssueDate); err == nil {
			res.DueDate = issued.AddDate(0, 0, 30).Format("2006-01-02")
		}
	}

	res.Subtotal = res.TotalAmount
	res.SelfConfidence = 45
	return res
}

func guessType(fileName, text string) string {
	probes := []struct {
		docType string
		words   []string
	}{
		{entity.DocTypeGoodsReceipt, []string{"goods receipt", "grn", "received by"}},
		{entity.DocTypeCreditNote, []string{"credit note"}},
		{entity.DocTypeDebitNote, []string{"debit note"}},
		{entity.DocTypePurchaseOrder, []string{"purchase order", "po number"}},
		{entity.DocTypeContract, []string{"agreement", "contract", "parties"}},
		{entity.DocTypeInvoice, []string{"invoice", "amount due", "bill to"}},
	}
	for _, p := range probes {
		for _, w := range p.words {
			if strings.Contains(fileName, w) || strings.Contains(text, w) {
				return p.docType
			}
		}
	}
	return entity.DocTypeInvoice
}

// VendorGuess makes a cheap guess at the vendor name from raw document
// text, used to select correction hints before real extraction runs
func VendorGuess(text string) string {
	return firstNonEmptyLine(text)
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) >= 3 && len(trimmed) <= 80 {
			return trimmed
		}
	}
	return ""
}

func hashSeed(fileName string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(fileName))
	return h.Sum64()
}
