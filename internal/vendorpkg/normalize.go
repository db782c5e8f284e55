package vendor

import "strings"

// legal suffixes stripped during vendor name normalization
var suffixes = map[string]struct{}{
	"ltd": {}, "limited": {}, "pvt": {}, "private": {},
	"inc": {}, "incorporated": {}, "llc": {}, "corp": {},
	"corporation": {}, "co": {}, "company": {}, "gmbh": {},
	"ag": {}, "sa": {}, "srl": {}, "bv": {}, "nv": {},
	"plc": {}, "lp": {}, "llp": {}, "pte": {},
}

const punctuation = `.,;:!@#$%^&*()[]{}|\/<>"'`

// currencySymbols maps ISO codes to display symbols
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"CNY": "¥",
	"CAD": "C$",
	"AUD": "A$",
	"CHF": "CHF ",
	"AED": "AED ",
	"SGD": "S$",
}

// CurrencySymbol returns the display symbol for a currency code, or the
// code itself when no symbol is known
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code + " "
}

// Normalize lowers a vendor name, strips punctuation and legal suffixes,
// and collapses whitespace. Two spellings of the same vendor should
// normalize to the same string.
func Normalize(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lowered {
		if strings.ContainsRune(punctuation, r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, isSuffix := suffixes[w]; !isSuffix {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Similarity scores two vendor names in [0, 1]. Equal normalized names
// score 1.0, containment scores 0.85, otherwise a sequence ratio on the
// normalized strings.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.85
	}
	return ratio(na, nb)
}

// ratio is the classic sequence matcher ratio: twice the total matched
// characters over the combined length, matches found by recursively
// taking the longest common substring
func ratio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	return 2 * float64(matchLen(a, b)) / float64(total)
}

func matchLen(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchLen(a[:ai], b[:bi]) +
		matchLen(a[ai+size:], b[bi+size:])
}

func longestCommonSubstring(a, b string) (int, int, int) {
	bestA, bestB, bestLen := 0, 0, 0
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestLen {
					bestLen = curr[j]
					bestA = i - bestLen
					bestB = j - bestLen
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestA, bestB, bestLen
}
