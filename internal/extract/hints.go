package extract

import (
	"fmt"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// most recent correction patterns carried into a prompt
const maxHints = 10

// globalVendor marks patterns that apply to every vendor
const globalVendor = "_global"

// BuildHints turns learned correction patterns into prompt lines for a
// vendor. Patterns from similar vendor names and global patterns apply;
// only the most recent make the cut.
func BuildHints(vendorName string, patterns []entity.CorrectionPattern) []string {
	var relevant []entity.CorrectionPattern
	for _, p := range patterns {
		if p.Vendor == globalVendor || vendor.Similarity(vendorName, p.Vendor) >= 0.7 {
			relevant = append(relevant, p)
		}
	}
	if len(relevant) > maxHints {
		relevant = relevant[len(relevant)-maxHints:]
	}

	hints := make([]string, 0, len(relevant))
	for _, p := range relevant {
		hints = append(hints, fmt.Sprintf("- Field '%s': AI extracted '%s' but human corrected to '%s'.",
			p.Field, p.ExtractedValue, p.CorrectedValue))
	}
	return hints
}
