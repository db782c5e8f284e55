package extract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
)

func pattern(vendorName, field, extracted, corrected string) entity.CorrectionPattern {
	return entity.CorrectionPattern{
		Vendor:         vendorName,
		Field:          field,
		ExtractedValue: extracted,
		CorrectedValue: corrected,
	}
}

func TestBuildHints(t *testing.T) {
	patterns := []entity.CorrectionPattern{
		pattern("Acme Corporation", "total_amount", "1100", "1150"),
		pattern("_global", "currency", "US", "USD"),
		pattern("Zeta Dynamics", "vendor_name", "Zeta", "Zeta Dynamics"),
	}

	hints := BuildHints("Acme Corp", patterns)

	// the similar spelling and the global pattern apply, the stranger does not
	require.Len(t, hints, 2)
	assert.Equal(t, "- Field 'total_amount': AI extracted '1100' but human corrected to '1150'.", hints[0])
	assert.Contains(t, hints[1], "'currency'")
}

func TestBuildHintsKeepsMostRecent(t *testing.T) {
	var patterns []entity.CorrectionPattern
	for i := 0; i < 14; i++ {
		patterns = append(patterns, pattern("_global", fmt.Sprintf("field_%d", i), "a", "b"))
	}

	hints := BuildHints("Acme Corp", patterns)

	require.Len(t, hints, 10)
	assert.Contains(t, hints[0], "field_4")
	assert.Contains(t, hints[9], "field_13")
}

func TestBuildHintsEmpty(t *testing.T) {
	assert.Empty(t, BuildHints("Acme Corp", nil))
	assert.Empty(t, BuildHints("Acme Corp", []entity.CorrectionPattern{
		pattern("Completely Unrelated Vendor", "total_amount", "1", "2"),
	}))
}
