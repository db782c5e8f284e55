package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupRole(t *testing.T) {
	assert.Equal(t, "AP Manager", LookupRole("manager").Title)
	assert.Equal(t, 4, LookupRole("cfo").Level)

	// unknown keys fall back to the default role
	assert.Equal(t, DefaultRole, LookupRole("intern").Key)
}

func TestRoleLimit(t *testing.T) {
	analyst := LookupRole("analyst")
	assert.Equal(t, 10000.0, analyst.Limit("USD"))
	assert.Equal(t, 8000.0, analyst.Limit("EUR"))
	// unknown currency uses the default ceiling
	assert.Equal(t, 10000.0, analyst.Limit("SGD"))
}

func TestRequiredApprover(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		expected string
	}{
		{"small amount needs analyst", 5000, "USD", "analyst"},
		{"at analyst ceiling stays analyst", 10000, "USD", "analyst"},
		{"mid amount needs manager", 50000, "USD", "manager"},
		{"large amount needs vp", 250000, "USD", "vp"},
		{"very large amount needs cfo", 750000, "USD", "cfo"},
		{"euro thresholds differ", 9000, "EUR", "manager"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RequiredApprover(tt.amount, tt.currency).Key)
		})
	}
}
