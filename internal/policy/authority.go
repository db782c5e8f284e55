package policy

// Role is one rung of the approval authority ladder
type Role struct {
	Key    string             `json:"role"`
	Title  string             `json:"title"`
	Level  int                `json:"level"`
	Limits map[string]float64 `json:"limits"`
}

// DefaultRole is assumed when a request carries no role header
const DefaultRole = "analyst"

const unlimitedApproval = 999999999

// AuthorityMatrix returns the approval ladder ordered by level
func AuthorityMatrix() []Role {
	return []Role{
		{
			Key:   "analyst",
			Title: "AP Analyst",
			Level: 1,
			Limits: map[string]float64{
				"USD":     10000,
				"EUR":     8000,
				"GBP":     7000,
				"INR":     800000,
				"default": 10000,
			},
		},
		{
			Key:   "manager",
			Title: "AP Manager",
			Level: 2,
			Limits: map[string]float64{
				"USD":     100000,
				"EUR":     85000,
				"GBP":     75000,
				"INR":     8000000,
				"default": 100000,
			},
		},
		{
			Key:   "vp",
			Title: "VP Finance",
			Level: 3,
			Limits: map[string]float64{
				"USD":     500000,
				"EUR":     425000,
				"GBP":     375000,
				"INR":     40000000,
				"default": 500000,
			},
		},
		{
			Key:   "cfo",
			Title: "CFO",
			Level: 4,
			Limits: map[string]float64{
				"USD":     unlimitedApproval,
				"EUR":     unlimitedApproval,
				"GBP":     unlimitedApproval,
				"INR":     unlimitedApproval,
				"default": unlimitedApproval,
			},
		},
	}
}

// LookupRole finds a role by key, falling back to the default role
func LookupRole(key string) Role {
	matrix := AuthorityMatrix()
	for _, r := range matrix {
		if r.Key == key {
			return r
		}
	}
	for _, r := range matrix {
		if r.Key == DefaultRole {
			return r
		}
	}
	return matrix[0]
}

// Limit returns the role's approval ceiling for a currency
func (r Role) Limit(currency string) float64 {
	if limit, ok := r.Limits[currency]; ok {
		return limit
	}
	return r.Limits["default"]
}

// RequiredApprover walks the ladder bottom-up and returns the first role
// whose limit covers the amount. Amounts beyond every limit land on the
// top role.
func RequiredApprover(amount float64, currency string) Role {
	matrix := AuthorityMatrix()
	for _, r := range matrix {
		if amount <= r.Limit(currency) {
			return r
		}
	}
	return matrix[len(matrix)-1]
}
