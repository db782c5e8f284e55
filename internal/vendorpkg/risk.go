package vendor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
)

// similarity floor for attributing documents to a vendor
const attributionThreshold = 0.7

// similarity floor for contract lookup
const contractThreshold = 0.6

// score movement inside this band is treated as noise for the trend
const trendEpsilon = 2.0

// Scorer computes vendor risk profiles from document history. Scoring is
// pure: the same inputs always yield the same profile.
type Scorer struct {
	pol policy.Policy
}

// NewScorer creates a scorer bound to a policy snapshot
func NewScorer(pol policy.Policy) *Scorer {
	return &Scorer{pol: pol}
}

// FindContract returns the best active or pending contract for a vendor,
// or nil when nothing scores above the lookup threshold
func FindContract(vendorName string, contracts []entity.Document) *entity.Document {
	var best *entity.Document
	bestSim := contractThreshold
	for i := range contracts {
		c := &contracts[i]
		if c.Type != entity.DocTypeContract {
			continue
		}
		if c.Status != entity.ContractStatusActive && c.Status != entity.ContractStatusPending {
			continue
		}
		if sim := Similarity(vendorName, c.Vendor); sim >= bestSim {
			bestSim = sim
			best = c
		}
	}
	return best
}

// Score builds the risk profile for a vendor. The caller passes the full
// document, anomaly, and correction collections plus the previously
// stored profile, or nil on first contact; attribution by fuzzy vendor
// similarity happens here.
func (s *Scorer) Score(vendorName string, docs []entity.Document, anomalies []entity.Anomaly, patterns []entity.CorrectionPattern, prior *entity.VendorRiskProfile) entity.VendorRiskProfile {
	now := time.Now()

	var invoices []entity.Document
	var contracts []entity.Document
	for _, d := range docs {
		switch d.Type {
		case entity.DocTypeInvoice:
			if Similarity(vendorName, d.Vendor) >= attributionThreshold {
				invoices = append(invoices, d)
			}
		case entity.DocTypeContract:
			contracts = append(contracts, d)
		}
	}

	contract := FindContract(vendorName, contracts)
	contractScore, contractDetail := s.contractFactor(contract, now)

	profile := entity.VendorRiskProfile{
		Vendor:           vendorName,
		VendorNormalized: Normalize(vendorName),
		UpdatedAt:        now,
		Factors:          make(map[string]entity.RiskFactor),
	}

	if len(invoices) == 0 {
		// New vendor: no billing history to judge, lean on contract posture
		score := round1(contractScore*s.pol.RiskWeight(policy.WeightContractCompliance) + 15)
		profile.Score = score
		profile.Level = entity.RiskLevelLow
		profile.Trend = entity.RiskTrendNew
		profile.Factors[policy.WeightContractCompliance] = entity.RiskFactor{
			Score:  round1(contractScore),
			Weight: s.pol.RiskWeight(policy.WeightContractCompliance),
			Detail: contractDetail,
		}
		return profile
	}

	invoiceIDs := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		invoiceIDs[inv.ID] = true
	}

	var vendorAnomalies []entity.Anomaly
	for _, a := range anomalies {
		if invoiceIDs[a.DocumentID] && !a.IsSavings() {
			vendorAnomalies = append(vendorAnomalies, a)
		}
	}

	anomalyScore, anomalyDetail, openCount := s.anomalyFactor(invoices, vendorAnomalies)
	correctionScore, correctionDetail := s.correctionFactor(vendorName, invoices, patterns)
	duplicateScore, duplicateDetail := s.duplicateFactor(vendorAnomalies)
	volumeScore, volumeDetail := s.volumeFactor(invoices)

	factors := map[string]entity.RiskFactor{
		policy.WeightAnomalyRate:         {Score: round1(anomalyScore), Detail: anomalyDetail},
		policy.WeightCorrectionFrequency: {Score: round1(correctionScore), Detail: correctionDetail},
		policy.WeightContractCompliance:  {Score: round1(contractScore), Detail: contractDetail},
		policy.WeightDuplicateHistory:    {Score: round1(duplicateScore), Detail: duplicateDetail},
		policy.WeightVolumeConsistency:   {Score: round1(volumeScore), Detail: volumeDetail},
	}

	var composite float64
	for key, f := range factors {
		f.Weight = s.pol.RiskWeight(key)
		factors[key] = f
		composite += f.Score * f.Weight
	}
	composite = round1(clamp(composite, 0, 100))

	var totalSpend float64
	for _, inv := range invoices {
		totalSpend += inv.Amount
	}

	profile.Score = composite
	profile.Level = s.levelFor(composite)
	profile.Trend = s.trendFor(composite, prior, invoices, vendorAnomalies)
	profile.InvoiceCount = len(invoices)
	profile.TotalSpend = round2(totalSpend)
	profile.OpenAnomalyCount = openCount
	profile.TotalAnomalyCount = len(vendorAnomalies)
	profile.Factors = factors
	return profile
}

// DynamicTolerances tightens the policy amount and price tolerances in
// proportion to vendor risk, never below 30 percent of the baseline
func (s *Scorer) DynamicTolerances(profile entity.VendorRiskProfile) entity.DynamicTolerances {
	tightening := (profile.Score / 100) * s.pol.RiskToleranceTightening
	factor := math.Max(0.3, 1-tightening)
	return entity.DynamicTolerances{
		AmountTolerancePct: round3(s.pol.AmountTolerancePct * factor),
		PriceTolerancePct:  round3(s.pol.PriceTolerancePct * factor),
		RiskAdjusted:       profile.Score > 15,
		RiskScore:          profile.Score,
		RiskLevel:          profile.Level,
	}
}

func (s *Scorer) anomalyFactor(invoices []entity.Document, vendorAnomalies []entity.Anomaly) (float64, string, int) {
	flagged := make(map[string]bool)
	var severityWeight float64
	openCount := 0
	for _, a := range vendorAnomalies {
		if !a.IsOpen() {
			continue
		}
		openCount++
		flagged[a.DocumentID] = true
		switch a.Severity {
		case entity.SeverityHigh:
			severityWeight += 3
		case entity.SeverityMedium:
			severityWeight += 1.5
		default:
			severityWeight += 0.5
		}
	}

	rate := float64(len(flagged)) / float64(len(invoices))
	severityAdj := math.Min(severityWeight/math.Max(float64(openCount), 1), 2.0)
	score := math.Min(100, rate*100*(1+severityAdj*0.5))
	detail := fmt.Sprintf("%d of %d invoices have open anomalies (%d open)", len(flagged), len(invoices), openCount)
	return score, detail, openCount
}

func (s *Scorer) correctionFactor(vendorName string, invoices []entity.Document, patterns []entity.CorrectionPattern) (float64, string) {
	count := 0
	for _, p := range patterns {
		if Similarity(vendorName, p.Vendor) >= attributionThreshold {
			count += p.CorrectionCount
		}
	}
	score := math.Min(100, float64(count)/float64(len(invoices))*40)
	detail := fmt.Sprintf("%d extraction corrections across %d invoices", count, len(invoices))
	return score, detail
}

func (s *Scorer) contractFactor(contract *entity.Document, now time.Time) (float64, string) {
	if contract == nil {
		return 55, "No contract on file; pricing unverified"
	}
	hasPricing := len(contract.PricingTerms) > 0

	var expiry string
	if contract.ContractTerms != nil {
		expiry = contract.ContractTerms.ExpiryDate
	}
	if expiry == "" {
		if hasPricing {
			return 20, "Contract has pricing terms but no expiry date"
		}
		return 35, "Contract on file without pricing terms"
	}

	expiryDate, err := time.Parse("2006-01-02", expiry)
	if err != nil {
		return 40, fmt.Sprintf("Contract expiry date unreadable: %q", expiry)
	}
	if expiryDate.Before(now) {
		daysExpired := now.Sub(expiryDate).Hours() / 24
		return math.Min(100, 60+daysExpired*0.2),
			fmt.Sprintf("Contract expired %d days ago", int(daysExpired))
	}
	if hasPricing {
		return 10, "Active contract with pricing terms"
	}
	return 25, "Active contract without pricing terms"
}

func (s *Scorer) duplicateFactor(vendorAnomalies []entity.Anomaly) (float64, string) {
	count := 0
	for _, a := range vendorAnomalies {
		if a.Type == entity.AnomalyDuplicateInvoice {
			count++
		}
	}
	if count == 0 {
		return 0, "No duplicate invoices detected"
	}
	return math.Min(100, float64(count)*30), fmt.Sprintf("%d duplicate invoice flags", count)
}

func (s *Scorer) volumeFactor(invoices []entity.Document) (float64, string) {
	if len(invoices) < 3 {
		return 40, "Insufficient data (fewer than 3 invoices)"
	}

	var sum float64
	for _, inv := range invoices {
		sum += inv.Subtotal
	}
	mean := sum / float64(len(invoices))
	if mean <= 0 {
		return 30, "Invoice amounts average to zero"
	}

	var variance float64
	for _, inv := range invoices {
		d := inv.Subtotal - mean
		variance += d * d
	}
	variance /= float64(len(invoices))
	cv := math.Sqrt(variance) / mean
	return math.Min(100, cv*60), fmt.Sprintf("Amount variation coefficient %.2f over %d invoices", cv, len(invoices))
}

// trend compares the open-anomaly rate of the three most recent invoices
// against the rest. Needs at least six invoices to say anything.
// trendFor compares the fresh score against the previously stored one.
// Movement inside the epsilon band falls back to the open-anomaly rate
// of the vendor's most recent invoices.
func (s *Scorer) trendFor(score float64, prior *entity.VendorRiskProfile, invoices []entity.Document, vendorAnomalies []entity.Anomaly) string {
	if prior != nil {
		switch delta := score - prior.Score; {
		case delta > trendEpsilon:
			return entity.RiskTrendWorsening
		case delta < -trendEpsilon:
			return entity.RiskTrendImproving
		}
	}
	return s.trend(invoices, vendorAnomalies)
}

func (s *Scorer) trend(invoices []entity.Document, vendorAnomalies []entity.Anomaly) string {
	if len(invoices) < 6 {
		return entity.RiskTrendStable
	}

	sorted := make([]entity.Document, len(invoices))
	copy(sorted, invoices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExtractedAt.Before(sorted[j].ExtractedAt)
	})

	flagged := make(map[string]bool)
	for _, a := range vendorAnomalies {
		if a.IsOpen() {
			flagged[a.DocumentID] = true
		}
	}

	openRate := func(docs []entity.Document) float64 {
		if len(docs) == 0 {
			return 0
		}
		n := 0
		for _, d := range docs {
			if flagged[d.ID] {
				n++
			}
		}
		return float64(n) / float64(len(docs))
	}

	older := openRate(sorted[:len(sorted)-3])
	recent := openRate(sorted[len(sorted)-3:])

	if recent > older*1.5 && recent > 0 {
		return entity.RiskTrendWorsening
	}
	if recent < older*0.5 {
		return entity.RiskTrendImproving
	}
	return entity.RiskTrendStable
}

func (s *Scorer) levelFor(score float64) string {
	if score >= s.pol.HighRiskThreshold {
		return entity.RiskLevelHigh
	}
	if score >= s.pol.MedRiskThreshold {
		return entity.RiskLevelMedium
	}
	return entity.RiskLevelLow
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
