package service

import (
	"context"
	"math"

	"github.com/aivoralabs/auditlens/internal/anomaly"
	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// detectForInvoice runs the full rule set for one invoice and stores the
// findings. The vendor risk profile is recomputed first so tolerances
// reflect the latest history.
func (s *AuditService) detectForInvoice(ctx context.Context, doc *entity.Document, match *entity.Match) ([]entity.Anomaly, error) {
	docs, err := s.repos.Documents.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	allAnomalies, err := s.repos.Anomalies.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	patterns, err := s.repos.Corrections.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	pol := s.policies.Snapshot()
	scorer := vendor.NewScorer(pol)
	prior, err := s.repos.Vendors.Get(ctx, vendor.Normalize(doc.Vendor))
	if err != nil {
		return nil, err
	}
	profile := scorer.Score(doc.Vendor, docs, allAnomalies, patterns, prior)
	if err := s.repos.Vendors.Save(ctx, &profile); err != nil {
		return nil, err
	}

	in := anomaly.Input{
		Invoice:    *doc,
		Match:      match,
		Tolerances: scorer.DynamicTolerances(profile),
	}

	if match != nil {
		po, err := s.repos.Documents.GetByID(ctx, match.POID)
		if err == nil {
			in.PO = po
		}
	}

	var contracts []entity.Document
	for _, d := range docs {
		switch d.Type {
		case entity.DocTypeContract:
			contracts = append(contracts, d)
		case entity.DocTypeInvoice:
			if d.ID != doc.ID && vendor.Similarity(doc.Vendor, d.Vendor) >= 0.7 {
				in.History = append(in.History, d)
			}
		}
	}
	in.Contract = vendor.FindContract(doc.Vendor, contracts)

	detector := anomaly.NewDetector(pol, s.logger)
	found := detector.Detect(in)
	persisted := found[:0:0]
	for i := range found {
		a := &found[i]
		// Mirrored findings land on other documents, whose open anomalies
		// were not cleared for this run. Skip ones already on record.
		if a.DocumentID != doc.ID && hasOpenTwin(allAnomalies, a) {
			continue
		}
		if err := s.repos.Anomalies.Create(ctx, a); err != nil {
			return nil, err
		}
		persisted = append(persisted, *a)
	}
	if len(persisted) > 0 {
		s.logAnomalies(ctx, doc, persisted)
	}
	return persisted, nil
}

func hasOpenTwin(existing []entity.Anomaly, a *entity.Anomaly) bool {
	for i := range existing {
		e := &existing[i]
		if e.DocumentID == a.DocumentID && e.Type == a.Type &&
			e.Description == a.Description && e.IsOpen() {
			return true
		}
	}
	return false
}

// AnomalySummary aggregates the anomaly backlog for the dashboard
type AnomalySummary struct {
	Total                int                `json:"total"`
	Open                 int                `json:"open"`
	Resolved             int                `json:"resolved"`
	Dismissed            int                `json:"dismissed"`
	TotalRisk            float64            `json:"total_risk"`
	SavingsOpportunities float64            `json:"savings_opportunities"`
	ByType               map[string]int     `json:"by_type"`
	BySeverity           map[string]int     `json:"by_severity"`
}

// ListAnomalies returns every anomaly plus the backlog summary
func (s *AuditService) ListAnomalies(ctx context.Context) ([]entity.Anomaly, AnomalySummary, error) {
	anomalies, err := s.repos.Anomalies.ListAll(ctx)
	if err != nil {
		return nil, AnomalySummary{}, err
	}

	summary := AnomalySummary{
		Total:      len(anomalies),
		ByType:     make(map[string]int),
		BySeverity: make(map[string]int),
	}
	for _, a := range anomalies {
		summary.ByType[a.Type]++
		summary.BySeverity[a.Severity]++
		switch a.Status {
		case entity.AnomalyStatusOpen:
			summary.Open++
			if a.IsSavings() {
				summary.SavingsOpportunities += math.Abs(a.AmountAtRisk)
			} else if a.AmountAtRisk > 0 {
				summary.TotalRisk += a.AmountAtRisk
			}
		case entity.AnomalyStatusResolved:
			summary.Resolved++
		case entity.AnomalyStatusDismissed:
			summary.Dismissed++
		}
	}
	summary.TotalRisk = math.Round(summary.TotalRisk*100) / 100
	summary.SavingsOpportunities = math.Round(summary.SavingsOpportunities*100) / 100
	return anomalies, summary, nil
}

// ResolveAnomaly closes an anomaly as handled
func (s *AuditService) ResolveAnomaly(ctx context.Context, id string) (*entity.Anomaly, error) {
	if err := s.repos.Anomalies.Resolve(ctx, id); err != nil {
		return nil, err
	}
	return s.repos.Anomalies.GetByID(ctx, id)
}

// DismissAnomaly closes an anomaly as a false positive
func (s *AuditService) DismissAnomaly(ctx context.Context, id string) (*entity.Anomaly, error) {
	if err := s.repos.Anomalies.Dismiss(ctx, id); err != nil {
		return nil, err
	}
	return s.repos.Anomalies.GetByID(ctx, id)
}
