package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/internal/triage"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
)

// triageInvoice classifies an invoice, stores the decision, and applies
// the resulting status change when the invoice is in a managed state
func (s *AuditService) triageInvoice(ctx context.Context, doc *entity.Document, match *entity.Match, anomalies []entity.Anomaly, activeRole string) (*entity.TriageDecision, error) {
	profile, err := s.repos.Vendors.Get(ctx, doc.VendorNormalized)
	if err != nil {
		return nil, err
	}
	riskSummary := entity.VendorRiskSummary{Level: entity.RiskLevelLow, Trend: entity.RiskTrendNew}
	if profile != nil {
		riskSummary = entity.VendorRiskSummary{
			Score: profile.Score,
			Level: profile.Level,
			Trend: profile.Trend,
		}
	}

	classifier := triage.NewClassifier(s.policies.Snapshot())
	decision := classifier.Classify(triage.Input{
		Invoice:    *doc,
		Match:      match,
		Anomalies:  anomalies,
		VendorRisk: riskSummary,
		ActiveRole: policy.LookupRole(activeRole),
	})

	// A pinned human override survives reclassification. It stays on the
	// fresh decision until a later override replaces it.
	prev, err := s.repos.Triage.GetByInvoice(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.Override != nil {
		decision.Override = prev.Override
		decision.Lane = prev.Override.Lane
	}

	if err := s.repos.Triage.Save(ctx, &decision); err != nil {
		return nil, err
	}
	if err := s.applyTriage(ctx, doc, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// applyTriage moves the invoice status for the assigned lane. Terminal
// and externally managed statuses are left alone.
func (s *AuditService) applyTriage(ctx context.Context, doc *entity.Document, decision *entity.TriageDecision) error {
	if !triage.CanApply(doc.Status) {
		return nil
	}
	next := triage.StatusForLane(decision.Lane)
	if next == doc.Status {
		return nil
	}
	doc.Status = next
	if err := s.repos.Documents.Update(ctx, doc); err != nil {
		return err
	}

	reasons := decision.Reasons
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	s.logActivity(ctx, triage.ActivityAction(decision.Lane), doc, map[string]interface{}{
		"lane":    decision.Lane,
		"reasons": reasons,
	})
	return nil
}

// RetriageInvoice reruns classification for one invoice on demand
func (s *AuditService) RetriageInvoice(ctx context.Context, invoiceID, activeRole string) (*entity.TriageDecision, error) {
	doc, err := s.repos.Documents.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if doc.Type != entity.DocTypeInvoice {
		return nil, fmt.Errorf("document %s is not an invoice", invoiceID)
	}

	match, err := s.repos.Matches.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	anomalies, err := s.repos.Anomalies.ListByDocument(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	var decision *entity.TriageDecision
	err = s.withLock("vendor:"+doc.VendorNormalized, func() error {
		return s.db.WithTransaction(ctx, func(ctx context.Context) error {
			// Refresh the risk profile so the decision sees current history
			if _, err := s.detectProfileOnly(ctx, doc); err != nil {
				return err
			}
			d, err := s.triageInvoice(ctx, doc, match, anomalies, activeRole)
			if err != nil {
				return err
			}
			decision = d
			return nil
		})
	})
	return decision, err
}

// detectProfileOnly recomputes and caches the vendor risk profile without
// running anomaly rules
func (s *AuditService) detectProfileOnly(ctx context.Context, doc *entity.Document) (*entity.VendorRiskProfile, error) {
	docs, err := s.repos.Documents.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	anomalies, err := s.repos.Anomalies.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	patterns, err := s.repos.Corrections.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	scorer := vendor.NewScorer(s.policies.Snapshot())
	prior, err := s.repos.Vendors.Get(ctx, vendor.Normalize(doc.Vendor))
	if err != nil {
		return nil, err
	}
	profile := scorer.Score(doc.Vendor, docs, anomalies, patterns, prior)
	if err := s.repos.Vendors.Save(ctx, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// OverrideTriage pins a human decision over the classifier's lane
func (s *AuditService) OverrideTriage(ctx context.Context, invoiceID, lane, reason, actor string) (*entity.TriageDecision, error) {
	if lane != entity.LaneAutoApprove && lane != entity.LaneReview && lane != entity.LaneBlock {
		return nil, fmt.Errorf("invalid triage lane: %s", lane)
	}

	doc, err := s.repos.Documents.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	decision, err := s.repos.Triage.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, fmt.Errorf("invoice %s has not been triaged", invoiceID)
	}

	decision.Lane = lane
	decision.Override = &entity.Override{
		Lane:   lane,
		Reason: reason,
		Actor:  actor,
		At:     time.Now(),
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Triage.Save(ctx, decision); err != nil {
			return err
		}
		if err := s.applyTriage(ctx, doc, decision); err != nil {
			return err
		}
		s.logActivity(ctx, entity.ActionTriageOverride, doc, map[string]interface{}{
			"lane":   lane,
			"reason": reason,
			"actor":  actor,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// GetTriageDecision returns the stored decision for an invoice
func (s *AuditService) GetTriageDecision(ctx context.Context, invoiceID string) (*entity.TriageDecision, error) {
	return s.repos.Triage.GetByInvoice(ctx, invoiceID)
}

// ListTriageDecisions returns every stored decision
func (s *AuditService) ListTriageDecisions(ctx context.Context) ([]entity.TriageDecision, error) {
	return s.repos.Triage.ListAll(ctx)
}
