package service

import (
	"context"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/matching"
)

// matchInvoice scores an invoice against every purchase order and stores
// the winning match. Fulfillment math runs under the purchase order lock
// so concurrent invoices against one PO see each other.
func (s *AuditService) matchInvoice(ctx context.Context, doc *entity.Document) (*entity.Match, error) {
	pos, err := s.repos.Documents.ListByType(ctx, entity.DocTypePurchaseOrder)
	if err != nil {
		return nil, err
	}
	if len(pos) == 0 {
		return nil, nil
	}
	grns, err := s.repos.Documents.ListByType(ctx, entity.DocTypeGoodsReceipt)
	if err != nil {
		return nil, err
	}

	matcher := matching.NewMatcher(s.policies.Snapshot())

	listOthers := func() ([]entity.Match, error) {
		existing, err := s.repos.Matches.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		others := existing[:0:0]
		for _, m := range existing {
			if m.InvoiceID != doc.ID {
				others = append(others, m)
			}
		}
		return others, nil
	}

	others, err := listOthers()
	if err != nil {
		return nil, err
	}
	candidate := matcher.Match(*doc, pos, grns, others)
	if candidate == nil {
		return nil, nil
	}

	// Fulfillment math must not interleave for one purchase order, so
	// the winning PO is locked and the invoice rescored under the lock.
	// A concurrent upload may have consumed the remaining amount and
	// shifted the best pick, in which case chase the new pick instead.
	poID := candidate.POID
	var match *entity.Match
	for attempt := 0; ; attempt++ {
		final := attempt >= 3
		created := false
		err = s.withLock("po:"+poID, func() error {
			others, err := listOthers()
			if err != nil {
				return err
			}
			match = matcher.Match(*doc, pos, grns, others)
			if match == nil {
				return nil
			}
			if !final && match.POID != poID {
				return nil
			}
			created = true
			return s.repos.Matches.Create(ctx, match)
		})
		if err != nil {
			return nil, err
		}
		if match == nil || created {
			return match, nil
		}
		poID = match.POID
	}
}

// rematchInvoicesForPO gives unmatched invoices another pass after a new
// purchase order arrives
func (s *AuditService) rematchInvoicesForPO(ctx context.Context, po *entity.Document) error {
	invoices, err := s.repos.Documents.ListByType(ctx, entity.DocTypeInvoice)
	if err != nil {
		return err
	}
	for i := range invoices {
		inv := &invoices[i]
		existing, err := s.repos.Matches.GetByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.matchInvoice(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// MatchSummary aggregates match records for the dashboard
type MatchSummary struct {
	Total        int `json:"total"`
	AutoMatched  int `json:"auto_matched"`
	ReviewNeeded int `json:"review_needed"`
}

// ListMatches returns every match plus a status summary
func (s *AuditService) ListMatches(ctx context.Context) ([]entity.Match, MatchSummary, error) {
	matches, err := s.repos.Matches.ListAll(ctx)
	if err != nil {
		return nil, MatchSummary{}, err
	}
	summary := MatchSummary{Total: len(matches)}
	for _, m := range matches {
		if m.Status == entity.MatchStatusAuto {
			summary.AutoMatched++
		} else {
			summary.ReviewNeeded++
		}
	}
	return matches, summary, nil
}

// ApproveMatch marks a review-needed match as accepted
func (s *AuditService) ApproveMatch(ctx context.Context, id string) (*entity.Match, error) {
	if err := s.repos.Matches.UpdateStatus(ctx, id, entity.MatchStatusAuto); err != nil {
		return nil, err
	}
	return s.repos.Matches.GetByID(ctx, id)
}

// RejectMatch removes a match the reviewer judged wrong
func (s *AuditService) RejectMatch(ctx context.Context, id string) error {
	return s.repos.Matches.Delete(ctx, id)
}
