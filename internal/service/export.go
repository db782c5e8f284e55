package service

import (
	"context"
	"fmt"

	"github.com/aivoralabs/auditlens/internal/export"
)

// ExportSnapshot collects the full audit state for export
func (s *AuditService) ExportSnapshot(ctx context.Context) (export.Snapshot, error) {
	var snap export.Snapshot

	docs, err := s.repos.Documents.ListAll(ctx)
	if err != nil {
		return snap, fmt.Errorf("export documents: %w", err)
	}
	matches, err := s.repos.Matches.ListAll(ctx)
	if err != nil {
		return snap, fmt.Errorf("export matches: %w", err)
	}
	anomalies, err := s.repos.Anomalies.ListAll(ctx)
	if err != nil {
		return snap, fmt.Errorf("export anomalies: %w", err)
	}
	decisions, err := s.repos.Triage.ListAll(ctx)
	if err != nil {
		return snap, fmt.Errorf("export triage decisions: %w", err)
	}

	snap.Documents = docs
	snap.Matches = matches
	snap.Anomalies = anomalies
	snap.Decisions = decisions
	return snap, nil
}
