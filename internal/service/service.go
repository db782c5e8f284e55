package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/extract"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/internal/repository"
	"github.com/aivoralabs/auditlens/pkg/database"
	"github.com/aivoralabs/auditlens/pkg/utils"
)

// Repos bundles every repository the audit service reads and writes
type Repos struct {
	Documents   *repository.DocumentRepository
	Matches     *repository.MatchRepository
	Anomalies   *repository.AnomalyRepository
	Triage      *repository.TriageRepository
	Vendors     *repository.VendorRepository
	Activity    *repository.ActivityRepository
	Corrections *repository.CorrectionRepository
}

// AuditService orchestrates the document pipeline: extraction, matching,
// anomaly detection, vendor risk, and triage
type AuditService struct {
	db        *database.DB
	repos     Repos
	policies  *policy.Engine
	extractor *extract.Extractor
	uploadDir string
	logger    *zap.Logger

	// per-key serialization for vendor histories and PO fulfillment
	locks sync.Map
}

// New creates the audit service
func New(db *database.DB, repos Repos, policies *policy.Engine, extractor *extract.Extractor, uploadDir string, logger *zap.Logger) *AuditService {
	return &AuditService{
		db:        db,
		repos:     repos,
		policies:  policies,
		extractor: extractor,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// withLock serializes work on one key. Concurrent uploads for the same
// vendor or purchase order must not interleave their read-modify-write.
func (s *AuditService) withLock(key string, fn func() error) error {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// Policy returns the active policy snapshot
func (s *AuditService) Policy() policy.Policy {
	return s.policies.Snapshot()
}

// UpdatePolicy applies a partial policy change and reports applied fields
func (s *AuditService) UpdatePolicy(changes map[string]interface{}) (policy.Policy, []string) {
	return s.policies.Update(changes)
}

// ApplyPolicyPreset swaps in a named preset
func (s *AuditService) ApplyPolicyPreset(name string) (policy.Policy, error) {
	return s.policies.ApplyPreset(name)
}

func (s *AuditService) logActivity(ctx context.Context, action string, doc *entity.Document, detail map[string]interface{}) {
	entry := &entity.ActivityEntry{
		ID:          utils.NewEventID(),
		Action:      action,
		PerformedBy: "System",
		Detail:      detail,
		Timestamp:   time.Now(),
	}
	if doc != nil {
		entry.DocumentID = doc.ID
		entry.DocumentNumber = doc.Number
		entry.Vendor = doc.Vendor
	}
	if err := s.repos.Activity.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to record activity", zap.String("action", action), zap.Error(err))
	}
}
