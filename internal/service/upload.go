package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/anomaly"
	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/extract"
	"github.com/aivoralabs/auditlens/internal/repository"
	"github.com/aivoralabs/auditlens/internal/vendorpkg"
	"github.com/aivoralabs/auditlens/pkg/utils"
)

// UploadResult is what a single upload produced
type UploadResult struct {
	Document  entity.Document  `json:"document"`
	Match     *entity.Match    `json:"match,omitempty"`
	Anomalies []entity.Anomaly `json:"anomalies"`
	Triage    *entity.TriageDecision `json:"triage,omitempty"`
}

// Upload runs the full intake pipeline for one file: persist the upload,
// extract fields, store the document, then match, detect, and triage as
// the document type demands.
func (s *AuditService) Upload(ctx context.Context, fileName string, content []byte, typeOverride, activeRole string) (*UploadResult, error) {
	id := utils.NewRecordID()

	if err := s.saveFile(id, fileName, content); err != nil {
		return nil, err
	}

	text, err := extract.ReadText(fileName, content)
	if err != nil {
		return nil, fmt.Errorf("failed to read document text: %w", err)
	}

	if !s.policies.Snapshot().AutoDetectDocumentType && typeOverride == "" {
		typeOverride = entity.DocTypeInvoice
	}

	patterns, err := s.repos.Corrections.ListAll(ctx)
	if err != nil {
		s.logger.Warn("Failed to load correction patterns", zap.Error(err))
	}
	hints := extract.BuildHints(extract.VendorGuess(text), patterns)

	res, err := s.extractor.Extract(ctx, fileName, text, typeOverride, hints)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	doc := extract.Transform(id, fileName, res)

	result := &UploadResult{}
	err = s.withLock("vendor:"+doc.VendorNormalized, func() error {
		return s.db.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.repos.Documents.Create(ctx, &doc); err != nil {
				return err
			}
			s.logActivity(ctx, entity.ActionDocumentUploaded, &doc, map[string]interface{}{
				"type":       doc.Type,
				"confidence": doc.Confidence,
			})
			return s.processDocument(ctx, &doc, activeRole, result)
		})
	})
	if err != nil {
		return nil, err
	}

	result.Document = doc
	s.logger.Info("Document processed",
		zap.String("id", doc.ID),
		zap.String("type", doc.Type),
		zap.String("vendor", doc.Vendor),
		zap.Int("anomalies", len(result.Anomalies)))
	return result, nil
}

// processDocument routes a stored document through the type-specific
// downstream steps
func (s *AuditService) processDocument(ctx context.Context, doc *entity.Document, activeRole string, result *UploadResult) error {
	switch doc.Type {
	case entity.DocTypeInvoice:
		return s.processInvoice(ctx, doc, activeRole, result)
	case entity.DocTypePurchaseOrder:
		return s.processPurchaseOrder(ctx, doc, result)
	case entity.DocTypeCreditNote, entity.DocTypeDebitNote:
		return s.processNote(ctx, doc, result)
	default:
		return nil
	}
}

func (s *AuditService) processInvoice(ctx context.Context, doc *entity.Document, activeRole string, result *UploadResult) error {
	match, err := s.matchInvoice(ctx, doc)
	if err != nil {
		return err
	}
	result.Match = match

	found, err := s.detectForInvoice(ctx, doc, match)
	if err != nil {
		return err
	}
	result.Anomalies = found

	decision, err := s.triageInvoice(ctx, doc, match, found, activeRole)
	if err != nil {
		return err
	}
	result.Triage = decision
	return nil
}

func (s *AuditService) processPurchaseOrder(ctx context.Context, doc *entity.Document, result *UploadResult) error {
	contracts, err := s.repos.Documents.ListByType(ctx, entity.DocTypeContract)
	if err != nil {
		return err
	}
	contract := vendor.FindContract(doc.Vendor, contracts)

	detector := anomaly.NewDetector(s.policies.Snapshot(), s.logger)
	found := detector.CheckPOAgainstContract(*doc, contract)
	for i := range found {
		if err := s.repos.Anomalies.Create(ctx, &found[i]); err != nil {
			return err
		}
	}
	result.Anomalies = found
	if len(found) > 0 {
		s.logAnomalies(ctx, doc, found)
	}

	// A new purchase order may satisfy invoices that arrived before it
	return s.rematchInvoicesForPO(ctx, doc)
}

func (s *AuditService) processNote(ctx context.Context, doc *entity.Document, result *UploadResult) error {
	var original *entity.Document
	if doc.OriginalInvoiceRef != "" {
		found, err := s.repos.Documents.GetByNumber(ctx, entity.DocTypeInvoice, doc.OriginalInvoiceRef)
		if err != nil && err != repository.ErrNotFound {
			return err
		}
		original = found
	}

	detector := anomaly.NewDetector(s.policies.Snapshot(), s.logger)
	found := detector.CheckNote(*doc, original)
	for i := range found {
		if err := s.repos.Anomalies.Create(ctx, &found[i]); err != nil {
			return err
		}
	}
	result.Anomalies = found
	if len(found) > 0 {
		s.logAnomalies(ctx, doc, found)
	}
	return nil
}

func (s *AuditService) logAnomalies(ctx context.Context, doc *entity.Document, found []entity.Anomaly) {
	var totalRisk float64
	for _, a := range found {
		if a.AmountAtRisk > 0 {
			totalRisk += a.AmountAtRisk
		}
	}
	s.logActivity(ctx, entity.ActionAnomaliesDetected, doc, map[string]interface{}{
		"count":      len(found),
		"total_risk": totalRisk,
	})
}

func (s *AuditService) saveFile(id, fileName string, content []byte) error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", id, filepath.Base(fileName)))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}
