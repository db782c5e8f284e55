package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/internal/policy"
	"github.com/aivoralabs/auditlens/pkg/database"
)

// TriageRepository persists triage decisions, one per invoice
type TriageRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewTriageRepository creates a new triage repository
func NewTriageRepository(db *database.DB, logger *zap.Logger) *TriageRepository {
	return &TriageRepository{db: db, logger: logger}
}

const triageColumns = `
	id, invoice_id, lane, reasons, confidence, vendor_risk, anomaly_summary,
	match_quality, auto_action, active_role, required_approver, overridden,
	override_reason, override_actor, overridden_at, decided_at`

// Save stores a decision, replacing any prior decision for the invoice
func (r *TriageRepository) Save(ctx context.Context, d *entity.TriageDecision) error {
	exec := r.db.Executor(ctx)
	if _, err := exec.ExecContext(ctx,
		`DELETE FROM triage_decisions WHERE invoice_id = ?`, d.InvoiceID); err != nil {
		return fmt.Errorf("failed to replace triage decision: %w", err)
	}

	overridden := d.Override != nil
	var reason, actor sql.NullString
	var at sql.NullTime
	if overridden {
		reason = nullStr(d.Override.Reason)
		actor = nullStr(d.Override.Actor)
		at = sql.NullTime{Time: d.Override.At, Valid: true}
	}

	query := `INSERT INTO triage_decisions (` + triageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, query,
		d.ID, d.InvoiceID, d.Lane, toJSON(d.Reasons), d.Confidence,
		toJSON(d.VendorRisk), toJSON(d.AnomalySummary), d.MatchQuality,
		d.AutoAction, d.ActiveRole, toJSON(d.RequiredApprover), overridden,
		reason, actor, at, d.TriageAt,
	)
	if err != nil {
		r.logger.Error("Failed to save triage decision",
			zap.String("invoice_id", d.InvoiceID), zap.Error(err))
		return fmt.Errorf("failed to save triage decision: %w", err)
	}
	return nil
}

// GetByInvoice fetches the decision for an invoice, or nil when untriaged
func (r *TriageRepository) GetByInvoice(ctx context.Context, invoiceID string) (*entity.TriageDecision, error) {
	query := `SELECT ` + triageColumns + ` FROM triage_decisions WHERE invoice_id = ?`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, invoiceID)
	d, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get triage decision: %w", err)
	}
	return d, nil
}

// ListAll returns every decision, newest first
func (r *TriageRepository) ListAll(ctx context.Context) ([]entity.TriageDecision, error) {
	query := `SELECT ` + triageColumns + ` FROM triage_decisions ORDER BY decided_at DESC`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list triage decisions: %w", err)
	}
	defer rows.Close()

	var decisions []entity.TriageDecision
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan triage decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

func (r *TriageRepository) scan(row rowScanner) (*entity.TriageDecision, error) {
	var d entity.TriageDecision
	var reasons, vendorRisk, anomalySummary, approver string
	var overridden bool
	var reason, actor sql.NullString
	var at sql.NullTime

	err := row.Scan(
		&d.ID, &d.InvoiceID, &d.Lane, &reasons, &d.Confidence, &vendorRisk,
		&anomalySummary, &d.MatchQuality, &d.AutoAction, &d.ActiveRole,
		&approver, &overridden, &reason, &actor, &at, &d.TriageAt,
	)
	if err != nil {
		return nil, err
	}

	fromJSON(reasons, &d.Reasons)
	fromJSON(vendorRisk, &d.VendorRisk)
	fromJSON(anomalySummary, &d.AnomalySummary)
	fromJSON(approver, &d.RequiredApprover)
	d.ActiveRoleTitle = policy.LookupRole(d.ActiveRole).Title
	if overridden && at.Valid {
		d.Override = &entity.Override{
			Lane:   d.Lane,
			Reason: strOf(reason),
			Actor:  strOf(actor),
			At:     at.Time,
		}
	}
	return &d, nil
}
