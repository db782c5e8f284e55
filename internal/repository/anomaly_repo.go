package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/pkg/database"
)

// AnomalyRepository persists detected anomalies
type AnomalyRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewAnomalyRepository creates a new anomaly repository
func NewAnomalyRepository(db *database.DB, logger *zap.Logger) *AnomalyRepository {
	return &AnomalyRepository{db: db, logger: logger}
}

const anomalyColumns = `
	id, document_id, document_number, vendor, currency, type, severity,
	description, amount_at_risk, contract_clause, recommendation, status,
	detected_at, resolved_at, dismissed_at`

// Create inserts an anomaly record
func (r *AnomalyRepository) Create(ctx context.Context, a *entity.Anomaly) error {
	query := `INSERT INTO anomalies (` + anomalyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		a.ID, a.DocumentID, a.DocumentNumber, a.Vendor, a.Currency, a.Type,
		a.Severity, a.Description, a.AmountAtRisk, nullStr(a.ContractClause),
		nullStr(a.Recommendation), a.Status, a.DetectedAt,
		nullTime(a.ResolvedAt), nullTime(a.DismissedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create anomaly", zap.String("id", a.ID), zap.Error(err))
		return fmt.Errorf("failed to create anomaly: %w", err)
	}
	return nil
}

// Resolve closes an anomaly as handled
func (r *AnomalyRepository) Resolve(ctx context.Context, id string) error {
	return r.closeWith(ctx, id, entity.AnomalyStatusResolved, "resolved_at")
}

// Dismiss closes an anomaly as a false positive
func (r *AnomalyRepository) Dismiss(ctx context.Context, id string) error {
	return r.closeWith(ctx, id, entity.AnomalyStatusDismissed, "dismissed_at")
}

func (r *AnomalyRepository) closeWith(ctx context.Context, id, status, column string) error {
	query := fmt.Sprintf(`UPDATE anomalies SET status = ?, %s = ? WHERE id = ?`, column)
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to close anomaly: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOpenByDocument removes a document's open anomalies. Resolved and
// dismissed findings stay for the audit trail.
func (r *AnomalyRepository) DeleteOpenByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM anomalies WHERE document_id = ? AND status = ?`,
		documentID, entity.AnomalyStatusOpen)
	if err != nil {
		return fmt.Errorf("failed to delete open anomalies: %w", err)
	}
	return nil
}

// GetByID fetches one anomaly
func (r *AnomalyRepository) GetByID(ctx context.Context, id string) (*entity.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM anomalies WHERE id = ?`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id)
	a, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anomaly: %w", err)
	}
	return a, nil
}

// ListByDocument returns a document's anomalies, newest first
func (r *AnomalyRepository) ListByDocument(ctx context.Context, documentID string) ([]entity.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM anomalies WHERE document_id = ? ORDER BY detected_at DESC`
	return r.list(ctx, query, documentID)
}

// ListAll returns every anomaly, newest first
func (r *AnomalyRepository) ListAll(ctx context.Context) ([]entity.Anomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM anomalies ORDER BY detected_at DESC`
	return r.list(ctx, query)
}

func (r *AnomalyRepository) list(ctx context.Context, query string, args ...interface{}) ([]entity.Anomaly, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []entity.Anomaly
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, *a)
	}
	return anomalies, rows.Err()
}

func (r *AnomalyRepository) scan(row rowScanner) (*entity.Anomaly, error) {
	var a entity.Anomaly
	var clause, recommendation sql.NullString
	var resolvedAt, dismissedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.DocumentID, &a.DocumentNumber, &a.Vendor, &a.Currency,
		&a.Type, &a.Severity, &a.Description, &a.AmountAtRisk, &clause,
		&recommendation, &a.Status, &a.DetectedAt, &resolvedAt, &dismissedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ContractClause = strOf(clause)
	a.Recommendation = strOf(recommendation)
	a.ResolvedAt = timeOf(resolvedAt)
	a.DismissedAt = timeOf(dismissedAt)
	return &a, nil
}
