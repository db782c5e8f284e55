package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/pkg/database"
)

// MatchRepository persists invoice-to-purchase-order match records
type MatchRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB, logger *zap.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

const matchColumns = `
	id, invoice_id, invoice_number, invoice_amount, invoice_subtotal, vendor,
	po_id, po_number, po_amount, match_score, signals, amount_difference,
	status, po_already_invoiced, po_remaining, po_invoice_count,
	over_invoiced, match_type, grn_status, grn_ids, grn_numbers,
	total_received, grn_line_items, received_date, matched_at`

// Create inserts a match record
func (r *MatchRepository) Create(ctx context.Context, m *entity.Match) error {
	query := `INSERT INTO matches (` + matchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		m.ID, m.InvoiceID, m.InvoiceNumber, m.InvoiceAmount, m.InvoiceSubtotal,
		m.Vendor, m.POID, m.PONumber, m.POAmount, m.MatchScore,
		toJSON(m.Signals), m.AmountDifference, m.Status, m.POAlreadyInvoiced,
		m.PORemaining, m.POInvoiceCount, m.OverInvoiced, m.MatchType,
		m.GRNStatus, toJSON(m.GRNIDs), toJSON(m.GRNNumbers), m.TotalReceived,
		toJSON(m.GRNLineItems), nullStr(m.ReceivedDate), m.MatchedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create match", zap.String("id", m.ID), zap.Error(err))
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// UpdateStatus moves a match between review states
func (r *MatchRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE matches SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a match record
func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByInvoice removes every match pointing at an invoice
func (r *MatchRepository) DeleteByInvoice(ctx context.Context, invoiceID string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM matches WHERE invoice_id = ?`, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for invoice: %w", err)
	}
	return nil
}

// DeleteByPO removes every match pointing at a purchase order
func (r *MatchRepository) DeleteByPO(ctx context.Context, poID string) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM matches WHERE po_id = ?`, poID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for purchase order: %w", err)
	}
	return nil
}

// GetByID fetches one match
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = ?`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id)
	m, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// GetByInvoice fetches the match for an invoice, or nil when unmatched
func (r *MatchRepository) GetByInvoice(ctx context.Context, invoiceID string) (*entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE invoice_id = ? ORDER BY matched_at DESC LIMIT 1`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, invoiceID)
	m, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match for invoice: %w", err)
	}
	return m, nil
}

// ListAll returns every match, newest first
func (r *MatchRepository) ListAll(ctx context.Context) ([]entity.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY matched_at DESC`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []entity.Match
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (r *MatchRepository) scan(row rowScanner) (*entity.Match, error) {
	var m entity.Match
	var signals, grnIDs, grnNumbers, grnLineItems string
	var receivedDate sql.NullString

	err := row.Scan(
		&m.ID, &m.InvoiceID, &m.InvoiceNumber, &m.InvoiceAmount,
		&m.InvoiceSubtotal, &m.Vendor, &m.POID, &m.PONumber, &m.POAmount,
		&m.MatchScore, &signals, &m.AmountDifference, &m.Status,
		&m.POAlreadyInvoiced, &m.PORemaining, &m.POInvoiceCount,
		&m.OverInvoiced, &m.MatchType, &m.GRNStatus, &grnIDs, &grnNumbers,
		&m.TotalReceived, &grnLineItems, &receivedDate, &m.MatchedAt,
	)
	if err != nil {
		return nil, err
	}

	fromJSON(signals, &m.Signals)
	fromJSON(grnIDs, &m.GRNIDs)
	fromJSON(grnNumbers, &m.GRNNumbers)
	fromJSON(grnLineItems, &m.GRNLineItems)
	m.ReceivedDate = strOf(receivedDate)
	return &m, nil
}
