package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/pkg/database"
)

// DocumentRepository persists uploaded documents of every type
type DocumentRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

const documentColumns = `
	id, doc_type, document_name, number, vendor, vendor_normalized, currency,
	subtotal, total_tax, amount, issue_date, due_date, delivery_date,
	received_date, received_by, po_reference, original_invoice_ref,
	payment_terms, notes, status, confidence, confidence_factors,
	extraction_source, extracted_at, line_items, tax_details, pricing_terms,
	contract_terms, parties, early_payment_discount, uploaded_file,
	manually_verified, verified_at, edit_history`

// Create inserts a document record
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query, r.writeArgs(doc)...)
	if err != nil {
		r.logger.Error("Failed to create document", zap.String("id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// Update rewrites every mutable column of a document
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	query := `UPDATE documents SET
		doc_type = ?, document_name = ?, number = ?, vendor = ?,
		vendor_normalized = ?, currency = ?, subtotal = ?, total_tax = ?,
		amount = ?, issue_date = ?, due_date = ?, delivery_date = ?,
		received_date = ?, received_by = ?, po_reference = ?,
		original_invoice_ref = ?, payment_terms = ?, notes = ?, status = ?,
		confidence = ?, confidence_factors = ?, extraction_source = ?,
		extracted_at = ?, line_items = ?, tax_details = ?, pricing_terms = ?,
		contract_terms = ?, parties = ?, early_payment_discount = ?,
		uploaded_file = ?, manually_verified = ?, verified_at = ?,
		edit_history = ?
		WHERE id = ?`

	args := append(r.writeArgs(doc)[1:], doc.ID)
	res, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update document", zap.String("id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to update document: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches one document
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id)
	doc, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// GetByNumber fetches a document by its business number within a type
func (r *DocumentRepository) GetByNumber(ctx context.Context, docType, number string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE doc_type = ? AND number = ? LIMIT 1`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, docType, number)
	doc, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document by number: %w", err)
	}
	return doc, nil
}

// ListByType returns every document of one type, newest first
func (r *DocumentRepository) ListByType(ctx context.Context, docType string) ([]entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE doc_type = ? ORDER BY extracted_at DESC`
	return r.list(ctx, query, docType)
}

// ListAll returns every document, newest first
func (r *DocumentRepository) ListAll(ctx context.Context) ([]entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY extracted_at DESC`
	return r.list(ctx, query)
}

func (r *DocumentRepository) list(ctx context.Context, query string, args ...interface{}) ([]entity.Document, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		doc, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *DocumentRepository) writeArgs(doc *entity.Document) []interface{} {
	return []interface{}{
		doc.ID, doc.Type, doc.DocumentName, doc.Number, doc.Vendor,
		doc.VendorNormalized, doc.Currency, doc.Subtotal, doc.TotalTax,
		doc.Amount, nullStr(doc.IssueDate), nullStr(doc.DueDate),
		nullStr(doc.DeliveryDate), nullStr(doc.ReceivedDate),
		nullStr(doc.ReceivedBy), nullStr(doc.POReference),
		nullStr(doc.OriginalInvoiceRef), nullStr(doc.PaymentTerms),
		nullStr(doc.Notes), doc.Status, doc.Confidence,
		toJSON(doc.ConfidenceFactors), doc.ExtractionSource, doc.ExtractedAt,
		toJSON(doc.LineItems), toJSON(doc.TaxDetails),
		toJSON(doc.PricingTerms), toJSON(doc.ContractTerms),
		toJSON(doc.Parties), toJSON(doc.EarlyPaymentDiscount),
		doc.UploadedFile, doc.ManuallyVerified, nullTime(doc.VerifiedAt),
		toJSON(doc.EditHistory),
	}
}

func (r *DocumentRepository) scan(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	var issueDate, dueDate, deliveryDate, receivedDate sql.NullString
	var receivedBy, poRef, origRef, payTerms, notes sql.NullString
	var factors, lineItems, taxDetails, pricingTerms, contractTerms, parties, epd, editHistory string
	var verifiedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.Type, &doc.DocumentName, &doc.Number, &doc.Vendor,
		&doc.VendorNormalized, &doc.Currency, &doc.Subtotal, &doc.TotalTax,
		&doc.Amount, &issueDate, &dueDate, &deliveryDate, &receivedDate,
		&receivedBy, &poRef, &origRef, &payTerms, &notes, &doc.Status,
		&doc.Confidence, &factors, &doc.ExtractionSource, &doc.ExtractedAt,
		&lineItems, &taxDetails, &pricingTerms, &contractTerms, &parties,
		&epd, &doc.UploadedFile, &doc.ManuallyVerified, &verifiedAt,
		&editHistory,
	)
	if err != nil {
		return nil, err
	}

	doc.IssueDate = strOf(issueDate)
	doc.DueDate = strOf(dueDate)
	doc.DeliveryDate = strOf(deliveryDate)
	doc.ReceivedDate = strOf(receivedDate)
	doc.ReceivedBy = strOf(receivedBy)
	doc.POReference = strOf(poRef)
	doc.OriginalInvoiceRef = strOf(origRef)
	doc.PaymentTerms = strOf(payTerms)
	doc.Notes = strOf(notes)
	doc.VerifiedAt = timeOf(verifiedAt)

	fromJSON(factors, &doc.ConfidenceFactors)
	fromJSON(lineItems, &doc.LineItems)
	fromJSON(taxDetails, &doc.TaxDetails)
	fromJSON(pricingTerms, &doc.PricingTerms)
	fromJSON(contractTerms, &doc.ContractTerms)
	fromJSON(parties, &doc.Parties)
	fromJSON(epd, &doc.EarlyPaymentDiscount)
	fromJSON(editHistory, &doc.EditHistory)

	return &doc, nil
}
