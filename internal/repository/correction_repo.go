package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/pkg/database"
)

// up to this many learned patterns are retained; the oldest are pruned
const maxCorrectionPatterns = 200

// CorrectionRepository persists learned extraction correction patterns
type CorrectionRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCorrectionRepository creates a new correction repository
func NewCorrectionRepository(db *database.DB, logger *zap.Logger) *CorrectionRepository {
	return &CorrectionRepository{db: db, logger: logger}
}

const correctionColumns = `
	id, vendor, vendor_normalized, document_type, field, extracted_value,
	corrected_value, note, document_id, correction_count, learned_at`

// Learn records a correction. An identical pattern for the same vendor
// and field bumps its count instead of creating a duplicate.
func (r *CorrectionRepository) Learn(ctx context.Context, p *entity.CorrectionPattern) error {
	exec := r.db.Executor(ctx)

	var existingID string
	err := exec.QueryRowContext(ctx,
		`SELECT id FROM correction_patterns
		 WHERE vendor_normalized = ? AND field = ? AND extracted_value = ?`,
		p.VendorNormalized, p.Field, p.ExtractedValue,
	).Scan(&existingID)

	switch {
	case err == nil:
		_, err = exec.ExecContext(ctx,
			`UPDATE correction_patterns
			 SET correction_count = correction_count + 1, corrected_value = ?, learned_at = ?
			 WHERE id = ?`,
			p.CorrectedValue, p.LearnedAt, existingID)
		if err != nil {
			return fmt.Errorf("failed to bump correction pattern: %w", err)
		}
		return nil
	case err != sql.ErrNoRows:
		return fmt.Errorf("failed to look up correction pattern: %w", err)
	}

	query := `INSERT INTO correction_patterns (` + correctionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = exec.ExecContext(ctx, query,
		p.ID, p.Vendor, p.VendorNormalized, p.DocumentType, p.Field,
		p.ExtractedValue, p.CorrectedValue, p.Note, p.DocumentID,
		p.CorrectionCount, p.LearnedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create correction pattern",
			zap.String("field", p.Field), zap.Error(err))
		return fmt.Errorf("failed to create correction pattern: %w", err)
	}

	return r.prune(ctx)
}

// prune keeps the pattern store bounded, dropping the oldest first
func (r *CorrectionRepository) prune(ctx context.Context) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM correction_patterns WHERE id NOT IN (
			SELECT id FROM correction_patterns ORDER BY learned_at DESC LIMIT ?
		)`, maxCorrectionPatterns)
	if err != nil {
		return fmt.Errorf("failed to prune correction patterns: %w", err)
	}
	return nil
}

// ListAll returns every pattern, newest first
func (r *CorrectionRepository) ListAll(ctx context.Context) ([]entity.CorrectionPattern, error) {
	query := `SELECT ` + correctionColumns + ` FROM correction_patterns ORDER BY learned_at DESC`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list correction patterns: %w", err)
	}
	defer rows.Close()

	var patterns []entity.CorrectionPattern
	for rows.Next() {
		var p entity.CorrectionPattern
		if err := rows.Scan(&p.ID, &p.Vendor, &p.VendorNormalized,
			&p.DocumentType, &p.Field, &p.ExtractedValue, &p.CorrectedValue,
			&p.Note, &p.DocumentID, &p.CorrectionCount, &p.LearnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
