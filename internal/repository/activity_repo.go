package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/pkg/database"
)

// ActivityRepository persists the audit trail
type ActivityRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *database.DB, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

const activityColumns = `
	id, action, document_id, document_number, vendor, detail, performed_by,
	created_at`

// Append writes one audit trail entry
func (r *ActivityRepository) Append(ctx context.Context, e *entity.ActivityEntry) error {
	query := `INSERT INTO activity_log (` + activityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		e.ID, e.Action, e.DocumentID, e.DocumentNumber, e.Vendor,
		toJSON(e.Detail), e.PerformedBy, e.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append activity", zap.String("action", e.Action), zap.Error(err))
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]entity.ActivityEntry, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_log ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []entity.ActivityEntry
	for rows.Next() {
		var e entity.ActivityEntry
		var docID, docNumber, vendorName sql.NullString
		var detail string
		if err := rows.Scan(&e.ID, &e.Action, &docID, &docNumber, &vendorName,
			&detail, &e.PerformedBy, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.DocumentID = strOf(docID)
		e.DocumentNumber = strOf(docNumber)
		e.Vendor = strOf(vendorName)
		fromJSON(detail, &e.Detail)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
