package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
	"github.com/aivoralabs/auditlens/pkg/database"
)

// VendorRepository caches computed vendor risk profiles
type VendorRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *database.DB, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{db: db, logger: logger}
}

const vendorColumns = `
	vendor_normalized, vendor, risk_score, risk_level, risk_trend, factors,
	invoice_count, total_spend, open_anomaly_count, total_anomaly_count,
	updated_at`

// Save upserts a vendor's risk profile
func (r *VendorRepository) Save(ctx context.Context, p *entity.VendorRiskProfile) error {
	query := `INSERT INTO vendor_profiles (` + vendorColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vendor_normalized) DO UPDATE SET
			vendor = excluded.vendor,
			risk_score = excluded.risk_score,
			risk_level = excluded.risk_level,
			risk_trend = excluded.risk_trend,
			factors = excluded.factors,
			invoice_count = excluded.invoice_count,
			total_spend = excluded.total_spend,
			open_anomaly_count = excluded.open_anomaly_count,
			total_anomaly_count = excluded.total_anomaly_count,
			updated_at = excluded.updated_at`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		p.VendorNormalized, p.Vendor, p.Score, p.Level, p.Trend,
		toJSON(p.Factors), p.InvoiceCount, p.TotalSpend, p.OpenAnomalyCount,
		p.TotalAnomalyCount, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save vendor profile",
			zap.String("vendor", p.Vendor), zap.Error(err))
		return fmt.Errorf("failed to save vendor profile: %w", err)
	}
	return nil
}

// Get fetches a cached profile by normalized vendor name, or nil
func (r *VendorRepository) Get(ctx context.Context, vendorNormalized string) (*entity.VendorRiskProfile, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendor_profiles WHERE vendor_normalized = ?`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, vendorNormalized)
	p, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor profile: %w", err)
	}
	return p, nil
}

// ListAll returns every cached profile, riskiest first
func (r *VendorRepository) ListAll(ctx context.Context) ([]entity.VendorRiskProfile, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendor_profiles ORDER BY risk_score DESC`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor profiles: %w", err)
	}
	defer rows.Close()

	var profiles []entity.VendorRiskProfile
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (r *VendorRepository) scan(row rowScanner) (*entity.VendorRiskProfile, error) {
	var p entity.VendorRiskProfile
	var factors string

	err := row.Scan(
		&p.VendorNormalized, &p.Vendor, &p.Score, &p.Level, &p.Trend,
		&factors, &p.InvoiceCount, &p.TotalSpend, &p.OpenAnomalyCount,
		&p.TotalAnomalyCount, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fromJSON(factors, &p.Factors)
	return &p, nil
}
