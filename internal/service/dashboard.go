package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
)

// AgingBucket is one band of the receivables aging report
type AgingBucket struct {
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// VendorSpend is one row of the top vendor table
type VendorSpend struct {
	Vendor       string  `json:"vendor"`
	TotalSpend   float64 `json:"total_spend"`
	InvoiceCount int     `json:"invoice_count"`
}

// Dashboard is the aggregate view for the operations home screen
type Dashboard struct {
	TotalDocuments  int     `json:"total_documents"`
	InvoiceCount    int     `json:"invoice_count"`
	POCount         int     `json:"po_count"`
	ContractCount   int     `json:"contract_count"`
	UnpaidCount     int     `json:"unpaid_count"`
	UnpaidTotal     float64 `json:"unpaid_total"`
	AvgConfidence   float64 `json:"avg_confidence"`
	VerifiedCount   int     `json:"verified_count"`
	PatternCount    int     `json:"correction_patterns"`
	DisputedCount   int     `json:"disputed_count"`
	OverInvoicedPOs int     `json:"over_invoiced_pos"`

	OpenAnomalies       int     `json:"open_anomalies"`
	HighSeverityOpen    int     `json:"high_severity_open"`
	TotalRisk           float64 `json:"total_risk"`
	EarlyPaymentSavings float64 `json:"early_payment_savings"`

	Aging     map[string]AgingBucket `json:"aging"`
	DueIn7    AgingBucket            `json:"due_in_7_days"`
	TopVendor []VendorSpend          `json:"top_vendors"`

	RecentActivity []entity.ActivityEntry `json:"recent_activity"`
}

// BuildDashboard assembles the aggregate view from current data
func (s *AuditService) BuildDashboard(ctx context.Context) (*Dashboard, error) {
	docs, err := s.repos.Documents.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	anomalies, err := s.repos.Anomalies.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := s.repos.Matches.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	patterns, err := s.repos.Corrections.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := s.repos.Activity.Recent(ctx, 10)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalDocuments: len(docs),
		PatternCount:   len(patterns),
		RecentActivity: activity,
		Aging: map[string]AgingBucket{
			"current": {}, "1_30": {}, "31_60": {}, "61_90": {}, "90_plus": {},
		},
	}

	now := time.Now()
	var confidenceSum float64
	spendByVendor := make(map[string]*VendorSpend)

	for i := range docs {
		doc := &docs[i]
		confidenceSum += doc.Confidence
		if doc.ManuallyVerified {
			d.VerifiedCount++
		}

		switch doc.Type {
		case entity.DocTypePurchaseOrder:
			d.POCount++
			continue
		case entity.DocTypeContract:
			d.ContractCount++
			continue
		case entity.DocTypeInvoice:
			d.InvoiceCount++
		default:
			continue
		}

		if doc.Status == entity.InvoiceStatusDisputed {
			d.DisputedCount++
		}
		if doc.Status == entity.InvoiceStatusPaid {
			continue
		}

		d.UnpaidCount++
		d.UnpaidTotal += doc.Amount

		spend := spendByVendor[doc.VendorNormalized]
		if spend == nil {
			spend = &VendorSpend{}
			spendByVendor[doc.VendorNormalized] = spend
		}
		// Show the longest spelling seen for this vendor
		if len(doc.Vendor) > len(spend.Vendor) {
			spend.Vendor = doc.Vendor
		}
		spend.TotalSpend += doc.Amount
		spend.InvoiceCount++

		if doc.EarlyPaymentDiscount != nil && doc.EarlyPaymentDiscount.DiscountPercent > 0 {
			d.EarlyPaymentSavings += doc.Subtotal * doc.EarlyPaymentDiscount.DiscountPercent / 100
		}

		s.bucketByDueDate(d, doc, now)
	}

	if len(docs) > 0 {
		d.AvgConfidence = math.Round(confidenceSum/float64(len(docs))*10) / 10
	}

	for _, a := range anomalies {
		if !a.IsOpen() {
			continue
		}
		d.OpenAnomalies++
		if a.Severity == entity.SeverityHigh {
			d.HighSeverityOpen++
		}
		if !a.IsSavings() && a.AmountAtRisk > 0 {
			d.TotalRisk += a.AmountAtRisk
		}
	}

	for _, m := range matches {
		if m.OverInvoiced {
			d.OverInvoicedPOs++
		}
	}

	d.TopVendor = topVendors(spendByVendor, 5)
	d.UnpaidTotal = round2(d.UnpaidTotal)
	d.TotalRisk = round2(d.TotalRisk)
	d.EarlyPaymentSavings = round2(d.EarlyPaymentSavings)
	return d, nil
}

func (s *AuditService) bucketByDueDate(d *Dashboard, doc *entity.Document, now time.Time) {
	if doc.DueDate == "" {
		return
	}
	due, err := time.Parse("2006-01-02", doc.DueDate)
	if err != nil {
		return
	}

	if until := due.Sub(now).Hours() / 24; until >= 0 && until <= 7 {
		d.DueIn7.Count++
		d.DueIn7.Amount = round2(d.DueIn7.Amount + doc.Amount)
	}

	overdue := int(now.Sub(due).Hours() / 24)
	var key string
	switch {
	case overdue <= 0:
		key = "current"
	case overdue <= 30:
		key = "1_30"
	case overdue <= 60:
		key = "31_60"
	case overdue <= 90:
		key = "61_90"
	default:
		key = "90_plus"
	}
	bucket := d.Aging[key]
	bucket.Count++
	bucket.Amount = round2(bucket.Amount + doc.Amount)
	d.Aging[key] = bucket
}

func topVendors(spend map[string]*VendorSpend, n int) []VendorSpend {
	ranked := make([]VendorSpend, 0, len(spend))
	for _, v := range spend {
		v.TotalSpend = round2(v.TotalSpend)
		ranked = append(ranked, *v)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].TotalSpend > ranked[j].TotalSpend
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
