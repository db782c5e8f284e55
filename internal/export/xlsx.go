package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aivoralabs/auditlens/internal/domain/entity"
)

// Snapshot is everything that goes into an export workbook
type Snapshot struct {
	Documents []entity.Document
	Matches   []entity.Match
	Anomalies []entity.Anomaly
	Decisions []entity.TriageDecision
}

// Workbook renders the current audit state as a spreadsheet, one sheet
// per record kind
func Workbook(snap Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeDocuments(f, snap.Documents); err != nil {
		return nil, err
	}
	if err := writeMatches(f, snap.Matches); err != nil {
		return nil, err
	}
	if err := writeAnomalies(f, snap.Anomalies); err != nil {
		return nil, err
	}
	if err := writeTriage(f, snap.Decisions); err != nil {
		return nil, err
	}

	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Documents"); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func writeSheet(f *excelize.File, name string, header []interface{}, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, name, err)
		}
	}
	return nil
}

func writeDocuments(f *excelize.File, docs []entity.Document) error {
	header := []interface{}{
		"ID", "Type", "Number", "Vendor", "Currency", "Subtotal", "Tax",
		"Amount", "Issue Date", "Due Date", "Status", "Confidence", "Extracted At",
	}
	rows := make([][]interface{}, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []interface{}{
			d.ID, d.Type, d.Number, d.Vendor, d.Currency, d.Subtotal,
			d.TotalTax, d.Amount, d.IssueDate, d.DueDate, d.Status,
			d.Confidence, d.ExtractedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return writeSheet(f, "Documents", header, rows)
}

func writeMatches(f *excelize.File, matches []entity.Match) error {
	header := []interface{}{
		"ID", "Invoice", "PO", "Score", "Signals", "Status", "Match Type",
		"GRN Status", "Invoice Subtotal", "PO Amount", "PO Remaining", "Over Invoiced",
	}
	rows := make([][]interface{}, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []interface{}{
			m.ID, m.InvoiceNumber, m.PONumber, m.MatchScore,
			strings.Join(m.Signals, ", "), m.Status, m.MatchType,
			m.GRNStatus, m.InvoiceSubtotal, m.POAmount, m.PORemaining,
			m.OverInvoiced,
		})
	}
	return writeSheet(f, "Matches", header, rows)
}

func writeAnomalies(f *excelize.File, anomalies []entity.Anomaly) error {
	header := []interface{}{
		"ID", "Document", "Vendor", "Type", "Severity", "Status",
		"Amount At Risk", "Description", "Recommendation", "Detected At",
	}
	rows := make([][]interface{}, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, []interface{}{
			a.ID, a.DocumentNumber, a.Vendor, a.Type, a.Severity, a.Status,
			a.AmountAtRisk, a.Description, a.Recommendation,
			a.DetectedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return writeSheet(f, "Anomalies", header, rows)
}

func writeTriage(f *excelize.File, decisions []entity.TriageDecision) error {
	header := []interface{}{
		"Invoice", "Lane", "Confidence", "Auto Action", "Vendor Risk",
		"Match Quality", "Overridden", "Reasons", "Decided At",
	}
	rows := make([][]interface{}, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, []interface{}{
			d.InvoiceID, d.Lane, d.Confidence, d.AutoAction,
			d.VendorRisk.Score, d.MatchQuality, d.Override != nil,
			strings.Join(d.Reasons, " | "),
			d.TriageAt.Format("2006-01-02 15:04:05"),
		})
	}
	return writeSheet(f, "Triage", header, rows)
}
