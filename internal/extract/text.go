package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/xuri/excelize/v2"
)

// text longer than this is truncated before prompting
const maxPromptChars = 24000

// ReadText pulls plain text out of an uploaded file. PDFs go through the
// renderer, spreadsheets are flattened row by row, anything else is
// treated as text.
func ReadText(fileName string, content []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return readPDF(content)
	case ".xlsx", ".xls":
		return readSpreadsheet(content)
	default:
		return truncate(string(content)), nil
	}
}

func readPDF(content []byte) (string, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", page, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return truncate(b.String()), nil
}

func readSpreadsheet(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
	}
	return truncate(b.String()), nil
}

func truncate(s string) string {
	if len(s) > maxPromptChars {
		return s[:maxPromptChars]
	}
	return s
}
