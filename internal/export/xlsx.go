package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// BuildXLSX returns a review workbook: one row per document plus a findings
// sheet, for the operators who triage NEEDS_REVIEW outcomes in a spreadsheet.
func BuildXLSX(docs []entity.ProcessedDocument) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Documents"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	// drop excelize's default sheet so operators only see ours
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{
		"Source File",
		"Document Type",
		"Status",
		"Outcome",
		"Errors",
		"Warnings",
		"Business Name",
		"EIN",
		"Routing Number",
		"Account (last 4)",
		"Model Confidence",
		"Failure",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, d.Document.FileName())
		write(2, string(d.Document.Type))
		write(3, string(d.Status))
		write(4, string(d.Outcome))
		write(5, d.ErrorCount())
		write(6, d.WarningCount())
		write(7, fieldOrEmpty(d, constants.FieldLegalBusinessName))
		write(8, fieldOrEmpty(d, constants.FieldEIN))
		write(9, fieldOrEmpty(d, constants.FieldRoutingNumber))
		write(10, accountLast4(d))
		if d.Record != nil && d.Record.ModelConfidence > 0 {
			write(11, fmt.Sprintf("%.2f", d.Record.ModelConfidence))
		}
		if d.FailureReason != "" {
			write(12, truncateCell(d.FailureReason, 140))
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 36) // file
	_ = f.SetColWidth(sheet, "B", "D", 16)
	_ = f.SetColWidth(sheet, "G", "G", 30) // business name
	_ = f.SetColWidth(sheet, "H", "J", 16)
	_ = f.SetColWidth(sheet, "L", "L", 48) // failure

	if err := addFindingsSheet(f, docs); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func addFindingsSheet(f *excelize.File, docs []entity.ProcessedDocument) error {
	const sheet = "Findings"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Source File", "Field", "Severity", "Rule", "Message"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	row := 2
	for _, d := range docs {
		for _, fd := range d.Findings {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, d.Document.FileName())
			write(2, fd.Field)
			write(3, strings.ToUpper(string(fd.Severity)))
			write(4, fd.RuleID)
			write(5, truncateCell(fd.Message, 200))
			row++
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "E", "E", 72)
	return nil
}

func truncateCell(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
