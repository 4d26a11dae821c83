package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// csvHeader is the operator-facing summary row shape. One row per document,
// key fields only; the JSON artifact carries the full detail.
var csvHeader = []string{
	"document_id",
	"source_file",
	"document_type",
	"status",
	"outcome",
	"error_count",
	"warning_count",
	"legal_business_name",
	"ein",
	"routing_number",
	"account_last4",
	"model_confidence",
	"processed_at",
}

// WriteCSV writes the batch summary table. Row order matches input order.
func WriteCSV(w io.Writer, docs []entity.ProcessedDocument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, d := range docs {
		if err := cw.Write(csvRow(d)); err != nil {
			return fmt.Errorf("csv row %s: %w", d.Document.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(d entity.ProcessedDocument) []string {
	modelConf := ""
	if d.Record != nil && d.Record.ModelConfidence > 0 {
		modelConf = fmt.Sprintf("%.2f", d.Record.ModelConfidence)
	}
	processedAt := ""
	if !d.FinishedAt.IsZero() {
		processedAt = d.FinishedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return []string{
		d.Document.ID.String(),
		d.Document.FileName(),
		string(d.Document.Type),
		string(d.Status),
		string(d.Outcome),
		fmt.Sprintf("%d", d.ErrorCount()),
		fmt.Sprintf("%d", d.WarningCount()),
		fieldOrEmpty(d, constants.FieldLegalBusinessName),
		fieldOrEmpty(d, constants.FieldEIN),
		fieldOrEmpty(d, constants.FieldRoutingNumber),
		accountLast4(d),
		modelConf,
		processedAt,
	}
}

func fieldOrEmpty(d entity.ProcessedDocument, name string) string {
	if d.Record == nil {
		return ""
	}
	fv := d.Record.Field(name)
	if fv.Kind != entity.FieldPresent {
		return ""
	}
	return fv.Value
}

// accountLast4 masks the account number down to its last four digits. Full
// account numbers stay in the JSON artifact only.
func accountLast4(d entity.ProcessedDocument) string {
	full := fieldOrEmpty(d, constants.FieldAccountNumber)
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, full)
	if len(digits) < 4 {
		return digits
	}
	return "****" + digits[len(digits)-4:]
}
