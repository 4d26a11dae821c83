package validate

import (
	"fmt"
	"log/slog"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// Stable rule identifiers. Downstream filtering and tests key on these.
const (
	RuleRequiredField   = "required_field"
	RuleABAChecksum     = "aba_checksum"
	RuleEINFormat       = "ein_format"
	RuleZipFormat       = "zip_format"
	RulePhoneFormat     = "phone_format"
	RuleEmailFormat     = "email_format"
	RuleStateCode       = "state_code"
	RuleAmountRange     = "amount_range"
	RuleAccountLength   = "account_length"
	RuleAddressComplete = "address_complete"
	RuleUnknownDocType  = "unknown_doc_type"
	RuleConfidenceBand  = "confidence_uncertain"
)

// CheckFunc is one rule's pure verdict: zero or one finding for a record.
// Rules must not mutate the record and must not depend on other rules having
// run.
type CheckFunc func(rec entity.ParsedRecord, cfg common.ValidationConfig) *entity.Finding

// Rule pairs a stable identifier with its check.
type Rule struct {
	ID    string
	Check CheckFunc
}

// Registry maps a document type to its ordered rule set. Order only affects
// finding order in the output, never the verdicts.
type Registry map[constants.DocumentType][]Rule

// run executes every rule for the record's type, isolating panics so one
// broken rule cannot suppress the rest of the findings.
func (r Registry) run(rec entity.ParsedRecord, cfg common.ValidationConfig, logger *slog.Logger) []entity.Finding {
	var findings []entity.Finding
	for _, rule := range r[rec.DocType] {
		if f := runOne(rule, rec, cfg, logger); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

func runOne(rule Rule, rec entity.ParsedRecord, cfg common.ValidationConfig, logger *slog.Logger) (f *entity.Finding) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("validate.rule_panic",
				"rule_id", rule.ID,
				"doc_type", string(rec.DocType),
				"panic", fmt.Sprint(p),
				"kind", string(common.FailureRuleError),
			)
			f = &entity.Finding{
				Severity: entity.SeverityWarning,
				Message:  fmt.Sprintf("rule %s failed to run: %v", rule.ID, p),
				RuleID:   rule.ID,
			}
		}
	}()
	return rule.Check(rec, cfg)
}
