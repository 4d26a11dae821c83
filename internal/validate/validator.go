package validate

import (
	"fmt"
	"log/slog"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// Validator applies the rule set for a record's document type and aggregates
// the three-way outcome. It is stateless across calls: concurrent validation
// from the worker pool needs no locking.
type Validator struct {
	cfg      common.ValidationConfig
	registry Registry
	logger   *slog.Logger
}

func New(cfg common.ValidationConfig, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinFieldConfidence <= 0 {
		cfg.MinFieldConfidence = 0.40
	}
	if cfg.ReviewBandHigh <= 0 {
		cfg.ReviewBandLow, cfg.ReviewBandHigh = 0.40, 0.75
	}
	if cfg.MaxRequestedAmount <= 0 {
		cfg.MaxRequestedAmount = 5_000_000
	}
	return &Validator{cfg: cfg, registry: BuiltinRegistry(), logger: logger}
}

// NewWithRegistry builds a Validator over a custom rule registry. Used by
// rule unit tests and callers that extend the builtin set.
func NewWithRegistry(cfg common.ValidationConfig, reg Registry, logger *slog.Logger) *Validator {
	v := New(cfg, logger)
	v.registry = reg
	return v
}

// Validate runs all rules and derives the outcome:
// any error finding -> Rejected; otherwise any warning finding or any field
// confidence inside the uncertain band -> NeedsReview; otherwise Accepted.
func (v *Validator) Validate(rec entity.ParsedRecord) ([]entity.Finding, constants.Outcome) {
	findings := v.registry.run(rec, v.cfg, v.logger)
	findings = append(findings, v.uncertainFields(rec)...)

	outcome := constants.OutcomeAccepted
	hasWarning := false
	for _, f := range findings {
		switch f.Severity {
		case entity.SeverityError:
			outcome = constants.OutcomeRejected
		case entity.SeverityWarning:
			hasWarning = true
		}
	}
	if outcome == constants.OutcomeAccepted && hasWarning {
		outcome = constants.OutcomeNeedsReview
	}

	v.logger.Info("validate.done",
		"doc_type", string(rec.DocType),
		"findings", len(findings),
		"outcome", string(outcome),
	)
	return findings, outcome
}

// uncertainFields emits one warning per Present field whose confidence falls
// inside the configured review band. The band is a tunable business
// parameter, not a constant.
func (v *Validator) uncertainFields(rec entity.ParsedRecord) []entity.Finding {
	var out []entity.Finding
	for _, name := range constants.FieldsFor(rec.DocType) {
		fv := rec.Field(name)
		if fv.Kind != entity.FieldPresent {
			continue
		}
		if fv.Confidence >= v.cfg.ReviewBandLow && fv.Confidence < v.cfg.ReviewBandHigh {
			out = append(out, entity.Finding{
				Field:    name,
				Severity: entity.SeverityWarning,
				Message:  fmt.Sprintf("field %s confidence %.2f is in the review band [%.2f, %.2f)", name, fv.Confidence, v.cfg.ReviewBandLow, v.cfg.ReviewBandHigh),
				RuleID:   RuleConfidenceBand,
			})
		}
	}
	return out
}
