package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

var (
	reEIN     = regexp.MustCompile(`^\d{2}-\d{7}$`)
	reZip     = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	reEmail   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	reDigits  = regexp.MustCompile(`[^\d]`)
	reRouting = regexp.MustCompile(`^\d{9}$`)
)

var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {}, "DE": {}, "FL": {}, "GA": {},
	"HI": {}, "ID": {}, "IL": {}, "IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {}, "NH": {}, "NJ": {},
	"NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {},
	"SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {}, "WY": {},
	"DC": {},
}

// BuiltinRegistry wires the default rule set per document type.
func BuiltinRegistry() Registry {
	reg := Registry{}

	for _, t := range constants.DocumentTypes() {
		var rules []Rule
		for _, f := range constants.RequiredFor(t) {
			rules = append(rules, requiredRule(f))
		}
		vocab := make(map[string]struct{})
		for _, f := range constants.FieldsFor(t) {
			vocab[f] = struct{}{}
		}
		appendFieldRules := func(field string, r Rule) {
			if _, ok := vocab[field]; ok {
				rules = append(rules, r)
			}
		}
		appendFieldRules(constants.FieldEIN, einRule())
		appendFieldRules(constants.FieldRoutingNumber, routingRule())
		appendFieldRules(constants.FieldAccountNumber, accountLengthRule())
		appendFieldRules(constants.FieldZip, zipRule())
		appendFieldRules(constants.FieldPhone, phoneRule())
		appendFieldRules(constants.FieldEmail, emailRule())
		appendFieldRules(constants.FieldState, stateRule())
		appendFieldRules(constants.FieldRequestedAmount, amountRule(constants.FieldRequestedAmount))
		appendFieldRules(constants.FieldAnnualRevenue, amountRule(constants.FieldAnnualRevenue))
		appendFieldRules(constants.FieldEndingBalance, amountRule(constants.FieldEndingBalance))
		appendFieldRules(constants.FieldStreet, addressCompletenessRule())

		if t == constants.DocUnknown {
			rules = append(rules, unknownTypeRule())
		}
		reg[t] = rules
	}
	return reg
}

// requiredRule yields an error when a required field is missing, malformed,
// or too uncertain to trust. The three causes carry distinct messages so
// "missing" and "low-confidence" stay distinguishable downstream.
func requiredRule(field string) Rule {
	return Rule{
		ID: RuleRequiredField,
		Check: func(rec entity.ParsedRecord, cfg common.ValidationConfig) *entity.Finding {
			v := rec.Field(field)
			switch v.Kind {
			case entity.FieldMissing:
				return errf(field, RuleRequiredField, "missing required field %s", field)
			case entity.FieldMalformed:
				return errf(field, RuleRequiredField, "required field %s has unparseable value %q", field, v.Raw)
			default:
				if v.Confidence < cfg.MinFieldConfidence {
					return errf(field, RuleRequiredField,
						"required field %s confidence %.2f below threshold %.2f", field, v.Confidence, cfg.MinFieldConfidence)
				}
			}
			return nil
		},
	}
}

// einRule checks the NN-NNNNNNN employer identification number form.
func einRule() Rule {
	return presentRule(constants.FieldEIN, RuleEINFormat, func(value string, _ common.ValidationConfig) *string {
		if !reEIN.MatchString(strings.TrimSpace(value)) {
			return strptr(fmt.Sprintf("invalid EIN format: must be NN-NNNNNNN, got %q", value))
		}
		return nil
	})
}

// routingRule validates the ABA routing-number check digit:
// 3(d1+d4+d7) + 7(d2+d5+d8) + (d3+d6+d9) ≡ 0 (mod 10).
func routingRule() Rule {
	return presentRule(constants.FieldRoutingNumber, RuleABAChecksum, func(value string, _ common.ValidationConfig) *string {
		s := strings.TrimSpace(value)
		if !reRouting.MatchString(s) {
			return strptr(fmt.Sprintf("routing number must be exactly 9 digits, got %q", value))
		}
		if !abaChecksumOK(s) {
			return strptr(fmt.Sprintf("routing number %q fails ABA check-digit validation", s))
		}
		return nil
	})
}

func abaChecksumOK(s string) bool {
	sum := 0
	for i := 0; i < 9; i += 3 {
		sum += 3 * int(s[i]-'0')
		sum += 7 * int(s[i+1]-'0')
		sum += int(s[i+2] - '0')
	}
	return sum%10 == 0
}

// accountLengthRule bounds US account numbers to 4–17 digits.
func accountLengthRule() Rule {
	return presentRule(constants.FieldAccountNumber, RuleAccountLength, func(value string, _ common.ValidationConfig) *string {
		digits := reDigits.ReplaceAllString(value, "")
		if len(digits) < 4 || len(digits) > 17 {
			return strptr(fmt.Sprintf("account number must be 4-17 digits, got %d", len(digits)))
		}
		return nil
	})
}

func zipRule() Rule {
	return presentRule(constants.FieldZip, RuleZipFormat, func(value string, _ common.ValidationConfig) *string {
		if !reZip.MatchString(strings.TrimSpace(value)) {
			return strptr(fmt.Sprintf("invalid ZIP code %q: must be 5 digits (optional +4)", value))
		}
		return nil
	})
}

func phoneRule() Rule {
	return presentRule(constants.FieldPhone, RulePhoneFormat, func(value string, _ common.ValidationConfig) *string {
		digits := reDigits.ReplaceAllString(value, "")
		digits = strings.TrimPrefix(digits, "1")
		if len(digits) != 10 {
			return strptr(fmt.Sprintf("invalid phone %q: must be 10 digits", value))
		}
		return nil
	})
}

func emailRule() Rule {
	return presentRule(constants.FieldEmail, RuleEmailFormat, func(value string, _ common.ValidationConfig) *string {
		if !reEmail.MatchString(strings.TrimSpace(value)) {
			return strptr(fmt.Sprintf("invalid email format %q", value))
		}
		return nil
	})
}

func stateRule() Rule {
	return presentRule(constants.FieldState, RuleStateCode, func(value string, _ common.ValidationConfig) *string {
		if _, ok := usStates[strings.ToUpper(strings.TrimSpace(value))]; !ok {
			return strptr(fmt.Sprintf("invalid state %q: must be a 2-letter USPS code", value))
		}
		return nil
	})
}

// amountRule checks numeric form and sanity bounds for money fields.
func amountRule(field string) Rule {
	return presentRule(field, RuleAmountRange, func(value string, cfg common.ValidationConfig) *string {
		clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return strptr(fmt.Sprintf("invalid amount %q for %s: not numeric", value, field))
		}
		if f < 0 || f > cfg.MaxRequestedAmount {
			return strptr(fmt.Sprintf("amount %q for %s outside sane bounds [0, %.0f]", value, field, cfg.MaxRequestedAmount))
		}
		return nil
	})
}

// addressCompletenessRule warns when an address is started but not finished.
func addressCompletenessRule() Rule {
	addressFields := []string{constants.FieldStreet, constants.FieldCity, constants.FieldState, constants.FieldZip}
	return Rule{
		ID: RuleAddressComplete,
		Check: func(rec entity.ParsedRecord, _ common.ValidationConfig) *entity.Finding {
			present, missing := 0, []string{}
			for _, f := range addressFields {
				if rec.Field(f).Kind == entity.FieldPresent {
					present++
				} else {
					missing = append(missing, f)
				}
			}
			if present > 0 && present < len(addressFields) {
				return &entity.Finding{
					Field:    constants.FieldStreet,
					Severity: entity.SeverityWarning,
					Message:  "incomplete address: missing " + strings.Join(missing, ", "),
					RuleID:   RuleAddressComplete,
				}
			}
			return nil
		},
	}
}

// unknownTypeRule forces human review for documents we could not classify.
func unknownTypeRule() Rule {
	return Rule{
		ID: RuleUnknownDocType,
		Check: func(rec entity.ParsedRecord, _ common.ValidationConfig) *entity.Finding {
			return &entity.Finding{
				Severity: entity.SeverityWarning,
				Message:  "document type could not be determined; parsed with the application field set",
				RuleID:   RuleUnknownDocType,
			}
		},
	}
}

// presentRule builds a format rule that only fires when the field is Present.
// Missing/Malformed is the required-field rule's business.
func presentRule(field, ruleID string, check func(value string, cfg common.ValidationConfig) *string) Rule {
	return Rule{
		ID: ruleID,
		Check: func(rec entity.ParsedRecord, cfg common.ValidationConfig) *entity.Finding {
			v := rec.Field(field)
			if v.Kind != entity.FieldPresent {
				return nil
			}
			if msg := check(v.Value, cfg); msg != nil {
				return errf(field, ruleID, "%s", *msg)
			}
			return nil
		},
	}
}

func errf(field, ruleID, format string, args ...any) *entity.Finding {
	return &entity.Finding{
		Field:    field,
		Severity: entity.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		RuleID:   ruleID,
	}
}

func strptr(s string) *string { return &s }
