package constants

// Canonical business field names. Parsed records always carry every field of
// their document type's vocabulary, with an explicit missing marker rather
// than an absent key.
const (
	FieldLegalBusinessName = "legal_business_name"
	FieldDBAName           = "dba_name"
	FieldEIN               = "ein"
	FieldBusinessType      = "business_type"
	FieldTaxClassification = "tax_classification"
	FieldOwnerName         = "owner_name"
	FieldPhone             = "phone"
	FieldEmail             = "email"
	FieldStreet            = "street"
	FieldCity              = "city"
	FieldState             = "state"
	FieldZip               = "zip"
	FieldRequestedAmount   = "requested_amount"
	FieldAnnualRevenue     = "annual_revenue"
	FieldYearsInBusiness   = "years_in_business"
	FieldProcessingVolume  = "processing_volume"
	FieldAccountHolder     = "account_holder"
	FieldBankName          = "bank_name"
	FieldRoutingNumber     = "routing_number"
	FieldAccountNumber     = "account_number"
	FieldStatementPeriod   = "statement_period"
	FieldEndingBalance     = "ending_balance"
)

// fieldVocabulary is the ordered field set per document type. Order is the
// canonical export order.
var fieldVocabulary = map[DocumentType][]string{
	DocApplication: {
		FieldLegalBusinessName,
		FieldDBAName,
		FieldEIN,
		FieldBusinessType,
		FieldOwnerName,
		FieldPhone,
		FieldEmail,
		FieldStreet,
		FieldCity,
		FieldState,
		FieldZip,
		FieldRequestedAmount,
		FieldAnnualRevenue,
		FieldYearsInBusiness,
		FieldProcessingVolume,
	},
	DocW9: {
		FieldLegalBusinessName,
		FieldEIN,
		FieldTaxClassification,
		FieldStreet,
		FieldCity,
		FieldState,
		FieldZip,
	},
	DocVoidedCheck: {
		FieldAccountHolder,
		FieldBankName,
		FieldRoutingNumber,
		FieldAccountNumber,
	},
	DocBankStatement: {
		FieldAccountHolder,
		FieldBankName,
		FieldRoutingNumber,
		FieldAccountNumber,
		FieldStatementPeriod,
		FieldEndingBalance,
	},
}

var requiredFields = map[DocumentType][]string{
	DocApplication:   {FieldLegalBusinessName, FieldEIN},
	DocW9:            {FieldLegalBusinessName, FieldEIN},
	DocVoidedCheck:   {FieldRoutingNumber, FieldAccountNumber},
	DocBankStatement: {FieldAccountHolder, FieldBankName},
}

// FieldsFor returns the ordered vocabulary for a document type. Unknown
// documents fall back to the application vocabulary, the widest set.
func FieldsFor(t DocumentType) []string {
	v, ok := fieldVocabulary[t]
	if !ok {
		v = fieldVocabulary[DocApplication]
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

// RequiredFor returns the required fields for a document type. Unknown
// documents require nothing: they always route to human review instead.
func RequiredFor(t DocumentType) []string {
	v := requiredFields[t]
	out := make([]string, len(v))
	copy(out, v)
	return out
}
