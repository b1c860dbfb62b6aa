package cloud

// NameRule captures a backend's resource naming constraints.
// Hard limits (length, first character) are validation errors; soft rules
// (case folding, character substitution) surface as warnings because the
// backend applies them silently on create.
type NameRule struct {
	// MaxLength is the hard upper bound on the resource name.
	MaxLength int
	// StartLetter requires the first character to be a letter.
	StartLetter bool
	// StartAlnum requires the first character to be a letter or digit.
	// Implied by StartLetter.
	StartAlnum bool
	// NoTrailingHyphen forbids a trailing hyphen.
	NoTrailingHyphen bool
	// FoldsCase means the backend lowercases names on create; uppercase input
	// gets a "will be lowercased" warning.
	FoldsCase bool
}

// nameRules holds per-backend naming constraints.
var nameRules = map[Backend]NameRule{
	BackendAWS: {
		MaxLength:  255,
		StartAlnum: true,
	},
	BackendAzure: {
		MaxLength:        63,
		StartAlnum:       true,
		NoTrailingHyphen: true,
		FoldsCase:        true,
	},
	BackendGCP: {
		MaxLength:   63,
		StartLetter: true,
		StartAlnum:  true,
		FoldsCase:   true,
	},
	BackendHetzner: {
		MaxLength:  63,
		StartAlnum: true,
	},
}

// NameRuleFor returns the naming constraints of b.
func NameRuleFor(b Backend) NameRule {
	return nameRules[b]
}

// LabelRule captures a backend's label/tag syntax constraints.
type LabelRule struct {
	// Strict enables the full normalization pipeline (lowercase, character
	// substitution, length truncation). Unrestricted backends pass labels
	// through untouched.
	Strict bool
	// MaxLength bounds each key and value when Strict.
	MaxLength int
}

// labelRules holds per-backend label constraints. Only GCP restricts label
// syntax; the others accept free-form tag strings.
var labelRules = map[Backend]LabelRule{
	BackendGCP: {Strict: true, MaxLength: 63},
}

// LabelRuleFor returns the label constraints of b.
func LabelRuleFor(b Backend) LabelRule {
	return labelRules[b]
}
