package hansard

// OverrideKind distinguishes the variants of Override.
type OverrideKind string

// OverrideKind values.
const (
	OverrideSkip        OverrideKind = "skip"
	OverrideCorrectDate OverrideKind = "correct-date"
)

// Override is a curated correction for one known-bad transcript.
// Exactly one of Reason (Skip) or Date (CorrectDate) is meaningful.
type Override struct {
	Kind   OverrideKind
	Reason string
	Date   string
}

// Skip returns an override that excludes a document from normalized output.
func Skip(reason string) Override {
	return Override{Kind: OverrideSkip, Reason: reason}
}

// CorrectDate returns an override that replaces a document's header date.
func CorrectDate(date string) Override {
	return Override{Kind: OverrideCorrectDate, Date: date}
}

// OverrideTable maps transcript keys (see DocumentKey) to overrides.
// It is loaded once and only read afterwards.
type OverrideTable map[string]Override

// Lookup returns the override for a transcript key.
// A nil table has no overrides.
func (t OverrideTable) Lookup(key string) (Override, bool) {
	o, ok := t[key]
	return o, ok
}
