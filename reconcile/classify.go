// Package reconcile implements the billing reconciliation engine: it
// compares an independently recomputed ExpectedOrder against the
// ActualOrder the billing pipeline persisted, and emits severity-classified
// Mismatch findings. The engine is pure and stateless; it performs no I/O
// and never mutates billing state.
package reconcile

// Severity is the alerting tier of a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Classification identifies the kind of discrepancy found.
type Classification string

const (
	ClassRoundingDifference Classification = "rounding_difference"
	ClassAmountMismatch     Classification = "amount_mismatch"
	ClassMissingLineItem    Classification = "missing_line_item"
	ClassExtraLineItem      Classification = "extra_line_item"
	ClassDiscountMismatch   Classification = "discount_mismatch"
	ClassTaxMismatch        Classification = "tax_mismatch"
)

// Default tolerance thresholds, in minor units (cents).
const (
	DefaultRoundingToleranceCents = 2
	DefaultSignificantAmountCents = 100
)

// Tolerances holds the two cent thresholds that drive severity
// classification. They are injected at construction so deployments can
// tune them without code changes.
type Tolerances struct {
	// RoundingCents is the largest absolute difference still considered
	// rounding noise (severity info).
	RoundingCents int64

	// SignificantCents is the largest absolute difference still
	// considered a warning; anything beyond is an error.
	SignificantCents int64
}

// DefaultTolerances returns the production defaults: 2 cents of rounding
// tolerance and a 1 dollar significance threshold.
func DefaultTolerances() Tolerances {
	return Tolerances{
		RoundingCents:    DefaultRoundingToleranceCents,
		SignificantCents: DefaultSignificantAmountCents,
	}
}

// Classifier maps signed cent differences to severity/classification
// pairs. It is total: every difference maps to exactly one pair, so no
// discrepancy is ever silently dropped.
type Classifier struct {
	tol Tolerances
}

// NewClassifier builds a Classifier. Zero or negative thresholds fall
// back to the defaults.
func NewClassifier(tol Tolerances) *Classifier {
	if tol.RoundingCents <= 0 {
		tol.RoundingCents = DefaultRoundingToleranceCents
	}
	if tol.SignificantCents <= 0 {
		tol.SignificantCents = DefaultSignificantAmountCents
	}
	return &Classifier{tol: tol}
}

// Tolerances returns the thresholds the classifier was built with.
func (c *Classifier) Tolerances() Tolerances { return c.tol }

// Classify maps a signed cent difference to (severity, classification).
// Only the magnitude matters; the sign is preserved by the caller in the
// resulting Mismatch for diagnostics.
func (c *Classifier) Classify(diff int64) (Severity, Classification) {
	abs := diff
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs <= c.tol.RoundingCents:
		return SeverityInfo, ClassRoundingDifference
	case abs <= c.tol.SignificantCents:
		return SeverityWarning, ClassAmountMismatch
	default:
		return SeverityError, ClassAmountMismatch
	}
}

// ClassifyAs classifies by magnitude but forces the classification tag,
// keeping the magnitude-driven severity tier. Discount and tax
// comparisons use this so their findings stay distinguishable from
// generic amount mismatches.
func (c *Classifier) ClassifyAs(diff int64, tag Classification) (Severity, Classification) {
	sev, _ := c.Classify(diff)
	return sev, tag
}
