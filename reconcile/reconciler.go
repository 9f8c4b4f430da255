package reconcile

import (
	"fmt"

	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/types"
)

// Reconciler compares one expected order against one actual order. It is
// stateless and safe for concurrent use: every Reconcile call is a
// single-shot computation over two immutable snapshots.
type Reconciler struct {
	classifier *Classifier
}

// NewReconciler builds a Reconciler with the given tolerances.
func NewReconciler(tol Tolerances) *Reconciler {
	return &Reconciler{classifier: NewClassifier(tol)}
}

// Classifier exposes the reconciler's amount classifier.
func (r *Reconciler) Classifier() *Classifier { return r.classifier }

// Reconcile compares expected against actual and returns the findings,
// line item findings first, then order totals. The returned error is a
// precondition violation (nil input, subscription or currency mismatch),
// which means the inputs were not comparable. That is a caller bug, not a
// billing discrepancy.
func (r *Reconciler) Reconcile(expected *order.ExpectedOrder, actual *order.ActualOrder) ([]Mismatch, error) {
	if expected == nil || actual == nil {
		return nil, ErrNilOrder
	}
	if expected.SubscriptionID.String() != actual.SubscriptionID.String() {
		return nil, fmt.Errorf("%w: expected %s, actual %s",
			ErrSubscriptionMismatch, expected.SubscriptionID, actual.SubscriptionID)
	}
	if expected.Currency != actual.Currency {
		return nil, fmt.Errorf("%w: expected %q, actual %q",
			ErrCurrencyMismatch, expected.Currency, actual.Currency)
	}

	set := MatchLineItems(expected.LineItems, actual.LineItems)

	mismatches, err := r.compareLineItems(set)
	if err != nil {
		return nil, err
	}
	mismatches = append(mismatches, r.compareTotals(expected, actual)...)

	return mismatches, nil
}

// compareLineItems turns a MatchSet into findings. Missing and extra
// items are always errors; matched pairs go through the classifier.
// Label or proration differences alone produce no finding: the same
// monetary fact can be labeled differently across the two pipelines
// without being wrong.
func (r *Reconciler) compareLineItems(set MatchSet) ([]Mismatch, error) {
	var out []Mismatch

	for _, pair := range set.Matched {
		if !pair.Expected.Amount.SameCurrency(pair.Actual.Amount) {
			return nil, fmt.Errorf("%w: line item %q expected %q, actual %q",
				ErrCurrencyMismatch, pair.Expected.Label,
				pair.Expected.Amount.Currency, pair.Actual.Amount.Currency)
		}

		diff := pair.Actual.Amount.Diff(pair.Expected.Amount)
		if diff == 0 {
			continue
		}

		sev, class := r.classifier.Classify(diff)
		out = append(out, Mismatch{
			Severity:       sev,
			Classification: class,
			Message:        fmt.Sprintf("Line item amount mismatch: %s", pair.Expected.Label),
			Expected:       pair.Expected.Amount.Ptr(),
			Actual:         pair.Actual.Amount.Ptr(),
			Difference:     diff,
		})
	}

	for _, li := range set.Missing {
		out = append(out, Mismatch{
			Severity:       SeverityError,
			Classification: ClassMissingLineItem,
			Message:        fmt.Sprintf("%s missing from actual order", li.Label),
			Expected:       li.Amount.Ptr(),
			Difference:     -li.Amount.Amount,
		})
	}

	for _, li := range set.Extra {
		out = append(out, Mismatch{
			Severity:       SeverityError,
			Classification: ClassExtraLineItem,
			Message:        fmt.Sprintf("Unexpected line item %s in actual order", li.Label),
			Actual:         li.Amount.Ptr(),
			Difference:     li.Amount.Amount,
		})
	}

	return out, nil
}

// compareTotals compares order-level aggregates pairwise. Discount and
// tax differences keep their magnitude-driven severity but are tagged
// with their own classifications so alerting can distinguish a diverged
// discount application from a generic drift. Totals comparison runs even
// when every line item matched: a perfectly matched item set can still
// hide a totals divergence.
func (r *Reconciler) compareTotals(expected *order.ExpectedOrder, actual *order.ActualOrder) []Mismatch {
	var out []Mismatch

	compare := func(label string, exp, act types.Money, tag Classification) {
		diff := act.Diff(exp)
		if diff == 0 {
			return
		}

		var sev Severity
		var class Classification
		if tag == "" {
			sev, class = r.classifier.Classify(diff)
		} else {
			sev, class = r.classifier.ClassifyAs(diff, tag)
		}

		out = append(out, Mismatch{
			Severity:       sev,
			Classification: class,
			Message:        fmt.Sprintf("Order %s mismatch", label),
			Expected:       exp.Ptr(),
			Actual:         act.Ptr(),
			Difference:     diff,
		})
	}

	compare("subtotal", expected.Subtotal, actual.Subtotal, "")
	compare("discount", expected.DiscountAmount, actual.DiscountAmount, ClassDiscountMismatch)
	compare("tax", expected.TaxAmount, actual.TaxAmount, ClassTaxMismatch)
	compare("total", expected.Total, actual.Total, "")
	compare("applied balance", expected.AppliedBalance, actual.AppliedBalance, "")

	return out
}
