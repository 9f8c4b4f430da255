package reconcile

import (
	"errors"
	"reflect"
	"testing"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/types"
)

// buildPair returns an expected/actual pair for one subscription period
// with a single matching $100.00 line item and consistent totals.
func buildPair(t *testing.T) (*order.ExpectedOrder, *order.ActualOrder) {
	t.Helper()

	subID := id.NewSubscriptionID()
	custID := id.NewCustomerID()
	priceID := id.NewPriceID()
	p := period(1)

	exp := order.NewExpectedOrder(subID, custID, "usd", p)
	exp.AddLineItem(order.ExpectedLineItem{
		PriceID:   priceID,
		Label:     "Pro plan",
		EntryType: order.EntryCycle,
		Quantity:  1,
		Amount:    types.USD(10000),
	})
	exp.Finalize()

	act := order.NewActualOrder(subID, custID, "usd", p)
	act.AddLineItem(order.ActualLineItem{
		PriceID:  priceID,
		Label:    "Pro plan",
		Quantity: 1,
		Amount:   types.USD(10000),
	})
	act.Subtotal = types.USD(10000)
	act.Total = types.USD(10000)

	return exp, act
}

func TestReconcileCleanOrder(t *testing.T) {
	r := NewReconciler(DefaultTolerances())
	exp, act := buildPair(t)

	mismatches, err := r.Reconcile(exp, act)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("clean order should produce no findings, got %+v", mismatches)
	}
}

func TestReconcilePreconditions(t *testing.T) {
	r := NewReconciler(DefaultTolerances())
	exp, act := buildPair(t)

	t.Run("nil expected", func(t *testing.T) {
		_, err := r.Reconcile(nil, act)
		if !errors.Is(err, ErrNilOrder) {
			t.Errorf("got %v, want ErrNilOrder", err)
		}
	})

	t.Run("nil actual", func(t *testing.T) {
		_, err := r.Reconcile(exp, nil)
		if !errors.Is(err, ErrNilOrder) {
			t.Errorf("got %v, want ErrNilOrder", err)
		}
	})

	t.Run("subscription mismatch", func(t *testing.T) {
		other := *act
		other.SubscriptionID = id.NewSubscriptionID()
		_, err := r.Reconcile(exp, &other)
		if !errors.Is(err, ErrSubscriptionMismatch) {
			t.Errorf("got %v, want ErrSubscriptionMismatch", err)
		}
	})

	t.Run("order currency mismatch", func(t *testing.T) {
		other := *act
		other.Currency = "eur"
		_, err := r.Reconcile(exp, &other)
		if !errors.Is(err, ErrCurrencyMismatch) {
			t.Errorf("got %v, want ErrCurrencyMismatch", err)
		}
	})

	t.Run("line item currency mismatch", func(t *testing.T) {
		other := *act
		other.LineItems = []order.ActualLineItem{other.LineItems[0]}
		other.LineItems[0].Amount = types.EUR(10000)
		_, err := r.Reconcile(exp, &other)
		if !errors.Is(err, ErrCurrencyMismatch) {
			t.Errorf("got %v, want ErrCurrencyMismatch", err)
		}
	})
}

func TestReconcileMissingLineItem(t *testing.T) {
	r := NewReconciler(DefaultTolerances())
	exp, act := buildPair(t)
	act.LineItems = nil
	act.Subtotal = exp.Subtotal
	act.Total = exp.Total

	mismatches, err := r.Reconcile(exp, act)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected exactly one finding, got %d: %+v", len(mismatches), mismatches)
	}

	m := mismatches[0]
	if m.Classification != ClassMissingLineItem {
		t.Errorf("classification: got %s, want missing_line_item", m.Classification)
	}
	if m.Severity != SeverityError {
		t.Errorf("severity: got %s, want error", m.Severity)
	}
	if m.Expected == nil || m.Expected.Amount != 10000 {
		t.Errorf("expected_value: got %v, want 10000", m.Expected)
	}
	if m.Actual != nil {
		t.Errorf("actual_value should be absent, got %v", m.Actual)
	}
	if m.Difference != -10000 {
		t.Errorf("difference: got %d, want -10000", m.Difference)
	}
	if m.Message != "Pro plan missing from actual order" {
		t.Errorf("message: got %q", m.Message)
	}
}

func TestReconcileExtraLineItem(t *testing.T) {
	r := NewReconciler(DefaultTolerances())
	exp, act := buildPair(t)
	act.AddLineItem(order.ActualLineItem{
		PriceID: id.NewPriceID(),
		Label:   "Mystery charge",
		Amount:  types.USD(5000),
	})

	mismatches, err := r.Reconcile(exp, act)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected exactly one finding, got %d: %+v", len(mismatches), mismatches)
	}

	m := mismatches[0]
	if m.Classification != ClassExtraLineItem {
		t.Errorf("classification: got %s, want extra_line_item", m.Classification)
	}
	if m.Severity != SeverityError {
		t.Errorf("severity: got %s, want error", m.Severity)
	}
	if m.Actual == nil || m.Actual.Amount != 5000 {
		t.Errorf("actual_value: got %v, want 5000", m.Actual)
	}
	if m.Expected != nil {
		t.Errorf("expected_value should be absent, got %v", m.Expected)
	}
	if m.Difference != 5000 {
		t.Errorf("difference: got %d, want 5000", m.Difference)
	}
	if m.Message != "Unexpected line item Mystery charge in actual order" {
		t.Errorf("message: got %q", m.Message)
	}
}

func TestReconcileLineItemAmountDrift(t *testing.T) {
	tests := []struct {
		name    string
		actual  int64
		wantSev Severity
	}{
		{"one cent drift is info", 10001, SeverityInfo},
		{"fifty cent drift is warning", 10050, SeverityWarning},
		{"two dollar drift is error", 10200, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler(DefaultTolerances())
			exp, act := buildPair(t)
			act.LineItems[0].Amount = types.USD(tt.actual)

			mismatches, err := r.Reconcile(exp, act)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(mismatches) != 1 {
				t.Fatalf("expected exactly one finding, got %d", len(mismatches))
			}

			m := mismatches[0]
			if m.Severity != tt.wantSev {
				t.Errorf("severity: got %s, want %s", m.Severity, tt.wantSev)
			}
			if m.Message != "Line item amount mismatch: Pro plan" {
				t.Errorf("message: got %q", m.Message)
			}
			if m.Difference != tt.actual-10000 {
				t.Errorf("difference: got %d, want %d", m.Difference, tt.actual-10000)
			}
		})
	}
}

func TestReconcileTotalsTagging(t *testing.T) {
	r := NewReconciler(DefaultTolerances())

	t.Run("subtotal drift", func(t *testing.T) {
		exp, act := buildPair(t)
		// A manual adjustment occurred downstream: actual subtotal is
		// 500 cents under expected, line items untouched.
		exp.LineItems = nil
		act.LineItems = nil
		exp.Subtotal = types.USD(10000)
		exp.Total = types.USD(10000)
		act.Subtotal = types.USD(9500)
		act.Total = types.USD(10000)

		mismatches, err := r.Reconcile(exp, act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mismatches) != 1 {
			t.Fatalf("expected exactly one finding, got %d: %+v", len(mismatches), mismatches)
		}

		m := mismatches[0]
		if m.Classification != ClassAmountMismatch {
			t.Errorf("classification: got %s, want amount_mismatch", m.Classification)
		}
		if m.Severity != SeverityError {
			t.Errorf("severity: got %s, want error for a 500 cent drift", m.Severity)
		}
		if m.Expected.Amount != 10000 || m.Actual.Amount != 9500 {
			t.Errorf("values: got %v/%v, want 10000/9500", m.Expected, m.Actual)
		}
		if m.Message != "Order subtotal mismatch" {
			t.Errorf("message: got %q", m.Message)
		}
	})

	t.Run("discount drift is tagged discount_mismatch", func(t *testing.T) {
		exp, act := buildPair(t)
		exp.DiscountAmount = types.USD(1000)
		act.DiscountAmount = types.USD(500)
		exp.Total = types.USD(9000)
		act.Total = types.USD(9500)

		mismatches, err := r.Reconcile(exp, act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var found *Mismatch
		for i := range mismatches {
			if mismatches[i].Classification == ClassDiscountMismatch {
				found = &mismatches[i]
			}
		}
		if found == nil {
			t.Fatalf("no discount_mismatch finding in %+v", mismatches)
		}
		if found.Severity != SeverityError {
			t.Errorf("severity: got %s, want error for a 500 cent drift", found.Severity)
		}
		if found.Message != "Order discount mismatch" {
			t.Errorf("message: got %q", found.Message)
		}
	})

	t.Run("tax drift is tagged tax_mismatch", func(t *testing.T) {
		exp, act := buildPair(t)
		exp.TaxAmount = types.USD(1000)
		act.TaxAmount = types.USD(800)
		exp.Total = types.USD(11000)
		act.Total = types.USD(10800)

		mismatches, err := r.Reconcile(exp, act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var found *Mismatch
		for i := range mismatches {
			if mismatches[i].Classification == ClassTaxMismatch {
				found = &mismatches[i]
			}
		}
		if found == nil {
			t.Fatalf("no tax_mismatch finding in %+v", mismatches)
		}
		if found.Difference != -200 {
			t.Errorf("difference: got %d, want -200", found.Difference)
		}
	})

	t.Run("applied balance uses generic path", func(t *testing.T) {
		exp, act := buildPair(t)
		exp.AppliedBalance = types.USD(1000)
		act.AppliedBalance = types.USD(999)

		mismatches, err := r.Reconcile(exp, act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mismatches) != 1 {
			t.Fatalf("expected exactly one finding, got %d", len(mismatches))
		}
		m := mismatches[0]
		if m.Classification != ClassRoundingDifference {
			t.Errorf("classification: got %s, want rounding_difference", m.Classification)
		}
		if m.Severity != SeverityInfo {
			t.Errorf("severity: got %s, want info", m.Severity)
		}
		if m.Message != "Order applied balance mismatch" {
			t.Errorf("message: got %q", m.Message)
		}
	})
}

func TestReconcileLineItemsBeforeTotals(t *testing.T) {
	r := NewReconciler(DefaultTolerances())
	exp, act := buildPair(t)
	act.LineItems[0].Amount = types.USD(10500)
	act.Subtotal = types.USD(10500)
	act.Total = types.USD(10500)

	mismatches, err := r.Reconcile(exp, act)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 3 {
		t.Fatalf("expected 3 findings, got %d: %+v", len(mismatches), mismatches)
	}
	if mismatches[0].Classification != ClassAmountMismatch || mismatches[0].Message != "Line item amount mismatch: Pro plan" {
		t.Errorf("first finding should be the line item: %+v", mismatches[0])
	}
	if mismatches[1].Message != "Order subtotal mismatch" {
		t.Errorf("second finding should be subtotal: %+v", mismatches[1])
	}
	if mismatches[2].Message != "Order total mismatch" {
		t.Errorf("third finding should be total: %+v", mismatches[2])
	}
}

func TestReconcileDeterministic(t *testing.T) {
	r := NewReconciler(DefaultTolerances())
	exp, act := buildPair(t)
	act.LineItems[0].Amount = types.USD(10050)
	act.AddLineItem(order.ActualLineItem{
		PriceID: id.NewPriceID(),
		Label:   "Mystery charge",
		Amount:  types.USD(100),
	})
	act.Subtotal = types.USD(10150)
	act.Total = types.USD(10150)

	first, err := r.Reconcile(exp, act)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Reconcile(exp, act)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced different findings", i)
		}
	}
}

func TestResultMergeAndCounts(t *testing.T) {
	a := NewResult()
	a.OrdersChecked = 2
	a.Add(Mismatch{Severity: SeverityError, Classification: ClassMissingLineItem})
	a.Add(Mismatch{Severity: SeverityInfo, Classification: ClassRoundingDifference})

	b := NewResult()
	b.OrdersChecked = 1
	b.Add(Mismatch{Severity: SeverityWarning, Classification: ClassAmountMismatch})
	b.AddSkip(id.NewSubscriptionID(), "actual order not found")

	a.Merge(b)
	if a.OrdersChecked != 3 {
		t.Errorf("OrdersChecked: got %d, want 3", a.OrdersChecked)
	}
	if len(a.Mismatches) != 3 {
		t.Errorf("Mismatches: got %d, want 3", len(a.Mismatches))
	}
	if len(a.Skips) != 1 {
		t.Errorf("Skips: got %d, want 1", len(a.Skips))
	}

	counts := a.CountBySeverity()
	if counts[SeverityError] != 1 || counts[SeverityWarning] != 1 || counts[SeverityInfo] != 1 {
		t.Errorf("CountBySeverity: got %v", counts)
	}
	if !a.HasErrors() {
		t.Error("HasErrors should be true")
	}
	if a.Clean() {
		t.Error("Clean should be false")
	}

	a.Merge(nil) // no-op
	if len(a.Mismatches) != 3 {
		t.Error("Merge(nil) should not change the result")
	}
}

func BenchmarkReconcile(b *testing.B) {
	r := NewReconciler(DefaultTolerances())

	subID := id.NewSubscriptionID()
	custID := id.NewCustomerID()
	p := period(1)

	exp := order.NewExpectedOrder(subID, custID, "usd", p)
	act := order.NewActualOrder(subID, custID, "usd", p)
	for i := 0; i < 20; i++ {
		priceID := id.NewPriceID()
		exp.AddLineItem(order.ExpectedLineItem{PriceID: priceID, Label: "Item", Amount: types.USD(100)})
		act.AddLineItem(order.ActualLineItem{PriceID: priceID, Label: "Item", Amount: types.USD(100)})
	}
	exp.Finalize()
	act.Subtotal = exp.Subtotal
	act.Total = exp.Total

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Reconcile(exp, act); err != nil {
			b.Fatal(err)
		}
	}
}
