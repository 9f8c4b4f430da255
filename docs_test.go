package oracle_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/oracle"
	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
	"github.com/xraph/oracle/store/memory"
	"github.com/xraph/oracle/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and behave as described.
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package doc
	t.Run("QuickStartExample", func(t *testing.T) {
		subID := id.NewSubscriptionID()
		custID := id.NewCustomerID()
		priceID := id.NewPriceID()
		period := types.NewPeriod(
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		)

		// The source derives what each order should contain from the
		// billing configuration. Here it is a fixed $49.00 plan.
		source := oracle.ExpectedSourceFunc(func(_ context.Context, sID id.SubscriptionID, p types.Period) (*order.ExpectedOrder, error) {
			exp := order.NewExpectedOrder(sID, custID, "usd", p)
			exp.AddLineItem(order.ExpectedLineItem{
				PriceID:   priceID,
				Label:     "Pro Plan",
				EntryType: order.EntryCycle,
				Quantity:  1,
				Amount:    types.USD(4900),
				TaxAmount: types.USD(490),
			})
			exp.Finalize()
			return exp, nil
		})

		// Create store (memory for demo, use PostgreSQL in production)
		st := memory.New()

		o := oracle.New(st, source,
			oracle.WithLogger(slog.Default()),
			oracle.WithWorkers(2),
		)

		ctx := context.Background()
		if err := o.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer o.Stop()

		// Ingest what the billing provider actually produced. The tax
		// is 10 cents short of what the plan prescribes.
		actual := order.NewActualOrder(subID, custID, "usd", period)
		actual.AddLineItem(order.ActualLineItem{
			PriceID:   priceID,
			Label:     "Pro Plan",
			Quantity:  1,
			Amount:    types.USD(4900),
			TaxAmount: types.USD(480),
		})
		actual.Subtotal = types.USD(4900)
		actual.TaxAmount = types.USD(480)
		actual.Total = types.USD(5380)

		if err := o.IngestOrder(ctx, actual); err != nil {
			t.Fatal(err)
		}

		// Reconcile everything whose period has closed.
		result, err := o.RunDue(ctx, period.End, 10)
		if err != nil {
			t.Fatal(err)
		}

		if result.OrdersChecked != 1 {
			t.Fatalf("OrdersChecked = %d, want 1", result.OrdersChecked)
		}
		if len(result.Skips) != 0 {
			t.Fatalf("unexpected skips: %+v", result.Skips)
		}
		if len(result.Mismatches) != 2 {
			t.Fatalf("got %d mismatches, want 2: %+v", len(result.Mismatches), result.Mismatches)
		}

		// Line items are compared before totals. Both tax and total are
		// 10 cents short: within the significant threshold, so warnings.
		tax := result.Mismatches[0]
		if tax.Classification != reconcile.ClassTaxMismatch {
			t.Errorf("first finding classification = %s, want %s", tax.Classification, reconcile.ClassTaxMismatch)
		}
		if tax.Severity != reconcile.SeverityWarning {
			t.Errorf("tax severity = %s, want warning", tax.Severity)
		}
		if tax.Difference != -10 {
			t.Errorf("tax difference = %d, want -10", tax.Difference)
		}

		total := result.Mismatches[1]
		if total.Classification != reconcile.ClassAmountMismatch {
			t.Errorf("second finding classification = %s, want %s", total.Classification, reconcile.ClassAmountMismatch)
		}
		if total.Difference != -10 {
			t.Errorf("total difference = %d, want -10", total.Difference)
		}

		// Completed runs are persisted and retrievable by run ID.
		saved, err := o.GetResult(ctx, result.RunID)
		if err != nil {
			t.Fatal(err)
		}
		if saved.OrdersChecked != result.OrdersChecked {
			t.Errorf("saved OrdersChecked = %d, want %d", saved.OrdersChecked, result.OrdersChecked)
		}

		// A second pass finds nothing due: the order was marked reconciled.
		again, err := o.RunDue(ctx, period.End, 10)
		if err != nil {
			t.Fatal(err)
		}
		if again.OrdersChecked != 0 {
			t.Errorf("second run OrdersChecked = %d, want 0", again.OrdersChecked)
		}
	})

	// Test single-subscription reconcile example
	t.Run("ReconcileSubscriptionExample", func(t *testing.T) {
		subID := id.NewSubscriptionID()
		custID := id.NewCustomerID()
		priceID := id.NewPriceID()
		period := types.NewPeriod(
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		)

		source := oracle.ExpectedSourceFunc(func(_ context.Context, sID id.SubscriptionID, p types.Period) (*order.ExpectedOrder, error) {
			exp := order.NewExpectedOrder(sID, custID, "usd", p)
			exp.AddLineItem(order.ExpectedLineItem{
				PriceID:   priceID,
				Label:     "Team Seats",
				EntryType: order.EntryCycle,
				Quantity:  5,
				Amount:    types.USD(2500),
			})
			exp.Finalize()
			return exp, nil
		})

		st := memory.New()
		o := oracle.New(st, source)

		ctx := context.Background()
		actual := order.NewActualOrder(subID, custID, "usd", period)
		actual.AddLineItem(order.ActualLineItem{
			PriceID:  priceID,
			Label:    "Team Seats",
			Quantity: 5,
			Amount:   types.USD(2500),
		})
		actual.Subtotal = types.USD(2500)
		actual.Total = types.USD(2500)

		if err := o.IngestOrder(ctx, actual); err != nil {
			t.Fatal(err)
		}

		mismatches, err := o.ReconcileSubscription(ctx, subID, period)
		if err != nil {
			t.Fatal(err)
		}
		if len(mismatches) != 0 {
			t.Fatalf("clean order produced findings: %+v", mismatches)
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(4900)   // $49.00
		_ = types.EUR(9900)   // 99.00 EUR
		_ = types.Zero("usd") // $0.00

		// Arithmetic
		m1 := types.USD(100)
		m2 := types.USD(200)
		_ = m1.Add(m2)      // $3.00
		_ = m2.Subtract(m1) // $1.00
		_ = m1.Diff(m2)     // -100

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "$1.00"
		_ = m1.FormatMajor() // "1.00"
	})
}
