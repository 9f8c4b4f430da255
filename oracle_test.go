package oracle_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/oracle"
	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
	"github.com/xraph/oracle/store"
	"github.com/xraph/oracle/store/memory"
	"github.com/xraph/oracle/types"
)

func fixedSource(custID id.CustomerID, priceID id.PriceID, currency string) oracle.ExpectedSourceFunc {
	return func(_ context.Context, subID id.SubscriptionID, p types.Period) (*order.ExpectedOrder, error) {
		exp := order.NewExpectedOrder(subID, custID, currency, p)
		exp.AddLineItem(order.ExpectedLineItem{
			PriceID:   priceID,
			Label:     "Base Plan",
			EntryType: order.EntryCycle,
			Quantity:  1,
			Amount:    types.NewMoney(2500, currency),
		})
		exp.Finalize()
		return exp, nil
	}
}

func ingestCleanOrder(t *testing.T, o *oracle.Oracle, subID id.SubscriptionID, custID id.CustomerID, priceID id.PriceID, p types.Period) *order.ActualOrder {
	t.Helper()

	actual := order.NewActualOrder(subID, custID, "usd", p)
	actual.AddLineItem(order.ActualLineItem{
		PriceID:  priceID,
		Label:    "Base Plan",
		Quantity: 1,
		Amount:   types.USD(2500),
	})
	actual.Subtotal = types.USD(2500)
	actual.Total = types.USD(2500)

	if err := o.IngestOrder(context.Background(), actual); err != nil {
		t.Fatal(err)
	}
	return actual
}

func testPeriod(month time.Month) types.Period {
	start := time.Date(2025, month, 1, 0, 0, 0, 0, time.UTC)
	return types.NewPeriod(start, start.AddDate(0, 1, 0))
}

func TestRunIsolatesFailures(t *testing.T) {
	custID := id.NewCustomerID()
	priceID := id.NewPriceID()
	goodSub := id.NewSubscriptionID()
	badSub := id.NewSubscriptionID()
	period := testPeriod(time.January)

	base := fixedSource(custID, priceID, "usd")
	source := oracle.ExpectedSourceFunc(func(ctx context.Context, subID id.SubscriptionID, p types.Period) (*order.ExpectedOrder, error) {
		if subID.String() == badSub.String() {
			return nil, errors.New("rating service unavailable")
		}
		return base(ctx, subID, p)
	})

	st := memory.New()
	o := oracle.New(st, source)
	ctx := context.Background()

	good := ingestCleanOrder(t, o, goodSub, custID, priceID, period)
	bad := ingestCleanOrder(t, o, badSub, custID, priceID, period)

	result, err := o.Run(ctx, []store.Target{
		{SubscriptionID: goodSub, OrderID: good.ID, Period: period},
		{SubscriptionID: badSub, OrderID: bad.ID, Period: period},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.OrdersChecked != 1 {
		t.Errorf("OrdersChecked = %d, want 1", result.OrdersChecked)
	}
	if len(result.Skips) != 1 {
		t.Fatalf("got %d skips, want 1: %+v", len(result.Skips), result.Skips)
	}
	skip := result.Skips[0]
	if skip.SubscriptionID.String() != badSub.String() {
		t.Errorf("skip subscription = %s, want %s", skip.SubscriptionID, badSub)
	}
	if !strings.Contains(skip.Reason, "expected state unavailable") {
		t.Errorf("skip reason = %q, want expected-state failure", skip.Reason)
	}

	// One failed target must not hide findings from the rest.
	if len(result.Mismatches) != 0 {
		t.Errorf("clean order produced findings: %+v", result.Mismatches)
	}
}

func TestRunPreconditionBecomesSkip(t *testing.T) {
	custID := id.NewCustomerID()
	priceID := id.NewPriceID()
	subID := id.NewSubscriptionID()
	period := testPeriod(time.February)

	// Expected side rebuilt in the wrong currency: the pair is not
	// comparable and must be isolated, not reported as a mismatch.
	source := fixedSource(custID, priceID, "eur")

	st := memory.New()
	o := oracle.New(st, source)
	actual := ingestCleanOrder(t, o, subID, custID, priceID, period)

	result, err := o.Run(context.Background(), []store.Target{
		{SubscriptionID: subID, OrderID: actual.ID, Period: period},
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.OrdersChecked != 0 {
		t.Errorf("OrdersChecked = %d, want 0", result.OrdersChecked)
	}
	if len(result.Skips) != 1 {
		t.Fatalf("got %d skips, want 1", len(result.Skips))
	}
	if !strings.Contains(result.Skips[0].Reason, "currencies") {
		t.Errorf("skip reason = %q, want currency violation", result.Skips[0].Reason)
	}

	// The order stays due for the next run.
	targets, err := st.ListDue(context.Background(), period.End, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 {
		t.Errorf("got %d due targets after skip, want 1", len(targets))
	}
}

func TestRunInterruptedByContext(t *testing.T) {
	custID := id.NewCustomerID()
	priceID := id.NewPriceID()
	subID := id.NewSubscriptionID()
	period := testPeriod(time.March)

	base := fixedSource(custID, priceID, "usd")
	source := oracle.ExpectedSourceFunc(func(ctx context.Context, subID id.SubscriptionID, p types.Period) (*order.ExpectedOrder, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return base(ctx, subID, p)
	})

	st := memory.New()
	o := oracle.New(st, source)
	actual := ingestCleanOrder(t, o, subID, custID, priceID, period)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx, []store.Target{
		{SubscriptionID: subID, OrderID: actual.ID, Period: period},
	})
	if !errors.Is(err, oracle.ErrRunInterrupted) {
		t.Fatalf("err = %v, want ErrRunInterrupted", err)
	}
	if result == nil {
		t.Fatal("interrupted run must still return the partial result")
	}
	if result.OrdersChecked != 0 {
		t.Errorf("OrdersChecked = %d, want 0", result.OrdersChecked)
	}
}

func TestRunWithoutSource(t *testing.T) {
	o := oracle.New(memory.New(), nil)

	if _, err := o.Run(context.Background(), nil); !errors.Is(err, oracle.ErrNoSource) {
		t.Errorf("Run err = %v, want ErrNoSource", err)
	}
	if _, err := o.ReconcileSubscription(context.Background(), id.NewSubscriptionID(), testPeriod(time.April)); !errors.Is(err, oracle.ErrNoSource) {
		t.Errorf("ReconcileSubscription err = %v, want ErrNoSource", err)
	}
}

func TestIngestOrder(t *testing.T) {
	custID := id.NewCustomerID()
	priceID := id.NewPriceID()
	subID := id.NewSubscriptionID()
	period := testPeriod(time.May)

	st := memory.New()
	o := oracle.New(st, fixedSource(custID, priceID, "usd"))
	ctx := context.Background()

	if err := o.IngestOrder(ctx, nil); !errors.Is(err, oracle.ErrNilOrder) {
		t.Errorf("nil order err = %v, want ErrNilOrder", err)
	}

	actual := ingestCleanOrder(t, o, subID, custID, priceID, period)
	if actual.ID.IsNil() {
		t.Error("ingest must assign an order ID")
	}

	got, err := o.GetOrder(ctx, actual.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SubscriptionID.String() != subID.String() {
		t.Errorf("subscription = %s, want %s", got.SubscriptionID, subID)
	}

	// A hand-built order with a zero-value Money field must be rejected
	// at ingestion, not stored to fail a later batch run.
	bad := order.NewActualOrder(id.NewSubscriptionID(), custID, "usd", period)
	bad.Subtotal = types.USD(100)
	bad.Total = types.USD(100)
	bad.DiscountAmount = types.Money{}
	err = o.IngestOrder(ctx, bad)
	var verr *order.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ingest err = %v, want ValidationError", err)
	}
	if verr.Field != "discount_amount" {
		t.Errorf("validation field = %q, want discount_amount", verr.Field)
	}
}

// capturePlugin records every hook invocation for assertion.
type capturePlugin struct {
	mu         sync.Mutex
	started    int
	completed  int
	reconciled int
	mismatches int
	skipped    int
}

func (p *capturePlugin) Name() string { return "capture" }

func (p *capturePlugin) OnRunStarted(_ context.Context, _ id.RunID, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
	return nil
}

func (p *capturePlugin) OnRunCompleted(_ context.Context, _ *reconcile.Result, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	return nil
}

func (p *capturePlugin) OnOrderReconciled(_ context.Context, _ id.SubscriptionID, _ id.OrderID, _ []reconcile.Mismatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconciled++
	return nil
}

func (p *capturePlugin) OnMismatchFound(_ context.Context, _ id.SubscriptionID, _ reconcile.Mismatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mismatches++
	return nil
}

func (p *capturePlugin) OnSubscriptionSkipped(_ context.Context, _ id.SubscriptionID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipped++
	return nil
}

func TestRunEmitsPluginHooks(t *testing.T) {
	custID := id.NewCustomerID()
	priceID := id.NewPriceID()
	cleanSub := id.NewSubscriptionID()
	shortSub := id.NewSubscriptionID()
	failSub := id.NewSubscriptionID()
	period := testPeriod(time.June)

	base := fixedSource(custID, priceID, "usd")
	source := oracle.ExpectedSourceFunc(func(ctx context.Context, subID id.SubscriptionID, p types.Period) (*order.ExpectedOrder, error) {
		if subID.String() == failSub.String() {
			return nil, errors.New("usage aggregation timed out")
		}
		return base(ctx, subID, p)
	})

	capture := &capturePlugin{}
	st := memory.New()
	o := oracle.New(st, source, oracle.WithPlugin(capture))
	ctx := context.Background()

	clean := ingestCleanOrder(t, o, cleanSub, custID, priceID, period)

	// Undercharged by 50 cents: one line item finding plus the
	// subtotal and total follow-ons.
	short := order.NewActualOrder(shortSub, custID, "usd", period)
	short.AddLineItem(order.ActualLineItem{
		PriceID:  priceID,
		Label:    "Base Plan",
		Quantity: 1,
		Amount:   types.USD(2450),
	})
	short.Subtotal = types.USD(2450)
	short.Total = types.USD(2450)
	if err := o.IngestOrder(ctx, short); err != nil {
		t.Fatal(err)
	}

	failing := ingestCleanOrder(t, o, failSub, custID, priceID, period)

	result, err := o.Run(ctx, []store.Target{
		{SubscriptionID: cleanSub, OrderID: clean.ID, Period: period},
		{SubscriptionID: shortSub, OrderID: short.ID, Period: period},
		{SubscriptionID: failSub, OrderID: failing.ID, Period: period},
	})
	if err != nil {
		t.Fatal(err)
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()

	if capture.started != 1 || capture.completed != 1 {
		t.Errorf("run hooks = %d started / %d completed, want 1/1", capture.started, capture.completed)
	}
	if capture.reconciled != 2 {
		t.Errorf("OnOrderReconciled fired %d times, want 2", capture.reconciled)
	}
	if capture.mismatches != len(result.Mismatches) {
		t.Errorf("OnMismatchFound fired %d times, want %d", capture.mismatches, len(result.Mismatches))
	}
	if capture.skipped != 1 {
		t.Errorf("OnSubscriptionSkipped fired %d times, want 1", capture.skipped)
	}
}
