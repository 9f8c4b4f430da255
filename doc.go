// Package oracle provides a billing reconciliation engine for Go applications.
//
// Oracle is designed as a library, not a service. It independently
// recomputes what a subscription should have been billed for a period
// and compares it, field-by-field and line-item-by-line-item, against
// the order that was actually committed to the billing ledger. Its
// output is a structured, severity-classified list of discrepancies
// that operators and alerting pipelines consume. It provides:
//
//   - Tolerance-aware integer-cent comparison with a three-tier
//     severity scheme (info / warning / error)
//   - Deterministic line item correlation by price, stable across
//     re-runs on identical inputs
//   - A discrepancy taxonomy (rounding_difference, amount_mismatch,
//     missing_line_item, extra_line_item, discount_mismatch,
//     tax_mismatch) stable enough to drive paging without false
//     positives
//   - Batched concurrent runs with partial-failure isolation
//   - Pluggable alert sinks and report exporters
//
// The engine never mutates billing state: it is diagnostic only and is
// safe to run repeatedly, concurrently, and against production data.
//
// # Quick Start
//
// Create an oracle with a store and an expected-state source:
//
//	import (
//	    "github.com/xraph/oracle"
//	    "github.com/xraph/oracle/store/postgres"
//	)
//
//	store, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	orc := oracle.New(store, expectedSource)
//	if err := orc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer orc.Stop()
//
// Ingest actual orders as the billing provider produces them:
//
//	err := orc.IngestOrder(ctx, actualOrder)
//
// Reconcile everything whose billing period has closed:
//
//	result, err := orc.RunDue(ctx, time.Now(), 1000)
//	for _, m := range result.Mismatches {
//	    fmt.Println(m.Severity, m.Classification, m.Message)
//	}
//
// # Core Concepts
//
// The ExpectedSource rebuilds what an order should have contained from
// subscription, price, discount, tax, and usage data:
//
//	source := oracle.ExpectedSourceFunc(func(ctx context.Context, subID oracle.ID, period oracle.Period) (*order.ExpectedOrder, error) {
//	    exp := order.NewExpectedOrder(subID, custID, "usd", period)
//	    exp.AddLineItem(order.ExpectedLineItem{PriceID: priceID, Label: "Pro plan", Amount: oracle.USD(4900)})
//	    exp.Finalize()
//	    return exp, nil
//	})
//
// Tolerances drive severity: differences within the rounding tolerance
// are info, within the significant-amount threshold are warning, and
// beyond it are error. Both thresholds are injected at construction:
//
//	orc := oracle.New(store, source,
//	    oracle.WithTolerances(oracle.Tolerances{RoundingCents: 2, SignificantCents: 100}),
//	)
//
// All monetary comparison uses integer arithmetic in minor units to
// avoid floating-point precision issues.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	sub_01h2xcejqtf2nbrexx3vqjhp41   // Subscription ID
//	ord_01h455vb4pex5vsknk084sn02q   // Order ID
//	run_01h455vb4pex5vsknk084sn02q   // Reconciliation run ID
//
// Expected orders and line items instead carry deterministic stable IDs
// derived from domain facts (subscription/price plus period), so
// rebuilding the expected side always yields the same identifiers.
package oracle
