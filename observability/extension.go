// Package observability provides a metrics extension for Oracle that records
// reconciliation event counts via a pluggable MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/plugin"
	"github.com/xraph/oracle/reconcile"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnRunStarted          = (*MetricsExtension)(nil)
	_ plugin.OnRunCompleted        = (*MetricsExtension)(nil)
	_ plugin.OnOrderReconciled     = (*MetricsExtension)(nil)
	_ plugin.OnMismatchFound       = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionSkipped = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide reconciliation metrics.
// Register it as an Oracle plugin to automatically track run health.
type MetricsExtension struct {
	factory MetricFactory

	// Run metrics
	RunsStarted   Counter
	RunsCompleted Counter
	RunDuration   Histogram
	RunTargets    Histogram

	// Order metrics
	OrdersReconciled  Counter
	OrdersClean       Counter
	MismatchesPerRun  Histogram
	SubscriptionSkips Counter

	// Mismatch metrics by severity
	MismatchesInfo    Counter
	MismatchesWarning Counter
	MismatchesError   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Run metrics
		RunsStarted:   factory.Counter("oracle.run.started"),
		RunsCompleted: factory.Counter("oracle.run.completed"),
		RunDuration:   factory.Histogram("oracle.run.duration_ms"),
		RunTargets:    factory.Histogram("oracle.run.targets"),

		// Order metrics
		OrdersReconciled:  factory.Counter("oracle.order.reconciled"),
		OrdersClean:       factory.Counter("oracle.order.clean"),
		MismatchesPerRun:  factory.Histogram("oracle.run.mismatches"),
		SubscriptionSkips: factory.Counter("oracle.subscription.skipped"),

		// Mismatch metrics
		MismatchesInfo:    factory.Counter("oracle.mismatch.info"),
		MismatchesWarning: factory.Counter("oracle.mismatch.warning"),
		MismatchesError:   factory.Counter("oracle.mismatch.error"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// OnRunStarted implements plugin.OnRunStarted.
func (m *MetricsExtension) OnRunStarted(_ context.Context, _ id.RunID, targets int) error {
	m.RunsStarted.Inc()
	m.RunTargets.Observe(float64(targets))
	return nil
}

// OnRunCompleted implements plugin.OnRunCompleted.
func (m *MetricsExtension) OnRunCompleted(_ context.Context, result *reconcile.Result, elapsed time.Duration) error {
	m.RunsCompleted.Inc()
	m.RunDuration.Observe(float64(elapsed.Milliseconds()))
	m.MismatchesPerRun.Observe(float64(len(result.Mismatches)))
	return nil
}

// ──────────────────────────────────────────────────
// Per-order hooks
// ──────────────────────────────────────────────────

// OnOrderReconciled implements plugin.OnOrderReconciled.
func (m *MetricsExtension) OnOrderReconciled(_ context.Context, _ id.SubscriptionID, _ id.OrderID, mismatches []reconcile.Mismatch) error {
	m.OrdersReconciled.Inc()
	if len(mismatches) == 0 {
		m.OrdersClean.Inc()
	}
	return nil
}

// OnMismatchFound implements plugin.OnMismatchFound.
func (m *MetricsExtension) OnMismatchFound(_ context.Context, _ id.SubscriptionID, mm reconcile.Mismatch) error {
	switch mm.Severity {
	case reconcile.SeverityInfo:
		m.MismatchesInfo.Inc()
	case reconcile.SeverityWarning:
		m.MismatchesWarning.Inc()
	case reconcile.SeverityError:
		m.MismatchesError.Inc()
	}
	return nil
}

// OnSubscriptionSkipped implements plugin.OnSubscriptionSkipped.
func (m *MetricsExtension) OnSubscriptionSkipped(_ context.Context, _ id.SubscriptionID, _ string) error {
	m.SubscriptionSkips.Inc()
	return nil
}
