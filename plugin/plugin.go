// Package plugin provides an extensible plugin system for Oracle.
// Plugins can hook into reconciliation lifecycle events to extend
// functionality: alert sinks, report exporters, metrics.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/reconcile"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, oracle interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// OnRunStarted is called when a reconciliation run begins.
type OnRunStarted interface {
	Plugin
	OnRunStarted(ctx context.Context, runID id.RunID, targets int) error
}

// OnRunCompleted is called when a reconciliation run finishes, with the
// full result.
type OnRunCompleted interface {
	Plugin
	OnRunCompleted(ctx context.Context, result *reconcile.Result, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Per-order hooks
// ──────────────────────────────────────────────────

// OnOrderReconciled is called after one subscription/period pair was
// compared, whether or not findings were produced.
type OnOrderReconciled interface {
	Plugin
	OnOrderReconciled(ctx context.Context, subID id.SubscriptionID, orderID id.OrderID, mismatches []reconcile.Mismatch) error
}

// OnMismatchFound is called once per finding.
type OnMismatchFound interface {
	Plugin
	OnMismatchFound(ctx context.Context, subID id.SubscriptionID, m reconcile.Mismatch) error
}

// OnSubscriptionSkipped is called when one subscription's reconciliation
// could not run and was recorded as a run-level skip.
type OnSubscriptionSkipped interface {
	Plugin
	OnSubscriptionSkipped(ctx context.Context, subID id.SubscriptionID, reason string) error
}

// ──────────────────────────────────────────────────
// Alert sinks
// ──────────────────────────────────────────────────

// AlertSink receives severity-filtered findings for paging or batch
// reporting. Sinks declare the minimum severity they care about.
type AlertSink interface {
	Plugin
	MinSeverity() reconcile.Severity
	Alert(ctx context.Context, subID id.SubscriptionID, m reconcile.Mismatch) error
}

// ──────────────────────────────────────────────────
// Report exporters
// ──────────────────────────────────────────────────

// ReportExporter renders a completed run result for external consumption.
type ReportExporter interface {
	Plugin
	Format() string // "json", "csv", etc.
	Export(ctx context.Context, result *reconcile.Result) ([]byte, error)
}
