// Package audithook bridges Oracle reconciliation events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not import
// an audit module directly. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/plugin"
	"github.com/xraph/oracle/reconcile"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnRunStarted          = (*Extension)(nil)
	_ plugin.OnRunCompleted        = (*Extension)(nil)
	_ plugin.OnOrderReconciled     = (*Extension)(nil)
	_ plugin.OnMismatchFound       = (*Extension)(nil)
	_ plugin.OnSubscriptionSkipped = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not depend
// on any concrete audit module.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Oracle reconciliation events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// OnRunStarted implements plugin.OnRunStarted.
func (e *Extension) OnRunStarted(ctx context.Context, runID id.RunID, targets int) error {
	return e.record(ctx, ActionRunStarted, SeverityInfo, OutcomeSuccess,
		ResourceRun, runID.String(), CategoryReconciliation, nil,
		"targets", targets,
	)
}

// OnRunCompleted implements plugin.OnRunCompleted.
func (e *Extension) OnRunCompleted(ctx context.Context, result *reconcile.Result, elapsed time.Duration) error {
	outcome := OutcomeSuccess
	severity := SeverityInfo
	if result.HasErrors() {
		outcome = OutcomePartial
		severity = SeverityError
	}
	return e.record(ctx, ActionRunCompleted, severity, outcome,
		ResourceRun, result.RunID.String(), CategoryReconciliation, nil,
		"orders_checked", result.OrdersChecked,
		"mismatches", len(result.Mismatches),
		"skips", len(result.Skips),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Per-order hooks
// ──────────────────────────────────────────────────

// OnOrderReconciled implements plugin.OnOrderReconciled.
func (e *Extension) OnOrderReconciled(ctx context.Context, subID id.SubscriptionID, orderID id.OrderID, mismatches []reconcile.Mismatch) error {
	outcome := OutcomeSuccess
	if len(mismatches) > 0 {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionOrderReconciled, SeverityInfo, outcome,
		ResourceOrder, orderID.String(), CategoryBilling, nil,
		"subscription_id", subID.String(),
		"findings", len(mismatches),
	)
}

// OnMismatchFound implements plugin.OnMismatchFound.
func (e *Extension) OnMismatchFound(ctx context.Context, subID id.SubscriptionID, m reconcile.Mismatch) error {
	return e.record(ctx, ActionMismatchFound, string(m.Severity), OutcomeFailure,
		ResourceSubscription, subID.String(), CategoryBilling, nil,
		"classification", string(m.Classification),
		"message", m.Message,
		"difference_cents", m.Difference,
	)
}

// OnSubscriptionSkipped implements plugin.OnSubscriptionSkipped.
func (e *Extension) OnSubscriptionSkipped(ctx context.Context, subID id.SubscriptionID, reason string) error {
	return e.record(ctx, ActionSubscriptionSkipped, SeverityWarning, OutcomeFailure,
		ResourceSubscription, subID.String(), CategoryReconciliation, nil,
		"reason", reason,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
