package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/reconcile"
)

// severityRank orders severities for AlertSink filtering.
var severityRank = map[reconcile.Severity]int{
	reconcile.SeverityInfo:    0,
	reconcile.SeverityWarning: 1,
	reconcile.SeverityError:   2,
}

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onRunStarted          []OnRunStarted
	onRunCompleted        []OnRunCompleted
	onOrderReconciled     []OnOrderReconciled
	onMismatchFound       []OnMismatchFound
	onSubscriptionSkipped []OnSubscriptionSkipped
	alertSinks            []AlertSink
	reportExporters       map[string]ReportExporter
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:          slog.Default(),
		reportExporters: make(map[string]ReportExporter),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnRunStarted); ok {
		r.onRunStarted = append(r.onRunStarted, v)
	}
	if v, ok := p.(OnRunCompleted); ok {
		r.onRunCompleted = append(r.onRunCompleted, v)
	}
	if v, ok := p.(OnOrderReconciled); ok {
		r.onOrderReconciled = append(r.onOrderReconciled, v)
	}
	if v, ok := p.(OnMismatchFound); ok {
		r.onMismatchFound = append(r.onMismatchFound, v)
	}
	if v, ok := p.(OnSubscriptionSkipped); ok {
		r.onSubscriptionSkipped = append(r.onSubscriptionSkipped, v)
	}
	if v, ok := p.(AlertSink); ok {
		r.alertSinks = append(r.alertSinks, v)
	}
	if v, ok := p.(ReportExporter); ok {
		r.reportExporters[v.Format()] = v
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnRunStarted)(nil)).Elem(), "OnRunStarted")
	checkInterface(reflect.TypeOf((*OnRunCompleted)(nil)).Elem(), "OnRunCompleted")
	checkInterface(reflect.TypeOf((*OnOrderReconciled)(nil)).Elem(), "OnOrderReconciled")
	checkInterface(reflect.TypeOf((*OnMismatchFound)(nil)).Elem(), "OnMismatchFound")
	checkInterface(reflect.TypeOf((*OnSubscriptionSkipped)(nil)).Elem(), "OnSubscriptionSkipped")
	checkInterface(reflect.TypeOf((*AlertSink)(nil)).Elem(), "AlertSink")
	checkInterface(reflect.TypeOf((*ReportExporter)(nil)).Elem(), "ReportExporter")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// GetReportExporter returns a report exporter by format.
func (r *Registry) GetReportExporter(format string) ReportExporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reportExporters[format]
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, oracle interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, oracle)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRunStarted emits a run started event.
func (r *Registry) EmitRunStarted(ctx context.Context, runID id.RunID, targets int) {
	r.mu.RLock()
	plugins := r.onRunStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRunStarted(ctx, runID, targets)
		}); err != nil {
			r.logger.Warn("plugin OnRunStarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRunCompleted emits a run completed event.
func (r *Registry) EmitRunCompleted(ctx context.Context, result *reconcile.Result, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onRunCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRunCompleted(ctx, result, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnRunCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOrderReconciled emits an order reconciled event.
func (r *Registry) EmitOrderReconciled(ctx context.Context, subID id.SubscriptionID, orderID id.OrderID, mismatches []reconcile.Mismatch) {
	r.mu.RLock()
	plugins := r.onOrderReconciled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOrderReconciled(ctx, subID, orderID, mismatches)
		}); err != nil {
			r.logger.Warn("plugin OnOrderReconciled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitMismatchFound emits one event per finding and fans the finding out
// to every alert sink whose severity floor it clears.
func (r *Registry) EmitMismatchFound(ctx context.Context, subID id.SubscriptionID, m reconcile.Mismatch) {
	r.mu.RLock()
	plugins := r.onMismatchFound
	sinks := r.alertSinks
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnMismatchFound(ctx, subID, m)
		}); err != nil {
			r.logger.Warn("plugin OnMismatchFound failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}

	for _, sink := range sinks {
		if severityRank[m.Severity] < severityRank[sink.MinSeverity()] {
			continue
		}
		s := sink
		if err := r.callWithTimeout(ctx, s.Name(), func() error {
			return s.Alert(ctx, subID, m)
		}); err != nil {
			r.logger.Warn("alert sink failed",
				"plugin", s.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionSkipped emits a subscription skipped event.
func (r *Registry) EmitSubscriptionSkipped(ctx context.Context, subID id.SubscriptionID, reason string) {
	r.mu.RLock()
	plugins := r.onSubscriptionSkipped
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionSkipped(ctx, subID, reason)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionSkipped failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block a reconciliation run.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
