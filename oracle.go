package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/plugin"
	"github.com/xraph/oracle/reconcile"
	"github.com/xraph/oracle/store"
	"github.com/xraph/oracle/types"
)

// ExpectedSource rebuilds what an order should have contained for a
// subscription's billing period, independently of what was persisted.
// It is the boundary to rating, discount, tax, and usage aggregation
// logic, which Oracle treats as an external collaborator.
type ExpectedSource interface {
	BuildExpectedOrder(ctx context.Context, subID id.SubscriptionID, period types.Period) (*order.ExpectedOrder, error)
}

// ExpectedSourceFunc adapts a function to the ExpectedSource interface.
type ExpectedSourceFunc func(ctx context.Context, subID id.SubscriptionID, period types.Period) (*order.ExpectedOrder, error)

// BuildExpectedOrder implements ExpectedSource.
func (f ExpectedSourceFunc) BuildExpectedOrder(ctx context.Context, subID id.SubscriptionID, period types.Period) (*order.ExpectedOrder, error) {
	return f(ctx, subID, period)
}

// Oracle is the billing reconciliation engine. It ingests actual orders,
// rebuilds the expected side via the configured ExpectedSource, and runs
// batched, concurrent reconciliation over the pairs.
type Oracle struct {
	store   store.Store
	source  ExpectedSource
	plugins *plugin.Registry
	logger  *slog.Logger

	reconciler *reconcile.Reconciler
	workers    int
}

// New creates a new Oracle instance.
func New(s store.Store, source ExpectedSource, opts ...Option) *Oracle {
	o := &Oracle{
		store:      s,
		source:     source,
		plugins:    plugin.NewRegistry(),
		logger:     slog.Default(),
		reconciler: reconcile.NewReconciler(reconcile.DefaultTolerances()),
		workers:    4,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Option configures an Oracle instance.
type Option func(*Oracle)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		o.logger = logger
		o.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(o *Oracle) {
		_ = o.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithTolerances sets the classification thresholds.
func WithTolerances(tol reconcile.Tolerances) Option {
	return func(o *Oracle) {
		o.reconciler = reconcile.NewReconciler(tol)
	}
}

// WithWorkers bounds the reconciliation worker pool.
func WithWorkers(n int) Option {
	return func(o *Oracle) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Start migrates the store and initializes plugins.
func (o *Oracle) Start(ctx context.Context) error {
	if err := o.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	o.plugins.EmitInit(ctx, o)

	o.logger.Info("oracle started",
		"workers", o.workers,
		"rounding_tolerance_cents", o.reconciler.Classifier().Tolerances().RoundingCents,
		"significant_amount_cents", o.reconciler.Classifier().Tolerances().SignificantCents,
	)

	return nil
}

// Stop shuts down the Oracle.
func (o *Oracle) Stop() error {
	ctx := context.Background()
	o.plugins.EmitShutdown(ctx)

	return o.store.Close()
}

// Reconciler exposes the underlying stateless reconciler.
func (o *Oracle) Reconciler() *reconcile.Reconciler { return o.reconciler }

// Plugins exposes the plugin registry.
func (o *Oracle) Plugins() *plugin.Registry { return o.plugins }

// ──────────────────────────────────────────────────
// Order Ingestion
// ──────────────────────────────────────────────────

// IngestOrder validates and stores an actual order for later
// reconciliation.
func (o *Oracle) IngestOrder(ctx context.Context, ord *order.ActualOrder) error {
	if ord == nil {
		return ErrNilOrder
	}
	if ord.ID.IsNil() {
		ord.ID = id.NewOrderID()
	}
	if ord.CreatedAt.IsZero() {
		ord.Entity = types.NewEntity()
	}

	if err := ord.Validate(); err != nil {
		return err
	}

	return o.store.IngestActualOrder(ctx, ord)
}

// GetOrder retrieves an ingested actual order by ID.
func (o *Oracle) GetOrder(ctx context.Context, orderID id.OrderID) (*order.ActualOrder, error) {
	return o.store.GetActualOrder(ctx, orderID)
}

// ListOrders lists ingested actual orders for a subscription.
func (o *Oracle) ListOrders(ctx context.Context, subID id.SubscriptionID, opts store.ListOpts) ([]*order.ActualOrder, error) {
	return o.store.ListActualOrders(ctx, subID, opts)
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// ReconcileSubscription reconciles one subscription/period pair: the
// expected order is rebuilt via the ExpectedSource, the actual order is
// read from the store, and the two are compared.
func (o *Oracle) ReconcileSubscription(ctx context.Context, subID id.SubscriptionID, period types.Period) ([]reconcile.Mismatch, error) {
	if o.source == nil {
		return nil, ErrNoSource
	}

	expected, err := o.source.BuildExpectedOrder(ctx, subID, period)
	if err != nil {
		return nil, fmt.Errorf("build expected order for %s: %w", subID, err)
	}

	actual, err := o.store.GetActualOrderByPeriod(ctx, subID, period)
	if err != nil {
		return nil, fmt.Errorf("load actual order for %s: %w", subID, err)
	}

	mismatches, err := o.reconciler.Reconcile(expected, actual)
	if err != nil {
		return nil, err
	}

	o.plugins.EmitOrderReconciled(ctx, subID, actual.ID, mismatches)
	for _, m := range mismatches {
		o.plugins.EmitMismatchFound(ctx, subID, m)
	}

	return mismatches, nil
}

// Run reconciles a batch of targets with a bounded worker pool and
// returns the merged result. Each worker accumulates findings into a
// private result; results are merged after all workers finish, so no
// lock guards the shared mismatch list. A failure on one target is
// recorded as a skip and never aborts the batch.
func (o *Oracle) Run(ctx context.Context, targets []store.Target) (*reconcile.Result, error) {
	if o.source == nil {
		return nil, ErrNoSource
	}

	result := reconcile.NewResult()
	start := time.Now()

	o.plugins.EmitRunStarted(ctx, result.RunID, len(targets))
	o.logger.Info("reconciliation run started",
		"run_id", result.RunID,
		"targets", len(targets),
		"workers", o.workers,
	)

	workers := o.workers
	if workers > len(targets) {
		workers = len(targets)
	}
	if workers < 1 {
		workers = 1
	}

	feed := make(chan store.Target)
	partials := make([]*reconcile.Result, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		partial := &reconcile.Result{RunID: result.RunID, StartedAt: result.StartedAt}
		partials[w] = partial

		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range feed {
				o.reconcileTarget(ctx, target, partial)
			}
		}()
	}

	// Stop submitting new work once the context is done; in-flight
	// work is left to finish.
feeding:
	for _, target := range targets {
		select {
		case feed <- target:
		case <-ctx.Done():
			break feeding
		}
	}
	close(feed)
	wg.Wait()

	for _, partial := range partials {
		result.Merge(partial)
	}
	result.CompletedAt = time.Now().UTC()

	if err := o.store.SaveResult(ctx, result); err != nil {
		o.logger.Error("failed to persist run result",
			"run_id", result.RunID,
			"error", err,
		)
	}

	elapsed := time.Since(start)
	o.plugins.EmitRunCompleted(ctx, result, elapsed)

	counts := result.CountBySeverity()
	o.logger.Info("reconciliation run completed",
		"run_id", result.RunID,
		"orders_checked", result.OrdersChecked,
		"errors", counts[reconcile.SeverityError],
		"warnings", counts[reconcile.SeverityWarning],
		"infos", counts[reconcile.SeverityInfo],
		"skips", len(result.Skips),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	if ctx.Err() != nil {
		return result, fmt.Errorf("%w: %v", ErrRunInterrupted, ctx.Err())
	}

	return result, nil
}

// RunDue reconciles every order whose billing period ended at or before
// asOf and that has not been covered by a previous run.
func (o *Oracle) RunDue(ctx context.Context, asOf time.Time, limit int) (*reconcile.Result, error) {
	targets, err := o.store.ListDue(ctx, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list due targets: %w", err)
	}

	return o.Run(ctx, targets)
}

// reconcileTarget handles one target inside a worker: fetch both sides,
// compare, and record findings or a skip into the worker's private
// result.
func (o *Oracle) reconcileTarget(ctx context.Context, target store.Target, partial *reconcile.Result) {
	expected, err := o.source.BuildExpectedOrder(ctx, target.SubscriptionID, target.Period)
	if err != nil {
		o.skipTarget(ctx, target, partial, fmt.Sprintf("expected state unavailable: %v", err))
		return
	}

	actual, err := o.store.GetActualOrderByPeriod(ctx, target.SubscriptionID, target.Period)
	if err != nil {
		o.skipTarget(ctx, target, partial, fmt.Sprintf("actual order unavailable: %v", err))
		return
	}

	mismatches, err := o.reconciler.Reconcile(expected, actual)
	if err != nil {
		// A precondition violation here means the two snapshots were
		// not comparable. Surface it loudly in logs, isolate it as a
		// skip so the rest of the batch proceeds.
		o.logger.Error("reconciliation precondition violated",
			"subscription_id", target.SubscriptionID,
			"error", err,
		)
		o.skipTarget(ctx, target, partial, err.Error())
		return
	}

	partial.OrdersChecked++
	partial.Add(mismatches...)

	if err := o.store.MarkReconciled(ctx, actual.ID, partial.RunID); err != nil {
		o.logger.Warn("failed to mark order reconciled",
			"order_id", actual.ID,
			"error", err,
		)
	}

	o.plugins.EmitOrderReconciled(ctx, target.SubscriptionID, actual.ID, mismatches)
	for _, m := range mismatches {
		o.plugins.EmitMismatchFound(ctx, target.SubscriptionID, m)
	}
}

func (o *Oracle) skipTarget(ctx context.Context, target store.Target, partial *reconcile.Result, reason string) {
	partial.AddSkip(target.SubscriptionID, reason)
	o.plugins.EmitSubscriptionSkipped(ctx, target.SubscriptionID, reason)
	o.logger.Warn("subscription skipped",
		"subscription_id", target.SubscriptionID,
		"reason", reason,
	)
}

// ──────────────────────────────────────────────────
// Run Results
// ──────────────────────────────────────────────────

// GetResult retrieves a persisted run result by run ID.
func (o *Oracle) GetResult(ctx context.Context, runID id.RunID) (*reconcile.Result, error) {
	return o.store.GetResult(ctx, runID)
}

// ListResults lists persisted run results.
func (o *Oracle) ListResults(ctx context.Context, opts store.ResultListOpts) ([]*reconcile.Result, error) {
	return o.store.ListResults(ctx, opts)
}
