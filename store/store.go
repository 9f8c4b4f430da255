// Package store defines the unified storage interface for Oracle:
// ingested actual orders on one side, persisted reconciliation run
// results on the other.
package store

import (
	"context"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
	"github.com/xraph/oracle/types"
)

// Target identifies one subscription/period pair due for reconciliation.
type Target struct {
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	OrderID        id.OrderID        `json:"order_id"`
	Period         types.Period      `json:"period"`
}

// ListOpts filters actual order listings.
type ListOpts struct {
	Status order.Status
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}

// ResultListOpts filters run result listings.
type ResultListOpts struct {
	Since  time.Time
	Limit  int
	Offset int
}

// Store is the unified storage interface for all Oracle entities.
type Store interface {
	// Actual order methods
	IngestActualOrder(ctx context.Context, o *order.ActualOrder) error
	GetActualOrder(ctx context.Context, orderID id.OrderID) (*order.ActualOrder, error)
	GetActualOrderByPeriod(ctx context.Context, subID id.SubscriptionID, period types.Period) (*order.ActualOrder, error)
	ListActualOrders(ctx context.Context, subID id.SubscriptionID, opts ListOpts) ([]*order.ActualOrder, error)

	// ListDue returns the subscription/period pairs whose billing period
	// ended at or before asOf and that have not been reconciled yet.
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]Target, error)

	// MarkReconciled records that an order was covered by a run so it
	// drops out of ListDue.
	MarkReconciled(ctx context.Context, orderID id.OrderID, runID id.RunID) error

	// Run result methods
	SaveResult(ctx context.Context, r *reconcile.Result) error
	GetResult(ctx context.Context, runID id.RunID) (*reconcile.Result, error)
	ListResults(ctx context.Context, opts ResultListOpts) ([]*reconcile.Result, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
