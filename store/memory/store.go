// Package memory provides an in-memory Store implementation, used for
// tests and as the default when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/oracle"
	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
	"github.com/xraph/oracle/store"
	"github.com/xraph/oracle/types"
)

type Store struct {
	mu sync.RWMutex

	// Actual order storage
	orders map[string]*order.ActualOrder

	// Order ID -> run ID that covered it
	reconciled map[string]string

	// Run result storage
	results map[string]*reconcile.Result
}

func New() *Store {
	return &Store{
		orders:     make(map[string]*order.ActualOrder),
		reconciled: make(map[string]string),
		results:    make(map[string]*reconcile.Result),
	}
}

// Actual order methods

func (s *Store) IngestActualOrder(_ context.Context, o *order.ActualOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID.String()]; exists {
		return oracle.ErrOrderExists
	}
	s.orders[o.ID.String()] = o
	return nil
}

func (s *Store) GetActualOrder(_ context.Context, orderID id.OrderID) (*order.ActualOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.orders[orderID.String()]; ok {
		return o, nil
	}
	return nil, oracle.ErrOrderNotFound
}

func (s *Store) GetActualOrderByPeriod(_ context.Context, subID id.SubscriptionID, period types.Period) (*order.ActualOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.SubscriptionID.String() == subID.String() && o.Period.Equal(period) {
			return o, nil
		}
	}
	return nil, oracle.ErrNoOrderForPeriod
}

func (s *Store) ListActualOrders(_ context.Context, subID id.SubscriptionID, opts store.ListOpts) ([]*order.ActualOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*order.ActualOrder, 0)
	for _, o := range s.orders {
		if o.SubscriptionID.String() != subID.String() {
			continue
		}
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		if !opts.Start.IsZero() && o.Period.Start.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && o.Period.End.After(opts.End) {
			continue
		}
		result = append(result, o)
	}

	// Map iteration order is random; K-sortable IDs restore time order.
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) ListDue(_ context.Context, asOf time.Time, limit int) ([]store.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := make([]store.Target, 0)
	for _, o := range s.orders {
		if o.Period.End.After(asOf) {
			continue
		}
		if _, done := s.reconciled[o.ID.String()]; done {
			continue
		}
		targets = append(targets, store.Target{
			SubscriptionID: o.SubscriptionID,
			OrderID:        o.ID,
			Period:         o.Period,
		})
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].OrderID.String() < targets[j].OrderID.String()
	})

	if limit > 0 && len(targets) > limit {
		targets = targets[:limit]
	}
	return targets, nil
}

func (s *Store) MarkReconciled(_ context.Context, orderID id.OrderID, runID id.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID.String()]; !ok {
		return oracle.ErrOrderNotFound
	}
	s.reconciled[orderID.String()] = runID.String()
	return nil
}

// Run result methods

func (s *Store) SaveResult(_ context.Context, r *reconcile.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[r.RunID.String()] = r
	return nil
}

func (s *Store) GetResult(_ context.Context, runID id.RunID) (*reconcile.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.results[runID.String()]; ok {
		return r, nil
	}
	return nil, oracle.ErrRunNotFound
}

func (s *Store) ListResults(_ context.Context, opts store.ResultListOpts) ([]*reconcile.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*reconcile.Result, 0)
	for _, r := range s.results {
		if !opts.Since.IsZero() && r.StartedAt.Before(opts.Since) {
			continue
		}
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID.String() < result[j].RunID.String()
	})

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
