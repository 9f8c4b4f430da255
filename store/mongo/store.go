package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	oracle "github.com/xraph/oracle"
	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
	oraclestore "github.com/xraph/oracle/store"
	"github.com/xraph/oracle/types"
)

// Collection name constants.
const (
	colActualOrders = "oracle_actual_orders"
	colRuns         = "oracle_runs"
)

// compile-time interface check
var _ oraclestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all oracle collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("oracle/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Actual orders ====================

func (s *Store) IngestActualOrder(ctx context.Context, o *order.ActualOrder) error {
	m := toActualOrderModel(o)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return oracle.ErrOrderExists
		}
		return fmt.Errorf("oracle/mongo: ingest order: %w", err)
	}
	return nil
}

func (s *Store) GetActualOrder(ctx context.Context, orderID id.OrderID) (*order.ActualOrder, error) {
	var m actualOrderModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": orderID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, oracle.ErrOrderNotFound
		}
		return nil, fmt.Errorf("oracle/mongo: get order: %w", err)
	}
	return fromActualOrderModel(&m)
}

func (s *Store) GetActualOrderByPeriod(ctx context.Context, subID id.SubscriptionID, period types.Period) (*order.ActualOrder, error) {
	var m actualOrderModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"subscription_id": subID.String(),
			"period_start":    period.Start,
			"period_end":      period.End,
		}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, oracle.ErrNoOrderForPeriod
		}
		return nil, fmt.Errorf("oracle/mongo: get order by period: %w", err)
	}
	return fromActualOrderModel(&m)
}

func (s *Store) ListActualOrders(ctx context.Context, subID id.SubscriptionID, opts oraclestore.ListOpts) ([]*order.ActualOrder, error) {
	var models []actualOrderModel

	filter := bson.M{"subscription_id": subID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.Start.IsZero() {
		filter["period_start"] = bson.M{"$gte": opts.Start}
	}
	if !opts.End.IsZero() {
		filter["period_end"] = bson.M{"$lte": opts.End}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("oracle/mongo: list orders: %w", err)
	}

	result := make([]*order.ActualOrder, len(models))
	for i := range models {
		o, err := fromActualOrderModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = o
	}
	return result, nil
}

func (s *Store) ListDue(ctx context.Context, asOf time.Time, limit int) ([]oraclestore.Target, error) {
	var models []actualOrderModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"period_end":    bson.M{"$lte": asOf},
			"reconciled_at": bson.M{"$exists": false},
		}).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("oracle/mongo: list due: %w", err)
	}

	targets := make([]oraclestore.Target, 0, len(models))
	for i := range models {
		o, err := fromActualOrderModel(&models[i])
		if err != nil {
			return nil, err
		}
		targets = append(targets, oraclestore.Target{
			SubscriptionID: o.SubscriptionID,
			OrderID:        o.ID,
			Period:         o.Period,
		})
	}
	return targets, nil
}

func (s *Store) MarkReconciled(ctx context.Context, orderID id.OrderID, runID id.RunID) error {
	t := now()
	res, err := s.mdb.NewUpdate((*actualOrderModel)(nil)).
		Filter(bson.M{"_id": orderID.String()}).
		Set("reconciled_at", t).
		Set("last_run_id", runID.String()).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("oracle/mongo: mark reconciled: %w", err)
	}
	if res.MatchedCount() == 0 {
		return oracle.ErrOrderNotFound
	}
	return nil
}

// ==================== Run results ====================

func (s *Store) SaveResult(ctx context.Context, r *reconcile.Result) error {
	m := toRunModel(r)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("oracle/mongo: save result: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("oracle/mongo: save result: %w", err)
		}
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, runID id.RunID) (*reconcile.Result, error) {
	var m runModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": runID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, oracle.ErrRunNotFound
		}
		return nil, fmt.Errorf("oracle/mongo: get result: %w", err)
	}
	return fromRunModel(&m)
}

func (s *Store) ListResults(ctx context.Context, opts oraclestore.ResultListOpts) ([]*reconcile.Result, error) {
	var models []runModel

	filter := bson.M{}
	if !opts.Since.IsZero() {
		filter["started_at"] = bson.M{"$gte": opts.Since}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("oracle/mongo: list results: %w", err)
	}

	result := make([]*reconcile.Result, len(models))
	for i := range models {
		r, err := fromRunModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all oracle collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colActualOrders: {
			{
				Keys:    bson.D{{Key: "subscription_id", Value: 1}, {Key: "period_start", Value: 1}, {Key: "period_end", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "period_end", Value: 1}, {Key: "reconciled_at", Value: 1}}},
		},
		colRuns: {
			{Keys: bson.D{{Key: "started_at", Value: -1}}},
		},
	}
}
