package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	oracle "github.com/xraph/oracle"
	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
	oraclestore "github.com/xraph/oracle/store"
	"github.com/xraph/oracle/types"
)

// compile-time interface check
var _ oraclestore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("oracle/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("oracle/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return oracle.ErrOrderExists
		}
		return err
	}
	return nil
}

func (s *Store) GetActualOrder(ctx context.Context, orderID id.OrderID) (*order.ActualOrder, error) {
	m := new(actualOrderModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", orderID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, oracle.ErrOrderNotFound
		}
		return nil, err
	}
	return fromActualOrderModel(m)
}

func (s *Store) GetActualOrderByPeriod(ctx context.Context, subID id.SubscriptionID, period types.Period) (*order.ActualOrder, error) {
	m := new(actualOrderModel)
	err := s.sdb.NewSelect(m).
		Where("subscription_id = ?", subID.String()).
		Where("period_start = ?", period.Start).
		Where("period_end = ?", period.End).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, oracle.ErrNoOrderForPeriod
		}
		return nil, err
	}
	return fromActualOrderModel(m)
}

func (s *Store) ListActualOrders(ctx context.Context, subID id.SubscriptionID, opts oraclestore.ListOpts) ([]*order.ActualOrder, error) {
	var models []actualOrderModel
	q := s.sdb.NewSelect(&models).Where("subscription_id = ?", subID.String())

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.Start.IsZero() {
		q = q.Where("period_start >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("period_end <= ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	q := s.sdb.NewSelect(&models).
		Where("period_end <= ?", asOf).
		Where("reconciled_at IS NULL").
		OrderExpr("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate((*actualOrderModel)(nil)).
		Set("reconciled_at = ?", t).
		Set("last_run_id = ?", runID.String()).
		Set("updated_at = ?", t).
		Where("id = ?", orderID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return oracle.ErrOrderNotFound
	}
	return nil
}

// ==================== Run results ====================

func (s *Store) SaveResult(ctx context.Context, r *reconcile.Result) error {
	m := toRunModel(r)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO UPDATE").
		Set("completed_at = EXCLUDED.completed_at").
		Set("orders_checked = EXCLUDED.orders_checked").
		Set("mismatches = EXCLUDED.mismatches").
		Set("skips = EXCLUDED.skips").
		Exec(ctx)
	return err
}

func (s *Store) GetResult(ctx context.Context, runID id.RunID) (*reconcile.Result, error) {
	m := new(runModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", runID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, oracle.ErrRunNotFound
		}
		return nil, err
	}
	return fromRunModel(m)
}

func (s *Store) ListResults(ctx context.Context, opts oraclestore.ResultListOpts) ([]*reconcile.Result, error) {
	var models []runModel
	q := s.sdb.NewSelect(&models)

	if !opts.Since.IsZero() {
		q = q.Where("started_at >= ?", opts.Since)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches the SQLite unique constraint error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
