package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Oracle store (SQLite).
var Migrations = migrate.NewGroup("oracle")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_oracle_actual_orders",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS oracle_actual_orders (
    id                    TEXT PRIMARY KEY,
    subscription_id       TEXT NOT NULL DEFAULT '',
    customer_id           TEXT NOT NULL DEFAULT '',
    status                TEXT NOT NULL DEFAULT 'open',
    billing_reason        TEXT NOT NULL DEFAULT '',
    currency              TEXT NOT NULL DEFAULT '',
    subtotal_cents        INTEGER NOT NULL DEFAULT 0,
    discount_cents        INTEGER NOT NULL DEFAULT 0,
    tax_cents             INTEGER NOT NULL DEFAULT 0,
    total_cents           INTEGER NOT NULL DEFAULT 0,
    applied_balance_cents INTEGER NOT NULL DEFAULT 0,
    period_start          TEXT NOT NULL DEFAULT (datetime('now')),
    period_end            TEXT NOT NULL DEFAULT (datetime('now')),
    line_items            TEXT NOT NULL DEFAULT '[]',
    provider_ref          TEXT NOT NULL DEFAULT '',
    reconciled_at         TEXT,
    last_run_id           TEXT NOT NULL DEFAULT '',
    metadata              TEXT NOT NULL DEFAULT '{}',
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_oracle_orders_sub ON oracle_actual_orders (subscription_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_oracle_orders_sub_period ON oracle_actual_orders (subscription_id, period_start, period_end);
CREATE INDEX IF NOT EXISTS idx_oracle_orders_due ON oracle_actual_orders (period_end) WHERE reconciled_at IS NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS oracle_actual_orders`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_oracle_runs",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS oracle_runs (
    id             TEXT PRIMARY KEY,
    started_at     TEXT NOT NULL DEFAULT (datetime('now')),
    completed_at   TEXT,
    orders_checked INTEGER NOT NULL DEFAULT 0,
    mismatches     TEXT NOT NULL DEFAULT '[]',
    skips          TEXT NOT NULL DEFAULT '[]',
    created_at     TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_oracle_runs_started ON oracle_runs (started_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS oracle_runs`)
				return err
			},
		},
	)
}
