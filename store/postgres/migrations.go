package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Oracle store.
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
    subtotal_cents        BIGINT NOT NULL DEFAULT 0,
    discount_cents        BIGINT NOT NULL DEFAULT 0,
    tax_cents             BIGINT NOT NULL DEFAULT 0,
    total_cents           BIGINT NOT NULL DEFAULT 0,
    applied_balance_cents BIGINT NOT NULL DEFAULT 0,
    period_start          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    period_end            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    line_items            JSONB NOT NULL DEFAULT '[]',
    provider_ref          TEXT NOT NULL DEFAULT '',
    reconciled_at         TIMESTAMPTZ,
    last_run_id           TEXT NOT NULL DEFAULT '',
    metadata              JSONB NOT NULL DEFAULT '{}',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    started_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at   TIMESTAMPTZ,
    orders_checked INT NOT NULL DEFAULT 0,
    mismatches     JSONB NOT NULL DEFAULT '[]',
    skips          JSONB NOT NULL DEFAULT '[]',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
