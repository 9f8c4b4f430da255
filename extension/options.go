package extension

import (
	oracle "github.com/xraph/oracle"
	"github.com/xraph/oracle/plugin"
	"github.com/xraph/oracle/store"
)

// Option configures the Oracle Forge extension.
type Option func(*Extension)

// WithStore sets the store for the reconciliation engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithSource sets the expected-order source. Required.
func WithSource(src oracle.ExpectedSource) Option {
	return func(e *Extension) {
		e.source = src
	}
}

// WithOracleOption passes an oracle.Option through to the underlying engine.
func WithOracleOption(opt oracle.Option) Option {
	return func(e *Extension) {
		e.oracleOpts = append(e.oracleOpts, opt)
	}
}

// WithPlugin registers an oracle plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.oracleOpts = append(e.oracleOpts, oracle.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithRoundingTolerance sets the cent difference treated as rounding noise.
func WithRoundingTolerance(cents int64) Option {
	return func(e *Extension) { e.config.RoundingToleranceCents = cents }
}

// WithSignificantAmount sets the cent difference above which findings
// escalate to error severity.
func WithSignificantAmount(cents int64) Option {
	return func(e *Extension) { e.config.SignificantAmountCents = cents }
}

// WithWorkerCount bounds the number of concurrent reconciliations.
func WithWorkerCount(n int) Option {
	return func(e *Extension) { e.config.WorkerCount = n }
}
