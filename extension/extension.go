// Package extension provides the Forge extension adapter for Oracle.
//
// It implements the forge.Extension interface to integrate Oracle
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.oracle" or "oracle" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	oracle "github.com/xraph/oracle"
	"github.com/xraph/oracle/store"
	"github.com/xraph/oracle/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "oracle"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Billing reconciliation engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Oracle as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *oracle.Oracle
	store      store.Store
	source     oracle.ExpectedSource
	oracleOpts []oracle.Option
}

// New creates a new Oracle Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Oracle instance.
// This is nil until Register is called.
func (e *Extension) Engine() *oracle.Oracle { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the reconciliation engine, and registers it in the DI
// container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.source == nil {
		return errors.New("oracle: extension requires an expected source; use WithSource")
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build oracle options from resolved config.
	opts := e.buildOracleOpts()

	eng := oracle.New(e.store, e.source, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*oracle.Oracle, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("oracle: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("oracle: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildOracleOpts constructs oracle.Option values from the resolved config.
func (e *Extension) buildOracleOpts() []oracle.Option {
	opts := make([]oracle.Option, 0, len(e.oracleOpts)+2)

	// Apply config-derived options.
	if e.config.RoundingToleranceCents > 0 || e.config.SignificantAmountCents > 0 {
		tol := oracle.DefaultTolerances()
		if e.config.RoundingToleranceCents > 0 {
			tol.RoundingCents = e.config.RoundingToleranceCents
		}
		if e.config.SignificantAmountCents > 0 {
			tol.SignificantCents = e.config.SignificantAmountCents
		}
		opts = append(opts, oracle.WithTolerances(tol))
	}

	if e.config.WorkerCount > 0 {
		opts = append(opts, oracle.WithWorkers(e.config.WorkerCount))
	}

	// Append any pass-through oracle options.
	opts = append(opts, e.oracleOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("oracle: configuration is required but not found in config files; " +
				"ensure 'extensions.oracle' or 'oracle' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("oracle: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("rounding_tolerance_cents", e.config.RoundingToleranceCents),
		forge.F("significant_amount_cents", e.config.SignificantAmountCents),
		forge.F("worker_count", e.config.WorkerCount),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.oracle" first (namespaced pattern).
	if cm.IsSet("extensions.oracle") {
		if err := cm.Bind("extensions.oracle", &cfg); err == nil {
			e.Logger().Debug("oracle: loaded config from file",
				forge.F("key", "extensions.oracle"),
			)
			return cfg, true
		}
		e.Logger().Warn("oracle: failed to bind extensions.oracle config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "oracle" key.
	if cm.IsSet("oracle") {
		if err := cm.Bind("oracle", &cfg); err == nil {
			e.Logger().Debug("oracle: loaded config from file",
				forge.F("key", "oracle"),
			)
			return cfg, true
		}
		e.Logger().Warn("oracle: failed to bind oracle config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.RoundingToleranceCents == 0 {
		cfg.RoundingToleranceCents = defaults.RoundingToleranceCents
	}
	if cfg.SignificantAmountCents == 0 {
		cfg.SignificantAmountCents = defaults.SignificantAmountCents
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.RoundingToleranceCents == 0 && programmaticConfig.RoundingToleranceCents != 0 {
		yamlConfig.RoundingToleranceCents = programmaticConfig.RoundingToleranceCents
	}
	if yamlConfig.SignificantAmountCents == 0 && programmaticConfig.SignificantAmountCents != 0 {
		yamlConfig.SignificantAmountCents = programmaticConfig.SignificantAmountCents
	}
	if yamlConfig.WorkerCount == 0 && programmaticConfig.WorkerCount != 0 {
		yamlConfig.WorkerCount = programmaticConfig.WorkerCount
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
