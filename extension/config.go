package extension

// Config holds the Oracle extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.oracle" or "oracle" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// RoundingToleranceCents is the absolute cent difference treated as
	// benign rounding noise (default: 2).
	RoundingToleranceCents int64 `json:"rounding_tolerance_cents" mapstructure:"rounding_tolerance_cents" yaml:"rounding_tolerance_cents"`

	// SignificantAmountCents is the absolute cent difference above which
	// a finding escalates to error severity (default: 100).
	SignificantAmountCents int64 `json:"significant_amount_cents" mapstructure:"significant_amount_cents" yaml:"significant_amount_cents"`

	// WorkerCount bounds the number of concurrent reconciliations during
	// a batch run (default: 4).
	WorkerCount int `json:"worker_count" mapstructure:"worker_count" yaml:"worker_count"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RoundingToleranceCents: 2,
		SignificantAmountCents: 100,
		WorkerCount:            4,
	}
}
