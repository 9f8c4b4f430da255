package oracle

import (
	"github.com/xraph/oracle/reconcile"
	"github.com/xraph/oracle/types"
)

// Re-export common types for convenience so users don't have to import
// the types and reconcile packages directly.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Period is re-exported from types package.
type Period = types.Period

// Mismatch is re-exported from reconcile package.
type Mismatch = reconcile.Mismatch

// Result is re-exported from reconcile package.
type Result = reconcile.Result

// Severity is re-exported from reconcile package.
type Severity = reconcile.Severity

// Classification is re-exported from reconcile package.
type Classification = reconcile.Classification

// Tolerances is re-exported from reconcile package.
type Tolerances = reconcile.Tolerances

// Severity tiers.
const (
	SeverityInfo    = reconcile.SeverityInfo
	SeverityWarning = reconcile.SeverityWarning
	SeverityError   = reconcile.SeverityError
)

// Re-export Money constructors
var (
	USD      = types.USD
	EUR      = types.EUR
	GBP      = types.GBP
	JPY      = types.JPY
	Zero     = types.Zero
	NewMoney = types.NewMoney
	Sum      = types.Sum
)

// Re-export Entity and Period constructors
var (
	NewEntity = types.NewEntity
	NewPeriod = types.NewPeriod
)

// DefaultTolerances is re-exported from reconcile package.
var DefaultTolerances = reconcile.DefaultTolerances
