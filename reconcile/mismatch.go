package reconcile

import (
	"errors"
	"time"

	"github.com/xraph/oracle/id"
	"github.com/xraph/oracle/types"
)

// Precondition errors. These indicate the inputs were not comparable in
// the first place, not a billing discrepancy, so they propagate to the
// caller instead of degrading into a Mismatch.
var (
	ErrNilOrder             = errors.New("oracle: nil order")
	ErrSubscriptionMismatch = errors.New("oracle: expected and actual orders belong to different subscriptions")
	ErrCurrencyMismatch     = errors.New("oracle: expected and actual values have different currencies")
)

// Mismatch is one discrepancy finding between expected and actual state.
// Expected or Actual may be nil for missing/extra line items.
type Mismatch struct {
	Severity       Severity       `json:"severity"`
	Classification Classification `json:"classification"`
	Message        string         `json:"message"`
	Expected       *types.Money   `json:"expected_value,omitempty"`
	Actual         *types.Money   `json:"actual_value,omitempty"`

	// Difference is actual minus expected in minor units, signed.
	Difference int64 `json:"difference"`
}

// Skip records a subscription whose reconciliation could not run, e.g.
// because the expected or actual state was unavailable. Skips are
// run-level warnings, never fatal to the batch.
type Skip struct {
	SubscriptionID id.SubscriptionID `json:"subscription_id"`
	Reason         string            `json:"reason"`
}

// Result accumulates the findings of one reconciliation run. Mismatches
// are appended, never removed or mutated in place.
type Result struct {
	RunID         id.RunID   `json:"run_id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at,omitzero"`
	OrdersChecked int        `json:"orders_checked"`
	Mismatches    []Mismatch `json:"mismatches"`
	Skips         []Skip     `json:"skips,omitempty"`
}

// NewResult creates a Result with a fresh run ID and start timestamp.
func NewResult() *Result {
	return &Result{
		RunID:     id.NewRunID(),
		StartedAt: time.Now().UTC(),
	}
}

// Add appends mismatches to the result.
func (r *Result) Add(ms ...Mismatch) {
	r.Mismatches = append(r.Mismatches, ms...)
}

// AddSkip records a skipped subscription with a reason.
func (r *Result) AddSkip(subID id.SubscriptionID, reason string) {
	r.Skips = append(r.Skips, Skip{SubscriptionID: subID, Reason: reason})
}

// Merge folds another result's findings into this one. Workers build
// private results and merge them afterward, so no lock guards the
// mismatch slice.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.OrdersChecked += other.OrdersChecked
	r.Mismatches = append(r.Mismatches, other.Mismatches...)
	r.Skips = append(r.Skips, other.Skips...)
}

// CountBySeverity tallies mismatches per severity tier. Alerting
// consumers page on errors, batch-report warnings, and aggregate infos.
func (r *Result) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, m := range r.Mismatches {
		counts[m.Severity]++
	}
	return counts
}

// HasErrors reports whether any finding has error severity.
func (r *Result) HasErrors() bool {
	for _, m := range r.Mismatches {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Clean reports whether the run produced no findings at all.
func (r *Result) Clean() bool {
	return len(r.Mismatches) == 0
}

// Duration returns how long the run took, or zero if it has not
// completed.
func (r *Result) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
