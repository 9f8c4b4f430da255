package audithook

// Action constants for audit events.
const (
	// Run actions
	ActionRunStarted   = "run.started"
	ActionRunCompleted = "run.completed"

	// Order actions
	ActionOrderReconciled = "order.reconciled"

	// Finding actions
	ActionMismatchFound       = "mismatch.found"
	ActionSubscriptionSkipped = "subscription.skipped"
)

// Resource constants for audit events.
const (
	ResourceRun          = "run"
	ResourceOrder        = "order"
	ResourceSubscription = "subscription"
)

// Category constants for audit events.
const (
	CategoryReconciliation = "reconciliation"
	CategoryBilling        = "billing"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
