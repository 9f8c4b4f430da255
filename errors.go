package oracle

import (
	"errors"
	"fmt"

	"github.com/xraph/oracle/order"
	"github.com/xraph/oracle/reconcile"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("oracle: not found")
	ErrAlreadyExists = errors.New("oracle: already exists")
	ErrInvalidInput  = errors.New("oracle: invalid input")

	// Order errors
	ErrOrderNotFound     = errors.New("oracle: order not found")
	ErrOrderExists       = errors.New("oracle: order already exists")
	ErrNoOrderForPeriod  = errors.New("oracle: no order for period")
	ErrOrderNotFinalized = errors.New("oracle: order not finalized")

	// Run errors
	ErrRunNotFound     = errors.New("oracle: run not found")
	ErrNoSource        = errors.New("oracle: no expected source configured")
	ErrNoTargets       = errors.New("oracle: no reconciliation targets")
	ErrRunInterrupted  = errors.New("oracle: run interrupted")
	ErrSourceExhausted = errors.New("oracle: expected source exhausted")

	// Store errors
	ErrStoreNotReady     = errors.New("oracle: store not ready")
	ErrStoreClosed       = errors.New("oracle: store is closed")
	ErrTransactionFailed = errors.New("oracle: transaction failed")
	ErrMigrationFailed   = errors.New("oracle: migration failed")
)

// Precondition errors re-exported from the reconcile package. They mean
// an expected/actual pair was not comparable, which is a caller bug, not
// a reconciliation finding.
var (
	ErrNilOrder             = reconcile.ErrNilOrder
	ErrSubscriptionMismatch = reconcile.ErrSubscriptionMismatch
	ErrCurrencyMismatch     = reconcile.ErrCurrencyMismatch
)

// ValidationError is re-exported from the order package.
type ValidationError = order.ValidationError

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "oracle: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("oracle: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrNoOrderForPeriod) ||
		errors.Is(err, ErrRunNotFound)
}

// IsPrecondition returns true if the error is a reconciliation
// precondition violation.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNilOrder) ||
		errors.Is(err, ErrSubscriptionMismatch) ||
		errors.Is(err, ErrCurrencyMismatch)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrRunInterrupted)
}
