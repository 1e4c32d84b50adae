/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on them with errors.Is / errors.As; the HTTP layer maps
  them to status codes through the helpers at the bottom of this file.

ERROR CATEGORIES:
  1. Validation errors - bad item or missing identity field; nothing mutated
  2. Selection errors  - removing an item that is not there
  3. State errors      - editing an invoice that was already finalized
  4. Config errors     - a document or export format that is not available
  5. Cancellation      - the destination chooser was abandoned (not a failure)

  Numeric parse failures are deliberately NOT errors: see money.go.

SEE ALSO:
  - lineitems.go: Returns ValidationError and SelectionError
  - finalize.go: Returns ConfigError, handles ErrCancelled
  - api/handlers.go: Maps errors to HTTP status
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNoSelection is returned when removing an item at a position that
	// does not exist.
	ErrNoSelection = errors.New("no item selected")

	// ErrInvoiceFinalized is returned when mutating or re-finalizing an
	// invoice that was already written to the ledger. Reset starts a new one.
	ErrInvoiceFinalized = errors.New("invoice already finalized")

	// ErrCancelled is returned by a Destination when the user abandons the
	// choice. Finalize turns it into Outcome.Cancelled, not an error.
	ErrCancelled = errors.New("cancelled")

	// ErrCapabilityUnavailable is wrapped by every ConfigError.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrNoHistory is returned when an export is requested on an empty ledger.
	ErrNoHistory = errors.New("no invoice history")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which input was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// SelectionError reports an out-of-range item position.
type SelectionError struct {
	Position int
	Count    int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("no item at position %d (invoice has %d items)", e.Position, e.Count)
}

func (e *SelectionError) Unwrap() error {
	return ErrNoSelection
}

// ConfigError reports a capability that is switched off or not installed,
// with guidance the operator can act on.
type ConfigError struct {
	Capability string
	Guidance   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not available: %s", e.Capability, e.Guidance)
}

func (e *ConfigError) Unwrap() error {
	return ErrCapabilityUnavailable
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNoSelection)
}

// IsConflict returns true if the request conflicts with the invoice state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvoiceFinalized)
}

// IsConfigError returns true if a required capability is unavailable.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrCapabilityUnavailable)
}

// IsNotFound returns true if the error indicates missing data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoHistory)
}
