// Package apperr defines the failure taxonomy shared by the synchronization
// engine: local validation failures, transport failures and server-side
// rejections. Stale responses are modelled separately by sequence.ErrStale
// and never reach the user.
package apperr

import (
	"errors"
	"fmt"

	"github.com/dreamware/tjsocial/internal/sequence"
)

// ValidationError is a local, synchronous rejection. An action that fails
// validation never reaches the network.
type ValidationError struct {
	Field  string // Form field at fault, empty for whole-form checks
	Reason string // Human-readable reason, shown as-is
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NetworkError is a call that failed in transit: connection errors,
// timeouts, server errors and undecodable responses.
type NetworkError struct {
	Err    error
	Op     string // Remote operation, e.g. "GET /post"
	Status int    // HTTP status if a response arrived, else 0
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConflictError is a server rejection caused by state, e.g. a username or
// email that is already taken or a wrong one-time code.
type ConflictError struct {
	Op     string
	Reason string // Server-supplied message, may be empty
	Status int
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: rejected with http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: rejected with http %d: %s", e.Op, e.Status, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsStale reports whether err only signals a discarded, superseded response.
func IsStale(err error) bool {
	return errors.Is(err, sequence.ErrStale)
}

// UserMessage picks the text a notification should show for err. Validation
// reasons and server-supplied conflict reasons are shown verbatim; anything
// else falls back to the caller's generic message.
func UserMessage(err error, fallback string) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Reason
	}
	var c *ConflictError
	if errors.As(err, &c) && c.Reason != "" {
		return c.Reason
	}
	return fallback
}
