package schedule

import (
	"errors"
	"fmt"
)

// Failure categories. Handlers branch on these with errors.Is to decide how a
// failure is surfaced to the guest.
var (
	// ErrAuthentication covers code exchange and grant lookup failures.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAvailability covers per-day free/busy query failures.
	ErrAvailability = errors.New("availability query failed")

	// ErrSlotParse is returned when a selected value was not produced by the
	// slot formatter.
	ErrSlotParse = errors.New("invalid slot selection")

	// ErrBooking covers event creation failures, including a provider
	// response without an event identifier.
	ErrBooking = errors.New("booking failed")

	// ErrRevocation covers logout-time grant destruction failures. It is
	// best-effort and never aborts the local session teardown.
	ErrRevocation = errors.New("grant revocation failed")
)

// Error wraps a scheduling failure with the operation that produced it and
// the category it belongs to.
type Error struct {
	Op   string // "exchange", "availability", "parse", "book", "revoke"
	Kind error  // one of the Err* category values above
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("schedule: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("schedule: %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's category, so callers can use
// errors.Is(err, schedule.ErrBooking) without unwrapping manually.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}
