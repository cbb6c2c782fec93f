package service

import (
	"errors"
	"fmt"
	"net/http"
	"slotwise/internal/domains/slot"
	"slotwise/shared/clock"
	"slotwise/shared/failure"
	"time"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrSlotConflict      = errors.New("slot conflict")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage unavailable")
)

// SlotConflictError carries the checker's verdict. Its message is shown to the user verbatim.
type SlotConflictError struct {
	Message       string
	NextAvailable time.Time
	Conflict      slot.Window
}

func (e *SlotConflictError) Error() string {
	return e.Message
}

// Details is attached to the conflict response so clients can offer the next free time.
func (e *SlotConflictError) Details() any {
	details := map[string]any{
		"next_available": e.NextAvailable.Format(clock.Layout),
	}

	if e.Conflict.Valid() {
		details["conflict"] = map[string]string{
			"from_time": e.Conflict.From.String(),
			"to_time":   e.Conflict.To.String(),
		}
	}

	return details
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

func newSlotConflict(result slot.Result) error {
	conflict := &SlotConflictError{
		Message:       result.Message,
		NextAvailable: result.NextAvailable,
	}

	if result.Conflict != nil {
		conflict.Conflict = result.Conflict.Window
	}

	return failure.Wrap(http.StatusConflict, result.Message, conflict) // nolint:wrapcheck
}

func validationError(msg string) error {
	return failure.Wrap(http.StatusBadRequest, msg, ErrValidation) // nolint:wrapcheck
}

func notAuthorized(msg string) error {
	return failure.Wrap(http.StatusForbidden, msg, ErrNotAuthorized) // nolint:wrapcheck
}

func invalidTransition(status fmt.Stringer) error {
	return failure.Wrap(http.StatusConflict, fmt.Sprintf("request is already %s", status), ErrInvalidTransition) // nolint:wrapcheck
}

func notFound() error {
	return failure.Wrap(http.StatusNotFound, "request not found", ErrNotFound) // nolint:wrapcheck
}

// storageError keeps failures that already carry a code and marks everything else as retryable.
func storageError(msg string, err error) error {
	var fail *failure.Failure
	if errors.As(err, &fail) {
		return err
	}

	return failure.Wrap(http.StatusServiceUnavailable, msg, errors.Join(ErrStorage, err)) // nolint:wrapcheck
}
