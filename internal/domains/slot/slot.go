// Package slot decides whether a proposed consultant window can be booked
// against the consultant's existing active bookings on the same day.
//
// Every window is followed by a fixed Buffer that belongs to it, so the
// checks are directional: a window may start exactly when another window's
// buffer ends, but not a minute earlier.
package slot

import (
	"errors"
	"fmt"
	"slotwise/shared/clock"
	"time"
)

const Buffer = 20 * time.Minute

var ErrInvalidWindow = errors.New("from time must be before to time")

type Window struct {
	From clock.Clock `json:"from_time"`
	To   clock.Clock `json:"to_time"`
}

func (w Window) Valid() bool {
	return w.From.Valid() && w.To.Valid() && w.From.Before(w.To)
}

// String renders the window the way it is shown to users, e.g. "09:00 - 10:00".
func (w Window) String() string {
	return w.From.String() + " - " + w.To.String()
}

type Booking struct {
	ID           string
	ConsultantID string
	Date         time.Time
	Window
}

type Proposal struct {
	ConsultantID string
	Date         time.Time
	Window

	// ExcludeID skips the booking with this id, used when a request is moved.
	ExcludeID string
}

type Result struct {
	Available     bool
	NextAvailable time.Time
	Conflict      *Booking
	Message       string
}

// Check runs the proposal against existing and stops at the first conflict.
// Bookings of other consultants, on other days, or matching ExcludeID are ignored.
func Check(proposal Proposal, existing []Booking) (Result, error) {
	if !proposal.Window.Valid() {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidWindow, proposal.Window)
	}

	for idx := range existing {
		booking := existing[idx]

		if booking.ConsultantID != proposal.ConsultantID || !SameDay(booking.Date, proposal.Date) {
			continue
		}

		if proposal.ExcludeID != "" && booking.ID == proposal.ExcludeID {
			continue
		}

		if !Conflicts(proposal.Date, proposal.Window, booking.Window) {
			continue
		}

		next := booking.To.On(booking.Date).Add(Buffer)

		return Result{
			Available:     false,
			NextAvailable: next,
			Conflict:      &booking,
			Message:       conflictMessage(booking.Window, next),
		}, nil
	}

	return Result{Available: true}, nil
}

// Conflicts reports whether proposed collides with booked on date once each
// window carries its trailing Buffer.
func Conflicts(date time.Time, proposed, booked Window) bool {
	pStart := proposed.From.On(date)
	pEnd := proposed.To.On(date)
	pBufferedEnd := pEnd.Add(Buffer)

	bStart := booked.From.On(date)
	bBufferedEnd := booked.To.On(date).Add(Buffer)

	switch {
	case pStart.Before(bStart) && pBufferedEnd.After(bStart):
		return true
	case !pStart.Before(bStart) && pStart.Before(bBufferedEnd):
		return true
	case pEnd.After(bStart) && !pEnd.After(bBufferedEnd):
		return true
	case !pStart.After(bStart) && !pBufferedEnd.Before(bBufferedEnd):
		return true
	}

	return false
}

// SameDay compares calendar dates only.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

func conflictMessage(booked Window, next time.Time) string {
	return fmt.Sprintf(
		"This consultant is already booked from %s to %s. Please choose a time after %s (with %d-minute buffer).",
		booked.From, booked.To, next.Format(clock.Layout), int(Buffer.Minutes()),
	)
}
