package model

import (
	"slotwise/internal/domains/slot"
	"slotwise/shared/clock"
	"slotwise/shared/constant"
	"slotwise/shared/model"
	"time"
)

const (
	TableName  = "booking_requests"
	EntityName = "booking_request"

	FieldID            = "id"
	FieldConsultantID  = "consultant_id"
	FieldClientName    = "client_name"
	FieldRequestedDate = "requested_date"
	FieldFromTime      = "from_time"
	FieldToTime        = "to_time"
	FieldNotes         = "notes"
	FieldStatus        = "status"
	FieldCreatedBy     = constant.FieldCreatedBy
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusRescheduled Status = "rescheduled"
)

func (s Status) String() string {
	return string(s)
}

// ActiveStatuses are the statuses that hold a consultant's slot.
var ActiveStatuses = []Status{StatusPending, StatusApproved}

type Request struct {
	ID            string      `db:"id"`
	ConsultantID  string      `db:"consultant_id"`
	ClientName    string      `db:"client_name"`
	RequestedDate time.Time   `db:"requested_date"`
	FromTime      clock.Clock `db:"from_time"`
	ToTime        clock.Clock `db:"to_time"`
	Notes         string      `db:"notes"`
	Status        Status      `db:"status"`
	model.Metadata
}

func (r Request) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

func (r Request) Window() slot.Window {
	return slot.Window{From: r.FromTime, To: r.ToTime}
}

func (r Request) ToBooking() slot.Booking {
	return slot.Booking{
		ID:           r.ID,
		ConsultantID: r.ConsultantID,
		Date:         r.RequestedDate,
		Window:       r.Window(),
	}
}

// IsParty reports whether user created the request or is its consultant.
func IsParty(user, consultantID, createdBy string) bool {
	return user != "" && (createdBy == user || consultantID == user)
}

// ChangeKeys are the columns change feed subscribers filter requests on.
func (r Request) ChangeKeys() map[string]string {
	return map[string]string{
		FieldID:           r.ID,
		FieldConsultantID: r.ConsultantID,
		FieldCreatedBy:    r.CreatedBy,
	}
}

// Bookings converts active requests into slot bookings.
func Bookings(requests []Request) []slot.Booking {
	bookings := make([]slot.Booking, 0, len(requests))

	for _, req := range requests {
		if !req.IsActive() {
			continue
		}

		bookings = append(bookings, req.ToBooking())
	}

	return bookings
}
