package service

import (
	"fmt"
	"slotwise/internal/domains/notification/model"
	requestModel "slotwise/internal/domains/request/model"
	"slotwise/shared/constant"
)

const consultantFallbackName = "Consultant"

var titles = map[model.Type]string{
	model.TypeCreated:     "New Request",
	model.TypeApproved:    "Request Approved",
	model.TypeRejected:    "Request Rejected",
	model.TypeRescheduled: "Request Rescheduled",
	model.TypeTest:        "Test Notification",
}

// Render builds the push title and the stored message for a transition.
// The request carries the schedule after the transition, so a reschedule renders its new date and time.
func Render(transition Transition) (title, message string) {
	req := transition.Request
	consultant := transition.Actor.DisplayName(consultantFallbackName)

	switch transition.Type {
	case model.TypeCreated:
		message = "New request received for " + req.ClientName
	case model.TypeApproved:
		message = fmt.Sprintf("Your request for %s on %s, %s has been approved by %s",
			req.ClientName, displayDate(req), req.Window(), consultant)
	case model.TypeRejected:
		message = fmt.Sprintf("Your request for %s has been rejected by %s", req.ClientName, consultant)
	case model.TypeRescheduled:
		message = fmt.Sprintf("Your request for %s on %s, %s has been rescheduled by %s",
			req.ClientName, displayDate(req), req.Window(), consultant)
	case model.TypeTest:
		message = "This is a test notification"
	}

	return titles[transition.Type], message
}

// Recipient is the counterparty of the transition: the consultant for a new
// request, the sales actor who created it for everything else.
func Recipient(transition Transition) string {
	if transition.Type == model.TypeCreated {
		return transition.Request.ConsultantID
	}

	return transition.Request.CreatedBy
}

func displayDate(req requestModel.Request) string {
	return req.RequestedDate.Format(constant.DisplayDateFormat)
}
