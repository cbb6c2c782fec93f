package event

import (
	"fmt"
	"slotwise/internal/domains/changefeed"
	"slotwise/internal/domains/request/model"
	"slotwise/internal/domains/request/model/dto"
)

// Toast is the one-line text a client pops up for a request change seen by viewer.
// It is empty when the change is not worth interrupting the viewer for.
func Toast(event changefeed.Event, viewer string) string {
	if event.Table != model.TableName {
		return ""
	}

	var previous, current dto.RequestResponse
	if err := event.Decode(&previous, &current); err != nil {
		return ""
	}

	switch event.Type {
	case changefeed.EventInsert:
		if current.ConsultantID == viewer {
			return "New request received for " + current.ClientName
		}
	case changefeed.EventUpdate:
		if current.CreatedBy != viewer || previous.Status == current.Status {
			return ""
		}

		switch model.Status(current.Status) {
		case model.StatusApproved, model.StatusRejected:
			return fmt.Sprintf("Request for %q has been %s", current.ClientName, current.Status)
		case model.StatusRescheduled:
			return fmt.Sprintf("Request for %q has been rescheduled to %s at %s",
				current.ClientName, current.RequestedDate, current.FromTime)
		default:
			return fmt.Sprintf("Request for %q status changed to %s", current.ClientName, current.Status)
		}
	}

	return ""
}
