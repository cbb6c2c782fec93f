package dto

import (
	"slotwise/internal/domains/notification/model"
	"slotwise/shared"
	gDto "slotwise/shared/dto"
)

type NotificationResponse struct {
	ID          string  `json:"id"`
	RecipientID string  `json:"recipient_id"`
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Read        bool    `json:"read"`
	RequestID   *string `json:"request_id,omitempty"`
	gDto.Metadata
}

func (r *NotificationResponse) FromModel(model model.Notification) {
	r.ID = model.ID
	r.RecipientID = model.RecipientID
	r.Type = string(model.Type)
	r.Message = model.Message
	r.Read = model.IsRead
	r.RequestID = model.RequestID
	r.Metadata.FromModel(model.Metadata)
}

type GetNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	TotalPage     int                    `json:"total_page"`
	TotalData     int                    `json:"total_data"`
}

func (r *GetNotificationsResponse) FromModels(models []model.Notification, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Notifications = make([]NotificationResponse, len(models))
	for i, mod := range models {
		r.Notifications[i].FromModel(mod)
	}
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

type BulkResponse struct {
	Affected int `json:"affected"`
}
