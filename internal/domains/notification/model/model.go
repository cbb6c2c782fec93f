package model

import (
	"slotwise/shared/constant"
	"slotwise/shared/model"
)

const (
	TableName  = "notifications"
	EntityName = "notification"

	FieldID          = "id"
	FieldRecipientID = "recipient_id"
	FieldType        = "type"
	FieldMessage     = "message"
	FieldIsRead      = "is_read"
	FieldRequestID   = "request_id"
	FieldCreatedAt   = constant.FieldCreatedAt
)

type Type string

const (
	TypeCreated     Type = "created"
	TypeApproved    Type = "approved"
	TypeRejected    Type = "rejected"
	TypeRescheduled Type = "rescheduled"
	TypeTest        Type = "test"
)

type Notification struct {
	ID          string  `db:"id"`
	RecipientID string  `db:"recipient_id"`
	Type        Type    `db:"type"`
	Message     string  `db:"message"`
	IsRead      bool    `db:"is_read"`
	RequestID   *string `db:"request_id"`
	model.Metadata
}

func (n Notification) ChangeKeys() map[string]string {
	return map[string]string{
		FieldID:          n.ID,
		FieldRecipientID: n.RecipientID,
	}
}
