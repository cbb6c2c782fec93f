package model

import (
	"slotwise/shared/constant"
	"time"
)

// Metadata is the audit trail every table carries.
type Metadata struct {
	CreatedAt  time.Time `db:"created_at"`
	ModifiedAt time.Time `db:"modified_at"`
	CreatedBy  string    `db:"created_by"`
	ModifiedBy string    `db:"modified_by"`
}

func NewMetadata(actor string, at time.Time) Metadata {
	return Metadata{
		CreatedAt:  at,
		ModifiedAt: at,
		CreatedBy:  actor,
		ModifiedBy: actor,
	}
}

// Touch records a modification and returns the columns to persist alongside it.
func (m *Metadata) Touch(actor string, at time.Time) map[string]any {
	m.ModifiedAt = at
	m.ModifiedBy = actor

	return map[string]any{
		constant.FieldModifiedAt: m.ModifiedAt,
		constant.FieldModifiedBy: m.ModifiedBy,
	}
}
