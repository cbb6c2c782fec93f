package dto

import (
	"fmt"
	"slotwise/internal/domains/request/model"
	"slotwise/internal/domains/slot"
	"slotwise/shared"
	"slotwise/shared/clock"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	gModel "slotwise/shared/model"
	"slotwise/shared/timezone"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Schedule is the date and window shared by create, reschedule and availability requests.
type Schedule struct {
	RequestedDate string `json:"requested_date" validate:"required,date"`
	FromTime      string `json:"from_time"      validate:"required,clock"`
	ToTime        string `json:"to_time"        validate:"required,clock"`
}

// Parse converts the validated strings. It fails on a window that does not end after it starts.
func (s Schedule) Parse() (time.Time, slot.Window, error) {
	date, err := timezone.Parse(constant.DateOnlyFormat, s.RequestedDate)
	if err != nil {
		return time.Time{}, slot.Window{}, fmt.Errorf("invalid requested_date %q: %w", s.RequestedDate, err)
	}

	from, err := clock.Parse(s.FromTime)
	if err != nil {
		return time.Time{}, slot.Window{}, fmt.Errorf("invalid from_time: %w", err)
	}

	to, err := clock.Parse(s.ToTime)
	if err != nil {
		return time.Time{}, slot.Window{}, fmt.Errorf("invalid to_time: %w", err)
	}

	window := slot.Window{From: from, To: to}
	if !window.Valid() {
		return time.Time{}, slot.Window{}, slot.ErrInvalidWindow
	}

	return date, window, nil
}

type CreateRequest struct {
	ConsultantID string `json:"consultant_id" validate:"required,max=64"`
	ClientName   string `json:"client_name"   validate:"required,max=255"`
	Notes        string `json:"notes"         validate:"omitempty,max=2000"`
	Schedule
}

func (c *CreateRequest) ToModel(user string, date time.Time, window slot.Window) model.Request {
	return model.Request{
		ID:            uuid.NewString(),
		ConsultantID:  c.ConsultantID,
		ClientName:    strings.TrimSpace(c.ClientName),
		RequestedDate: date,
		FromTime:      window.From,
		ToTime:        window.To,
		Notes:         strings.TrimSpace(c.Notes),
		Status:        model.StatusPending,
		Metadata:      gModel.NewMetadata(user, timezone.Now()),
	}
}

type RescheduleRequest struct {
	Message string `json:"message" validate:"omitempty,max=2000"`
	Schedule
}

type AvailabilityRequest struct {
	ConsultantID string `json:"consultant_id" validate:"required,max=64"`
	ExcludeID    string `json:"exclude_id"    validate:"omitempty,uuid"`
	Schedule
}

type Conflict struct {
	ID       string `json:"id"`
	FromTime string `json:"from_time"`
	ToTime   string `json:"to_time"`
}

type AvailabilityResponse struct {
	Available     bool      `json:"available"`
	NextAvailable string    `json:"next_available,omitempty"`
	Message       string    `json:"message,omitempty"`
	Conflict      *Conflict `json:"conflict,omitempty"`
}

func (r *AvailabilityResponse) FromResult(result slot.Result) {
	r.Available = result.Available
	r.Message = result.Message

	if result.Available {
		return
	}

	r.NextAvailable = result.NextAvailable.Format(clock.Layout)

	if result.Conflict != nil {
		r.Conflict = &Conflict{
			ID:       result.Conflict.ID,
			FromTime: result.Conflict.From.String(),
			ToTime:   result.Conflict.To.String(),
		}
	}
}

type RequestResponse struct {
	ID            string `json:"id"`
	ConsultantID  string `json:"consultant_id"`
	ClientName    string `json:"client_name"`
	RequestedDate string `json:"requested_date"`
	FromTime      string `json:"from_time"`
	ToTime        string `json:"to_time"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
	gDto.Metadata
}

func (r *RequestResponse) FromModel(model model.Request) {
	r.ID = model.ID
	r.ConsultantID = model.ConsultantID
	r.ClientName = model.ClientName
	r.RequestedDate = model.RequestedDate.Format(constant.DateOnlyFormat)
	r.FromTime = model.FromTime.String()
	r.ToTime = model.ToTime.String()
	r.Notes = model.Notes
	r.Status = string(model.Status)
	r.Metadata.FromModel(model.Metadata)
}

type GetRequestsResponse struct {
	Requests  []RequestResponse `json:"requests"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetRequestsResponse) FromModels(models []model.Request, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Requests = make([]RequestResponse, len(models))
	for i, mod := range models {
		r.Requests[i].FromModel(mod)
	}
}
