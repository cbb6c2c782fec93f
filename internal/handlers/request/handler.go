package request

import (
	"context"
	"net/http"
	"slotwise/infras/otel"
	"slotwise/internal/domains/request/model"
	"slotwise/internal/domains/request/model/dto"
	"slotwise/internal/domains/request/service"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	"slotwise/shared/validator"
	"slotwise/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Request
	otel    otel.Otel
}

func New(service service.Request, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/requests", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateRequest)
		routerGroup.Get("/", handler.GetRequests)
		routerGroup.Get("/mine", handler.GetMyRequests)
		routerGroup.Get("/{id}", handler.GetRequestByID)
		routerGroup.Patch("/{id}/approve", handler.ApproveRequest)
		routerGroup.Patch("/{id}/reject", handler.RejectRequest)
		routerGroup.Patch("/{id}/reschedule", handler.RescheduleRequest)
	})

	router.Post("/availability", handler.CheckAvailability)
}

// CreateRequest handles the creation of a new booking request.
// @Summary Create a booking request
// @Description Request a time slot with a consultant. The slot must keep a 20-minute buffer after existing bookings.
// @Tags Request
// @Accept json
// @Produce json
// @Param request body dto.CreateRequest true "Create Request"
// @Success 201 {object} response.Data[dto.RequestResponse]
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error "Slot taken"
// @Failure 503 {object} response.Error
// @Router /v1/requests [post]
// @Security BearerAuth
func (handler *Handler) CreateRequest(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRequest")
	defer scope.End()

	req := dto.CreateRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	created, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create request")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Request created successfully by user " + created.CreatedBy)

	response.WithJSON(writer, http.StatusCreated, created)
}

// GetRequests lists every booking request.
// @Summary Get all booking requests
// @Tags Request
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param consultant_id query string false "Filter by consultant"
// @Param created_by query string false "Filter by creator"
// @Param status query string false "Filter by status (pending, approved, rejected, rescheduled)"
// @Param requested_date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.GetRequestsResponse]
// @Failure 400 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/requests [get]
// @Security BearerAuth
func (handler *Handler) GetRequests(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRequests")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	filterGroup, err := filtersFromQuery(request, model.FieldConsultantID, model.FieldCreatedBy)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	requests, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get requests")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Requests retrieved successfully")

	response.WithJSON(writer, http.StatusOK, requests)
}

// GetMyRequests lists the requests the caller created (sales) or is assigned to (consultant).
// @Summary Get my booking requests
// @Tags Request
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param status query string false "Filter by status"
// @Param requested_date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {object} response.Data[dto.GetRequestsResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Router /v1/requests/mine [get]
// @Security BearerAuth
func (handler *Handler) GetMyRequests(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyRequests")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	filterGroup, err := filtersFromQuery(request)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	requests, err := handler.service.GetMine(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get my requests")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, requests)
}

// GetRequestByID retrieves a booking request by its ID.
// @Summary Get a booking request
// @Tags Request
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Data[dto.RequestResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/requests/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetRequestByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRequestByID")
	defer scope.End()

	id, err := pathID(request)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("id", id).Msg("failed to get request by ID")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// ApproveRequest approves a pending request assigned to the caller.
// @Summary Approve a booking request
// @Tags Request
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Data[dto.RequestResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Not pending"
// @Router /v1/requests/{id}/approve [patch]
// @Security BearerAuth
func (handler *Handler) ApproveRequest(writer http.ResponseWriter, request *http.Request) {
	handler.decide(writer, request, "ApproveRequest", handler.service.Approve)
}

// RejectRequest rejects a pending request assigned to the caller.
// @Summary Reject a booking request
// @Tags Request
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Data[dto.RequestResponse]
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Not pending"
// @Router /v1/requests/{id}/reject [patch]
// @Security BearerAuth
func (handler *Handler) RejectRequest(writer http.ResponseWriter, request *http.Request) {
	handler.decide(writer, request, "RejectRequest", handler.service.Reject)
}

func (handler *Handler) decide(
	writer http.ResponseWriter,
	request *http.Request,
	name string,
	transition func(ctx context.Context, id string) (dto.RequestResponse, error),
) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+"."+name)
	defer scope.End()

	id, err := pathID(request)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	res, err := transition(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("id", id).Str("operation", name).Msg("failed to change request status")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Request " + res.Status + " successfully")

	response.WithJSON(writer, http.StatusOK, res)
}

// RescheduleRequest moves a pending request to a new date and time.
// @Summary Reschedule a booking request
// @Tags Request
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body dto.RescheduleRequest true "Reschedule Request"
// @Success 200 {object} response.Data[dto.RequestResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Slot taken or not pending"
// @Router /v1/requests/{id}/reschedule [patch]
// @Security BearerAuth
func (handler *Handler) RescheduleRequest(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RescheduleRequest")
	defer scope.End()

	id, err := pathID(request)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	req := dto.RescheduleRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	res, err := handler.service.Reschedule(ctx, id, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("id", id).Msg("failed to reschedule request")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// CheckAvailability runs the slot check without booking anything.
// @Summary Check a consultant's availability
// @Tags Request
// @Accept json
// @Produce json
// @Param request body dto.AvailabilityRequest true "Availability Request"
// @Success 200 {object} response.Data[dto.AvailabilityResponse]
// @Failure 400 {object} response.Error
// @Router /v1/availability [post]
// @Security BearerAuth
func (handler *Handler) CheckAvailability(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckAvailability")
	defer scope.End()

	req := dto.AvailabilityRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	res, err := handler.service.CheckAvailability(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check availability")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

func pathID(request *http.Request) (string, error) {
	id := chi.URLParam(request, constant.RequestParamID)

	if err := validator.ValidateVar(id, "required,uuid"); err != nil {
		return "", err
	}

	return id, nil
}

// filtersFromQuery builds equality filters for status, requested_date and the extra fields given.
func filtersFromQuery(request *http.Request, fields ...string) (gDto.FilterGroup, error) {
	query := request.URL.Query()

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []gDto.Condition{},
	}

	add := func(field string, value any) {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    field,
			Operator: gDto.FilterOperatorEq,
			Value:    value,
			Table:    model.TableName,
		})
	}

	for _, field := range fields {
		if value := query.Get(field); value != "" {
			add(field, value)
		}
	}

	if status := query.Get(model.FieldStatus); status != "" {
		if err := validator.ValidateVar(status, "oneof=pending approved rejected rescheduled"); err != nil {
			return filterGroup, err
		}

		add(model.FieldStatus, status)
	}

	if date := query.Get(model.FieldRequestedDate); date != "" {
		if err := validator.ValidateVar(date, "date"); err != nil {
			return filterGroup, err
		}

		add(model.FieldRequestedDate, date)
	}

	return filterGroup, nil
}
