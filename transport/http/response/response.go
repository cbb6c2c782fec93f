package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"slotwise/shared/constant"
	"slotwise/shared/failure"
	"slotwise/shared/logger"
)

type Data[T any] struct {
	Data *T `json:"data,omitempty"`
}

type Error struct {
	Error   *string `json:"error,omitempty"`
	Details any     `json:"details,omitempty"`
}

type Message struct {
	Message *string `json:"message,omitempty"`
}

// detailer is implemented by errors that carry structured context for the client.
type detailer interface {
	Details() any
}

func WithMessage(writer http.ResponseWriter, code int, message string) {
	write(writer, code, Message{Message: &message})
}

func WithJSON(writer http.ResponseWriter, code int, payload any) {
	write(writer, code, Data[any]{Data: &payload})
}

// WithError derives the status from the failure code and attaches the details of the
// first error in the chain that has any.
func WithError(writer http.ResponseWriter, err error) {
	message := err.Error()
	body := Error{Error: &message}

	var withDetails detailer
	if errors.As(err, &withDetails) {
		body.Details = withDetails.Details()
	}

	write(writer, failure.GetCode(err), body)
}

func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

func WithUnhealthy(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorUnhealthy)
}

func write(writer http.ResponseWriter, code int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)
		writer.WriteHeader(http.StatusInternalServerError)

		return
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)

	if _, err = writer.Write(raw); err != nil {
		logger.ErrorWithStack(err)
	}
}
