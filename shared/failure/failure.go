// Package failure attaches an HTTP status to errors raised below the transport layer.
package failure

import (
	"errors"
	"net/http"
)

// Failure is an error the client is meant to see. Message is returned verbatim; the cause
// stays reachable through errors.Is and errors.As but is never rendered.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`

	cause error
}

var ForbiddenError = &Failure{Code: http.StatusForbidden, Message: "You don't have the required permissions"}

func (e *Failure) Error() string {
	return e.Message
}

func (e *Failure) Unwrap() error {
	return e.cause
}

func Wrap(code int, msg string, cause error) error {
	return &Failure{
		Code:    code,
		Message: msg,
		cause:   cause,
	}
}

func New(code int, msg string) error {
	return Wrap(code, msg, nil)
}

// BadRequest keeps the message of err and drops the error itself.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}

	return New(http.StatusBadRequest, err.Error())
}

func BadRequestFromString(msg string) error {
	return New(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) error {
	return New(http.StatusUnauthorized, msg)
}

func Forbidden(msg string) error {
	return New(http.StatusForbidden, msg)
}

func NotFound(msg string) error {
	return New(http.StatusNotFound, msg)
}

func Conflict(msg string) error {
	return New(http.StatusConflict, msg)
}

// ServiceUnavailable marks a transient backend error the caller may retry.
func ServiceUnavailable(err error) error {
	if err == nil {
		return nil
	}

	return Wrap(http.StatusServiceUnavailable, err.Error(), err)
}

// GetCode is 500 for anything that is not a Failure.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}
