package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slotwise/shared/clock"
	"slotwise/shared/constant"
	"slotwise/shared/failure"
	"slotwise/shared/timezone"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var validate *val.Validate

// validateDate accepts calendar dates in YYYY-MM-DD form.
func validateDate(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok {
		return false
	}

	_, err := timezone.Parse(constant.DateOnlyFormat, str)

	return err == nil
}

// validateClock accepts a time of day in HH:MM form.
func validateClock(field val.FieldLevel) bool {
	str, ok := field.Field().Interface().(string)
	if !ok || strings.Count(str, ":") != 1 {
		return false
	}

	_, err := clock.Parse(str)

	return err == nil
}

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == constant.Empty {
			return field.Name
		}

		return name
	})

	if err := validate.RegisterValidation("date", validateDate); err != nil {
		panic(err)
	}

	if err := validate.RegisterValidation("clock", validateClock); err != nil {
		panic(err)
	}
}

// Validate decodes one JSON document from r into data and validates it.
// An empty body and trailing content are both rejected.
func Validate[T any](r io.Reader, data *T) error {
	decoder := json.NewDecoder(r)

	if err := decoder.Decode(data); err != nil {
		if errors.Is(err, io.EOF) {
			return failure.BadRequestFromString("request body is empty") //nolint:wrapcheck
		}

		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	if decoder.More() {
		return failure.BadRequestFromString("request body must contain a single JSON object") //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	if err := validate.Struct(data); err != nil {
		return failure.BadRequestFromString(message(err)) //nolint:wrapcheck
	}

	return nil
}

func ValidateVar(field any, tag string) error {
	if err := validate.Var(field, tag); err != nil {
		return failure.BadRequestFromString(message(err)) //nolint:wrapcheck
	}

	return nil
}
