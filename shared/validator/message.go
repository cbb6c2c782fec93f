package validator

import (
	"errors"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var messages = map[string]string{
	"required": "{field} is required",
	"oneof":    "{field} must be one of {param}",
	"max":      "{field} must be at most {param} characters",
	"uuid":     "{field} must be a valid UUID",
	"date":     "{field} must be a date in YYYY-MM-DD format",
	"clock":    "{field} must be a time in HH:MM format",
}

// message renders every failed field, in struct order, joined by "; ".
func message(err error) string {
	var valErrors val.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(valErrors))

	for _, valErr := range valErrors {
		field := valErr.Field()
		if field == "" {
			field = "value"
		}

		template, ok := messages[valErr.Tag()]
		if !ok {
			template = "{field} is invalid"
		}

		parts = append(parts, strings.NewReplacer("{field}", field, "{param}", valErr.Param()).Replace(template))
	}

	return strings.Join(parts, "; ")
}
