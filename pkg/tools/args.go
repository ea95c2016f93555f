package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/comigor/travelbot/internal/errorsx"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match what the model sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := jsonName(f); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// DecodeArgs parses a raw tool-call payload into A and validates it. An
// empty payload is treated as an empty object. Some models send the object
// as a JSON string; that form is accepted too. A may implement
// Validate() error for checks spanning several fields.
func DecodeArgs[A any](raw string) (A, error) {
	var args A

	payload := strings.TrimSpace(raw)
	if payload == "" || payload == "null" {
		payload = "{}"
	}
	if strings.HasPrefix(payload, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(payload), &inner); err != nil {
			return args, invalidArgs("malformed JSON: %v", err)
		}
		payload = strings.TrimSpace(inner)
	}

	if err := json.Unmarshal([]byte(payload), &args); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return args, invalidArgs("field %q must be %s, got %s", typeErr.Field, schemaKind(typeErr.Type), typeErr.Value)
		}
		return args, invalidArgs("malformed JSON: %v", err)
	}

	if err := validate.Struct(args); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return args, invalidArgs("%s", describe(verrs[0]))
		}
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return args, invalidArgs("%v", err)
		}
	}

	if v, ok := any(args).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return args, invalidArgs("%v", err)
		}
	}
	return args, nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required field %q", field)
	case "datetime":
		return fmt.Sprintf("field %q must be a date in YYYY-MM-DD format", field)
	case "min", "gte":
		return fmt.Sprintf("field %q must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("field %q must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("field %q failed %s validation", field, fe.Tag())
	}
}

func invalidArgs(format string, a ...any) error {
	return errorsx.Wrap(fmt.Errorf("invalid arguments: "+format, a...), errorsx.ReasonValidation)
}
